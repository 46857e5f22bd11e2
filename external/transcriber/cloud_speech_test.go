package transcriber

import (
	"errors"
	"io"
	"testing"
	"time"

	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/showheysas/tech0notta/internal/transcriber"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
)

func TestEndpointFor(t *testing.T) {
	if got := endpointFor("global"); got != "" {
		t.Fatalf("expected default endpoint for global, got %q", got)
	}
	if got := endpointFor("asia-northeast1"); got != "asia-northeast1-speech.googleapis.com:443" {
		t.Fatalf("unexpected regional endpoint %q", got)
	}
}

func TestStreamingConfigUsesMonoPCM(t *testing.T) {
	tr := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "p", Location: "asia-northeast1", Model: "chirp_3"}).(*CloudSpeechTranscriber)
	req := tr.streamingConfig("ja-JP")
	if req.GetRecognizer() != "projects/p/locations/asia-northeast1/recognizers/_" {
		t.Fatalf("unexpected recognizer %q", req.GetRecognizer())
	}
	dec := req.GetStreamingConfig().GetConfig().GetExplicitDecodingConfig()
	if dec.GetSampleRateHertz() != transcriber.SampleRateHertz || dec.GetAudioChannelCount() != transcriber.ChannelCount {
		t.Fatalf("unexpected decoding config: %v", dec)
	}
	if langs := req.GetStreamingConfig().GetConfig().GetLanguageCodes(); len(langs) != 1 || langs[0] != "ja-JP" {
		t.Fatalf("unexpected languages %v", langs)
	}
}

func TestResultsFromResponse(t *testing.T) {
	resp := &speechpb.StreamingRecognizeResponse{
		Results: []*speechpb.StreamingRecognitionResult{
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "こんにちは"}}, IsFinal: true, ResultEndOffset: durationpb.New(1500 * time.Millisecond)},
			{},
			{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "途中"}}},
		},
	}
	got := resultsFromResponse(resp)
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Text != "こんにちは" || !got[0].IsFinal || got[0].End != 1500*time.Millisecond {
		t.Fatalf("unexpected first result: %+v", got[0])
	}
	if got[1].IsFinal || got[1].End != 0 {
		t.Fatalf("unexpected interim result: %+v", got[1])
	}
}

func TestIsReconnectableStreamError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"eof", io.EOF, true},
		{"duration limit", status.Error(codes.Aborted, "Max duration of 5 minutes reached for stream."), true},
		{"idle", status.Error(codes.Aborted, "Stream timed out after receiving no more client requests."), true},
		{"other abort", status.Error(codes.Aborted, "something else"), false},
		{"permission", status.Error(codes.PermissionDenied, "denied"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isReconnectableStreamError(tc.err); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}
