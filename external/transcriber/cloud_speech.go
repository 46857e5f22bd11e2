package transcriber

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/showheysas/tech0notta/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort = 443
	globalLocation        = "global"
	cloudPlatformScope    = "https://www.googleapis.com/auth/cloud-platform"
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

type CloudSpeechTranscriber struct {
	projectID       string
	credentialsJSON string
	defaultLanguage string
	location        string
	model           string
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) transcriber.Transcriber {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = globalLocation
	}
	return &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		credentialsJSON: cfg.CredentialsJSON,
		defaultLanguage: cfg.Language,
		location:        location,
		model:           strings.TrimSpace(cfg.Model),
	}
}

func (t *CloudSpeechTranscriber) StartStreaming(ctx context.Context, sessionID, language string, receiver transcriber.ResultReceiver) (transcriber.StreamWriter, error) {
	if language == "" {
		language = t.defaultLanguage
	}
	slog.Info("starting cloud speech streaming", "session_id", sessionID, "location", t.location, "language", language, "model", t.model)

	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(t.credentialsJSON),
		Scopes:          []string{cloudPlatformScope},
	})
	if err != nil {
		return nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{option.WithAuthCredentials(creds)}
	if ep := endpointFor(t.location); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	configReq := t.streamingConfig(language)
	open := func() (speechpb.Speech_StreamingRecognizeClient, error) {
		s, err := client.StreamingRecognize(ctx)
		if err != nil {
			return nil, err
		}
		if err := s.Send(configReq); err != nil {
			_ = s.CloseSend()
			return nil, err
		}
		return s, nil
	}

	stream, err := open()
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	slog.Info("cloud speech stream initialized", "session_id", sessionID)

	w := &streamWriter{
		sessionID:   sessionID,
		stream:      stream,
		receiver:    receiver,
		newStreamFn: open,
		closeFn:     client.Close,
	}
	w.startReceiver(stream)
	return w, nil
}

func (t *CloudSpeechTranscriber) streamingConfig(language string) *speechpb.StreamingRecognizeRequest {
	return &speechpb.StreamingRecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location),
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Model:         t.model,
					LanguageCodes: []string{language},
					DecodingConfig: &speechpb.RecognitionConfig_ExplicitDecodingConfig{
						ExplicitDecodingConfig: &speechpb.ExplicitDecodingConfig{
							Encoding:          speechpb.ExplicitDecodingConfig_LINEAR16,
							SampleRateHertz:   transcriber.SampleRateHertz,
							AudioChannelCount: transcriber.ChannelCount,
						},
					},
					Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
				},
				StreamingFeatures: &speechpb.StreamingRecognitionFeatures{InterimResults: true},
			},
		},
	}
}

// endpointFor returns the regional endpoint, or "" for the global one.
func endpointFor(location string) string {
	if location == "" || location == globalLocation {
		return ""
	}
	return fmt.Sprintf("%s-speech.googleapis.com:%d", location, speechAPIEndpointPort)
}

type streamWriter struct {
	mu          sync.Mutex
	closed      bool
	sessionID   string
	stream      speechpb.Speech_StreamingRecognizeClient
	receiver    transcriber.ResultReceiver
	newStreamFn func() (speechpb.Speech_StreamingRecognizeClient, error)
	closeFn     func() error
}

func (w *streamWriter) Write(pcm []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	req := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_Audio{Audio: pcm},
	}
	if err := w.stream.Send(req); err != nil {
		if !isReconnectableStreamError(err) {
			return err
		}
		slog.Warn("transcriber send failed with reconnectable error; reconnecting", "session_id", w.sessionID, "error", err)
		if err := w.reconnectLocked(); err != nil {
			return fmt.Errorf("reconnect stream: %w", err)
		}
		return w.stream.Send(req)
	}
	return nil
}

func (w *streamWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.stream.CloseSend(); err != nil {
		_ = w.closeFn()
		return err
	}
	return w.closeFn()
}

func (w *streamWriter) reconnectLocked() error {
	_ = w.stream.CloseSend()
	next, err := w.newStreamFn()
	if err != nil {
		slog.Error("failed to reconnect transcriber stream", "session_id", w.sessionID, "error", err)
		return err
	}
	w.stream = next
	w.startReceiver(next)
	slog.Info("transcriber stream reconnected", "session_id", w.sessionID)
	return nil
}

func (w *streamWriter) startReceiver(stream speechpb.Speech_StreamingRecognizeClient) {
	go func() {
		for {
			resp, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || status.Code(err) == codes.Canceled {
					slog.Info("transcriber receive loop stopped", "session_id", w.sessionID, "reason", err.Error())
					return
				}
				if isReconnectableStreamError(err) {
					slog.Warn("transcriber receive loop ended with reconnectable abort", "session_id", w.sessionID, "error", err)
					return
				}
				w.receiver.OnError(err)
				return
			}
			for _, r := range resultsFromResponse(resp) {
				w.receiver.OnResult(r)
			}
		}
	}()
}

func resultsFromResponse(resp *speechpb.StreamingRecognizeResponse) []transcriber.Result {
	var out []transcriber.Result
	for _, result := range resp.GetResults() {
		alts := result.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		r := transcriber.Result{
			Text:    alts[0].GetTranscript(),
			IsFinal: result.GetIsFinal(),
		}
		if off := result.GetResultEndOffset(); off != nil {
			r.End = off.AsDuration()
		}
		out = append(out, r)
	}
	return out
}

// isReconnectableStreamError matches the server closing a stream that hit
// its duration limit or idled out.
func isReconnectableStreamError(err error) bool {
	if errors.Is(err, io.EOF) || strings.Contains(strings.ToLower(err.Error()), "eof") {
		return true
	}
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Aborted {
		return false
	}
	msg := strings.ToLower(st.Message())
	return strings.Contains(msg, "max duration of 5 minutes") ||
		strings.Contains(msg, "stream timed out after receiving no more client requests")
}
