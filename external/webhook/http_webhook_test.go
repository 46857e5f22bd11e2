package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/showheysas/tech0notta/internal/retry"
	"github.com/showheysas/tech0notta/internal/webhook"
)

// recordingSleeper returns at once and remembers the requested delays.
type recordingSleeper struct{ delays []time.Duration }

func (r *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newSender(url string, sleeper *recordingSleeper) *HTTPSender {
	return NewHTTPSender(url, retry.Policy{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2}, sleeper)
}

func samplePayload() webhook.TranscriptWebhookPayload {
	return webhook.TranscriptWebhookPayload{
		SchemaVersion: webhook.TranscriptWebhookSchemaVersion,
		SessionID:     "s1",
		MeetingID:     "555",
		MeetingTopic:  "Standup",
		Speakers:      []string{"Alice"},
		SegmentCount:  1,
		TranscriptSegments: []webhook.TranscriptWebhookSegment{
			{Index: 0, SegmentID: "seg-1", Speaker: "Alice", Transcript: "hello"},
		},
		Transcript: "hello",
	}
}

func TestSendTranscript_EmptyWebhookURL(t *testing.T) {
	sender := newSender("", &recordingSleeper{})
	if err := sender.SendTranscript(context.Background(), samplePayload()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSendTranscript_Success(t *testing.T) {
	var got webhook.TranscriptWebhookPayload
	var gotVersion, gotKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		gotVersion = r.Header.Get("X-Transcript-Schema-Version")
		gotKey = r.Header.Get("Idempotency-Key")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := newSender(server.URL, &recordingSleeper{}).SendTranscript(context.Background(), samplePayload()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.SessionID != "s1" || got.MeetingTopic != "Standup" || len(got.TranscriptSegments) != 1 {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if gotVersion != webhook.TranscriptWebhookSchemaVersion {
		t.Fatalf("unexpected schema version header %q", gotVersion)
	}
	if gotKey != "transcript-s1" {
		t.Fatalf("unexpected idempotency key %q", gotKey)
	}
}

func TestSendTranscript_RetriesUntilExhausted(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	err := newSender(server.URL, sleeper).SendTranscript(context.Background(), samplePayload())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if len(sleeper.delays) != 2 || sleeper.delays[0] != 2*time.Second || sleeper.delays[1] != 4*time.Second {
		t.Fatalf("unexpected backoff delays: %v", sleeper.delays)
	}
}

func TestSendTranscript_RecoversAfterServerError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "unavailable", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	if err := newSender(server.URL, &recordingSleeper{}).SendTranscript(context.Background(), samplePayload()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestSendTranscript_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer server.Close()

	sleeper := &recordingSleeper{}
	if err := newSender(server.URL, sleeper).SendTranscript(context.Background(), samplePayload()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 || len(sleeper.delays) != 0 {
		t.Fatalf("expected a single attempt, got %d with delays %v", calls.Load(), sleeper.delays)
	}
}
