package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/showheysas/tech0notta/internal/retry"
	"github.com/showheysas/tech0notta/internal/webhook"
)

const (
	attemptTimeout    = 20 * time.Second
	errorBodyMaxBytes = 512
)

// statusError is a non-2xx answer from the receiver.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("webhook returned status %d: %s", e.code, e.body)
}

// HTTPSender posts finalized transcripts as JSON. Network failures, 429 and
// 5xx answers are retried under the policy; other statuses fail at once.
// Every attempt for a session carries the same Idempotency-Key.
type HTTPSender struct {
	webhookURL string
	client     *http.Client
	policy     retry.Policy
	sleeper    retry.Sleeper
}

func NewHTTPSender(webhookURL string, policy retry.Policy, sleeper retry.Sleeper) *HTTPSender {
	if sleeper == nil {
		sleeper = retry.RealSleeper()
	}
	return &HTTPSender{
		webhookURL: webhookURL,
		client:     &http.Client{},
		policy:     policy,
		sleeper:    sleeper,
	}
}

func (s *HTTPSender) SendTranscript(ctx context.Context, payload webhook.TranscriptWebhookPayload) error {
	if s.webhookURL == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal transcript payload: %w", err)
	}

	for failures := 0; ; {
		err := s.post(ctx, payload, body)
		if err == nil {
			return nil
		}
		failures++
		if !retryable(err) || s.policy.Exhausted(failures) || ctx.Err() != nil {
			return fmt.Errorf("send transcript after %d attempt(s): %w", failures, err)
		}
		delay := s.policy.Delay(failures)
		slog.Warn("transcript webhook failed; retrying", "session_id", payload.SessionID, "attempts", failures, "delay", delay.String(), "error", err)
		if serr := s.sleeper.Sleep(ctx, delay); serr != nil {
			return fmt.Errorf("send transcript: %w", err)
		}
	}
}

func (s *HTTPSender) post(ctx context.Context, payload webhook.TranscriptWebhookPayload, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Transcript-Schema-Version", payload.SchemaVersion)
	req.Header.Set("Idempotency-Key", "transcript-"+payload.SessionID)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyMaxBytes))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(b))}
	}
	return nil
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	return true
}
