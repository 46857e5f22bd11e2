package callback

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/showheysas/tech0notta/internal/retry"
	"github.com/showheysas/tech0notta/internal/transcriber"
)

type mockPusher struct {
	mu       sync.Mutex
	failures int
	pushed   []Segment
	attempts int
}

func (m *mockPusher) Init(context.Context, string, string) error { return nil }

func (m *mockPusher) Push(_ context.Context, seg Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.failures > 0 {
		m.failures--
		return errors.New("503")
	}
	m.pushed = append(m.pushed, seg)
	return nil
}

var noSleep = retry.SleeperFunc(func(ctx context.Context, _ time.Duration) error { return ctx.Err() })

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}
}

func TestForwarder_PushesFinalResultsInOrder(t *testing.T) {
	p := &mockPusher{}
	f := NewForwarder(p, "Tech Bot", 8, testPolicy(), noSleep)
	go f.Run(context.Background())

	f.OnResult(transcriber.Result{Text: "interim", IsFinal: false})
	f.OnResult(transcriber.Result{Text: "  first  ", IsFinal: true})
	f.OnResult(transcriber.Result{Text: "   ", IsFinal: true})
	f.OnResult(transcriber.Result{Text: "second", IsFinal: true})
	f.Close()

	if len(p.pushed) != 2 {
		t.Fatalf("expected 2 pushes, got %+v", p.pushed)
	}
	if p.pushed[0].Text != "first" || p.pushed[1].Text != "second" || p.pushed[0].Speaker != "Tech Bot" {
		t.Fatalf("unexpected pushes: %+v", p.pushed)
	}
}

func TestForwarder_RetriesThenGivesUp(t *testing.T) {
	p := &mockPusher{failures: 5}
	f := NewForwarder(p, "bot", 8, testPolicy(), noSleep)
	go f.Run(context.Background())

	f.OnResult(transcriber.Result{Text: "lost", IsFinal: true})
	f.Close()

	if p.attempts != 3 || len(p.pushed) != 0 {
		t.Fatalf("expected 3 failed attempts, got attempts=%d pushed=%d", p.attempts, len(p.pushed))
	}
}

func TestForwarder_RecoversAfterTransientFailure(t *testing.T) {
	p := &mockPusher{failures: 1}
	f := NewForwarder(p, "bot", 8, testPolicy(), noSleep)
	go f.Run(context.Background())

	f.OnResult(transcriber.Result{Text: "kept", IsFinal: true})
	f.Close()

	if len(p.pushed) != 1 || p.attempts != 2 {
		t.Fatalf("expected success on retry, attempts=%d pushed=%d", p.attempts, len(p.pushed))
	}
}

func TestForwarder_ResultsAfterCloseAreIgnored(t *testing.T) {
	p := &mockPusher{}
	f := NewForwarder(p, "bot", 1, testPolicy(), noSleep)
	go f.Run(context.Background())
	f.Close()

	f.OnResult(transcriber.Result{Text: "late", IsFinal: true})
	f.Close()
	if len(p.pushed) != 0 {
		t.Fatalf("expected nothing pushed, got %+v", p.pushed)
	}
}
