package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/showheysas/tech0notta/internal/archive"
	"github.com/showheysas/tech0notta/internal/botsession"
	"github.com/showheysas/tech0notta/internal/credential"
	"github.com/showheysas/tech0notta/internal/ingest"
	"github.com/showheysas/tech0notta/internal/launcher"
	"github.com/showheysas/tech0notta/internal/lifecycle"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/showheysas/tech0notta/internal/retry"
	"github.com/showheysas/tech0notta/internal/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubIssuer struct{ configured bool }

func (s stubIssuer) Issue(context.Context, string, credential.Role) (string, error) {
	return "token", nil
}

func (s stubIssuer) Configured() bool { return s.configured }

type stubLauncher struct{}

func (stubLauncher) Launch(_ context.Context, spec launcher.Spec) (launcher.Handle, error) {
	return launcher.Handle("worker-" + spec.SessionID), nil
}

func (stubLauncher) Stop(context.Context, launcher.Handle) error { return nil }

// blockingDialer never connects; it returns once the stream is stopped.
type blockingDialer struct{}

func (blockingDialer) Dial(ctx context.Context, _, _ string) (ingest.Conn, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type nopArchiver struct{}

func (nopArchiver) SaveTranscript(context.Context, archive.Transcript) error { return nil }

type recordingSender struct {
	mu       sync.Mutex
	payloads []webhook.TranscriptWebhookPayload
}

func (r *recordingSender) SendTranscript(_ context.Context, p webhook.TranscriptWebhookPayload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}

type testServer struct {
	handler http.Handler
	bots    *botsession.Orchestrator
	bus     *livebus.Bus
	streams *ingest.Client
}

func newTestServer(t *testing.T, secret string, devMode bool, sdkConfigured bool) *testServer {
	t.Helper()
	bus := livebus.NewBus(livebus.NewStore(), time.UTC)
	issuer := stubIssuer{configured: sdkConfigured}
	bots := botsession.NewOrchestrator(botsession.NewStore(), bus, issuer, stubLauncher{}, botsession.Options{
		BotName:         "Tech Bot",
		CallbackBaseURL: "http://localhost:8000",
		StopTimeout:     time.Second,
	})
	streams := ingest.NewClient(ingest.NewStore(), bus, blockingDialer{}, retry.DefaultPolicy(), nil)
	t.Cleanup(streams.StopAll)
	coord := lifecycle.NewCoordinator(bots, streams, bus, nopArchiver{}, &recordingSender{}, "UTC", time.UTC)

	return &testServer{
		handler: NewRouter(
			NewHealthHandler(),
			NewBotHandler(bots, issuer),
			NewLiveHandler(bus, bots),
			NewWebhookHandler(coord, streams, secret, devMode),
		),
		bots:    bots,
		bus:     bus,
		streams: streams,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "", true, true)
	if rec := s.do(t, http.MethodGet, PathHealth, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, PathMetrics, nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("unexpected metrics status %d", rec.Code)
	}
}

func TestDispatch(t *testing.T) {
	s := newTestServer(t, "", true, true)

	rec := s.do(t, http.MethodPost, "/api/bot/dispatch", map[string]string{"meeting_id": "https://host/j/555?pwd=ab"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		Success    bool               `json:"success"`
		Dispatched bool               `json:"dispatched"`
		Session    BotSessionResponse `json:"session"`
	}](t, rec)
	if !resp.Success || !resp.Dispatched || resp.Session.MeetingID != "555" || resp.Session.Status != "pending" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	waitUntil(t, func() bool {
		got, _ := s.bots.Get(resp.Session.ID)
		return got.State == botsession.StateInMeeting
	})
	status := decode[BotSessionResponse](t, s.do(t, http.MethodGet, "/api/bot/"+resp.Session.ID+"/status", nil, nil))
	if status.Status != "in_meeting" || status.ContainerID != "worker-"+resp.Session.ID {
		t.Fatalf("unexpected status: %+v", status)
	}

	sessions := decode[[]BotSessionResponse](t, s.do(t, http.MethodGet, "/api/bot/sessions", nil, nil))
	if len(sessions) != 1 {
		t.Fatalf("expected one active session, got %d", len(sessions))
	}

	if rec := s.do(t, http.MethodPost, "/api/bot/"+resp.Session.ID+"/terminate", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("unexpected terminate status %d", rec.Code)
	}
	got, _ := s.bots.Get(resp.Session.ID)
	if got.State != botsession.StateCompleted {
		t.Fatalf("expected completed, got %s", got.State)
	}
}

func TestDispatch_DuplicateMeetingReturnsActiveSession(t *testing.T) {
	s := newTestServer(t, "", true, true)
	type dispatchResponse struct {
		Dispatched bool               `json:"dispatched"`
		Session    BotSessionResponse `json:"session"`
	}

	first := decode[dispatchResponse](t, s.do(t, http.MethodPost, "/api/bot/dispatch", map[string]string{"meeting_id": "555"}, nil))
	rec := s.do(t, http.MethodPost, "/api/bot/dispatch", map[string]string{"meeting_id": "https://x.zoom.us/j/555?pwd=a"}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	second := decode[dispatchResponse](t, rec)
	if !first.Dispatched || second.Dispatched || second.Session.ID != first.Session.ID {
		t.Fatalf("expected second request to return %s undispatched, got %+v", first.Session.ID, second)
	}
	active := 0
	for _, b := range s.bots.Active() {
		if b.MeetingID == "555" {
			active++
		}
	}
	if active != 1 {
		t.Fatalf("expected one active session for meeting, got %d", active)
	}
}

func TestDispatch_Errors(t *testing.T) {
	s := newTestServer(t, "", true, true)
	if rec := s.do(t, http.MethodPost, "/api/bot/dispatch", map[string]string{}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing meeting id, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/bot/dispatch", map[string]string{"meeting_id": "abc"}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for meeting without digits, got %d", rec.Code)
	}

	unconfigured := newTestServer(t, "", true, false)
	if rec := unconfigured.do(t, http.MethodPost, "/api/bot/dispatch", map[string]string{"meeting_id": "555"}, nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without sdk credentials, got %d", rec.Code)
	}
	health := decode[map[string]any](t, unconfigured.do(t, http.MethodGet, "/api/bot/health", nil, nil))
	if health["sdk_configured"] != false {
		t.Fatalf("unexpected bot health: %v", health)
	}
}

func TestBotUnknownSession(t *testing.T) {
	s := newTestServer(t, "", true, true)
	if rec := s.do(t, http.MethodGet, "/api/bot/missing/status", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/bot/missing/terminate", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	resp := decode[map[string]any](t, s.do(t, http.MethodPost, "/api/bot/meetings/555/terminate", nil, nil))
	if resp["terminated"] != float64(0) {
		t.Fatalf("unexpected terminate response: %v", resp)
	}
}

func TestLiveSegments_PushAndPoll(t *testing.T) {
	s := newTestServer(t, "", true, true)

	if rec := s.do(t, http.MethodGet, "/api/live/segments/s1", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}

	for i := range 3 {
		rec := s.do(t, http.MethodPost, "/api/live/segments/s1/push", PushSegmentRequest{Speaker: "Alice", Text: "line " + strconv.Itoa(i), SpeakerID: "u1"}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("push %d failed: %d %s", i, rec.Code, rec.Body.String())
		}
	}

	all := decode[SegmentsResponse](t, s.do(t, http.MethodGet, "/api/live/segments/s1", nil, nil))
	if all.TotalCount != 3 || len(all.Segments) != 3 || all.Session.MeetingID != unknownMeetingID {
		t.Fatalf("unexpected segments: %+v", all)
	}
	if all.Segments[0].Initials != "Al" || all.Segments[0].ColorClass == "" {
		t.Fatalf("unexpected segment rendering: %+v", all.Segments[0])
	}

	since := decode[SegmentsResponse](t, s.do(t, http.MethodGet, "/api/live/segments/s1?since_id="+all.Segments[0].ID+"&limit=1", nil, nil))
	if len(since.Segments) != 1 || since.Segments[0].ID != all.Segments[1].ID {
		t.Fatalf("unexpected cursor read: %+v", since.Segments)
	}

	for _, q := range []string{"limit=0", "limit=501", "limit=abc"} {
		if rec := s.do(t, http.MethodGet, "/api/live/segments/s1?"+q, nil, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", q, rec.Code)
		}
	}

	if rec := s.do(t, http.MethodPost, "/api/live/segments/s1/push", map[string]string{"speaker": "Alice"}, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing text, got %d", rec.Code)
	}
}

func TestLiveSegments_AutoCreatesFromBotSession(t *testing.T) {
	s := newTestServer(t, "", true, true)
	bot, err := s.bots.Dispatch("555", "")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	rec := s.do(t, http.MethodGet, "/api/live/segments/"+bot.ID, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	resp := decode[SegmentsResponse](t, rec)
	if resp.Session.MeetingID != "555" {
		t.Fatalf("expected live session for bot meeting, got %+v", resp.Session)
	}
}

func TestLiveInitAndClear(t *testing.T) {
	s := newTestServer(t, "", true, true)

	first := decode[map[string]any](t, s.do(t, http.MethodPost, "/api/live/segments/s1/init?meeting_id=555&meeting_topic=Standup", nil, nil))
	if first["created"] != true {
		t.Fatalf("expected created, got %v", first)
	}
	second := decode[map[string]any](t, s.do(t, http.MethodPost, "/api/live/segments/s1/init?meeting_id=999", nil, nil))
	if second["created"] != false {
		t.Fatalf("expected existing session, got %v", second)
	}
	info, _ := s.bus.Get("s1")
	if info.MeetingID != "555" || info.Topic != "Standup" {
		t.Fatalf("init must not overwrite existing session: %+v", info)
	}

	sessions := decode[[]LiveSessionResponse](t, s.do(t, http.MethodGet, "/api/live/sessions", nil, nil))
	if len(sessions) != 1 {
		t.Fatalf("expected one live session, got %d", len(sessions))
	}

	if rec := s.do(t, http.MethodDelete, "/api/live/segments/s1", nil, nil); rec.Code != http.StatusOK {
		t.Fatalf("unexpected delete status %d", rec.Code)
	}
	if rec := s.do(t, http.MethodDelete, "/api/live/segments/s1", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestSpeakers(t *testing.T) {
	s := newTestServer(t, "", true, true)
	if rec := s.do(t, http.MethodGet, "/api/live/speakers/s1", nil, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	s.do(t, http.MethodPost, "/api/live/segments/s1/push", PushSegmentRequest{Speaker: "Guest-1", Text: "hi", SpeakerID: "g1"}, nil)

	rec := s.do(t, http.MethodPut, "/api/live/speakers/s1", SpeakerMappingRequest{Mapping: map[string]string{"g1": "田中太郎"}}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if rec := s.do(t, http.MethodPut, "/api/live/speakers/missing", SpeakerMappingRequest{Mapping: map[string]string{}}, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}

	resp := decode[struct {
		Speakers []SpeakerResponse `json:"speakers"`
		Mapping  map[string]string `json:"mapping"`
	}](t, s.do(t, http.MethodGet, "/api/live/speakers/s1", nil, nil))
	if len(resp.Speakers) != 1 || resp.Mapping["g1"] != "田中太郎" {
		t.Fatalf("unexpected speakers: %+v", resp)
	}

	segs := decode[SegmentsResponse](t, s.do(t, http.MethodGet, "/api/live/segments/s1", nil, nil))
	if segs.Segments[0].Speaker != "田中太郎" || segs.Segments[0].Initials != "田中" {
		t.Fatalf("expected remapped speaker, got %+v", segs.Segments[0])
	}
}
