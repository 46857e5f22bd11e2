// Package botsession dispatches meeting workers and tracks each one through
// PENDING, JOINING, IN_MEETING, LEAVING and finally COMPLETED or ERROR.
package botsession

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/showheysas/tech0notta/internal/credential"
	"github.com/showheysas/tech0notta/internal/errs"
	"github.com/showheysas/tech0notta/internal/launcher"
	"github.com/showheysas/tech0notta/internal/livebus"
	"github.com/showheysas/tech0notta/internal/metrics"
	"github.com/showheysas/tech0notta/internal/registry"
)

const (
	defaultStopTimeout   = 15 * time.Second
	defaultLaunchTimeout = 2 * time.Minute
)

type record struct {
	Session
	cancel context.CancelFunc
	done   chan struct{}
}

// Store is the bot session registry.
type Store = registry.Map[string, *record]

func NewStore() *Store {
	return registry.New[string, *record]()
}

// Speech settings passed through to every worker.
type Speech struct {
	Language string
	Project  string
	Creds    string
	Region   string
	Model    string
}

type Options struct {
	BotName         string
	CallbackBaseURL string
	StopTimeout     time.Duration
	LaunchTimeout   time.Duration
	Speech          Speech
}

type Orchestrator struct {
	store    *Store
	bus      *livebus.Bus
	issuer   credential.Issuer
	launcher launcher.Launcher
	opts     Options

	now   func() time.Time
	newID func() string
}

func NewOrchestrator(store *Store, bus *livebus.Bus, issuer credential.Issuer, l launcher.Launcher, opts Options) *Orchestrator {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = defaultLaunchTimeout
	}
	return &Orchestrator{
		store:    store,
		bus:      bus,
		issuer:   issuer,
		launcher: l,
		opts:     opts,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Dispatch returns a PENDING session and launches its worker in the
// background, or returns the meeting's active session when it has one.
// Only parsing and configuration problems are returned here; launch
// failures show up later as an ERROR state on the session.
func (o *Orchestrator) Dispatch(meetingRef, password string) (Session, error) {
	s, _, err := o.DispatchIfAbsent(meetingRef, password)
	return s, err
}

// DispatchIfAbsent checks for an active session of the meeting in the same
// critical section as the insert. When one exists it is returned with
// created=false and nothing is launched.
func (o *Orchestrator) DispatchIfAbsent(meetingRef, password string) (Session, bool, error) {
	rec, ctx, err := o.prepare(meetingRef, password)
	if err != nil {
		metrics.BotDispatches.WithLabelValues("rejected").Inc()
		return Session{}, false, err
	}
	var (
		out     Session
		created bool
	)
	o.store.Locked(func(items map[string]*record) {
		for _, r := range items {
			if r.MeetingID == rec.MeetingID && r.State.active() {
				out = r.Session
				return
			}
		}
		items[rec.ID] = rec
		out = rec.Session
		created = true
	})
	if !created {
		rec.cancel()
		metrics.BotDispatches.WithLabelValues("duplicate").Inc()
		slog.Info("bot already active for meeting", "meeting_id", rec.MeetingID, "session_id", out.ID, "state", out.State)
		return out, false, nil
	}
	o.start(ctx, rec)
	return out, true, nil
}

func (o *Orchestrator) prepare(meetingRef, password string) (*record, context.Context, error) {
	ref, err := ParseMeetingRef(meetingRef, password)
	if err != nil {
		return nil, nil, err
	}
	if o.issuer == nil || !o.issuer.Configured() {
		return nil, nil, errs.Configuration("meeting SDK credentials are not set")
	}
	now := o.now()
	ctx, cancel := context.WithCancel(context.Background())
	rec := &record{
		Session: Session{
			ID:        o.newID(),
			MeetingID: ref.ID,
			Password:  ref.Password,
			State:     StatePending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	return rec, ctx, nil
}

func (o *Orchestrator) start(ctx context.Context, rec *record) {
	metrics.BotDispatches.WithLabelValues("accepted").Inc()
	metrics.BotSessionsActive.Inc()
	slog.Info("bot dispatched", "session_id", rec.ID, "meeting_id", rec.MeetingID)
	go o.launch(ctx, rec)
}

// launch runs the credential and worker steps. ID, MeetingID and Password
// never change after prepare, so they are read without the lock.
//
// Terminate cancels ctx, but the worker start itself only observes the
// launch timeout: a worker that comes up after the session ended must
// hand back its handle so it can be stopped.
func (o *Orchestrator) launch(ctx context.Context, rec *record) {
	defer close(rec.done)

	token, err := o.issuer.Issue(ctx, rec.MeetingID, credential.RoleParticipant)
	if err != nil {
		o.fail(rec.ID, fmt.Sprintf("credential issue failed: %v", err))
		return
	}
	if !o.advance(rec.ID, StatePending, StateJoining) {
		return
	}
	o.bus.Create(rec.ID, rec.MeetingID, "")

	launchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.LaunchTimeout)
	defer cancel()
	h, err := o.launcher.Launch(launchCtx, o.spec(rec, token))
	if err != nil {
		if errors.Is(launchCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", errs.Timeout("worker launch"), err)
		}
		msg := err.Error()
		var le *errs.LaunchError
		if errors.As(err, &le) && le.Output != "" {
			msg = le.Output
		}
		slog.Error("worker launch failed", "session_id", rec.ID, "error", err)
		o.fail(rec.ID, msg)
		return
	}

	var orphaned bool
	o.store.Update(rec.ID, func(r *record) {
		switch r.State {
		case StateJoining:
			r.Handle = h
			r.State = StateInMeeting
			r.UpdatedAt = o.now()
		case StateLeaving:
			r.Handle = h
		default:
			orphaned = true
		}
	})
	if orphaned {
		slog.Warn("worker started after session ended; stopping it", "session_id", rec.ID, "handle", h)
		o.stopWorker(context.Background(), rec.ID, h)
		return
	}
	slog.Info("worker launched", "session_id", rec.ID, "meeting_id", rec.MeetingID, "handle", h)
}

func (o *Orchestrator) spec(rec *record, token string) launcher.Spec {
	return launcher.Spec{
		SessionID:     rec.ID,
		MeetingID:     rec.MeetingID,
		Password:      rec.Password,
		Token:         token,
		BotName:       o.opts.BotName,
		CallbackURL:   CallbackURL(o.opts.CallbackBaseURL, rec.ID),
		Language:      o.opts.Speech.Language,
		SpeechProject: o.opts.Speech.Project,
		SpeechCreds:   o.opts.Speech.Creds,
		SpeechRegion:  o.opts.Speech.Region,
		SpeechModel:   o.opts.Speech.Model,
	}
}

// CallbackURL is where the worker for sessionID pushes its segments.
func CallbackURL(base, sessionID string) string {
	return strings.TrimRight(base, "/") + "/api/live/segments/" + sessionID
}

func (o *Orchestrator) advance(id string, from, to State) bool {
	var ok bool
	o.store.Update(id, func(r *record) {
		if r.State != from {
			return
		}
		r.State = to
		r.UpdatedAt = o.now()
		ok = true
	})
	return ok
}

// fail moves a session to ERROR unless it is already ending.
func (o *Orchestrator) fail(id, msg string) {
	var failed bool
	o.store.Update(id, func(r *record) {
		if r.State.Terminal() || r.State == StateLeaving {
			return
		}
		r.State = StateError
		r.Message = msg
		r.UpdatedAt = o.now()
		failed = true
	})
	if failed {
		metrics.BotSessionsActive.Dec()
		slog.Error("bot session failed", "session_id", id, "message", msg)
	}
}

func (o *Orchestrator) Get(id string) (Session, bool) {
	var out Session
	ok := o.store.Read(id, func(r *record) { out = r.Session })
	return out, ok
}

// ByMeeting lists every session for the meeting, oldest first.
func (o *Orchestrator) ByMeeting(meetingRef string) []Session {
	key := meetingKey(meetingRef)
	return o.list(func(s Session) bool { return s.MeetingID == key })
}

// Active lists sessions that are not in a terminal state, oldest first.
func (o *Orchestrator) Active() []Session {
	return o.list(func(s Session) bool { return s.State.active() })
}

// All lists every tracked session, oldest first.
func (o *Orchestrator) All() []Session {
	return o.list(func(Session) bool { return true })
}

func (o *Orchestrator) list(keep func(Session) bool) []Session {
	out := registry.Collect(o.store, func(r *record) (Session, bool) {
		return r.Session, keep(r.Session)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Terminate stops a session's worker and marks it COMPLETED. It reports
// false only for an unknown id; sessions that are already ending or ended
// are left as they are.
func (o *Orchestrator) Terminate(ctx context.Context, id string) bool {
	var (
		rec     *record
		leaving bool
	)
	found := o.store.Update(id, func(r *record) {
		rec = r
		if r.State.Terminal() || r.State == StateLeaving {
			return
		}
		r.State = StateLeaving
		r.UpdatedAt = o.now()
		leaving = true
	})
	if !found {
		return false
	}
	if leaving {
		o.finishLeave(ctx, rec)
	}
	return true
}

// TerminateByMeeting terminates every active session of the meeting and
// returns how many this call moved out of the active set.
func (o *Orchestrator) TerminateByMeeting(ctx context.Context, meetingRef string) int {
	return len(o.TerminateMeeting(ctx, meetingRef))
}

// TerminateMeeting is TerminateByMeeting returning the ids this call
// terminated. Sessions another caller is already ending are not included,
// and it returns only once every listed session is COMPLETED.
func (o *Orchestrator) TerminateMeeting(ctx context.Context, meetingRef string) []string {
	key := meetingKey(meetingRef)
	recs := o.beginLeaveWhere(func(r *record) bool { return r.MeetingID == key })
	o.finishAll(ctx, recs)
	if len(recs) == 0 {
		return nil
	}
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	slog.Info("bot sessions terminated for meeting", "meeting_id", key, "count", len(ids))
	return ids
}

// Shutdown terminates every active session.
func (o *Orchestrator) Shutdown(ctx context.Context) int {
	recs := o.beginLeaveWhere(func(*record) bool { return true })
	o.finishAll(ctx, recs)
	return len(recs)
}

func (o *Orchestrator) beginLeaveWhere(match func(*record) bool) []*record {
	var recs []*record
	now := o.now()
	o.store.Locked(func(items map[string]*record) {
		for _, r := range items {
			if !match(r) || r.State.Terminal() || r.State == StateLeaving {
				continue
			}
			r.State = StateLeaving
			r.UpdatedAt = now
			recs = append(recs, r)
		}
	})
	return recs
}

func (o *Orchestrator) finishAll(ctx context.Context, recs []*record) {
	var wg sync.WaitGroup
	for _, r := range recs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.finishLeave(ctx, r)
		}()
	}
	wg.Wait()
}

// finishLeave cancels the launch task, stops the worker and completes the
// session. Every wait is bounded by the stop timeout.
func (o *Orchestrator) finishLeave(ctx context.Context, rec *record) {
	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.opts.StopTimeout)
	defer cancel()

	rec.cancel()
	select {
	case <-rec.done:
	case <-stopCtx.Done():
		slog.Warn("launch task did not exit in time", "session_id", rec.ID, "error", errs.Timeout("launch cancel"))
	}

	var handle launcher.Handle
	o.store.Read(rec.ID, func(r *record) { handle = r.Handle })
	if handle != "" {
		o.stopWorker(stopCtx, rec.ID, handle)
	}

	var late launcher.Handle
	o.store.Update(rec.ID, func(r *record) {
		if r.Handle != handle {
			late = r.Handle
		}
		r.State = StateCompleted
		r.UpdatedAt = o.now()
	})
	if late != "" {
		o.stopWorker(context.Background(), rec.ID, late)
	}
	metrics.BotSessionsActive.Dec()
	metrics.BotTerminations.Inc()
	slog.Info("bot session completed", "session_id", rec.ID, "meeting_id", rec.MeetingID)
}

func (o *Orchestrator) stopWorker(ctx context.Context, id string, h launcher.Handle) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.StopTimeout)
		defer cancel()
	}
	if err := o.launcher.Stop(ctx, h); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", errs.Timeout("worker stop"), err)
		}
		slog.Warn("worker stop failed; continuing", "session_id", id, "handle", h, "error", err)
	}
}
