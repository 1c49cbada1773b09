package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agrilink/sessiongate/config"
	domainauth "github.com/agrilink/sessiongate/internal/domain/auth"
	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
	"github.com/agrilink/sessiongate/internal/observability/telemetry"
	"github.com/agrilink/sessiongate/internal/ports"
)

// Phase is the coarse lifecycle state of the controller.
type Phase string

const (
	PhaseUninitialized   Phase = "uninitialized"
	PhaseInitializing    Phase = "initializing"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseUnauthenticated Phase = "unauthenticated"
	PhaseTornDown        Phase = "torn_down"
)

// ProfilePhase is the sub-phase of an authenticated session.
type ProfilePhase string

const (
	ProfileNone    ProfilePhase = ""
	ProfileLoading ProfilePhase = "loading"
	ProfileReady   ProfilePhase = "ready"
	ProfileError   ProfilePhase = "error"
)

// State is the UI-facing projection of the controller. It is reconstructed
// on every process start from session and profile lookups, never persisted.
type State struct {
	Phase        Phase
	ProfilePhase ProfilePhase
	Session      *domainauth.Session
	User         *domainauth.User
	Profile      *domainprofile.Profile
	Loading      bool
	Err          string
}

// equal reports whether two states describe the same observable condition.
// Fan-out to subscribers happens only on real transitions.
func (s State) equal(o State) bool {
	if s.Phase != o.Phase || s.ProfilePhase != o.ProfilePhase ||
		s.Loading != o.Loading || s.Err != o.Err {
		return false
	}
	if (s.Session == nil) != (o.Session == nil) || (s.User == nil) != (o.User == nil) ||
		(s.Profile == nil) != (o.Profile == nil) {
		return false
	}
	if s.Session != nil && *s.Session != *o.Session {
		return false
	}
	if s.User != nil && *s.User != *o.User {
		return false
	}
	if s.Profile != nil && s.Profile.ID != o.Profile.ID {
		return false
	}
	return true
}

// SessionControllerOptions groups dependencies for SessionController.
type SessionControllerOptions struct {
	Provider  ports.AuthProvider
	Loader    *ProfileLoader
	Poller    *ProfilePoller
	Telemetry telemetry.Recorder
	Logger    *slog.Logger
	Config    config.SessionConfig
}

// SessionController owns the authoritative {session, user, profile, loading,
// error} state. It drives the one-time initialization sequence, subscribes to
// the provider's push channel, and resolves races between the initial pull
// and early push events.
//
// Concurrency model: every asynchronous chain captures the generation counter
// at spawn and re-checks it before each state write. Push events bump the
// generation, so a stale continuation (a slow pull resolving after a
// session-terminated event) can never resurrect superseded state.
type SessionController struct {
	provider  ports.AuthProvider
	loader    *ProfileLoader
	poller    *ProfilePoller
	telemetry telemetry.Recorder
	logger    *slog.Logger
	cfg       config.SessionConfig

	// one-shot latch: repeated Start calls from host-runtime re-invocation
	// are no-ops after the first.
	started atomic.Bool

	mu          sync.Mutex
	state       State
	gen         uint64
	tornDown    bool
	unsub       ports.Unsubscribe
	safetyTimer *time.Timer
	subscribers map[int]func(State)
	nextSubID   int
}

// NewSessionController constructs a SessionController in the uninitialized state.
func NewSessionController(opts SessionControllerOptions) *SessionController {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Telemetry
	if rec == nil {
		rec = telemetry.Nop()
	}
	cfg := opts.Config
	cfg.Sanitize()
	return &SessionController{
		provider:    opts.Provider,
		loader:      opts.Loader,
		poller:      opts.Poller,
		telemetry:   rec,
		logger:      logger,
		cfg:         cfg,
		state:       State{Phase: PhaseUninitialized},
		subscribers: make(map[int]func(State)),
	}
}

// Snapshot returns a copy of the current state.
func (c *SessionController) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a state listener, invoked once per real transition.
// The current state is delivered immediately.
func (c *SessionController) Subscribe(fn func(State)) ports.Unsubscribe {
	c.mu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.subscribers[id] = fn
	current := c.state
	c.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
		})
	}
}

// Start triggers the one-time initialization sequence and registers the push
// subscription. Repeated calls are no-ops. Start returns immediately; state
// is observed through Snapshot and Subscribe.
func (c *SessionController) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		c.logger.Debug("initialization already triggered, ignoring re-invocation")
		return
	}

	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	gen := c.gen
	c.mu.Unlock()

	// Subscribe before the pull so early push events are not lost; the
	// generation check resolves whichever of the two lands second.
	unsub := c.provider.OnAuthStateChange(c.handleEvent)
	timer := time.AfterFunc(c.cfg.SafetyTimeout, c.fireSafetyTimeout)

	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		unsub()
		timer.Stop()
		return
	}
	c.unsub = unsub
	c.safetyTimer = timer
	c.mu.Unlock()

	c.mutate(gen, func(s *State) {
		s.Phase = PhaseInitializing
		s.Loading = true
	})

	go c.initialize(ctx, gen)
}

// initialize is the pull path: fetch the session with a bounded timeout, with
// exactly one Reset-and-retry on a transient failure, then resolve the profile.
func (c *SessionController) initialize(ctx context.Context, gen uint64) {
	sess, err := c.pullSession(ctx)
	if err != nil {
		c.telemetry.Record(ctx, telemetry.Event{
			Level:    slog.LevelError,
			Category: telemetry.CategoryAuth,
			Message:  "session pull failed",
			Data:     map[string]any{"error": err.Error()},
		})
		c.mutate(gen, func(s *State) {
			s.Phase = PhaseUnauthenticated
			s.Loading = false
			s.Err = "could not establish session"
		})
		return
	}

	if sess == nil {
		c.mutate(gen, func(s *State) {
			s.Phase = PhaseUnauthenticated
			s.Loading = false
			s.Err = ""
		})
		return
	}

	user := sess.User()
	c.telemetry.Record(ctx, telemetry.Event{
		Level:    slog.LevelInfo,
		Category: telemetry.CategoryAuth,
		Message:  "session established from pull",
		Data:     map[string]any{"user_id": user.ID},
	})
	c.mutate(gen, func(s *State) {
		s.Phase = PhaseAuthenticated
		s.ProfilePhase = ProfileLoading
		s.Session = sess
		s.User = &user
		s.Loading = true
	})
	c.loadProfile(ctx, gen, user.ID)
}

// pullSession races the session fetch against its deadline. A timeout or
// transient failure triggers exactly one gateway reset and one retry before
// the failure surfaces.
func (c *SessionController) pullSession(ctx context.Context) (*domainauth.Session, error) {
	res := RaceDeadline(ctx, c.cfg.SessionPullTimeout, c.provider.GetSession)
	if !res.TimedOut && res.Err == nil {
		return res.Value, nil
	}
	if !res.TimedOut && !apperrors.IsTransient(res.Err) {
		return nil, res.Err
	}

	// A severed in-flight request can wedge the shared handle; rebuild it
	// before the single retry.
	c.logger.Warn("session pull failed, resetting provider handle", "timed_out", res.TimedOut)
	c.provider.Reset()

	retry := RaceDeadline(ctx, c.cfg.SessionPullTimeout, c.provider.GetSession)
	if retry.TimedOut {
		return nil, apperrors.Timeout("session pull timed out after reset")
	}
	return retry.Value, retry.Err
}

// loadProfile runs the loader and applies the outcome if the chain is still live.
func (c *SessionController) loadProfile(ctx context.Context, gen uint64, userID string) error {
	prof, err := c.loader.Load(ctx, userID)
	switch {
	case err != nil:
		// A profile failure does not log the user out: session and user stay.
		c.mutate(gen, func(s *State) {
			s.ProfilePhase = ProfileError
			s.Loading = false
			s.Err = err.Error()
		})
		if c.poller != nil && apperrors.IsTransient(err) {
			go c.recoverProfile(ctx, gen, userID)
		}
		return err
	case prof == nil:
		// Suppressed duplicate: the in-flight chain that holds the marker
		// owns the outcome; this chain stands down without touching state.
		c.logger.Debug("profile load collapsed into in-flight duplicate", "user_id", userID)
		return nil
	default:
		c.mutate(gen, func(s *State) {
			s.ProfilePhase = ProfileReady
			s.Profile = prof
			s.Loading = false
			s.Err = ""
		})
		return nil
	}
}

// recoverProfile is the degraded-mode path behind a spent retry budget: keep
// polling in the background and apply the profile if it eventually appears.
// The generation check still governs the write, so a session change during
// the poll discards the result.
func (c *SessionController) recoverProfile(ctx context.Context, gen uint64, userID string) {
	prof, err := c.poller.Poll(ctx, userID)
	if err != nil {
		c.logger.Warn("profile recovery polling gave up", "user_id", userID, "error", err)
		return
	}
	c.telemetry.Record(ctx, telemetry.Event{
		Level:    slog.LevelInfo,
		Category: telemetry.CategoryProfile,
		Message:  "profile recovered by polling",
		Data:     map[string]any{"user_id": userID},
	})
	c.mutate(gen, func(s *State) {
		s.ProfilePhase = ProfileReady
		s.Profile = prof
		s.Loading = false
		s.Err = ""
	})
}

// handleEvent is the push path. It runs for the lifetime of the controller.
func (c *SessionController) handleEvent(ev domainauth.Event) {
	ctx := context.Background()
	c.telemetry.Record(ctx, telemetry.Event{
		Level:    slog.LevelInfo,
		Category: telemetry.CategoryAuth,
		Message:  "auth state change",
		Data:     map[string]any{"kind": string(ev.Kind)},
	})

	switch ev.Kind {
	case domainauth.EventSessionEstablished:
		if ev.Session == nil {
			return
		}
		user := ev.Session.User()
		gen := c.supersede(func(s *State) {
			s.Phase = PhaseAuthenticated
			s.ProfilePhase = ProfileLoading
			s.Session = ev.Session
			s.User = &user
			s.Loading = true
		})
		go c.loadProfile(ctx, gen, user.ID)

	case domainauth.EventSessionTerminated:
		c.supersede(func(s *State) {
			s.Phase = PhaseUnauthenticated
			s.ProfilePhase = ProfileNone
			s.Session = nil
			s.User = nil
			s.Profile = nil
			s.Loading = false
			s.Err = ""
		})

	case domainauth.EventTokenRefreshed, domainauth.EventUserUpdated:
		// Observability only; refresh the session payload when one is carried.
		if ev.Session == nil {
			return
		}
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()
		c.mutate(gen, func(s *State) {
			if s.Phase == PhaseAuthenticated {
				s.Session = ev.Session
			}
		})
	}
}

// RefreshProfile re-runs the loader for the current user, replacing the
// cached profile. It is the only mutation path exposed to UI consumers.
func (c *SessionController) RefreshProfile(ctx context.Context) error {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return apperrors.Internal("controller is torn down")
	}
	user := c.state.User
	gen := c.gen
	c.mu.Unlock()

	if user == nil {
		err := apperrors.Validation("no authenticated user to refresh")
		c.telemetry.Record(ctx, telemetry.Event{
			Level:    slog.LevelWarn,
			Category: telemetry.CategoryProfile,
			Message:  "refresh requested without a user",
		})
		return err
	}

	// A marker left over from the load that populated the current profile
	// would otherwise suppress the refresh and strand ProfileLoading until
	// the window expires.
	c.loader.ReleaseMarkers(ctx, user.ID)

	c.mutate(gen, func(s *State) {
		s.ProfilePhase = ProfileLoading
		s.Loading = true
	})
	return c.loadProfile(ctx, gen, user.ID)
}

// Close tears the controller down: pending timers are cancelled, the push
// subscription is released, and no further state mutation can occur.
func (c *SessionController) Close() {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return
	}
	c.tornDown = true
	c.gen++
	c.state.Phase = PhaseTornDown
	unsub := c.unsub
	timer := c.safetyTimer
	c.unsub = nil
	c.safetyTimer = nil
	c.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if unsub != nil {
		unsub()
	}
}

// fireSafetyTimeout is the global safety valve: if initialization has not
// completed by the deadline, loading is forced clear and an error surfaces
// even if the underlying chain never resolves.
func (c *SessionController) fireSafetyTimeout() {
	c.mu.Lock()
	if c.tornDown || !c.state.Loading {
		c.mu.Unlock()
		return
	}
	prev := c.state
	c.state.Loading = false
	c.state.Err = "initialization timed out"
	if c.state.Phase == PhaseInitializing {
		c.state.Phase = PhaseUnauthenticated
	}
	if c.state.ProfilePhase == ProfileLoading {
		c.state.ProfilePhase = ProfileError
	}
	next := c.state
	subs := c.subscriberSnapshotLocked()
	c.mu.Unlock()

	c.logger.Error("initialization safety timeout fired")
	if !prev.equal(next) {
		for _, fn := range subs {
			fn(next)
		}
	}
}

// mutate applies a state change when the originating chain is still live:
// the controller is not torn down and gen is still current. Subscribers are
// notified only when the observable state actually changed.
func (c *SessionController) mutate(gen uint64, fn func(*State)) {
	c.mu.Lock()
	if c.tornDown || gen != c.gen {
		c.mu.Unlock()
		return
	}
	prev := c.state
	fn(&c.state)
	next := c.state
	subs := c.subscriberSnapshotLocked()
	c.mu.Unlock()

	if prev.equal(next) {
		return
	}
	for _, fn := range subs {
		fn(next)
	}
}

// supersede bumps the generation (invalidating every in-flight chain) and
// applies the state change unconditionally. Used by push events, which always
// represent fresher truth than a pending pull.
func (c *SessionController) supersede(fn func(*State)) uint64 {
	c.mu.Lock()
	if c.tornDown {
		c.mu.Unlock()
		return 0
	}
	c.gen++
	gen := c.gen
	prev := c.state
	fn(&c.state)
	next := c.state
	subs := c.subscriberSnapshotLocked()
	c.mu.Unlock()

	if !prev.equal(next) {
		for _, fn := range subs {
			fn(next)
		}
	}
	return gen
}

func (c *SessionController) subscriberSnapshotLocked() []func(State) {
	subs := make([]func(State), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		subs = append(subs, fn)
	}
	return subs
}
