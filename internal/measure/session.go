// Package measure implements the click-driven measurement session: arm a
// kind, collect one atom per click, commit when enough atoms are collected.
package measure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/philipparndt/gomol/internal/capture"
	"github.com/philipparndt/gomol/internal/engine"
	"github.com/philipparndt/gomol/internal/notify"
	"github.com/philipparndt/gomol/pkg/loci"
)

// ErrCommitFailed wraps the engine error of a failed commit
var ErrCommitFailed = errors.New("measurement commit failed")

// ErrUnknownKind is returned when arming an unsupported measurement kind
var ErrUnknownKind = errors.New("unknown measurement kind")

// Idle is the mode of a session with nothing armed
const Idle engine.MeasurementKind = ""

// State is a snapshot of the session
type State struct {
	Mode      engine.MeasurementKind
	Required  int
	Collected []loci.Loci
}

// IsIdle reports whether no measurement is armed
func (s State) IsIdle() bool { return s.Mode == Idle }

// Deps are the collaborators of a Session
type Deps struct {
	Picker        engine.Picker
	Interactivity engine.Interactivity
	Measurements  engine.Measurements
	Capturer      *capture.Capturer
	Notifier      notify.Notifier
	Logger        *slog.Logger
	// OnCommit is called after every successful commit
	OnCommit func(engine.Measurement)
}

// Session is the measurement state machine. It is safe for concurrent use;
// pick events and API calls are serialised on one mutex.
type Session struct {
	deps Deps

	mu         sync.Mutex
	ctx        context.Context
	mode       engine.MeasurementKind
	required   int
	collected  []loci.Loci
	sub        engine.Subscription
	preference engine.Granularity
	hasPref    bool
}

// NewSession creates an idle session. ctx bounds the commits triggered by
// pick events, which carry no context of their own.
func NewSession(ctx context.Context, deps Deps) *Session {
	if deps.Notifier == nil {
		deps.Notifier = notify.Discard
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Session{deps: deps, ctx: ctx}
}

// Arm starts a new session of the given kind. Anything collected so far is
// discarded without committing.
func (s *Session) Arm(kind engine.MeasurementKind) error {
	required := kind.Required()
	if required == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode != Idle && len(s.collected) > 0 {
		s.deps.Logger.Debug("re-arm discards selection", "mode", s.mode, "collected", len(s.collected))
	}
	if !s.hasPref {
		s.preference = s.deps.Interactivity.Granularity()
		s.hasPref = true
	}

	s.mode = kind
	s.required = required
	s.collected = nil
	if s.sub == nil {
		s.sub = s.deps.Picker.SubscribeClicks(s.onClick)
	}
	s.deps.Interactivity.SetGranularity(engine.GranularityElement)
	s.deps.Notifier.Notify(notify.Info, fmt.Sprintf("Click %d atoms", required))
	return nil
}

// Cancel returns to idle without committing
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

// Close releases the pick subscription and restores the granularity
// preference. The session can be armed again afterwards.
func (s *Session) Close() {
	s.Cancel()
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := State{Mode: s.mode, Required: s.required}
	for _, l := range s.collected {
		out.Collected = append(out.Collected, l.Clone())
	}
	return out
}

// SetGranularityPreference sets the granularity restored when the session
// becomes idle. It applies immediately when idle.
func (s *Session) SetGranularityPreference(g engine.Granularity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preference = g
	s.hasPref = true
	if s.mode == Idle {
		s.deps.Interactivity.SetGranularity(g)
	}
}

// ClearMeasurements deletes every committed measurement from the scene
func (s *Session) ClearMeasurements(ctx context.Context) error {
	if err := s.deps.Measurements.ClearMeasurements(ctx); err != nil {
		return fmt.Errorf("clear measurements: %w", err)
	}
	return nil
}

func (s *Session) onClick(ev engine.PickEvent) {
	if err := s.HandlePick(s.ctx, ev); err != nil {
		s.deps.Logger.Debug("pick not accepted", "error", err)
	}
}

// HandlePick feeds one click into the session. Ignored and duplicate clicks
// return their capture error without any notification.
func (s *Session) HandlePick(ctx context.Context, ev engine.PickEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == Idle {
		return capture.ErrIgnored
	}

	var last *loci.Loci
	if n := len(s.collected); n > 0 {
		last = &s.collected[n-1]
	}
	captured, err := s.deps.Capturer.Capture(ev, last)
	switch {
	case errors.Is(err, capture.ErrMultiAtomSelection):
		s.deps.Notifier.Notify(notify.Warning, "Please click exactly one atom")
		return err
	case err != nil:
		return err
	}

	s.collected = append(s.collected, captured)
	if len(s.collected) < s.required {
		s.deps.Notifier.Notify(notify.Info, fmt.Sprintf("Selected %d/%d", len(s.collected), s.required))
		return nil
	}
	return s.commitLocked(ctx)
}

func (s *Session) commitLocked(ctx context.Context) error {
	kind := s.mode
	atoms := s.collected
	defer s.resetLocked()

	m, err := s.deps.Measurements.AddMeasurement(ctx, kind, atoms...)
	if err != nil {
		s.deps.Logger.Error("measurement failed", "kind", kind, "error", err)
		s.deps.Notifier.Notify(notify.Error, fmt.Sprintf("Failed to measure %s", kind))
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}

	s.deps.Logger.Info("measurement committed", "kind", kind, "value", m.Value, "unit", m.Unit)
	s.deps.Notifier.Notify(notify.Success, fmt.Sprintf("Measured %s", kind))
	if s.deps.OnCommit != nil {
		s.deps.OnCommit(m)
	}
	return nil
}

func (s *Session) resetLocked() {
	wasActive := s.mode != Idle || s.sub != nil
	s.mode = Idle
	s.required = 0
	s.collected = nil
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	if wasActive && s.hasPref {
		s.deps.Interactivity.SetGranularity(s.preference)
	}
}
