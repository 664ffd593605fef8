package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/sirupsen/logrus"

	"fleet_allocator/internal/geo"
)

const (
	stateIdle                = "idle"
	statePermissionRequested = "permission_requested"
	stateTracking            = "tracking"
)

// Config is the single configuration surface for a tracking session.
type Config struct {
	// Accuracy hint passed through to the provider ("high", "balanced").
	Accuracy string

	// MinTimeInterval and MinDistance gate emission: a fix is reported only
	// when both thresholds are met since the last reported fix.
	MinTimeInterval time.Duration
	MinDistance     float64 // meters
}

// DefaultConfig matches the intervals the mobile clients ship with.
func DefaultConfig() Config {
	return Config{
		Accuracy:        "high",
		MinTimeInterval: 5 * time.Second,
		MinDistance:     10,
	}
}

// Callback receives each qualifying fix.
type Callback func(Fix)

// Tracker runs the idle -> permission_requested -> tracking state machine
// over a PositionProvider. One goroutine consumes the subscription; Stop is
// idempotent and synchronous.
type Tracker struct {
	provider PositionProvider
	cfg      Config
	machine  *fsm.FSM

	mu          sync.Mutex
	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
}

// New builds a Tracker in the idle state.
func New(provider PositionProvider, cfg Config) *Tracker {
	if cfg.MinTimeInterval <= 0 {
		cfg.MinTimeInterval = DefaultConfig().MinTimeInterval
	}
	if cfg.MinDistance <= 0 {
		cfg.MinDistance = DefaultConfig().MinDistance
	}
	t := &Tracker{provider: provider, cfg: cfg}
	t.machine = fsm.NewFSM(
		stateIdle,
		fsm.Events{
			{Name: "request", Src: []string{stateIdle}, Dst: statePermissionRequested},
			{Name: "grant", Src: []string{statePermissionRequested}, Dst: stateTracking},
			{Name: "deny", Src: []string{statePermissionRequested}, Dst: stateIdle},
			{Name: "stop", Src: []string{stateTracking, statePermissionRequested}, Dst: stateIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logrus.WithFields(logrus.Fields{
					"from":  e.Src,
					"to":    e.Dst,
					"event": e.Event,
				}).Debug("Tracker state changed.")
			},
		},
	)
	return t
}

// State returns the current machine state, for UIs and tests.
func (t *Tracker) State() string {
	return t.machine.Current()
}

// Start requests permission if needed and begins delivering filtered fixes
// to cb. On denial it reports the error and stays idle; it does not retry
// the prompt on its own.
func (t *Tracker) Start(ctx context.Context, cb Callback) error {
	t.mu.Lock()
	if t.machine.Current() != stateIdle {
		t.mu.Unlock()
		return ErrAlreadyTracking
	}
	if err := t.machine.Event(ctx, "request"); err != nil {
		t.mu.Unlock()
		return err
	}
	t.mu.Unlock()

	status, err := t.provider.RequestPermission(ctx)
	if err != nil {
		t.transition(ctx, "deny")
		return err
	}
	switch status {
	case PermissionDenied:
		t.transition(ctx, "deny")
		return ErrPermissionDenied
	case PermissionUnavailable:
		t.transition(ctx, "deny")
		return ErrServiceDisabled
	}

	runCtx, cancel := context.WithCancel(ctx)
	readings, unsubscribe, err := t.provider.Subscribe(runCtx, t.cfg.Accuracy)
	if err != nil {
		cancel()
		t.transition(ctx, "deny")
		return err
	}

	// The grant is mandatory: if Stop moved the machine back to idle while
	// the prompt was open, tear the subscription down instead of delivering
	// fixes for a session the caller already ended.
	done := make(chan struct{})
	t.mu.Lock()
	if err := t.machine.Event(ctx, "grant"); err != nil {
		t.mu.Unlock()
		cancel()
		unsubscribe()
		return ErrStopped
	}
	t.cancel = cancel
	t.unsubscribe = unsubscribe
	t.done = done
	t.mu.Unlock()

	go t.consume(runCtx, readings, cb, done)
	return nil
}

// Stop tears down the subscription. Safe to call when not tracking; after it
// returns no further callbacks fire.
func (t *Tracker) Stop() {
	t.mu.Lock()
	cancel := t.cancel
	unsubscribe := t.unsubscribe
	done := t.done
	t.cancel = nil
	t.unsubscribe = nil
	t.done = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsubscribe != nil {
		unsubscribe()
	}
	if done != nil {
		<-done
	}
	t.transition(context.Background(), "stop")
}

func (t *Tracker) transition(ctx context.Context, event string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.machine.Can(event) {
		return nil
	}
	return t.machine.Event(ctx, event)
}

// consume filters the reading stream. The first fix always emits; later
// fixes emit only when both the time and distance thresholds are met
// relative to the last emitted fix. Transient provider errors are logged and
// skipped without changing state.
func (t *Tracker) consume(ctx context.Context, readings <-chan Reading, cb Callback, done chan struct{}) {
	defer close(done)

	var last *Fix
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-readings:
			if !ok {
				return
			}
			if r.Err != nil {
				logrus.WithError(r.Err).Warn("Transient position read failure, waiting for next fix.")
				continue
			}
			fix := r.Fix
			if last != nil {
				elapsed := fix.Timestamp.Sub(last.Timestamp)
				moved := geo.Distance(last.Latitude, last.Longitude, fix.Latitude, fix.Longitude)
				if elapsed < t.cfg.MinTimeInterval || moved < t.cfg.MinDistance {
					logrus.WithFields(logrus.Fields{
						"elapsed":  elapsed,
						"moved_m":  moved,
						"min_time": t.cfg.MinTimeInterval,
						"min_dist": t.cfg.MinDistance,
					}).Debug("Fix below reporting thresholds, skipped.")
					continue
				}
			}
			last = &fix
			cb(fix)
		}
	}
}
