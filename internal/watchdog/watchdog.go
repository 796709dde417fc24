// Package watchdog runs the background enforcement loop: a one-second tick
// that drains the live counter, throttled ledger persistence, periodic
// schedule evaluation, and the warning/trigger callbacks.
package watchdog

import (
	"context"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/da33dut/yourtime/internal/clock"
	"github.com/da33dut/yourtime/internal/config"
	"github.com/da33dut/yourtime/internal/identity"
	"github.com/da33dut/yourtime/internal/schedule"
)

// TriggerReason tells the host why the enforcement action fired.
type TriggerReason string

const (
	ReasonTimeout TriggerReason = "timeout-while-allowed"
	ReasonBlocked TriggerReason = "blocked-while-denied"
)

// Phase is the loop's enforcement state, re-evaluated on each cadence
// boundary.
type Phase int

const (
	// PhaseUnarmed means no target user is configured or another account
	// is active; the loop ticks but never acts.
	PhaseUnarmed Phase = iota
	// PhaseCounting means access is allowed and the counter is draining.
	PhaseCounting
	// PhaseWarning means the counter dropped to within one check interval;
	// the warning callback has fired for this episode.
	PhaseWarning
	// PhaseTriggered means the counter reached zero and the trigger fired;
	// the next cycle re-arms the counter before normal ticking resumes.
	PhaseTriggered
	// PhaseDenied means the access predicate is false; the counter was
	// clamped to the interval on the denial edge.
	PhaseDenied
)

// SaveInterval throttles ledger writes to one per this many ticks.
const SaveInterval = 10

type allowedTri int

const (
	triUnknown allowedTri = iota
	triYes
	triNo
)

// Watchdog owns the live counter. External writers go through Extend,
// Reduce and SetRemaining, which synchronize on the internal mutex and may
// Kick the loop to re-evaluate immediately.
type Watchdog struct {
	store     *config.Store
	onTrigger func(TriggerReason, string)
	onWarn    func(minutes int64)
	identity  func() string
	clock     clock.Clock
	tick      time.Duration

	mu         sync.Mutex
	remaining  int64
	phase      Phase
	wasAllowed allowedTri
	saveLeft   int

	kickCh chan struct{}
}

type Option func(*Watchdog)

func WithClock(c clock.Clock) Option {
	return func(w *Watchdog) { w.clock = c }
}

// WithTick shortens the loop granularity; tests use this to run the loop at
// millisecond speed.
func WithTick(d time.Duration) Option {
	return func(w *Watchdog) { w.tick = d }
}

// WithIdentity replaces the active-account lookup.
func WithIdentity(fn func() string) Option {
	return func(w *Watchdog) { w.identity = fn }
}

// New creates a watchdog bound to the document store. Both callbacks are
// invoked from the loop's own goroutine.
func New(store *config.Store, onTrigger func(TriggerReason, string), onWarn func(int64), opts ...Option) *Watchdog {
	w := &Watchdog{
		store:     store,
		onTrigger: onTrigger,
		onWarn:    onWarn,
		identity:  identity.Current,
		clock:     clock.SystemClock{},
		tick:      time.Second,
		remaining: config.Unlimited,
		saveLeft:  SaveInterval,
		kickCh:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run ticks until ctx is cancelled. A failed cycle is logged and the loop
// keeps going; losing one cycle is acceptable, losing the loop is not.
func (w *Watchdog) Run(ctx context.Context) error {
	st := loopState{}
	doc := w.loadDoc()
	st.ivl = doc.Interval()
	st.cd = st.ivl

	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	log.Info("watchdog started")
	for {
		kicked := false
		select {
		case <-ctx.Done():
			log.Info("watchdog stopped")
			return nil
		case <-w.kickCh:
			kicked = true
		case <-ticker.C:
		}
		w.cycle(&st, kicked)
	}
}

type loopState struct {
	ivl int64 // evaluation cadence, in ticks
	cd  int64 // ticks until the next evaluation
}

func (w *Watchdog) cycle(st *loopState, kicked bool) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("watchdog cycle failed")
		}
	}()

	if w.consumeTrigger() {
		// re-arm after a trigger: persist the exhausted counter, then
		// clamp to the interval so the action is not re-fired every tick
		// while it takes effect asynchronously
		doc := w.loadDoc()
		st.ivl = doc.Interval()
		w.persist(0)
		w.SetRemaining(st.ivl)
		st.cd = st.ivl
		return
	}

	w.persistTick()
	st.cd--
	if st.cd <= 0 || kicked {
		doc := w.loadDoc()
		st.ivl = doc.Interval()
		st.cd = st.ivl
		w.evaluate(&doc, st.ivl)
	}
}

// persistTick drains the counter by one second and handles the throttled
// ledger write.
func (w *Watchdog) persistTick() {
	w.mu.Lock()
	if w.remaining > 0 {
		w.remaining--
	}
	w.saveLeft--
	due := w.saveLeft <= 0
	if due {
		w.saveLeft = SaveInterval
	}
	rem := w.remaining
	w.mu.Unlock()

	if due && rem > 0 {
		w.persist(rem)
	}
}

// evaluate re-checks identity, schedule and counter, moving the phase and
// firing edge-triggered callbacks.
func (w *Watchdog) evaluate(doc *config.Document, ivl int64) {
	target := strings.ToLower(strings.TrimSpace(doc.TargetUser))
	if target == "" || strings.ToLower(strings.TrimSpace(w.identity())) != target {
		w.mu.Lock()
		w.phase = PhaseUnarmed
		w.mu.Unlock()
		return
	}

	now := w.clock.Now()
	allowed := schedule.IsAllowed(doc, now)
	action := doc.ActionOrDefault()

	// an allowed<->denied transition clamps the counter exactly once per
	// edge, not on every evaluation
	var clamp bool
	w.mu.Lock()
	switch {
	case w.wasAllowed == triUnknown:
		w.wasAllowed = triOf(allowed)
		clamp = !allowed
	case (w.wasAllowed == triYes) != allowed:
		w.wasAllowed = triOf(allowed)
		clamp = !allowed
	}
	w.mu.Unlock()
	if clamp {
		w.SetRemaining(ivl)
	}

	rem := w.Remaining()
	if rem == 0 {
		w.mu.Lock()
		w.phase = PhaseTriggered
		w.mu.Unlock()
		reason := ReasonBlocked
		if allowed {
			reason = ReasonTimeout
		}
		log.WithFields(log.Fields{"reason": reason, "action": action}).Warn("time budget exhausted")
		if w.onTrigger != nil {
			w.onTrigger(reason, action)
		}
		return
	}

	next := nextPhase(rem, ivl, allowed)
	w.mu.Lock()
	warn := next == PhaseWarning && w.phase != PhaseWarning
	w.phase = next
	w.mu.Unlock()

	if warn && w.onWarn != nil {
		w.onWarn(max(0, rem/60))
	}
}

// nextPhase is the pure transition function for a non-zero counter.
func nextPhase(rem, ivl int64, allowed bool) Phase {
	if !allowed {
		return PhaseDenied
	}
	if rem != config.Unlimited && rem <= ivl {
		return PhaseWarning
	}
	return PhaseCounting
}

func triOf(allowed bool) allowedTri {
	if allowed {
		return triYes
	}
	return triNo
}

// consumeTrigger reports and clears a pending post-trigger re-arm.
func (w *Watchdog) consumeTrigger() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.phase == PhaseTriggered {
		w.phase = PhaseCounting
		return true
	}
	return false
}

// Remaining returns the live counter value.
func (w *Watchdog) Remaining() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.remaining
}

// CurrentPhase returns the loop's enforcement state.
func (w *Watchdog) CurrentPhase() Phase {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.phase
}

// SetRemaining replaces the counter, restarts the warning episode and the
// save throttle, and persists the new value.
func (w *Watchdog) SetRemaining(rem int64) {
	w.mu.Lock()
	w.remaining = rem
	if w.phase == PhaseWarning {
		w.phase = PhaseCounting
	}
	w.saveLeft = SaveInterval
	w.mu.Unlock()
	w.persist(rem)
}

// Adjust adds delta seconds, clamped between the check interval and today's
// limit. A no-op while the counter is unlimited.
func (w *Watchdog) Adjust(delta int64) {
	doc := w.loadDoc()
	now := w.clock.Now()
	limit := schedule.TodayLimit(&doc, now)
	ivl := doc.Interval()

	w.mu.Lock()
	if w.remaining == config.Unlimited {
		w.mu.Unlock()
		return
	}
	w.remaining = max(ivl, min(w.remaining+delta, limit))
	if w.phase == PhaseWarning {
		w.phase = PhaseCounting
	}
	rem := w.remaining
	w.mu.Unlock()
	w.persist(rem)
}

func (w *Watchdog) Extend(sec int64) { w.Adjust(+absSec(sec)) }
func (w *Watchdog) Reduce(sec int64) { w.Adjust(-absSec(sec)) }

// Kick wakes the loop for an immediate re-evaluation instead of waiting out
// the cadence.
func (w *Watchdog) Kick() {
	select {
	case w.kickCh <- struct{}{}:
	default:
	}
}

func (w *Watchdog) loadDoc() config.Document {
	doc, err := w.store.Load()
	if err != nil {
		log.WithError(err).Warn("watchdog running on default document")
	}
	return doc
}

func (w *Watchdog) persist(rem int64) {
	if err := w.store.PersistRemaining(w.clock.Now(), rem); err != nil {
		log.WithError(err).Error("failed to persist remaining time")
	}
}

func absSec(sec int64) int64 {
	if sec < 0 {
		return -sec
	}
	return sec
}
