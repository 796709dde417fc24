// Package controller is the single entry point around the enforcement loop:
// load/save lifecycle, manual adjustments, reset, shutdown persistence and
// the password-gated unlock state.
package controller

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/da33dut/yourtime/internal/clock"
	"github.com/da33dut/yourtime/internal/config"
	"github.com/da33dut/yourtime/internal/identity"
	"github.com/da33dut/yourtime/internal/schedule"
	"github.com/da33dut/yourtime/internal/watchdog"
)

const bcryptCost = 12

// Settings carries the host-editable global options for Save.
type Settings struct {
	Language             string
	Action               string
	CheckIntervalSeconds int64
	ExtendSeconds        int64
}

// Controller wires the document store and the watchdog together.
type Controller struct {
	store    *config.Store
	wd       *watchdog.Watchdog
	wdOpts   []watchdog.Option
	clock    clock.Clock
	identity func() string

	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	doc      config.Document
	unlocked bool
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) { ctl.clock = c }
}

func WithIdentity(fn func() string) Option {
	return func(ctl *Controller) { ctl.identity = fn }
}

// WithWatchdogOptions forwards options to the underlying loop.
func WithWatchdogOptions(opts ...watchdog.Option) Option {
	return func(ctl *Controller) { ctl.wdOpts = append(ctl.wdOpts, opts...) }
}

// New creates a controller; both callbacks are invoked from the loop's
// goroutine.
func New(store *config.Store, onTrigger func(watchdog.TriggerReason, string), onWarn func(int64), opts ...Option) *Controller {
	ctl := &Controller{
		store:    store,
		clock:    clock.SystemClock{},
		identity: identity.Current,
	}
	for _, opt := range opts {
		opt(ctl)
	}
	ctl.wdOpts = append(ctl.wdOpts,
		watchdog.WithClock(ctl.clock),
		watchdog.WithIdentity(ctl.identity),
	)
	ctl.wd = watchdog.New(store, onTrigger, onWarn, ctl.wdOpts...)
	return ctl
}

// Start launches the enforcement loop.
func (c *Controller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go func() {
		defer close(c.done)
		if err := c.wd.Run(ctx); err != nil {
			log.WithError(err).Error("watchdog exited")
		}
	}()
}

// Stop persists the final counter value unconditionally, then terminates
// the loop. This is the one persistence path that must not be skipped.
func (c *Controller) Stop() {
	if err := c.store.PersistRemaining(c.clock.Now(), c.wd.Remaining()); err != nil {
		log.WithError(err).Error("failed to persist remaining time on shutdown")
	}
	if c.cancel != nil {
		c.cancel()
		<-c.done
	}
}

// Load reads the document, arms the counter with the startup projection and
// returns a copy for the host.
func (c *Controller) Load() (config.Document, error) {
	doc, err := c.store.Load()
	if err != nil {
		log.WithError(err).Warn("loaded default document")
	}
	c.mu.Lock()
	c.doc = doc
	c.mu.Unlock()
	c.wd.SetRemaining(schedule.InitialRemaining(&doc, c.clock.Now()))
	c.wd.Kick()
	return doc, err
}

// Save rewrites the weekly rule set and global options, discards today's
// now-obsolete ledger entry so the next load recomputes fresh, and resets
// the loop.
func (c *Controller) Save(s Settings, rules []config.Rule) error {
	if len(rules) != len(config.Weekdays) {
		return fmt.Errorf("expected %d weekday rules, got %d", len(config.Weekdays), len(rules))
	}
	for _, r := range rules {
		if r.Start == r.End {
			continue
		}
		if !schedule.ValidateClock(r.Start) || !schedule.ValidateClock(r.End) {
			return fmt.Errorf("rule for %s has an invalid time window %s-%s", r.Day, r.Start, r.End)
		}
	}

	doc, err := c.store.Load()
	if err != nil {
		log.WithError(err).Warn("saving over a default document")
	}
	doc.TargetUser = c.identity()
	doc.CheckIntervalSeconds = s.CheckIntervalSeconds
	doc.ExtendSeconds = s.ExtendSeconds
	doc.Language = s.Language
	doc.Action = s.Action
	doc.AllowedTimes = append([]config.Rule(nil), rules...)

	now := c.clock.Now()
	doc.ClearRemaining(now)
	if err := c.store.Save(doc); err != nil {
		return err
	}

	c.mu.Lock()
	c.doc = doc
	c.mu.Unlock()
	c.wd.SetRemaining(schedule.ResetRemaining(&doc, now))
	c.wd.Kick()
	return nil
}

// ResetTimer discards any partially spent amount and restores today's full
// budget.
func (c *Controller) ResetTimer() {
	doc, err := c.store.Load()
	if err != nil {
		log.WithError(err).Warn("resetting over a default document")
	}
	c.mu.Lock()
	c.doc = doc
	c.mu.Unlock()
	c.wd.SetRemaining(schedule.ResetRemaining(&doc, c.clock.Now()))
	c.wd.Kick()
}

// Extend adds seconds to the live counter; Reduce subtracts. Both are no-ops
// while the counter is unlimited.
func (c *Controller) Extend(sec int64) {
	c.wd.Extend(sec)
	c.wd.Kick()
}

func (c *Controller) Reduce(sec int64) {
	c.wd.Reduce(sec)
	c.wd.Kick()
}

// Remaining returns the live counter value.
func (c *Controller) Remaining() int64 {
	return c.wd.Remaining()
}

// Phase returns the loop's current enforcement state.
func (c *Controller) Phase() watchdog.Phase {
	return c.wd.CurrentPhase()
}

// IsAllowed evaluates the access predicate against the last loaded document.
func (c *Controller) IsAllowed() bool {
	c.mu.Lock()
	doc := c.doc
	c.mu.Unlock()
	return schedule.IsAllowed(&doc, c.clock.Now())
}

// CheckPassword verifies pw against the stored hash; an empty stored hash
// accepts anything.
func (c *Controller) CheckPassword(pw string) bool {
	doc, _ := c.store.Load()
	if doc.PasswordHash == "" {
		return true
	}
	return bcrypt.CompareHashAndPassword([]byte(doc.PasswordHash), []byte(pw)) == nil
}

// SetPassword stores a new password hash; an empty pw removes protection.
func (c *Controller) SetPassword(pw string) error {
	doc, err := c.store.Load()
	if err != nil {
		log.WithError(err).Warn("setting password on a default document")
	}
	if pw == "" {
		doc.PasswordHash = ""
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcryptCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		doc.PasswordHash = string(hash)
	}
	return c.store.Save(doc)
}

// HasPassword reports whether a password gate is configured.
func (c *Controller) HasPassword() bool {
	doc, _ := c.store.Load()
	return doc.PasswordHash != ""
}

// Unlock opens the settings gate when pw matches.
func (c *Controller) Unlock(pw string) bool {
	if !c.CheckPassword(pw) {
		return false
	}
	c.mu.Lock()
	c.unlocked = true
	c.mu.Unlock()
	return true
}

// Lock closes the settings gate again.
func (c *Controller) Lock() {
	c.mu.Lock()
	c.unlocked = false
	c.mu.Unlock()
}

// Unlocked reports whether privileged operations are currently permitted.
// Without a configured password the gate is always open.
func (c *Controller) Unlocked() bool {
	c.mu.Lock()
	unlocked := c.unlocked
	c.mu.Unlock()
	return unlocked || !c.HasPassword()
}
