package controller

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/da33dut/yourtime/internal/clock"
	"github.com/da33dut/yourtime/internal/config"
	"github.com/da33dut/yourtime/internal/watchdog"
)

// monday is 2024-06-03, a Monday.
var monday = time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

func testController(t *testing.T) (*Controller, *config.Store) {
	store := config.NewStore(filepath.Join(t.TempDir(), "config.toml"))
	ctl := New(store, nil, nil,
		WithClock(&clock.Fixed{Current: monday}),
		WithIdentity(func() string { return "alice" }),
	)
	return ctl, store
}

func weeklyRules(limitMin int64) []config.Rule {
	rules := make([]config.Rule, 0, len(config.Weekdays))
	for _, d := range config.Weekdays {
		rules = append(rules, config.Rule{
			Day: d, Start: "00:00", End: "00:00",
			Enabled: true, UseTimer: true, LimitMinutes: limitMin,
		})
	}
	return rules
}

func TestLoad_ArmsFullLimitOnFreshDocument(t *testing.T) {
	ctl, _ := testController(t)

	_, err := ctl.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(3600), ctl.Remaining(), "default document is 60 timer-bounded minutes per day")
	assert.True(t, ctl.IsAllowed())
}

func TestLoad_RestoresPersistedValue(t *testing.T) {
	ctl, store := testController(t)
	require.NoError(t, store.PersistRemaining(monday, 1234))

	_, err := ctl.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), ctl.Remaining())

	// reloading with an unchanged clock reproduces the same value
	_, err = ctl.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1234), ctl.Remaining())
}

func TestLoad_IgnoresStaleEntryAfterDayRollover(t *testing.T) {
	store := config.NewStore(filepath.Join(t.TempDir(), "config.toml"))
	fc := &clock.Fixed{Current: monday}
	ctl := New(store, nil, nil,
		WithClock(fc),
		WithIdentity(func() string { return "alice" }),
	)
	require.NoError(t, store.PersistRemaining(monday, 120))

	_, err := ctl.Load()
	require.NoError(t, err)
	require.Equal(t, int64(120), ctl.Remaining())

	// the ledger entry is keyed to Monday; Tuesday starts on the full limit
	fc.Set(monday.AddDate(0, 0, 1))
	_, err = ctl.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(3600), ctl.Remaining())
}

func TestSave_RewritesDocumentAndResets(t *testing.T) {
	ctl, store := testController(t)
	_, err := ctl.Load()
	require.NoError(t, err)
	require.NoError(t, store.PersistRemaining(monday, 42))

	settings := Settings{
		Language:             "EN",
		Action:               "logoff",
		CheckIntervalSeconds: 15,
		ExtendSeconds:        60,
	}
	require.NoError(t, ctl.Save(settings, weeklyRules(30)))

	doc, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", doc.TargetUser)
	assert.Equal(t, "logoff", doc.Action)
	assert.Equal(t, int64(15), doc.CheckIntervalSeconds)
	assert.Len(t, doc.AllowedTimes, 7)

	assert.Equal(t, int64(1800), ctl.Remaining(), "save resets to the new full limit")

	// the stale pre-save entry is gone; what remains is the fresh reset value
	sec, ok := doc.RemainingFor(monday)
	if ok {
		assert.Equal(t, int64(1800), sec)
	}
}

func TestSave_RejectsBadInput(t *testing.T) {
	ctl, _ := testController(t)
	_, err := ctl.Load()
	require.NoError(t, err)

	assert.Error(t, ctl.Save(Settings{}, weeklyRules(30)[:3]), "partial week must be rejected")

	rules := weeklyRules(30)
	rules[2].Start = "07:00"
	rules[2].End = "26:00"
	assert.Error(t, ctl.Save(Settings{}, rules), "invalid window times must be rejected")
}

func TestResetTimer_DiscardsSpentTime(t *testing.T) {
	ctl, store := testController(t)
	require.NoError(t, store.PersistRemaining(monday, 120))
	_, err := ctl.Load()
	require.NoError(t, err)
	require.Equal(t, int64(120), ctl.Remaining())

	ctl.ResetTimer()
	assert.Equal(t, int64(3600), ctl.Remaining())
}

func TestStop_PersistsFinalValue(t *testing.T) {
	ctl, store := testController(t)
	_, err := ctl.Load()
	require.NoError(t, err)

	ctl.Stop()

	doc, err := store.Load()
	require.NoError(t, err)
	sec, ok := doc.RemainingFor(monday)
	assert.True(t, ok)
	assert.Equal(t, int64(3600), sec)
}

func TestStop_TerminatesLoop(t *testing.T) {
	ctl, _ := testController(t)

	ctl.Start()
	done := make(chan struct{})
	go func() {
		ctl.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
	}
}

func TestPasswordGate(t *testing.T) {
	ctl, _ := testController(t)

	assert.True(t, ctl.CheckPassword("anything"), "no stored hash accepts any password")
	assert.True(t, ctl.Unlocked(), "no password means the gate is open")

	require.NoError(t, ctl.SetPassword("s3cret"))
	assert.True(t, ctl.HasPassword())
	assert.False(t, ctl.Unlocked())
	assert.False(t, ctl.CheckPassword("wrong"))
	assert.False(t, ctl.Unlock("wrong"))

	assert.True(t, ctl.Unlock("s3cret"))
	assert.True(t, ctl.Unlocked())

	ctl.Lock()
	assert.False(t, ctl.Unlocked())

	require.NoError(t, ctl.SetPassword(""))
	assert.False(t, ctl.HasPassword())
	assert.True(t, ctl.Unlocked())
}

func TestPhaseStartsUnarmed(t *testing.T) {
	ctl, _ := testController(t)
	assert.Equal(t, watchdog.PhaseUnarmed, ctl.Phase())
}
