package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	return NewStore(filepath.Join(t.TempDir(), "config.toml"))
}

func TestLoad_CreatesDefaultDocument(t *testing.T) {
	s := tempStore(t)

	doc, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, doc.AllowedTimes, 7)
	for i, rule := range doc.AllowedTimes {
		assert.Equal(t, Weekdays[i], rule.Day)
		assert.True(t, rule.Enabled)
		assert.True(t, rule.UseTimer)
		assert.Equal(t, DefaultDayLimitMinutes, rule.LimitMinutes)
	}
	assert.Equal(t, DefaultCheckIntervalSeconds, doc.CheckIntervalSeconds)
	assert.Equal(t, DefaultAction, doc.Action)

	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("default document not written: %v", err)
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	s := tempStore(t)
	doc, err := s.Load()
	require.NoError(t, err)

	doc.TargetUser = "alice"
	doc.AllowedTimes[0] = Rule{Day: "Monday", Start: "09:00", End: "17:00", Enabled: true, UseTimer: true, LimitMinutes: 90}
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	doc.SetRemaining(now, 1234)
	require.NoError(t, s.Save(doc))

	reloaded, err := NewStore(s.Path()).Load()
	require.NoError(t, err)
	assert.Equal(t, "alice", reloaded.TargetUser)
	assert.Equal(t, doc.AllowedTimes[0], reloaded.AllowedTimes[0])
	sec, ok := reloaded.RemainingFor(now)
	assert.True(t, ok)
	assert.Equal(t, int64(1234), sec)
}

func TestLoad_ReturnsIndependentCopies(t *testing.T) {
	s := tempStore(t)
	doc, err := s.Load()
	require.NoError(t, err)
	doc.AllowedTimes[0].Enabled = false

	again, err := s.Load()
	require.NoError(t, err)
	assert.True(t, again.AllowedTimes[0].Enabled, "mutating a loaded copy must not touch the cache")
}

func TestLoad_MalformedFileFallsBackToDefault(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("not = [valid"), 0644))

	doc, err := s.Load()
	assert.Error(t, err)
	assert.Len(t, doc.AllowedTimes, 7, "expected a usable default document alongside the error")
}

func TestPersistRemaining(t *testing.T) {
	s := tempStore(t)
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.PersistRemaining(now, 500))
	doc, err := s.Load()
	require.NoError(t, err)
	sec, ok := doc.RemainingFor(now)
	assert.True(t, ok)
	assert.Equal(t, int64(500), sec)

	// Unlimited removes the entry instead of storing a value
	require.NoError(t, s.PersistRemaining(now, Unlimited))
	doc, err = s.Load()
	require.NoError(t, err)
	_, ok = doc.RemainingFor(now)
	assert.False(t, ok)
}

func TestPersistRemaining_PrunesExpiredEntries(t *testing.T) {
	s := tempStore(t)
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	doc, err := s.Load()
	require.NoError(t, err)
	doc.SetRemaining(now.AddDate(0, 0, -31), 100)
	doc.SetRemaining(now.AddDate(0, 0, -29), 200)
	require.NoError(t, s.Save(doc))

	require.NoError(t, s.PersistRemaining(now, 300))
	doc, err = s.Load()
	require.NoError(t, err)

	_, ok := doc.RemainingFor(now.AddDate(0, 0, -31))
	assert.False(t, ok, "entries older than 30 days must be pruned")
	_, ok = doc.RemainingFor(now.AddDate(0, 0, -29))
	assert.True(t, ok, "entries within 30 days must survive")
}

func TestPersistRemaining_LeavesMalformedDocumentAlone(t *testing.T) {
	s := tempStore(t)
	raw := []byte("not = [valid")
	require.NoError(t, os.WriteFile(s.Path(), raw, 0644))

	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)
	assert.Error(t, s.PersistRemaining(now, 500))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, raw, data, "a ledger write must not replace an unreadable document")
}

func TestPersistRemaining_FloorsNegativeValues(t *testing.T) {
	s := tempStore(t)
	now := time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.PersistRemaining(now, -5))
	doc, err := s.Load()
	require.NoError(t, err)
	sec, ok := doc.RemainingFor(now)
	assert.True(t, ok)
	assert.Equal(t, int64(0), sec)
}

func TestInterval_FloorsAtOne(t *testing.T) {
	doc := Document{CheckIntervalSeconds: 0}
	assert.Equal(t, int64(1), doc.Interval())
	doc.CheckIntervalSeconds = -5
	assert.Equal(t, int64(1), doc.Interval())
	doc.CheckIntervalSeconds = 15
	assert.Equal(t, int64(15), doc.Interval())
}

func TestParse_AbsentOptionsKeepDefaults(t *testing.T) {
	doc, err := Parse([]byte(`target_user = "alice"`))
	require.NoError(t, err)
	assert.Equal(t, DefaultCheckIntervalSeconds, doc.CheckIntervalSeconds)
	assert.Equal(t, DefaultExtendSeconds, doc.ExtendSeconds)
	assert.Equal(t, DefaultAction, doc.Action)

	// an explicit zero is kept and floored by the accessor, not replaced
	// with the default cadence
	doc, err = Parse([]byte("check_interval_seconds = 0"))
	require.NoError(t, err)
	assert.Equal(t, int64(0), doc.CheckIntervalSeconds)
	assert.Equal(t, int64(1), doc.Interval())
}

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(`
target_user = "alice"
check_interval_seconds = 15

[[allowed_times]]
day = "Monday"
start = "09:00"
end = "17:00"
enabled = true
use_timer = true
limit_minutes = 120
`))
	require.NoError(t, err)
	assert.Equal(t, "alice", doc.TargetUser)
	assert.Equal(t, int64(15), doc.CheckIntervalSeconds)
	assert.Len(t, doc.AllowedTimes, 1)
	assert.Equal(t, int64(120), doc.AllowedTimes[0].LimitMinutes)
}
