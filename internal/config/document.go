package config

import (
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultCheckIntervalSeconds int64 = 30
	DefaultExtendSeconds        int64 = 30
	DefaultDayLimitMinutes      int64 = 60
	DefaultAction                     = "lock"
	DefaultLanguage                   = "EN"

	// ledger entries older than this are dropped on every write
	remainingRetentionDays = 30

	dateLayout = "2006-01-02"
)

// Weekdays lists the rule days in schedule order, Monday first.
var Weekdays = []string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

// Rule is one weekday's access policy. start == end (including the
// "00:00"-"00:00" sentinel) means the whole day is permitted, subject only
// to the timer when UseTimer is set.
type Rule struct {
	Day          string `toml:"day"`
	Start        string `toml:"start"`
	End          string `toml:"end"`
	Enabled      bool   `toml:"enabled"`
	UseTimer     bool   `toml:"use_timer"`
	LimitMinutes int64  `toml:"limit_minutes"`
}

// Document is the whole durable configuration document shared with the
// settings UI: global options, the weekly rule set, and the date-keyed
// remaining-seconds ledger.
type Document struct {
	TargetUser           string           `toml:"target_user"`
	CheckIntervalSeconds int64            `toml:"check_interval_seconds"`
	ExtendSeconds        int64            `toml:"extend_seconds"`
	Language             string           `toml:"language"`
	Action               string           `toml:"action"`
	PasswordHash         string           `toml:"password_hash,omitempty"`
	AllowedTimes         []Rule           `toml:"allowed_times"`
	Remaining            map[string]int64 `toml:"remaining,omitempty"`
}

// NewDefaultDocument returns the document written on first run: every
// weekday enabled, full-day, timer-bounded at the default minute limit.
func NewDefaultDocument() Document {
	rules := make([]Rule, 0, len(Weekdays))
	for _, d := range Weekdays {
		rules = append(rules, Rule{
			Day:          d,
			Start:        "00:00",
			End:          "00:00",
			Enabled:      true,
			UseTimer:     true,
			LimitMinutes: DefaultDayLimitMinutes,
		})
	}
	return Document{
		CheckIntervalSeconds: DefaultCheckIntervalSeconds,
		ExtendSeconds:        DefaultExtendSeconds,
		Language:             DefaultLanguage,
		Action:               DefaultAction,
		AllowedTimes:         rules,
	}
}

// Parse decodes a TOML document from raw bytes. Absent global options keep
// their defaults; an explicit zero survives the decode and is handled by the
// accessors.
func Parse(data []byte) (Document, error) {
	doc := Document{
		CheckIntervalSeconds: DefaultCheckIntervalSeconds,
		ExtendSeconds:        DefaultExtendSeconds,
		Language:             DefaultLanguage,
		Action:               DefaultAction,
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Interval returns the evaluation cadence in seconds, floored at one.
func (d *Document) Interval() int64 {
	if d.CheckIntervalSeconds < 1 {
		return 1
	}
	return d.CheckIntervalSeconds
}

// ActionOrDefault returns the configured enforcement action.
func (d *Document) ActionOrDefault() string {
	if d.Action == "" {
		return DefaultAction
	}
	return d.Action
}

// DateKey formats t as a ledger key.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// RemainingFor looks up the ledger entry for the date of t.
func (d *Document) RemainingFor(t time.Time) (int64, bool) {
	sec, ok := d.Remaining[DateKey(t)]
	return sec, ok
}

// SetRemaining records sec for the date of t, floored at zero.
func (d *Document) SetRemaining(t time.Time, sec int64) {
	if d.Remaining == nil {
		d.Remaining = make(map[string]int64)
	}
	if sec < 0 {
		sec = 0
	}
	d.Remaining[DateKey(t)] = sec
}

// ClearRemaining removes the ledger entry for the date of t.
func (d *Document) ClearRemaining(t time.Time) {
	delete(d.Remaining, DateKey(t))
}

// PruneRemaining drops ledger entries older than the retention window.
func (d *Document) PruneRemaining(now time.Time) {
	cutoff := now.AddDate(0, 0, -remainingRetentionDays).Format(dateLayout)
	for k := range d.Remaining {
		if k < cutoff {
			delete(d.Remaining, k)
		}
	}
}

func (d Document) clone() Document {
	out := d
	out.AllowedTimes = append([]Rule(nil), d.AllowedTimes...)
	if d.Remaining != nil {
		out.Remaining = make(map[string]int64, len(d.Remaining))
		for k, v := range d.Remaining {
			out.Remaining[k] = v
		}
	}
	return out
}
