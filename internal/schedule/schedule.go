// Package schedule evaluates the weekly rule set: whether access is
// permitted right now, and how many seconds of permitted use remain when
// looking ahead across day boundaries.
package schedule

import (
	"time"

	"github.com/da33dut/yourtime/internal/config"
)

// Unlimited is returned when no time limit applies.
const Unlimited = config.Unlimited

// lookahead covers today plus a full week, enough to find a day with no
// active restriction and declare the budget unbounded from there.
const lookaheadDays = 8

// RuleFor returns the rule for the named weekday, or nil when absent.
// A weekday has at most one rule; the first match wins.
func RuleFor(doc *config.Document, weekday string) *config.Rule {
	for i := range doc.AllowedTimes {
		if doc.AllowedTimes[i].Day == weekday {
			return &doc.AllowedTimes[i]
		}
	}
	return nil
}

// DayLimitSeconds returns the rule's per-day limit in seconds, falling back
// to the default when no rule exists.
func DayLimitSeconds(rule *config.Rule) int64 {
	if rule == nil {
		return config.DefaultDayLimitMinutes * 60
	}
	if rule.LimitMinutes < 0 {
		return 0
	}
	return rule.LimitMinutes * 60
}

// IsAllowed reports whether now falls within today's permitted window.
// Absent, disabled or malformed rules deny.
func IsAllowed(doc *config.Document, now time.Time) bool {
	rule := RuleFor(doc, now.Weekday().String())
	if rule == nil || !rule.Enabled {
		return false
	}
	if rule.Start == rule.End {
		return true
	}
	sh, sm, err := ParseClock(rule.Start)
	if err != nil {
		return false
	}
	endAt, err := dayEnd(now, rule.End)
	if err != nil {
		return false
	}
	startAt := time.Date(now.Year(), now.Month(), now.Day(), sh, sm, 0, 0, now.Location())
	return !now.Before(startAt) && now.Before(endAt)
}

// ProjectRemaining computes the effective remaining seconds given the stored
// ledger value, walking forward day by day.
//
// While access is denied the stored value passes through unchanged - no
// countdown accrues. Otherwise each day contributes the remainder of its
// permitted window: a day with no enabled rule ends the walk (any
// accumulated seconds, else Unlimited); a timer-bounded day always ends it
// with min(stored, min(daySeconds, dayLimit)); a ranged day ends it even
// without a timer, since its clock window is the ceiling; only a chain of
// full-day non-timer days keeps accumulating.
func ProjectRemaining(doc *config.Document, stored int64, now time.Time) int64 {
	if !IsAllowed(doc, now) {
		return stored
	}
	var accumulated int64
	closeOut := func() int64 {
		if accumulated > 0 {
			return accumulated
		}
		return Unlimited
	}
	for i := 0; i < lookaheadDays; i++ {
		day := now.AddDate(0, 0, i)
		rule := RuleFor(doc, day.Weekday().String())
		if rule == nil || !rule.Enabled {
			return closeOut()
		}
		limit := DayLimitSeconds(rule)
		full := rule.Start == rule.End

		var secs int64
		if i == 0 {
			if full {
				midnight, _ := dayEnd(day, "00:00")
				secs = secondsUntil(now, midnight)
			} else {
				endAt, err := dayEnd(day, rule.End)
				if err != nil {
					return closeOut()
				}
				if !now.Before(endAt) {
					// window already over today; later days still
					// determine whether a ceiling exists
					continue
				}
				secs = secondsUntil(now, endAt)
			}
		} else {
			if full {
				secs = 86400
			} else {
				eh, em, err := ParseClock(rule.End)
				if err != nil {
					return closeOut()
				}
				secs = int64(eh)*3600 + int64(em)*60
				if rule.UseTimer {
					return accumulated + min(stored, min(secs, limit))
				}
				return accumulated + secs
			}
		}

		if rule.UseTimer {
			return accumulated + min(stored, min(secs, limit))
		}
		if full {
			accumulated += secs
			continue
		}
		return accumulated + secs
	}
	return Unlimited
}

// TodayLimit returns today's per-day limit in seconds.
func TodayLimit(doc *config.Document, now time.Time) int64 {
	return DayLimitSeconds(RuleFor(doc, now.Weekday().String()))
}

// InitialRemaining computes the startup counter value: today's ledger entry
// (or the full limit when none survives), clamped between the check interval
// and today's limit, fed through the projection.
func InitialRemaining(doc *config.Document, now time.Time) int64 {
	ivl := doc.Interval()
	limit := TodayLimit(doc, now)
	stored, ok := doc.RemainingFor(now)
	if !ok {
		stored = limit
	} else {
		stored = max(ivl, min(stored, limit))
	}
	return ProjectRemaining(doc, stored, now)
}

// ResetRemaining returns the counter value after a manual reset, discarding
// any partially spent amount. When access is denied the loop still needs a
// positive counter to keep ticking, so the interval value is returned.
func ResetRemaining(doc *config.Document, now time.Time) int64 {
	if !IsAllowed(doc, now) {
		return doc.Interval()
	}
	return ProjectRemaining(doc, TodayLimit(doc, now), now)
}

func secondsUntil(from, to time.Time) int64 {
	secs := int64(to.Sub(from) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}
