// Package streak maintains per-user daily activity streaks. All date
// arithmetic happens on calendar dates in the user's stored IANA timezone;
// an invalid timezone degrades silently to UTC.
package streak

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/burntop/burntop/internal/logger"
	"github.com/burntop/burntop/internal/storage"
)

const dateLayout = "2006-01-02"

// DefaultAtRiskHour is the local hour from which an unextended streak
// counts as at risk.
const DefaultAtRiskHour = 22

// Engine applies streak transitions against the store
type Engine struct {
	store *storage.Store
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

// Transition computes the next (current, longest) pair for an activity on
// date. Same-day repeats and backdated activity leave the streak unchanged;
// a one-day gap extends it; anything larger resets current to 1.
func Transition(current, longest int, last, date string) (int, int, error) {
	activity, err := time.Parse(dateLayout, date)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing activity date %q: %w", date, err)
	}

	if last == "" {
		return 1, max(1, longest), nil
	}
	if date == last {
		return current, longest, nil
	}

	prev, err := time.Parse(dateLayout, last)
	if err != nil {
		return 0, 0, fmt.Errorf("parsing last active date %q: %w", last, err)
	}

	days := int(activity.Sub(prev) / (24 * time.Hour))
	switch {
	case days == 1:
		next := current + 1
		return next, max(next, longest), nil
	case days > 1:
		return 1, longest, nil
	default:
		// Backdated activity never shrinks a streak
		return current, longest, nil
	}
}

// UpdateStreak records activity on activityDate for a user, creating the
// streak row on first sight. A changed timezone is persisted. Backdated
// activity updates nothing but the timezone.
func (e *Engine) UpdateStreak(ctx context.Context, userID uuid.UUID, activityDate, tz string) (*storage.Streak, error) {
	st, err := e.store.GetStreak(ctx, userID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		st = &storage.Streak{UserID: userID, Timezone: "UTC"}
	}
	if tz != "" && st.Timezone != tz {
		st.Timezone = tz
	}

	current, longest, err := Transition(st.CurrentStreak, st.LongestStreak, st.LastActiveDate, activityDate)
	if err != nil {
		return nil, err
	}

	st.CurrentStreak = current
	st.LongestStreak = longest
	if st.LastActiveDate == "" || activityDate > st.LastActiveDate {
		st.LastActiveDate = activityDate
	}
	if err := e.store.UpsertStreak(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// CheckBreak reports whether a user's streak is broken: current > 0 and
// the last active day is more than one local day behind now.
func (e *Engine) CheckBreak(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	st, err := e.store.GetStreak(ctx, userID)
	if err != nil {
		return false, err
	}
	if st == nil || st.CurrentStreak == 0 || st.LastActiveDate == "" {
		return false, nil
	}
	return daysBehind(st, now) > 1, nil
}

// GetAtRisk returns active streaks whose owner has not been active today
// (in their timezone) and whose local clock has reached hourThreshold.
func (e *Engine) GetAtRisk(ctx context.Context, now time.Time, hourThreshold int) ([]storage.Streak, error) {
	if hourThreshold <= 0 {
		hourThreshold = DefaultAtRiskHour
	}

	active, err := e.store.ListActiveStreaks(ctx)
	if err != nil {
		return nil, err
	}

	var atRisk []storage.Streak
	for _, st := range active {
		if st.LastActiveDate == "" {
			continue
		}
		loc := loadLocation(st.Timezone)
		local := now.In(loc)
		if st.LastActiveDate < local.Format(dateLayout) && local.Hour() >= hourThreshold {
			atRisk = append(atRisk, st)
		}
	}
	return atRisk, nil
}

func daysBehind(st *storage.Streak, now time.Time) int {
	loc := loadLocation(st.Timezone)
	today, _ := time.Parse(dateLayout, now.In(loc).Format(dateLayout))
	last, err := time.Parse(dateLayout, st.LastActiveDate)
	if err != nil {
		return 0
	}
	return int(today.Sub(last) / (24 * time.Hour))
}

func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		logger.Warn("invalid timezone, falling back to UTC", "timezone", tz)
		return time.UTC
	}
	return loc
}
