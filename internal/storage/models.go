package storage

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Period is a leaderboard / benchmark time window
type Period string

const (
	PeriodAll   Period = "all"
	PeriodMonth Period = "month"
	PeriodWeek  Period = "week"
)

// Periods lists every window in computation order
var Periods = []Period{PeriodAll, PeriodMonth, PeriodWeek}

// ParsePeriod validates a period query value, defaulting empty to "all"
func ParsePeriod(s string) (Period, bool) {
	switch s {
	case "", string(PeriodAll):
		return PeriodAll, true
	case string(PeriodMonth):
		return PeriodMonth, true
	case string(PeriodWeek):
		return PeriodWeek, true
	default:
		return "", false
	}
}

// Cutoff returns the inclusive date lower bound for this period relative to
// now, or false for the all-time window.
func (p Period) Cutoff(now time.Time) (string, bool) {
	switch p {
	case PeriodWeek:
		return now.AddDate(0, 0, -7).Format("2006-01-02"), true
	case PeriodMonth:
		return now.AddDate(0, 0, -30).Format("2006-01-02"), true
	default:
		return "", false
	}
}

// User mirrors the users table
type User struct {
	ID           uuid.UUID
	Email        string
	Username     string
	DisplayName  string
	Bio          string
	Location     string
	Region       string
	Website      string
	Image        string
	IsPublic     bool
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
}

// Session is one bearer token row
type Session struct {
	Token     string
	UserID    uuid.UUID
	ExpiresAt time.Time
	CreatedAt time.Time
}

// UsageUpsert is one accumulating upsert row for a bucket key
// (user_id, date, source, model, machine_id). Dates travel as "2006-01-02"
// strings because the client's calendar-date split is authoritative.
type UsageUpsert struct {
	UserID           uuid.UUID
	Date             string
	Source           string
	Model            string
	MachineID        string
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	ReasoningTokens  int64
	Cost             decimal.Decimal
	UsageTimestamp   time.Time
	SyncedAt         time.Time
}

// UsageRecord is a stored daily bucket
type UsageRecord struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	Date             string
	Source           string
	Model            string
	MachineID        string
	InputTokens      int64
	OutputTokens     int64
	CacheReadTokens  int64
	CacheWriteTokens int64
	ReasoningTokens  int64
	Cost             decimal.Decimal
	UsageTimestamp   time.Time
	SyncedAt         time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Streak is one row per user
type Streak struct {
	UserID         uuid.UUID
	CurrentStreak  int
	LongestStreak  int
	LastActiveDate string // "2006-01-02" in the user's timezone, "" when null
	Timezone       string
}

// LeaderboardRow is one cached ranking entry
type LeaderboardRow struct {
	UserID      uuid.UUID
	Period      Period
	Rank        int
	TotalTokens int64
	TotalCost   decimal.Decimal
	StreakDays  int
	RankChange  *int
}

// LeaderboardEntry joins a cached row with profile fields for reads
type LeaderboardEntry struct {
	LeaderboardRow
	Username    string
	DisplayName string
}

// UserAggregate is the per-user rollup used by leaderboards, benchmarks and
// insights.
type UserAggregate struct {
	UserID      uuid.UUID
	TotalTokens int64
	TotalCost   decimal.Decimal
	UniqueTools int
	UniqueDays  int
}

// Benchmark mirrors the community_benchmarks table. Statistic pointers are
// nil when the period had no users.
type Benchmark struct {
	Period               Period
	TotalUsers           int
	AvgTokens            *int64
	MedianTokens         *int64
	TotalCommunityTokens *int64
	AvgCost              *decimal.Decimal
	AvgStreak            *int
	AvgUniqueTools       *int
	AvgCacheEfficiency   *float64
}
