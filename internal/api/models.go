package api

import (
	"encoding/json"
	"time"
)

// SyncRequest is the payload POSTed by client tools. Field names are
// accepted in camelCase or snake_case because older clients emit the latter.
type SyncRequest struct {
	Version   string        `json:"version"`
	Client    string        `json:"client"`
	MachineID string        `json:"machineId"`
	SyncedAt  string        `json:"syncedAt"`
	Source    string        `json:"source"`
	Messages  []SyncMessage `json:"messages"`
}

func (r *SyncRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Version        string        `json:"version"`
		Client         string        `json:"client"`
		MachineID      string        `json:"machineId"`
		MachineIDSnake string        `json:"machine_id"`
		SyncedAt       string        `json:"syncedAt"`
		SyncedAtSnake  string        `json:"synced_at"`
		Source         string        `json:"source"`
		Messages       []SyncMessage `json:"messages"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.Version = a.Version
	r.Client = a.Client
	r.MachineID = firstNonEmpty(a.MachineID, a.MachineIDSnake)
	r.SyncedAt = firstNonEmpty(a.SyncedAt, a.SyncedAtSnake)
	r.Source = a.Source
	r.Messages = a.Messages
	return nil
}

// SyncMessage is one client-reported AI interaction. Timestamp stays a raw
// string: the calendar date the client encoded before the 'T' is
// authoritative for daily bucketing.
type SyncMessage struct {
	ID               string `json:"id"`
	Timestamp        string `json:"timestamp"`
	Model            string `json:"model"`
	InputTokens      int64  `json:"inputTokens"`
	OutputTokens     int64  `json:"outputTokens"`
	CacheReadTokens  int64  `json:"cacheReadTokens"`
	CacheWriteTokens int64  `json:"cacheCreationTokens"`
	ReasoningTokens  int64  `json:"reasoningTokens"`
}

func (m *SyncMessage) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID                    string `json:"id"`
		Timestamp             string `json:"timestamp"`
		Model                 string `json:"model"`
		InputTokens           *int64 `json:"inputTokens"`
		InputTokensSnake      *int64 `json:"input_tokens"`
		OutputTokens          *int64 `json:"outputTokens"`
		OutputTokensSnake     *int64 `json:"output_tokens"`
		CacheReadTokens       *int64 `json:"cacheReadTokens"`
		CacheReadTokensSnake  *int64 `json:"cache_read_tokens"`
		CacheWriteTokens      *int64 `json:"cacheCreationTokens"`
		CacheWriteTokensSnake *int64 `json:"cache_creation_tokens"`
		ReasoningTokens       *int64 `json:"reasoningTokens"`
		ReasoningTokensSnake  *int64 `json:"reasoning_tokens"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m.ID = a.ID
	m.Timestamp = a.Timestamp
	m.Model = a.Model
	m.InputTokens = firstNonNil(a.InputTokens, a.InputTokensSnake)
	m.OutputTokens = firstNonNil(a.OutputTokens, a.OutputTokensSnake)
	m.CacheReadTokens = firstNonNil(a.CacheReadTokens, a.CacheReadTokensSnake)
	m.CacheWriteTokens = firstNonNil(a.CacheWriteTokens, a.CacheWriteTokensSnake)
	m.ReasoningTokens = firstNonNil(a.ReasoningTokens, a.ReasoningTokensSnake)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonNil(values ...*int64) int64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// SyncStats is the per-call stats delta in the sync response
type SyncStats struct {
	TotalTokens          int64   `json:"totalTokens"`
	TotalCost            float64 `json:"totalCost"`
	CurrentStreak        int     `json:"currentStreak"`
	LongestStreak        int     `json:"longestStreak"`
	AchievementsUnlocked int     `json:"achievementsUnlocked"`
}

// SyncResponse is returned for every accepted sync call
type SyncResponse struct {
	Success          bool      `json:"success"`
	Message          *string   `json:"message"`
	MessagesReceived int       `json:"messagesReceived"`
	MessagesSynced   int       `json:"messagesSynced"`
	RecordsProcessed int       `json:"recordsProcessed"`
	NewRecords       int       `json:"newRecords"`
	UpdatedRecords   int       `json:"updatedRecords"`
	Stats            SyncStats `json:"stats"`
	NewAchievements  []any     `json:"newAchievements"`
}

// LeaderboardEntry is one ranked row in the leaderboard response
type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	Username    string  `json:"username"`
	DisplayName string  `json:"display_name,omitempty"`
	TotalTokens int64   `json:"total_tokens"`
	TotalCost   float64 `json:"total_cost"`
	StreakDays  int     `json:"streak_days"`
	RankChange  *int    `json:"rank_change"`
}

// Pagination is the standard list metadata block
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// LeaderboardResponse echoes the requested period and sort order
type LeaderboardResponse struct {
	Entries    []LeaderboardEntry `json:"entries"`
	Pagination Pagination         `json:"pagination"`
	Period     string             `json:"period"`
	SortBy     string             `json:"sort_by"`
}

// UserInsights is the per-user side of the insights view
type UserInsights struct {
	TotalTokens     int64   `json:"total_tokens"`
	TotalCost       float64 `json:"total_cost"`
	UniqueTools     int     `json:"unique_tools"`
	UniqueDays      int     `json:"unique_days"`
	CurrentStreak   int     `json:"current_streak"`
	CacheEfficiency float64 `json:"cache_efficiency"`
}

// BenchmarkView is the community side of the insights view
type BenchmarkView struct {
	TotalUsers           int      `json:"total_users"`
	AvgTokens            *int64   `json:"avg_tokens"`
	MedianTokens         *int64   `json:"median_tokens"`
	TotalCommunityTokens *int64   `json:"total_community_tokens"`
	AvgCost              *float64 `json:"avg_cost"`
	AvgStreak            *int     `json:"avg_streak"`
	AvgUniqueTools       *int     `json:"avg_unique_tools"`
	AvgCacheEfficiency   *float64 `json:"avg_cache_efficiency"`
}

// InsightsPercentiles reports where the user sits against the community.
// Higher is better except for cost, where lower is better.
type InsightsPercentiles struct {
	Tokens          float64 `json:"tokens"`
	Cost            float64 `json:"cost"`
	Streak          float64 `json:"streak"`
	UniqueTools     float64 `json:"unique_tools"`
	CacheEfficiency float64 `json:"cache_efficiency"`
}

// InsightsResponse joins the user aggregates against the period benchmark
type InsightsResponse struct {
	Period                    string              `json:"period"`
	User                      UserInsights        `json:"user"`
	Benchmark                 BenchmarkView       `json:"benchmark"`
	Percentiles               InsightsPercentiles `json:"percentiles"`
	IsAboveAverageTokens      bool                `json:"is_above_average_tokens"`
	IsAboveAverageCost        bool                `json:"is_above_average_cost"`
	IsAboveAverageStreak      bool                `json:"is_above_average_streak"`
	IsAboveAverageUniqueTools bool                `json:"is_above_average_unique_tools"`
}

// RegisterRequest creates a user account
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
	Timezone string `json:"timezone,omitempty"`
}

// LoginRequest authenticates an existing user
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserProfile is the public view of a user
type UserProfile struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Location    string    `json:"location,omitempty"`
	Website     string    `json:"website,omitempty"`
	IsPublic    bool      `json:"is_public"`
	CreatedAt   time.Time `json:"created_at"`
}

// AuthResponse carries the bearer token handed to clients
type AuthResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      UserProfile `json:"user"`
}

// StreakResponse is the current streak snapshot for a user
type StreakResponse struct {
	CurrentStreak  int    `json:"current_streak"`
	LongestStreak  int    `json:"longest_streak"`
	LastActiveDate string `json:"last_active_date,omitempty"`
	Timezone       string `json:"timezone"`
}
