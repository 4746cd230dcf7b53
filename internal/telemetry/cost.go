// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/halcyonforge/loom/internal/router"
	"github.com/halcyonforge/loom/internal/util"
)

// topRequestCount is how many of the most expensive requests each session keeps.
const topRequestCount = 10

// =============================================================================
// TRACKER
// =============================================================================

// Tracker accumulates token usage and spend for the current session and
// persists finished sessions through a Storage.
type Tracker struct {
	mu      sync.RWMutex
	current *SessionSpend
	storage *Storage
}

// SessionSpend is the accumulated usage for one session.
type SessionSpend struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time,omitempty"`

	// Tokens is keyed by source tag (local, auto, budget, balanced, frontier).
	Tokens map[string]TokenCount `json:"tokens"`

	TotalCostCents float64 `json:"total_cost_cents"`
	// SavingsCents is spend avoided relative to frontier pricing.
	SavingsCents float64 `json:"savings_cents"`

	TopRequests []RequestSpend `json:"top_requests"`
}

// TokenCount tracks prompt and completion tokens.
type TokenCount struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
}

// RequestSpend records one chat request.
type RequestSpend struct {
	Timestamp        time.Time     `json:"timestamp"`
	Preview          string        `json:"preview"`
	Source           string        `json:"source"`
	Model            string        `json:"model"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	CostCents        float64       `json:"cost_cents"`
	Duration         time.Duration `json:"duration"`
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// NewTracker creates a tracker with persistent storage under dir.
func NewTracker(dir string) (*Tracker, error) {
	storage, err := NewStorage(dir)
	if err != nil {
		return nil, err
	}

	return &Tracker{
		current: newSessionSpend(),
		storage: storage,
	}, nil
}

func newSessionSpend() *SessionSpend {
	return &SessionSpend{
		ID:          newSpendID(time.Now()),
		StartTime:   time.Now(),
		Tokens:      make(map[string]TokenCount),
		TopRequests: make([]RequestSpend, 0),
	}
}

// newSpendID builds a sortable session ID with a timestamp prefix. Storage
// parses the prefix back out for date-range listing.
func newSpendID(t time.Time) string {
	return t.Format(spendIDFormat) + "-" + uuid.NewString()[:8]
}

// =============================================================================
// RECORDING
// =============================================================================

// Record adds one chat request to the current session.
func (t *Tracker) Record(src router.Source, model string, promptTokens, completionTokens int, duration time.Duration, preview string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	preview = util.TruncateRunes(preview, 100)

	tag := src.Tag()
	count := t.current.Tokens[tag]
	count.Prompt += promptTokens
	count.Completion += completionTokens
	t.current.Tokens[tag] = count

	cost := src.CalculateCostCents(promptTokens, completionTokens)
	t.current.TotalCostCents += cost

	frontier := router.SourceFrontier.CalculateCostCents(promptTokens, completionTokens)
	t.current.SavingsCents += frontier - cost

	t.current.TopRequests = append(t.current.TopRequests, RequestSpend{
		Timestamp:        time.Now(),
		Preview:          preview,
		Source:           tag,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		CostCents:        cost,
		Duration:         duration,
	})
	trimTopRequests(t.current)
}

// trimTopRequests keeps only the most expensive requests, costliest first.
func trimTopRequests(s *SessionSpend) {
	sort.SliceStable(s.TopRequests, func(i, j int) bool {
		return s.TopRequests[i].CostCents > s.TopRequests[j].CostCents
	})
	if len(s.TopRequests) > topRequestCount {
		s.TopRequests = s.TopRequests[:topRequestCount]
	}
}

// =============================================================================
// RETRIEVAL
// =============================================================================

// CurrentSession returns a copy of the current session's spend.
func (t *Tracker) CurrentSession() *SessionSpend {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return copySession(t.current)
}

// History loads stored sessions whose start time falls in [from, to].
func (t *Tracker) History(from, to time.Time) []*SessionSpend {
	ids, err := t.storage.List(from, to)
	if err != nil {
		return nil
	}

	sessions := make([]*SessionSpend, 0, len(ids))
	for _, id := range ids {
		session, err := t.storage.Load(id)
		if err != nil {
			continue
		}
		sessions = append(sessions, session)
	}
	return sessions
}

// Trends aggregates stored sessions over the last days into daily and
// per-source breakdowns.
type Trends struct {
	Days            int                `json:"days"`
	TotalCostCents  float64            `json:"total_cost_cents"`
	TotalSavedCents float64            `json:"total_saved_cents"`
	DailyBreakdown  []DailySpend       `json:"daily_breakdown"`
	SourceBreakdown map[string]float64 `json:"source_breakdown"`
}

// DailySpend is the aggregated spend for one calendar day.
type DailySpend struct {
	Date         time.Time `json:"date"`
	CostCents    float64   `json:"cost_cents"`
	SavedCents   float64   `json:"saved_cents"`
	RequestCount int       `json:"request_count"`
}

// GetTrends aggregates spend over the last days of stored sessions.
func (t *Tracker) GetTrends(days int) *Trends {
	to := time.Now()
	from := to.AddDate(0, 0, -days)

	trends := &Trends{
		Days:            days,
		DailyBreakdown:  make([]DailySpend, 0),
		SourceBreakdown: make(map[string]float64),
	}

	sessions := t.History(from, to)
	if len(sessions) == 0 {
		return trends
	}

	dailyMap := make(map[string]*DailySpend)
	for _, session := range sessions {
		dateKey := session.StartTime.Format("2006-01-02")
		daily, ok := dailyMap[dateKey]
		if !ok {
			daily = &DailySpend{Date: session.StartTime.Truncate(24 * time.Hour)}
			dailyMap[dateKey] = daily
		}

		daily.CostCents += session.TotalCostCents
		daily.SavedCents += session.SavingsCents

		trends.TotalCostCents += session.TotalCostCents
		trends.TotalSavedCents += session.SavingsCents

		for _, req := range session.TopRequests {
			daily.RequestCount++
			trends.SourceBreakdown[req.Source] += req.CostCents
		}
	}

	for _, daily := range dailyMap {
		trends.DailyBreakdown = append(trends.DailyBreakdown, *daily)
	}
	sort.Slice(trends.DailyBreakdown, func(i, j int) bool {
		return trends.DailyBreakdown[i].Date.Before(trends.DailyBreakdown[j].Date)
	})

	return trends
}

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================

// EndSession stamps and persists the current session, then starts a new one.
func (t *Tracker) EndSession() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.current.EndTime = time.Now()
	if err := t.storage.Save(t.current); err != nil {
		return err
	}

	t.current = newSessionSpend()
	return nil
}

// SaveCurrentSession persists the current session without ending it.
func (t *Tracker) SaveCurrentSession() error {
	t.mu.RLock()
	session := copySession(t.current)
	t.mu.RUnlock()

	return t.storage.Save(session)
}

// Prune removes stored sessions older than the retention window.
func (t *Tracker) Prune(keepDays int) error {
	cutoff := time.Now().AddDate(0, 0, -keepDays)
	return t.storage.DeleteBefore(cutoff)
}

// =============================================================================
// HELPERS
// =============================================================================

func copySession(src *SessionSpend) *SessionSpend {
	dst := &SessionSpend{
		ID:             src.ID,
		StartTime:      src.StartTime,
		EndTime:        src.EndTime,
		Tokens:         make(map[string]TokenCount, len(src.Tokens)),
		TotalCostCents: src.TotalCostCents,
		SavingsCents:   src.SavingsCents,
		TopRequests:    make([]RequestSpend, len(src.TopRequests)),
	}
	for tag, count := range src.Tokens {
		dst.Tokens[tag] = count
	}
	copy(dst.TopRequests, src.TopRequests)
	return dst
}
