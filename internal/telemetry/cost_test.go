// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halcyonforge/loom/internal/router"
)

func newTracker(t *testing.T) *Tracker {
	t.Helper()
	tracker, err := NewTracker(t.TempDir())
	require.NoError(t, err)
	return tracker
}

func TestRecord_AccumulatesTokensAndCost(t *testing.T) {
	tracker := newTracker(t)

	tracker.Record(router.SourceBalanced, "claude-sonnet", 1000, 500, time.Second, "hello")
	tracker.Record(router.SourceBalanced, "claude-sonnet", 1000, 500, time.Second, "again")

	session := tracker.CurrentSession()
	assert.Equal(t, 2000, session.Tokens["balanced"].Prompt)
	assert.Equal(t, 1000, session.Tokens["balanced"].Completion)

	perCall := router.SourceBalanced.CalculateCostCents(1000, 500)
	assert.InDelta(t, 2*perCall, session.TotalCostCents, 1e-9)
	assert.Len(t, session.TopRequests, 2)
}

func TestRecord_LocalIsFreeWithSavings(t *testing.T) {
	tracker := newTracker(t)

	tracker.Record(router.SourceLocal, "qwen3:8b", 2000, 1000, time.Second, "local query")

	session := tracker.CurrentSession()
	assert.Zero(t, session.TotalCostCents)

	frontier := router.SourceFrontier.CalculateCostCents(2000, 1000)
	assert.InDelta(t, frontier, session.SavingsCents, 1e-9)
}

func TestRecord_TruncatesPreview(t *testing.T) {
	tracker := newTracker(t)

	long := strings.Repeat("x", 300)
	tracker.Record(router.SourceBudget, "gpt-mini", 10, 10, time.Second, long)

	session := tracker.CurrentSession()
	require.Len(t, session.TopRequests, 1)
	assert.LessOrEqual(t, len(session.TopRequests[0].Preview), 103)
	assert.True(t, strings.HasSuffix(session.TopRequests[0].Preview, "..."))
}

func TestRecord_KeepsTopTenByCost(t *testing.T) {
	tracker := newTracker(t)

	// 15 requests with rising completion counts so later ones cost more.
	for i := 1; i <= 15; i++ {
		tracker.Record(router.SourceFrontier, "big", 100, i*100, time.Second, "q")
	}

	session := tracker.CurrentSession()
	require.Len(t, session.TopRequests, 10)

	// Costliest first, and the cheapest five are gone.
	for i := 1; i < len(session.TopRequests); i++ {
		assert.GreaterOrEqual(t, session.TopRequests[i-1].CostCents, session.TopRequests[i].CostCents)
	}
	cheapest := router.SourceFrontier.CalculateCostCents(100, 500)
	assert.Greater(t, session.TopRequests[9].CostCents, cheapest)
}

func TestCurrentSession_ReturnsCopy(t *testing.T) {
	tracker := newTracker(t)
	tracker.Record(router.SourceBudget, "m", 10, 10, time.Second, "q")

	snapshot := tracker.CurrentSession()
	snapshot.TotalCostCents = 999
	snapshot.Tokens["budget"] = TokenCount{Prompt: 12345}

	fresh := tracker.CurrentSession()
	assert.NotEqual(t, 999.0, fresh.TotalCostCents)
	assert.NotEqual(t, 12345, fresh.Tokens["budget"].Prompt)
}

func TestEndSession_PersistsAndRotates(t *testing.T) {
	tracker := newTracker(t)
	tracker.Record(router.SourceBalanced, "m", 100, 100, time.Second, "q")

	firstID := tracker.CurrentSession().ID
	require.NoError(t, tracker.EndSession())

	second := tracker.CurrentSession()
	assert.NotEqual(t, firstID, second.ID)
	assert.Zero(t, second.TotalCostCents)

	loaded, err := tracker.storage.Load(firstID)
	require.NoError(t, err)
	assert.Equal(t, firstID, loaded.ID)
	assert.False(t, loaded.EndTime.IsZero())
}

func TestHistory_FiltersByDateRange(t *testing.T) {
	tracker := newTracker(t)
	tracker.Record(router.SourceBudget, "m", 50, 50, time.Second, "q")
	require.NoError(t, tracker.EndSession())

	now := time.Now()
	got := tracker.History(now.Add(-time.Hour), now.Add(time.Hour))
	require.Len(t, got, 1)

	past := tracker.History(now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	assert.Empty(t, past)
}

func TestGetTrends_AggregatesSessions(t *testing.T) {
	tracker := newTracker(t)

	tracker.Record(router.SourceBalanced, "m", 1000, 1000, time.Second, "one")
	require.NoError(t, tracker.EndSession())
	tracker.Record(router.SourceFrontier, "m", 1000, 1000, time.Second, "two")
	require.NoError(t, tracker.EndSession())

	trends := tracker.GetTrends(7)
	expected := router.SourceBalanced.CalculateCostCents(1000, 1000) +
		router.SourceFrontier.CalculateCostCents(1000, 1000)
	assert.InDelta(t, expected, trends.TotalCostCents, 1e-9)
	require.Len(t, trends.DailyBreakdown, 1)
	assert.Equal(t, 2, trends.DailyBreakdown[0].RequestCount)
	assert.Contains(t, trends.SourceBreakdown, "balanced")
	assert.Contains(t, trends.SourceBreakdown, "frontier")
}

func TestGetTrends_EmptyStorage(t *testing.T) {
	tracker := newTracker(t)

	trends := tracker.GetTrends(30)
	assert.Zero(t, trends.TotalCostCents)
	assert.Empty(t, trends.DailyBreakdown)
}

func TestStorage_SaveLoadRoundTrip(t *testing.T) {
	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	session := newSessionSpend()
	session.TotalCostCents = 1.25
	session.Tokens["budget"] = TokenCount{Prompt: 10, Completion: 20}
	require.NoError(t, storage.Save(session))

	loaded, err := storage.Load(session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
	assert.InDelta(t, 1.25, loaded.TotalCostCents, 1e-9)
	assert.Equal(t, TokenCount{Prompt: 10, Completion: 20}, loaded.Tokens["budget"])
}

func TestStorage_DeleteBefore(t *testing.T) {
	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	old := &SessionSpend{
		ID:        newSpendID(time.Now().AddDate(0, 0, -10)),
		StartTime: time.Now().AddDate(0, 0, -10),
		Tokens:    map[string]TokenCount{},
	}
	recent := newSessionSpend()
	require.NoError(t, storage.Save(old))
	require.NoError(t, storage.Save(recent))

	require.NoError(t, storage.DeleteBefore(time.Now().AddDate(0, 0, -5)))

	count, err := storage.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = storage.Load(old.ID)
	assert.Error(t, err)
}

func TestStorage_ListSkipsUnparseableFiles(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewStorage(dir)
	require.NoError(t, err)

	session := newSessionSpend()
	require.NoError(t, storage.Save(session))
	junk := filepath.Join(dir, "not-a-session.json")
	require.NoError(t, os.WriteFile(junk, []byte("{}"), 0644))

	ids, err := storage.List(time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{session.ID}, ids)
}
