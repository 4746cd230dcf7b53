// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shortConfig() Config {
	return Config{
		Timeout:          100 * time.Millisecond,
		WarningBefore:    50 * time.Millisecond,
		AutoSaveEnabled:  true,
		AutoSaveInterval: 20 * time.Millisecond,
	}
}

func TestNewManager(t *testing.T) {
	m := NewManager(DefaultConfig())

	assert.True(t, strings.HasPrefix(m.SessionID(), "sess_"))
	assert.False(t, m.IsDirty())
	assert.False(t, m.IsExpired())
	assert.Less(t, m.IdleTime(), time.Second)
}

func TestSessionIDs_Unique(t *testing.T) {
	a := NewManager(DefaultConfig())
	b := NewManager(DefaultConfig())
	assert.NotEqual(t, a.SessionID(), b.SessionID())
}

func TestRecordActivity_ResetsIdle(t *testing.T) {
	m := NewManager(shortConfig())

	time.Sleep(60 * time.Millisecond)
	require.True(t, m.ShouldShowWarning())

	m.RecordActivity()
	assert.False(t, m.ShouldShowWarning())
	assert.Less(t, m.IdleTime(), 50*time.Millisecond)
}

func TestIsExpired(t *testing.T) {
	m := NewManager(shortConfig())

	assert.False(t, m.IsExpired())
	time.Sleep(120 * time.Millisecond)
	assert.True(t, m.IsExpired())
	assert.Zero(t, m.RemainingTime())
}

func TestDirtyTracking(t *testing.T) {
	m := NewManager(DefaultConfig())

	assert.False(t, m.IsDirty())
	m.MarkDirty()
	assert.True(t, m.IsDirty())
	m.MarkClean()
	assert.False(t, m.IsDirty())
}

func TestShouldAutoSave(t *testing.T) {
	m := NewManager(shortConfig())

	// Clean sessions never auto-save.
	time.Sleep(30 * time.Millisecond)
	assert.False(t, m.ShouldAutoSave())

	m.MarkDirty()
	assert.True(t, m.ShouldAutoSave())

	m.MarkClean()
	assert.False(t, m.ShouldAutoSave())
}

func TestShouldAutoSave_Disabled(t *testing.T) {
	cfg := shortConfig()
	cfg.AutoSaveEnabled = false
	m := NewManager(cfg)

	m.MarkDirty()
	time.Sleep(30 * time.Millisecond)
	assert.False(t, m.ShouldAutoSave())
}

func TestCheck_FiresWarningOnce(t *testing.T) {
	m := NewManager(shortConfig())

	var warnings atomic.Int32
	m.SetWarningCallback(func(remaining time.Duration) {
		warnings.Add(1)
		assert.Greater(t, remaining, time.Duration(0))
	})

	time.Sleep(60 * time.Millisecond)
	require.True(t, m.Check())
	require.True(t, m.Check())

	assert.Equal(t, int32(1), warnings.Load())
}

func TestCheck_WarningRearmsAfterActivity(t *testing.T) {
	m := NewManager(shortConfig())

	var warnings atomic.Int32
	m.SetWarningCallback(func(time.Duration) { warnings.Add(1) })

	time.Sleep(60 * time.Millisecond)
	m.Check()
	m.RecordActivity()
	time.Sleep(60 * time.Millisecond)
	m.Check()

	assert.Equal(t, int32(2), warnings.Load())
}

func TestCheck_AutoSaveMarksClean(t *testing.T) {
	m := NewManager(shortConfig())
	m.MarkDirty()

	var saves atomic.Int32
	m.SetAutoSaveCallback(func() error {
		saves.Add(1)
		return nil
	})

	time.Sleep(30 * time.Millisecond)
	m.Check()

	assert.Equal(t, int32(1), saves.Load())
	assert.False(t, m.IsDirty())
}

func TestCheck_AutoSaveFailureStaysDirty(t *testing.T) {
	m := NewManager(shortConfig())
	m.MarkDirty()

	m.SetAutoSaveCallback(func() error {
		return assert.AnError
	})

	time.Sleep(30 * time.Millisecond)
	m.Check()

	assert.True(t, m.IsDirty())
}

func TestCheck_TimeoutCallback(t *testing.T) {
	m := NewManager(shortConfig())

	var timedOut atomic.Bool
	m.SetTimeoutCallback(func() { timedOut.Store(true) })

	time.Sleep(120 * time.Millisecond)
	assert.False(t, m.Check())
	assert.True(t, timedOut.Load())
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	m := NewManager(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}

func TestGetStatus(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.MarkDirty()

	st := m.GetStatus()
	assert.Equal(t, m.SessionID(), st.SessionID)
	assert.True(t, st.IsDirty)
	assert.False(t, st.IsExpired)
	assert.Greater(t, st.RemainingTime, time.Duration(0))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", FormatDuration(45*time.Second))
	assert.Equal(t, "2m", FormatDuration(2*time.Minute))
	assert.Equal(t, "2m 30s", FormatDuration(2*time.Minute+30*time.Second))
	assert.Equal(t, "0s", FormatDuration(0))
}
