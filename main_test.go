package main

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/gesturetris/internal/store"
)

func TestOpenDBAndMigrate(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "data", "scores.db")
	db, err := openDB(dsn)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, migrate(db))
	require.NoError(t, migrate(db), "second run skips applied files")

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(1) FROM _migrations`).Scan(&n))
	assert.Equal(t, 1, n)

	st := store.NewSQLite(db)
	ctx := context.Background()
	require.NoError(t, st.Save(ctx, store.Result{GameID: "g", Score: 200, Lines: 2, FinishedAt: time.Now()}))
	top, err := st.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 200, top[0].Score)
}

func TestOpenScores(t *testing.T) {
	st, closeFn, err := openScores("")
	require.NoError(t, err)
	closeFn()
	assert.NotNil(t, st)

	st, closeFn, err = openScores(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &store.SQLite{}, st)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GAME_TICK", "250ms")
	t.Setenv("COUNTER_INTERVAL", "soon")
	t.Setenv("PAUSE_ON_DISCONNECT", "false")
	t.Setenv("TUI", "1")
	t.Setenv("GESTURE_ALIASES", "true")

	cfg := loadConfig()
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.GameTick)
	assert.Equal(t, time.Second, cfg.CounterInterval)
	assert.False(t, cfg.PauseOnDisconnect)
	assert.False(t, cfg.ResumeOnReconnect)
	assert.True(t, cfg.TUI)
	assert.True(t, cfg.GestureAliases)
	assert.Equal(t, "gesturetris", cfg.DeviceName)
}

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker(""))

	check := originChecker("http://ui.test")
	req := httptest.NewRequest("GET", "http://api.test/central", nil)
	assert.True(t, check(req), "no origin header")

	req.Header.Set("Origin", "http://ui.test")
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://api.test")
	assert.True(t, check(req), "same host")
	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, check(req))
}
