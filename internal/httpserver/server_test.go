package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/gesturetris/internal/ble"
	"github.com/robalobadob/gesturetris/internal/bridge"
	"github.com/robalobadob/gesturetris/internal/game"
	"github.com/robalobadob/gesturetris/internal/store"
)

type fakeState struct {
	snap *game.Snapshot
	info bridge.Info
	err  error
}

func (f *fakeState) Snapshot(context.Context) (game.Snapshot, bool, error) {
	if f.err != nil || f.snap == nil {
		return game.Snapshot{}, false, f.err
	}
	return *f.snap, true, nil
}

func (f *fakeState) Info(context.Context) (bridge.Info, error) { return f.info, f.err }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestDiagnostics(t *testing.T) {
	s := New(&fakeState{}, store.NewMemoryStore(), nil)

	rec := get(t, s.Router(), "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = get(t, s.Router(), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_found")

	rec = get(t, s.Router(), "/central")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no radio mounted")
}

func TestState(t *testing.T) {
	st := &fakeState{}
	s := New(st, store.NewMemoryStore(), nil)

	rec := get(t, s.Router(), "/state")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	g := game.New(game.WithPicker(func() game.Kind { return game.KindI }))
	snap := g.Snapshot()
	st.snap = &snap

	rec = get(t, s.Router(), "/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		GameID   string         `json:"gameId"`
		Score    int            `json:"score"`
		GameOver bool           `json:"gameOver"`
		Board    [][]game.Color `json:"board"`
		Cells    [][]game.Color `json:"cells"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, g.ID, body.GameID)
	assert.Len(t, body.Board, game.Rows)
	assert.Equal(t, game.ColorEmpty, body.Board[0][3])
	// I spawns flat at row 0, columns 3-6.
	assert.Equal(t, game.ColorCyan, body.Cells[0][3])
	assert.Equal(t, game.ColorCyan, body.Cells[0][6])
	assert.Equal(t, game.ColorEmpty, body.Cells[0][7])
}

func TestStateAfterStop(t *testing.T) {
	s := New(&fakeState{err: bridge.ErrStopped}, store.NewMemoryStore(), nil)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Router(), "/state").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s.Router(), "/session").Code)

	s = New(&fakeState{err: context.DeadlineExceeded}, store.NewMemoryStore(), nil)
	assert.Equal(t, http.StatusGatewayTimeout, get(t, s.Router(), "/session").Code)
}

func TestSession(t *testing.T) {
	s := New(&fakeState{info: bridge.Info{Advertising: true, Counter: 12}}, store.NewMemoryStore(), nil)
	rec := get(t, s.Router(), "/session")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"advertising":true,"peers":[],"counter":12,"playing":false,"score":0}`, rec.Body.String())

	s = New(&fakeState{info: bridge.Info{Peers: []ble.Peer{"p1"}, Playing: true, GameID: "g1", Score: 300}}, store.NewMemoryStore(), nil)
	rec = get(t, s.Router(), "/session")
	assert.JSONEq(t, `{"advertising":false,"peers":["p1"],"counter":0,"playing":true,"gameId":"g1","score":300}`, rec.Body.String())
}

func TestScores(t *testing.T) {
	scores := store.NewMemoryStore()
	s := New(&fakeState{}, scores, nil)

	rec := get(t, s.Router(), "/scores")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, scores.Save(ctx, store.Result{GameID: "a", Score: 100, Lines: 1, FinishedAt: at}))
	require.NoError(t, scores.Save(ctx, store.Result{GameID: "b", Score: 400, Lines: 3, FinishedAt: at}))

	rec = get(t, s.Router(), "/scores?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var top []store.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &top))
	require.Len(t, top, 1)
	assert.Equal(t, "b", top[0].GameID)

	for _, bad := range []string{"0", "-3", "ten"} {
		assert.Equal(t, http.StatusBadRequest, get(t, s.Router(), "/scores?limit="+bad).Code, bad)
	}
}

func TestCentralNotAdvertising(t *testing.T) {
	s := New(&fakeState{}, store.NewMemoryStore(), ble.NewWebSocketAdapter(nil))
	rec := get(t, s.Router(), "/central")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	t.Setenv("CLIENT_ORIGIN", "http://example.test")
	s := New(&fakeState{}, store.NewMemoryStore(), nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/state", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://example.test", rec.Header().Get("Access-Control-Allow-Origin"))
}
