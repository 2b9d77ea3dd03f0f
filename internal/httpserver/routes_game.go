// internal/httpserver/routes_game.go
//
// Read-only views of the running game:
//   - GET /state         → snapshot of the current game (404 before the first connect)
//   - GET /session       → advertising flag, connected peers, counter, playing flag
//   - GET /scores?limit= → best finished games, highest score first

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/gesturetris/internal/ble"
	"github.com/robalobadob/gesturetris/internal/bridge"
	"github.com/robalobadob/gesturetris/internal/game"
	"github.com/robalobadob/gesturetris/internal/store"
)

const maxScoresLimit = 100

// mountGame registers the game routes.
func (s *Server) mountGame(r chi.Router) {
	r.Get("/state", s.handleState)
	r.Get("/session", s.handleSession)
	r.Get("/scores", s.handleScores)
}

// stateRes is the /state payload: the snapshot plus the composed board
// (active piece drawn over frozen cells).
type stateRes struct {
	game.Snapshot
	Cells [][]game.Color `json:"cells"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap, ok, err := s.state.Snapshot(r.Context())
	if err != nil {
		writeStateErr(w, err)
		return
	}
	if !ok {
		http.Error(w, `{"error":"no_game"}`, http.StatusNotFound)
		return
	}
	cells := make([][]game.Color, game.Rows)
	for row := range cells {
		cells[row] = make([]game.Color, game.Cols)
		for col := range cells[row] {
			cells[row][col] = snap.Cell(row, col)
		}
	}
	_ = json.NewEncoder(w).Encode(stateRes{Snapshot: snap, Cells: cells})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.state.Info(r.Context())
	if err != nil {
		writeStateErr(w, err)
		return
	}
	if info.Peers == nil {
		info.Peers = []ble.Peer{}
	}
	_ = json.NewEncoder(w).Encode(info)
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = min(n, maxScoresLimit)
	}
	top, err := s.scores.Top(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("load scores")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	if top == nil {
		top = []store.Result{}
	}
	_ = json.NewEncoder(w).Encode(top)
}

// writeStateErr maps a failed loop request to a status code.
func writeStateErr(w http.ResponseWriter, err error) {
	if errors.Is(err, bridge.ErrStopped) {
		http.Error(w, `{"error":"stopped"}`, http.StatusServiceUnavailable)
		return
	}
	log.Warn().Err(err).Msg("state request")
	http.Error(w, `{"error":"timeout"}`, http.StatusGatewayTimeout)
}
