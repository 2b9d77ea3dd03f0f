package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// finishedLayout has fixed width so finished_at sorts lexically.
const finishedLayout = "2006-01-02T15:04:05.000000000Z"

// SQLite stores results in the scores table created by the embedded
// migrations. The caller owns db and applies migrations before use.
type SQLite struct{ db *sql.DB }

func NewSQLite(db *sql.DB) *SQLite { return &SQLite{db: db} }

func (s *SQLite) Save(ctx context.Context, r Result) error {
	if r.GameID == "" {
		return ErrInvalidResult
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO scores(game_id, score, lines, finished_at)
		 VALUES(?,?,?,?)`, r.GameID, r.Score, r.Lines, r.FinishedAt.UTC().Format(finishedLayout),
	)
	if err != nil {
		return fmt.Errorf("insert score %s: %w", r.GameID, err)
	}
	return nil
}

func (s *SQLite) Top(ctx context.Context, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_id, score, lines, finished_at
		 FROM scores
		 ORDER BY score DESC, finished_at ASC, game_id ASC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	out := make([]Result, 0, limit)
	for rows.Next() {
		var (
			r        Result
			finished string
		)
		if err := rows.Scan(&r.GameID, &r.Score, &r.Lines, &finished); err != nil {
			return nil, err
		}
		r.FinishedAt, _ = time.Parse(finishedLayout, finished)
		out = append(out, r)
	}
	return out, rows.Err()
}
