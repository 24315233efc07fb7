package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Record is one finished match as seen by the player.
type Record struct {
	ID            int64     `json:"id"`
	Player        string    `json:"player"`
	Mode          string    `json:"mode"`
	Difficulty    string    `json:"difficulty"`
	Moves         int       `json:"moves"`
	ComputerMoves *int      `json:"computerMoves,omitempty"` // competitive only
	ElapsedMs     int64     `json:"elapsedMs"`
	Result        string    `json:"result"` // "win" | "loss"
	Timestamp     time.Time `json:"timestamp"`
}

type Store struct {
	DB *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open stats db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping stats db: %w", err)
	}

	for _, ddl := range []string{
		`CREATE TABLE IF NOT EXISTS match_stats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player TEXT NOT NULL,
			mode TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			moves INTEGER NOT NULL,
			computer_moves INTEGER,
			elapsed_ms INTEGER NOT NULL,
			result TEXT NOT NULL,
			played_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_stats_player ON match_stats(player, played_at)`,
	} {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return nil, fmt.Errorf("create table: %w", err)
		}
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error { return s.DB.Close() }

var ErrNoPlayer = errors.New("stats record has no player name")

func (s *Store) Record(ctx context.Context, r Record) error {
	if r.Player == "" {
		return ErrNoPlayer
	}
	var cm sql.NullInt64
	if r.ComputerMoves != nil {
		cm = sql.NullInt64{Int64: int64(*r.ComputerMoves), Valid: true}
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO match_stats (player, mode, difficulty, moves, computer_moves, elapsed_ms, result, played_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Player, r.Mode, r.Difficulty, r.Moves, cm, r.ElapsedMs, r.Result, r.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert stats for %q: %w", r.Player, err)
	}
	return nil
}

// ListByPlayer returns the player's records, newest first.
func (s *Store) ListByPlayer(ctx context.Context, player string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, player, mode, difficulty, moves, computer_moves, elapsed_ms, result, played_at
		 FROM match_stats WHERE player = ? ORDER BY played_at DESC, id DESC LIMIT ?`,
		player, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r  Record
			cm sql.NullInt64
			at int64
		)
		if err := rows.Scan(&r.ID, &r.Player, &r.Mode, &r.Difficulty, &r.Moves, &cm, &r.ElapsedMs, &r.Result, &at); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		if cm.Valid {
			n := int(cm.Int64)
			r.ComputerMoves = &n
		}
		r.Timestamp = time.UnixMilli(at).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
