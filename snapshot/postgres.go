package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists snapshots in the pool_snapshots table, one row per label.
type PGStore struct {
	db *pgxpool.Pool
}

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PGStore{db: db}, nil
}

func (s *PGStore) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// EnsureSchema creates the snapshot table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS pool_snapshots (
			label      TEXT PRIMARY KEY,
			state      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

// Save upserts the snapshot under label.
func (s *PGStore) Save(ctx context.Context, label string, st *State) error {
	st.Normalize()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO pool_snapshots (label, state, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (label)
		DO UPDATE SET state = EXCLUDED.state, updated_at = now()
	`, label, data)
	return err
}

// Load reads the snapshot stored under label. The second return reports
// whether one exists.
func (s *PGStore) Load(ctx context.Context, label string) (*State, bool, error) {
	var data []byte
	err := s.db.QueryRow(ctx, `SELECT state FROM pool_snapshots WHERE label = $1`, label).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("parse snapshot: %w", err)
	}
	return &st, true, nil
}
