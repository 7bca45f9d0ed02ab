package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS games (
	id         TEXT PRIMARY KEY,
	variant    TEXT NOT NULL,
	setup      JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS game_actions (
	id             TEXT PRIMARY KEY,
	game_id        TEXT NOT NULL REFERENCES games (id) ON DELETE CASCADE,
	seq            INTEGER NOT NULL,
	kind           TEXT NOT NULL,
	entity_id      TEXT NOT NULL,
	payload        BYTEA NOT NULL,
	state_checksum TEXT NOT NULL,
	chain_hash     TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	UNIQUE (game_id, seq)
);
`

// NewDB opens a connection pool and checks it with a ping.
func NewDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if logger != nil {
		logger.Info("connected to database",
			zap.String("host", poolCfg.ConnConfig.Host),
			zap.String("database", poolCfg.ConnConfig.Database),
			zap.Int32("max_conns", poolCfg.MaxConns),
		)
	}
	return pool, nil
}

// PostgresStore keeps action logs in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. The store owns the pool from then on.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateGame(ctx context.Context, rec GameRecord) error {
	setup, err := json.Marshal(rec.Setup)
	if err != nil {
		return fmt.Errorf("encode setup: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO games (id, variant, setup, created_at)
		VALUES ($1, $2, $3, $4)
	`, rec.ID, rec.Variant, setup, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("game %s: %w", rec.ID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert game: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetGame(ctx context.Context, id string) (GameRecord, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, variant, setup, created_at
		FROM games
		WHERE id = $1
	`, id)
	rec, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return GameRecord{}, fmt.Errorf("game %s: %w", id, ErrNotFound)
	}
	return rec, err
}

func (s *PostgresStore) ListGames(ctx context.Context) ([]GameRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, variant, setup, created_at
		FROM games
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var out []GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanGame(row pgx.Row) (GameRecord, error) {
	var rec GameRecord
	var setup []byte
	if err := row.Scan(&rec.ID, &rec.Variant, &setup, &rec.CreatedAt); err != nil {
		return GameRecord{}, err
	}
	if err := json.Unmarshal(setup, &rec.Setup); err != nil {
		return GameRecord{}, fmt.Errorf("decode setup of %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Append inserts rec only when the log currently holds exactly rec.Seq
// records.
func (s *PostgresStore) Append(ctx context.Context, rec Record) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO game_actions (id, game_id, seq, kind, entity_id, payload, state_checksum, chain_hash, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		WHERE EXISTS (SELECT 1 FROM games WHERE id = $2)
		  AND (SELECT count(*) FROM game_actions WHERE game_id = $2) = $3
	`, rec.ID, rec.GameID, rec.Seq, rec.Kind, rec.EntityID, rec.Payload, rec.StateChecksum, rec.ChainHash, rec.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("record %d of %s: %w", rec.Seq, rec.GameID, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.GetGame(ctx, rec.GameID); err != nil {
			return err
		}
		return fmt.Errorf("record %d of %s: %w", rec.Seq, rec.GameID, ErrConflict)
	}
	return nil
}

func (s *PostgresStore) Records(ctx context.Context, gameID string) ([]Record, error) {
	if _, err := s.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, game_id, seq, kind, entity_id, payload, state_checksum, chain_hash, created_at
		FROM game_actions
		WHERE game_id = $1
		ORDER BY seq
	`, gameID)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.GameID, &rec.Seq, &rec.Kind, &rec.EntityID,
			&rec.Payload, &rec.StateChecksum, &rec.ChainHash, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Truncate(ctx context.Context, gameID string, keep int) error {
	if keep < 0 {
		keep = 0
	}
	if _, err := s.db.Exec(ctx, `
		DELETE FROM game_actions
		WHERE game_id = $1 AND seq >= $2
	`, gameID, keep); err != nil {
		return fmt.Errorf("truncate actions: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
