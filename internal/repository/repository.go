// Package repository persists games as their setup plus an append-only action
// log. Each record carries the state checksum after the action and a blake2b
// hash chained over every earlier payload, so a log can be verified before it
// is replayed.
package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

var (
	// ErrNotFound is returned for a game the store does not know.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a record does not extend the log by exactly
	// one position, or a game id is reused.
	ErrConflict = errors.New("conflict")
)

// GameRecord is how a game was started.
type GameRecord struct {
	ID        string     `json:"id"`
	Variant   string     `json:"variant"`
	Setup     game.Setup `json:"setup"`
	CreatedAt time.Time  `json:"created_at"`
}

// Record is one entry of a game's action log.
type Record struct {
	ID            string    `json:"id"`
	GameID        string    `json:"game_id"`
	Seq           int       `json:"seq"`
	Kind          string    `json:"kind"`
	EntityID      string    `json:"entity_id"`
	Payload       []byte    `json:"payload"`
	StateChecksum string    `json:"state_checksum"`
	ChainHash     string    `json:"chain_hash"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store keeps games and their action logs.
type Store interface {
	CreateGame(ctx context.Context, rec GameRecord) error
	GetGame(ctx context.Context, id string) (GameRecord, error)
	ListGames(ctx context.Context) ([]GameRecord, error)
	// Append adds rec at position rec.Seq, which must equal the log length.
	Append(ctx context.Context, rec Record) error
	Records(ctx context.Context, gameID string) ([]Record, error)
	// Truncate keeps the first keep records of a log.
	Truncate(ctx context.Context, gameID string, keep int) error
	Close()
}

// Chain returns blake2b-256(prev || payload) in hex. The first record of a log
// chains from the empty string.
func Chain(prev string, payload []byte) string {
	raw, err := hex.DecodeString(prev)
	if err != nil {
		raw = []byte(prev)
	}
	sum := blake2b.Sum256(append(raw, payload...))
	return hex.EncodeToString(sum[:])
}

// NewRecord builds the log entry for a applied at position seq.
func NewRecord(gameID string, seq int, a action.Action, checksum, prev string) (Record, error) {
	payload, err := action.Encode(a)
	if err != nil {
		return Record{}, fmt.Errorf("failed to encode action: %w", err)
	}
	return Record{
		ID:            ulid.Make().String(),
		GameID:        gameID,
		Seq:           seq,
		Kind:          string(a.Kind()),
		EntityID:      a.EntityID(),
		Payload:       payload,
		StateChecksum: checksum,
		ChainHash:     Chain(prev, payload),
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// Head is the chain hash a new record must extend.
func Head(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	return records[len(records)-1].ChainHash
}

// VerifyChain checks ordering and the hash chain of a log and decodes its
// actions.
func VerifyChain(gameID string, records []Record) ([]action.Action, error) {
	out := make([]action.Action, 0, len(records))
	prev := ""
	for i, rec := range records {
		if rec.GameID != gameID {
			return nil, rules.Inconsistent("record %d belongs to game %s", i, rec.GameID)
		}
		if rec.Seq != i {
			return nil, rules.Inconsistent("record %d has sequence %d", i, rec.Seq)
		}
		if _, err := ulid.ParseStrict(rec.ID); err != nil {
			return nil, rules.Inconsistent("record %d has malformed id %q", i, rec.ID)
		}
		if want := Chain(prev, rec.Payload); want != rec.ChainHash {
			return nil, rules.Inconsistent("chain hash mismatch at record %d", i)
		}
		a, err := action.Decode(rec.Payload)
		if err != nil {
			return nil, rules.Inconsistent("record %d: %v", i, err)
		}
		if string(a.Kind()) != rec.Kind || a.EntityID() != rec.EntityID {
			return nil, rules.Inconsistent("record %d header does not match its payload", i)
		}
		out = append(out, a)
		prev = rec.ChainHash
	}
	return out, nil
}
