package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railyard/rails-server-go/internal/config"
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

func sampleActions() []action.Action {
	return []action.Action{
		action.NewBid("p1", "SV", 20),
		action.NewPass("p2"),
		action.NewPar("p3", "PRR", 67),
	}
}

func buildLog(t *testing.T, gameID string) []Record {
	t.Helper()
	var out []Record
	for i, a := range sampleActions() {
		rec, err := NewRecord(gameID, i, a, "sum", Head(out))
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

func TestChain(t *testing.T) {
	a := Chain("", []byte(`{"kind":"pass"}`))
	b := Chain("", []byte(`{"kind":"pass"}`))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, Chain(a, []byte(`{"kind":"pass"}`)))
	assert.NotEqual(t, a, Chain("", []byte(`{"kind":"bid"}`)))
}

func TestVerifyChain(t *testing.T) {
	log := buildLog(t, "g1")
	actions, err := VerifyChain("g1", log)
	require.NoError(t, err)
	require.Len(t, actions, 3)
	assert.Equal(t, action.KindPar, actions[2].Kind())
	assert.Equal(t, "p3", actions[2].EntityID())

	tests := []struct {
		name   string
		mutate func([]Record)
	}{
		{"payload edited", func(r []Record) { r[1].Payload = []byte(`{"kind":"pass","entity_id":"p3"}`) }},
		{"reordered", func(r []Record) { r[0], r[1] = r[1], r[0] }},
		{"foreign game", func(r []Record) { r[2].GameID = "g2" }},
		{"bad id", func(r []Record) { r[0].ID = "not-a-ulid" }},
		{"header mismatch", func(r []Record) { r[1].EntityID = "p1" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := append([]Record(nil), log...)
			tt.mutate(broken)
			_, err := VerifyChain("g1", broken)
			assert.ErrorIs(t, err, rules.ErrReplayInconsistency)
		})
	}
}

// exerciseStore runs the Store contract against s.
func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()
	id := uuid.NewString()
	setup := game.Setup{ID: id, Players: []game.PlayerSetup{{ID: "p1", Name: "Ann"}, {ID: "p2"}, {ID: "p3"}}, Seed: 9}

	_, err := s.GetGame(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.CreateGame(ctx, GameRecord{ID: id, Variant: "classic", Setup: setup, CreatedAt: time.Now().UTC()}))
	assert.ErrorIs(t, s.CreateGame(ctx, GameRecord{ID: id, Variant: "gb", Setup: setup, CreatedAt: time.Now().UTC()}), ErrConflict)

	got, err := s.GetGame(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "classic", got.Variant)
	assert.Equal(t, setup, got.Setup)

	log := buildLog(t, id)
	for _, rec := range log {
		require.NoError(t, s.Append(ctx, rec))
	}
	assert.ErrorIs(t, s.Append(ctx, log[1]), ErrConflict)

	stored, err := s.Records(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for i := range log {
		assert.Equal(t, log[i].ID, stored[i].ID)
		assert.Equal(t, log[i].Payload, stored[i].Payload)
		assert.Equal(t, log[i].ChainHash, stored[i].ChainHash)
	}
	_, err = VerifyChain(id, stored)
	require.NoError(t, err)

	require.NoError(t, s.Truncate(ctx, id, 1))
	stored, err = s.Records(ctx, id)
	require.NoError(t, err)
	require.Len(t, stored, 1)

	next, err := NewRecord(id, 1, action.NewPass("p2"), "sum", Head(stored))
	require.NoError(t, err)
	require.NoError(t, s.Append(ctx, next))

	games, err := s.ListGames(ctx)
	require.NoError(t, err)
	found := false
	for _, g := range games {
		found = found || g.ID == id
	}
	assert.True(t, found)

	_, err = s.Records(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	exerciseStore(t, s)
}

func TestMemoryStoreRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateGame(ctx, GameRecord{ID: "g1", Variant: "gb"}))
	for _, rec := range buildLog(t, "g1") {
		require.NoError(t, s.Append(ctx, rec))
	}
	recs, err := s.Records(ctx, "g1")
	require.NoError(t, err)
	recs[0].Kind = "bankrupt"

	again, err := s.Records(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "bid", again[0].Kind)
}

// TestPostgresStore needs a scratch database named by RAILS_TEST_DATABASE_URL.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("RAILS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RAILS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := NewDB(ctx, config.DatabaseConfig{URL: url, MaxConns: 4}, nil)
	require.NoError(t, err)
	s := NewPostgresStore(pool)
	defer s.Close()
	require.NoError(t, s.Migrate(ctx))
	exerciseStore(t, s)
}
