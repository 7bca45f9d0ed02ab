package game_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

func recordGame(t *testing.T, dir string, n int) (*game.ReplayRecorder, *game.Game, []string) {
	t.Helper()
	g := newTestGame(t, testConfig(), nil)
	rec := game.NewReplayRecorder(zap.NewNop(), dir)
	rec.StartRecording(g)
	require.True(t, rec.IsRecording(g.ID()))

	_, sums, err := playRandom(g, newRand(11), n, func(a action.Action) { rec.Record(g, a) })
	require.NoError(t, err)
	return rec, g, sums
}

func TestReplayRecorderFrames(t *testing.T) {
	rec, g, sums := recordGame(t, t.TempDir(), 20)

	replay, ok := rec.GetReplay(g.ID())
	require.True(t, ok)
	require.Equal(t, len(sums), replay.Size())
	for i, sum := range sums {
		assert.Equal(t, sum, replay.At(i).Checksum, "frame %d", i)
	}
	assert.Nil(t, replay.At(replay.Size()))

	replay.Start()
	first := replay.Next()
	require.NotNil(t, first)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, sums[len(sums)-1], replay.Skip(replay.Size()).Checksum)

	require.NoError(t, replay.Verify(testConfig(), testPolicies(nil)))
}

func TestReplayVerifyDetectsTampering(t *testing.T) {
	rec, g, _ := recordGame(t, t.TempDir(), 10)
	replay, ok := rec.GetReplay(g.ID())
	require.True(t, ok)

	replay.At(replay.Size() - 1).Checksum = "0000"
	err := replay.Verify(testConfig(), testPolicies(nil))
	assert.ErrorIs(t, err, rules.ErrReplayInconsistency)
}

func TestReplaySaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	rec, g, sums := recordGame(t, dir, 15)

	require.NoError(t, rec.SaveReplay(g.ID()))
	_, err := os.Stat(filepath.Join(dir, g.ID()+".replay"))
	require.NoError(t, err)
	assert.False(t, rec.IsRecording(g.ID()))
	assert.Error(t, rec.SaveReplay(g.ID()))

	loaded, err := rec.LoadReplay(g.ID())
	require.NoError(t, err)
	assert.Equal(t, g.ID(), loaded.GameID)
	assert.Equal(t, len(sums), loaded.Size())
	require.NoError(t, loaded.Verify(testConfig(), testPolicies(nil)))

	actions, err := loaded.Actions()
	require.NoError(t, err)
	rebuilt, err := game.ReplayActions(testConfig(), testPolicies(nil), loaded.Setup, actions)
	require.NoError(t, err)
	assert.Equal(t, g.Checksum(), rebuilt.Checksum())
}

func TestReplayRecorderStopAndRewind(t *testing.T) {
	rec, g, sums := recordGame(t, t.TempDir(), 8)
	replay, _ := rec.GetReplay(g.ID())

	rec.Rewind(g.ID(), 3)
	require.Equal(t, 3, replay.Size())
	assert.Equal(t, sums[2], replay.At(2).Checksum)

	rec.StopRecording(g.ID())
	assert.False(t, rec.IsRecording(g.ID()))
	rec.Record(g, action.NewPass(activeID(g)))
	assert.Equal(t, 3, replay.Size())

	rec.ClearReplay(g.ID())
	_, ok := rec.GetReplay(g.ID())
	assert.False(t, ok)
}

func TestLoadReplayFromFileMissing(t *testing.T) {
	_, err := game.LoadReplayFromFile(t.TempDir(), "nope")
	assert.Error(t, err)
}
