package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// replayVersion is bumped when the file layout changes.
const replayVersion = 1

// Frame is the game as it stood after one action.
type Frame struct {
	Index    int
	Kind     action.Kind
	EntityID string
	Action   []byte
	Checksum string
	View     View
}

// Replay is a recorded game that can be stepped through frame by frame.
type Replay struct {
	GameID       string
	Variant      string
	Setup        Setup
	Frames       []*Frame
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay creates an empty replay.
func NewReplay(gameID, variant string, setup Setup) *Replay {
	return &Replay{
		GameID:  gameID,
		Variant: variant,
		Setup:   setup,
		Frames:  make([]*Frame, 0),
	}
}

// Record captures the game after a processed action.
func (r *Replay) Record(g *Game, a action.Action) error {
	data, err := action.Encode(a)
	if err != nil {
		return fmt.Errorf("failed to encode action: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.Frames = append(r.Frames, &Frame{
		Index:    len(r.Frames),
		Kind:     a.Kind(),
		EntityID: a.EntityID(),
		Action:   data,
		Checksum: g.Checksum(),
		View:     g.View(),
	})
	return nil
}

// Start rewinds to the first frame.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the frame at the cursor and advances it.
func (r *Replay) Next() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.Frames) {
		f := r.Frames[r.CurrentIndex]
		r.CurrentIndex++
		return f
	}
	return nil
}

// Previous moves the cursor back and returns that frame.
func (r *Replay) Previous() *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return r.Frames[r.CurrentIndex]
	}
	return nil
}

// Skip moves the cursor by count frames, clamped to the recording.
func (r *Replay) Skip(count int) *Frame {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.CurrentIndex + count
	if idx >= len(r.Frames) {
		idx = len(r.Frames) - 1
	}
	if idx < 0 {
		idx = 0
	}

	r.CurrentIndex = idx
	if r.CurrentIndex < len(r.Frames) {
		return r.Frames[r.CurrentIndex]
	}
	return nil
}

func (r *Replay) truncate(keep int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if keep < 0 {
		keep = 0
	}
	if keep < len(r.Frames) {
		r.Frames = r.Frames[:keep]
	}
	if r.CurrentIndex > len(r.Frames) {
		r.CurrentIndex = len(r.Frames)
	}
}

// Size returns the number of frames.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Frames)
}

// At returns the frame at index, or nil.
func (r *Replay) At(index int) *Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index >= 0 && index < len(r.Frames) {
		return r.Frames[index]
	}
	return nil
}

// Actions decodes the recorded actions in order.
func (r *Replay) Actions() ([]action.Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]action.Action, 0, len(r.Frames))
	for _, f := range r.Frames {
		a, err := action.Decode(f.Action)
		if err != nil {
			return nil, rules.Inconsistent("frame %d: %v", f.Index, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// Verify replays the recorded actions on a fresh game and checks every frame's
// checksum.
func (r *Replay) Verify(cfg Config, policies Policies, opts ...Option) error {
	actions, err := r.Actions()
	if err != nil {
		return err
	}
	g, err := NewGame(cfg, policies, r.Setup, opts...)
	if err != nil {
		return err
	}
	for i, a := range actions {
		if err := g.Process(a); err != nil {
			return rules.Inconsistent("action %d (%s): %v", i, a.Kind(), err)
		}
		if sum := g.Checksum(); sum != r.At(i).Checksum {
			return rules.Inconsistent("checksum mismatch after action %d", i)
		}
	}
	return nil
}

// SaveToFile writes the replay as a gzipped gob stream.
func (r *Replay) SaveToFile(directory string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", r.GameID))
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		GameID:     r.GameID,
		Variant:    r.Variant,
		Setup:      r.Setup,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		FrameCount: len(r.Frames),
	}
	if err := encoder.Encode(&metadata); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for i, f := range r.Frames {
		if err := encoder.Encode(f); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}

	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory, gameID string) (*Replay, error) {
	filename := filepath.Join(directory, fmt.Sprintf("%s.replay", gameID))

	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := NewReplay(metadata.GameID, metadata.Variant, metadata.Setup)

	for i := 0; i < metadata.FrameCount; i++ {
		var f Frame
		if err := decoder.Decode(&f); err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", i, err)
		}
		replay.Frames = append(replay.Frames, &f)
	}

	return replay, nil
}

type replayMetadata struct {
	GameID     string
	Variant    string
	Setup      Setup
	Timestamp  time.Time
	Version    int
	FrameCount int
}

// ReplayActions rebuilds a game by applying actions in order. An action the
// rebuilt game rejects, or one naming an entity it does not have, means the log
// does not belong to this game.
func ReplayActions(cfg Config, policies Policies, setup Setup, actions []action.Action, opts ...Option) (*Game, error) {
	g, err := NewGame(cfg, policies, setup, opts...)
	if err != nil {
		return nil, err
	}
	for i, a := range actions {
		if a == nil {
			return nil, rules.Inconsistent("action %d is empty", i)
		}
		if g.Entity(a.EntityID()) == nil {
			return nil, rules.Inconsistent("action %d references unknown entity %s", i, a.EntityID())
		}
		if err := g.Process(a); err != nil {
			return nil, rules.Inconsistent("action %d (%s by %s): %v", i, a.Kind(), a.EntityID(), err)
		}
	}
	return g, nil
}

// ReplayRecorder keeps replays for running games.
type ReplayRecorder struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	replays map[string]*Replay // gameID -> Replay
	enabled map[string]bool    // gameID -> whether recording is enabled
	saveDir string
}

// NewReplayRecorder creates a recorder that saves into saveDir.
func NewReplayRecorder(logger *zap.Logger, saveDir string) *ReplayRecorder {
	return &ReplayRecorder{
		logger:  logger,
		replays: make(map[string]*Replay),
		enabled: make(map[string]bool),
		saveDir: saveDir,
	}
}

// StartRecording begins recording a game.
func (rr *ReplayRecorder) StartRecording(g *Game) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.replays[g.ID()] = NewReplay(g.ID(), g.Config().Name, g.Setup())
	rr.enabled[g.ID()] = true

	if rr.logger != nil {
		rr.logger.Info("started replay recording",
			zap.String("game_id", g.ID()),
		)
	}
}

// StopRecording stops recording a game. Frames already taken are kept.
func (rr *ReplayRecorder) StopRecording(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	rr.enabled[gameID] = false

	if rr.logger != nil {
		rr.logger.Info("stopped replay recording",
			zap.String("game_id", gameID),
		)
	}
}

// Record adds a frame if the game is being recorded.
func (rr *ReplayRecorder) Record(g *Game, a action.Action) {
	rr.mu.RLock()
	enabled := rr.enabled[g.ID()]
	replay := rr.replays[g.ID()]
	rr.mu.RUnlock()

	if !enabled || replay == nil {
		return
	}

	if err := replay.Record(g, a); err != nil {
		if rr.logger != nil {
			rr.logger.Warn("failed to record replay frame",
				zap.String("game_id", g.ID()),
				zap.Error(err),
			)
		}
		return
	}

	if rr.logger != nil {
		rr.logger.Debug("recorded replay frame",
			zap.String("game_id", g.ID()),
			zap.Int("frame_count", replay.Size()),
		)
	}
}

// GetReplay returns the replay for a game.
func (rr *ReplayRecorder) GetReplay(gameID string) (*Replay, bool) {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	replay, exists := rr.replays[gameID]
	return replay, exists
}

// SaveReplay writes a replay to disk and drops it from memory.
func (rr *ReplayRecorder) SaveReplay(gameID string) error {
	rr.mu.Lock()
	replay, exists := rr.replays[gameID]
	if !exists {
		rr.mu.Unlock()
		return fmt.Errorf("no replay found for game %s", gameID)
	}
	delete(rr.replays, gameID)
	delete(rr.enabled, gameID)
	rr.mu.Unlock()

	if err := replay.SaveToFile(rr.saveDir); err != nil {
		return fmt.Errorf("failed to save replay: %w", err)
	}

	if rr.logger != nil {
		rr.logger.Info("saved replay to disk",
			zap.String("game_id", gameID),
			zap.Int("frame_count", replay.Size()),
			zap.String("directory", rr.saveDir),
		)
	}

	return nil
}

// LoadReplay reads a saved replay.
func (rr *ReplayRecorder) LoadReplay(gameID string) (*Replay, error) {
	replay, err := LoadReplayFromFile(rr.saveDir, gameID)
	if err != nil {
		return nil, err
	}

	if rr.logger != nil {
		rr.logger.Info("loaded replay from disk",
			zap.String("game_id", gameID),
			zap.Int("frame_count", replay.Size()),
		)
	}

	return replay, nil
}

// Rewind drops the frames after the first keep, following an undo.
func (rr *ReplayRecorder) Rewind(gameID string, keep int) {
	rr.mu.RLock()
	replay := rr.replays[gameID]
	rr.mu.RUnlock()

	if replay == nil {
		return
	}
	replay.truncate(keep)
}

// ClearReplay drops a replay without saving it.
func (rr *ReplayRecorder) ClearReplay(gameID string) {
	rr.mu.Lock()
	defer rr.mu.Unlock()

	delete(rr.replays, gameID)
	delete(rr.enabled, gameID)
}

// IsRecording reports whether a game is being recorded.
func (rr *ReplayRecorder) IsRecording(gameID string) bool {
	rr.mu.RLock()
	defer rr.mu.RUnlock()

	return rr.enabled[gameID]
}
