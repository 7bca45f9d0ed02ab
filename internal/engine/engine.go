// Package engine runs many games at once. It serialises actions per game,
// persists every accepted action to the action log, rebuilds games from the
// log on load, undo and failure, and tells subscribers what changed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/rules"
	"github.com/railyard/rails-server-go/internal/game/variant"
	"github.com/railyard/rails-server-go/internal/metrics"
	"github.com/railyard/rails-server-go/internal/repository"
)

var (
	// ErrGameNotFound is returned for an id the engine does not hold.
	ErrGameNotFound = errors.New("game not found")

	// ErrTooManyGames is returned when the engine is at capacity.
	ErrTooManyGames = errors.New("too many games")
)

// Notification types.
const (
	NotifyGameCreated     = "GAME_CREATED"
	NotifyActionProcessed = "ACTION_PROCESSED"
	NotifyUndo            = "UNDO"
	NotifyGameEnded       = "GAME_ENDED"
)

// Notification tells subscribers that a game changed.
type Notification struct {
	Type      string            `json:"type"`
	GameID    string            `json:"game_id"`
	EntityID  string            `json:"entity_id,omitempty"`
	Seq       int               `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Events    []rules.EventType `json:"events,omitempty"`
	View      game.View         `json:"view"`
}

// NotificationHandler receives notifications. It runs on its own goroutine.
type NotificationHandler func(Notification)

// Resolver finds a variant by name.
type Resolver func(name string) (variant.Variant, error)

// Option configures an Engine.
type Option func(*Engine)

// WithStore persists action logs in s. The default is an in-memory store.
func WithStore(s repository.Store) Option {
	return func(e *Engine) { e.store = s }
}

// WithMetrics records engine metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRecorder records replay frames for every game.
func WithRecorder(r *game.ReplayRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithResolver replaces the variant lookup.
func WithResolver(r Resolver) Option {
	return func(e *Engine) { e.resolve = r }
}

// WithStrictChecks verifies share and presidency invariants after every
// action.
func WithStrictChecks(on bool) Option {
	return func(e *Engine) { e.strict = on }
}

// WithMaxGames caps the games held in memory. Zero means no cap.
func WithMaxGames(n int) Option {
	return func(e *Engine) { e.maxGames = n }
}

// DirResolver looks up built-in variants first and then <dir>/<name>.yaml.
func DirResolver(dir string) Resolver {
	return func(name string) (variant.Variant, error) {
		v, err := variant.Get(name)
		if err == nil || dir == "" {
			return v, err
		}
		base := filepath.Base(strings.TrimSpace(name))
		if base == "." || base == string(filepath.Separator) {
			return variant.Variant{}, err
		}
		return variant.LoadFile(filepath.Join(dir, base+".yaml"))
	}
}

// session is one running game. mu serialises everything that touches g.
type session struct {
	mu      sync.Mutex
	id      string
	name    string
	variant variant.Variant
	setup   game.Setup
	game    *game.Game
	head    string
	events  []rules.Event
}

// Engine manages running games.
type Engine struct {
	logger   *zap.Logger
	store    repository.Store
	metrics  *metrics.Metrics
	recorder *game.ReplayRecorder
	resolve  Resolver
	strict   bool
	maxGames int

	mu      sync.RWMutex
	games   map[string]*session
	handler NotificationHandler
}

// New creates an engine.
func New(logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger:  logger,
		resolve: variant.Get,
		games:   make(map[string]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = repository.NewMemoryStore()
	}
	return e
}

// SetNotificationHandler registers the receiver of game notifications.
func (e *Engine) SetNotificationHandler(handler NotificationHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handler = handler
}

func (e *Engine) emit(n Notification) {
	e.mu.RLock()
	handler := e.handler
	e.mu.RUnlock()

	if handler != nil {
		n.Timestamp = time.Now().UTC()
		go handler(n)
	}
}

func (s *session) options(logger *zap.Logger) []game.Option {
	bus := rules.NewEventBus()
	bus.Subscribe(func(evt rules.Event) {
		s.events = append(s.events, evt)
	})
	return []game.Option{game.WithLogger(logger), game.WithEventBus(bus)}
}

func (s *session) eventTypes() []rules.EventType {
	if len(s.events) == 0 {
		return nil
	}
	out := make([]rules.EventType, 0, len(s.events))
	for _, evt := range s.events {
		out = append(out, evt.Type)
	}
	return out
}

func (e *Engine) session(gameID string) (*session, error) {
	e.mu.RLock()
	s, ok := e.games[gameID]
	e.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("game %s: %w", gameID, ErrGameNotFound)
	}
	return s, nil
}

func (e *Engine) add(s *session) error {
	e.mu.Lock()
	if _, exists := e.games[s.id]; exists {
		e.mu.Unlock()
		return fmt.Errorf("game %s already exists", s.id)
	}
	if e.maxGames > 0 && len(e.games) >= e.maxGames {
		e.mu.Unlock()
		return ErrTooManyGames
	}
	e.games[s.id] = s
	n := len(e.games)
	e.mu.Unlock()

	e.metrics.SetActiveGames(n)
	return nil
}

func (e *Engine) drop(gameID string) {
	e.mu.Lock()
	delete(e.games, gameID)
	n := len(e.games)
	e.mu.Unlock()

	e.metrics.SetActiveGames(n)
}

// CreateGame starts a game of the named variant and returns its first view.
func (e *Engine) CreateGame(ctx context.Context, variantName string, players []game.PlayerSetup, seed int64) (game.View, error) {
	v, err := e.resolve(variantName)
	if err != nil {
		return game.View{}, err
	}

	id := uuid.NewString()
	s := &session{
		id:      id,
		name:    variantName,
		variant: v,
		setup:   game.Setup{ID: id, Players: players, Seed: seed},
	}
	g, err := v.NewGame(s.setup, s.options(e.logger)...)
	if err != nil {
		return game.View{}, err
	}
	s.game = g
	s.events = nil

	if err := e.add(s); err != nil {
		return game.View{}, err
	}
	if err := e.store.CreateGame(ctx, repository.GameRecord{
		ID:        id,
		Variant:   variantName,
		Setup:     s.setup,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		e.drop(id)
		return game.View{}, fmt.Errorf("failed to persist game: %w", err)
	}

	if e.recorder != nil {
		e.recorder.StartRecording(g)
	}
	if e.logger != nil {
		e.logger.Info("game created",
			zap.String("game_id", id),
			zap.String("variant", variantName),
			zap.Int("players", len(players)),
			zap.Int64("seed", seed),
		)
	}

	view := g.View()
	e.emit(Notification{Type: NotifyGameCreated, GameID: id, View: view})
	return view, nil
}

// Submit decodes a JSON action and processes it.
func (e *Engine) Submit(ctx context.Context, gameID string, data []byte) (game.View, error) {
	a, err := action.Decode(data)
	if err != nil {
		return game.View{}, err
	}
	return e.Process(ctx, gameID, a)
}

// Process applies an action to a game and appends it to the log. A rule
// violation leaves the game as it was. Any other failure rebuilds the game
// from its log before the error is returned.
func (e *Engine) Process(ctx context.Context, gameID string, a action.Action) (game.View, error) {
	if a == nil {
		return game.View{}, rules.Violation("no action")
	}
	s, err := e.session(gameID)
	if err != nil {
		return game.View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	kind := string(a.Kind())
	s.events = nil
	prev := s.game.Actions()

	if err := s.game.Process(a); err != nil {
		e.metrics.ActionRejected(s.name, kind, errorClass(err))
		if rules.IsViolation(err) {
			return game.View{}, err
		}
		return game.View{}, e.restore(s, prev, err)
	}

	if e.strict {
		if err := checkInvariants(s.game, a); err != nil {
			e.metrics.ActionRejected(s.name, kind, errorClass(err))
			return game.View{}, e.restore(s, prev, err)
		}
	}

	seq := len(prev)
	rec, err := repository.NewRecord(s.id, seq, a, s.game.Checksum(), s.head)
	if err == nil {
		err = e.store.Append(ctx, rec)
	}
	if err != nil {
		e.metrics.ActionRejected(s.name, kind, "persistence")
		return game.View{}, e.restore(s, prev, fmt.Errorf("failed to persist action: %w", err))
	}
	s.head = rec.ChainHash

	if e.recorder != nil {
		e.recorder.Record(s.game, a)
	}
	e.metrics.ActionProcessed(s.name, kind, time.Since(start))

	if e.logger != nil {
		e.logger.Debug("action processed",
			zap.String("game_id", s.id),
			zap.String("kind", kind),
			zap.String("entity_id", a.EntityID()),
			zap.Int("seq", seq),
			zap.String("round", s.game.Round().Name()),
		)
	}

	view := s.game.View()
	e.emit(Notification{
		Type:     NotifyActionProcessed,
		GameID:   s.id,
		EntityID: a.EntityID(),
		Seq:      seq,
		Events:   s.eventTypes(),
		View:     view,
	})
	if s.game.Finished() {
		e.finish(s, view)
	}
	return view, nil
}

func (e *Engine) finish(s *session, view game.View) {
	if e.logger != nil {
		e.logger.Info("game ended",
			zap.String("game_id", s.id),
			zap.String("reason", string(s.game.EndReason())),
			zap.Int("actions", len(s.game.Actions())),
		)
	}
	if e.recorder != nil && e.recorder.IsRecording(s.id) {
		if err := e.recorder.SaveReplay(s.id); err != nil && e.logger != nil {
			e.logger.Warn("failed to save replay",
				zap.String("game_id", s.id),
				zap.Error(err),
			)
		}
	}
	e.emit(Notification{Type: NotifyGameEnded, GameID: s.id, Seq: view.Actions - 1, View: view})
}

// restore rebuilds s from actions after cause left the game in an unknown
// state.
func (e *Engine) restore(s *session, actions []action.Action, cause error) error {
	if err := e.rebuild(s, actions, "restore"); err != nil {
		if e.logger != nil {
			e.logger.Error("failed to restore game after error",
				zap.String("game_id", s.id),
				zap.NamedError("cause", cause),
				zap.Error(err),
			)
		}
		return fmt.Errorf("%w (restore failed: %v)", cause, err)
	}
	if e.logger != nil {
		e.logger.Warn("restored game after error",
			zap.String("game_id", s.id),
			zap.Int("actions", len(actions)),
			zap.Error(cause),
		)
	}
	return fmt.Errorf("action failed and state restored: %w", cause)
}

func (e *Engine) rebuild(s *session, actions []action.Action, cause string) error {
	g, err := game.ReplayActions(s.variant.Config, s.variant.Policies, s.setup, actions, s.options(e.logger)...)
	e.metrics.Replayed(cause, err)
	if err != nil {
		return err
	}
	head, err := chainHead(actions)
	if err != nil {
		return err
	}
	s.game = g
	s.head = head
	s.events = nil
	if e.recorder != nil {
		e.recorder.Rewind(s.id, len(actions))
	}
	return nil
}

func chainHead(actions []action.Action) (string, error) {
	head := ""
	for i, a := range actions {
		payload, err := action.Encode(a)
		if err != nil {
			return "", fmt.Errorf("encode action %d: %w", i, err)
		}
		head = repository.Chain(head, payload)
	}
	return head, nil
}

// Undo takes back the last count actions by truncating the log and replaying
// what is left.
func (e *Engine) Undo(ctx context.Context, gameID string, count int) (game.View, error) {
	if count < 1 {
		return game.View{}, rules.Violation("undo count must be positive")
	}
	s, err := e.session(gameID)
	if err != nil {
		return game.View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	actions := s.game.Actions()
	if count > len(actions) {
		return game.View{}, rules.Violation("only %d actions can be undone", len(actions))
	}
	keep := len(actions) - count
	if err := e.store.Truncate(ctx, s.id, keep); err != nil {
		return game.View{}, fmt.Errorf("failed to truncate log: %w", err)
	}
	if err := e.rebuild(s, actions[:keep], "undo"); err != nil {
		return game.View{}, err
	}

	if e.logger != nil {
		e.logger.Info("actions undone",
			zap.String("game_id", s.id),
			zap.Int("count", count),
			zap.Int("remaining", keep),
		)
	}

	view := s.game.View()
	e.emit(Notification{Type: NotifyUndo, GameID: s.id, Seq: keep - 1, View: view})
	return view, nil
}

// Load rebuilds a stored game, checking the hash chain and the checksum after
// every action.
func (e *Engine) Load(ctx context.Context, gameID string) (game.View, error) {
	if s, err := e.session(gameID); err == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.game.View(), nil
	}

	rec, err := e.store.GetGame(ctx, gameID)
	if err != nil {
		return game.View{}, err
	}
	records, err := e.store.Records(ctx, gameID)
	if err != nil {
		return game.View{}, err
	}
	s, err := e.replayLog(rec, records)
	e.metrics.Replayed("load", err)
	if err != nil {
		return game.View{}, err
	}
	if err := e.add(s); err != nil {
		return game.View{}, err
	}

	if e.logger != nil {
		e.logger.Info("game loaded",
			zap.String("game_id", gameID),
			zap.String("variant", rec.Variant),
			zap.Int("actions", len(records)),
		)
	}
	return s.game.View(), nil
}

func (e *Engine) replayLog(rec repository.GameRecord, records []repository.Record) (*session, error) {
	actions, err := repository.VerifyChain(rec.ID, records)
	if err != nil {
		return nil, err
	}
	v, err := e.resolve(rec.Variant)
	if err != nil {
		return nil, err
	}
	s := &session{id: rec.ID, name: rec.Variant, variant: v, setup: rec.Setup}
	g, err := v.NewGame(s.setup, s.options(e.logger)...)
	if err != nil {
		return nil, err
	}
	for i, a := range actions {
		if err := g.Process(a); err != nil {
			return nil, rules.Inconsistent("action %d (%s by %s): %v", i, a.Kind(), a.EntityID(), err)
		}
		if sum := g.Checksum(); sum != records[i].StateChecksum {
			return nil, rules.Inconsistent("checksum mismatch after action %d", i)
		}
	}
	s.game = g
	s.head = repository.Head(records)
	s.events = nil
	return s, nil
}

// LoadAll loads every stored game. Games that fail to load are logged and
// skipped; the number loaded is returned.
func (e *Engine) LoadAll(ctx context.Context) (int, error) {
	recs, err := e.store.ListGames(ctx)
	if err != nil {
		return 0, err
	}
	loaded := 0
	for _, rec := range recs {
		if _, err := e.Load(ctx, rec.ID); err != nil {
			if e.logger != nil {
				e.logger.Warn("failed to load game",
					zap.String("game_id", rec.ID),
					zap.Error(err),
				)
			}
			continue
		}
		loaded++
	}
	return loaded, nil
}

// View returns a snapshot of a game.
func (e *Engine) View(gameID string) (game.View, error) {
	s, err := e.session(gameID)
	if err != nil {
		return game.View{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.View(), nil
}

// LegalActions lists what an entity may do in a game now.
func (e *Engine) LegalActions(gameID, entityID string) ([]action.Kind, error) {
	s, err := e.session(gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.game.Entity(entityID) == nil {
		return nil, rules.Violation("unknown entity %s", entityID)
	}
	return s.game.LegalActions(entityID), nil
}

// Log returns a game's human-readable log.
func (e *Engine) Log(gameID string) ([]string, error) {
	s, err := e.session(gameID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.game.Log(), nil
}

// Records returns a game's stored action log.
func (e *Engine) Records(ctx context.Context, gameID string) ([]repository.Record, error) {
	if _, err := e.session(gameID); err != nil {
		return nil, err
	}
	return e.store.Records(ctx, gameID)
}

// Games lists the ids of the games in memory.
func (e *Engine) Games() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ids := make([]string, 0, len(e.games))
	for id := range e.games {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Variants lists the built-in variants plus the YAML files in dir.
func Variants(dir string) []string {
	names := variant.Names()
	if dir == "" {
		return names
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return names
	}
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, entry := range entries {
		name, ok := strings.CutSuffix(entry.Name(), ".yaml")
		if entry.IsDir() || !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, rules.ErrRuleViolation):
		return "violation"
	case errors.Is(err, rules.ErrConfiguration):
		return "configuration"
	case errors.Is(err, rules.ErrReplayInconsistency):
		return "inconsistency"
	}
	return "internal"
}
