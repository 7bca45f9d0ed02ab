package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/railyard/rails-server-go/internal/engine"
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// GameService implements rails.v1.GameService on top of the engine.
type GameService struct {
	engine         *engine.Engine
	logger         *zap.Logger
	defaultVariant string
	variantDir     string
}

// NewGameService creates the gRPC service.
func NewGameService(eng *engine.Engine, logger *zap.Logger, defaultVariant, variantDir string) *GameService {
	return &GameService{
		engine:         eng,
		logger:         logger,
		defaultVariant: defaultVariant,
		variantDir:     variantDir,
	}
}

// createRequest is shared by the gRPC and HTTP create calls.
type createRequest struct {
	Variant string             `json:"variant"`
	Players []game.PlayerSetup `json:"players"`
	Seed    int64              `json:"seed"`
}

func (r *createRequest) validate(defaultVariant string) error {
	r.Variant = strings.TrimSpace(r.Variant)
	if r.Variant == "" {
		r.Variant = defaultVariant
	}
	if len(r.Players) == 0 {
		return fmt.Errorf("%w: players are required", errBadRequest)
	}
	seen := make(map[string]bool, len(r.Players))
	for i, p := range r.Players {
		if strings.TrimSpace(p.ID) == "" {
			return fmt.Errorf("%w: player %d has no id", errBadRequest, i)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: player %s is listed twice", errBadRequest, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

func createGame(ctx context.Context, eng *engine.Engine, req createRequest) (game.View, error) {
	view, err := eng.CreateGame(ctx, req.Variant, req.Players, req.Seed)
	if errors.Is(err, rules.ErrConfiguration) {
		return view, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return view, err
}

// decodeStruct converts a request message into a typed request.
func decodeStruct(in *structpb.Struct, out any) error {
	data, err := json.Marshal(in.AsMap())
	if err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// encodeStruct converts any JSON-encodable value into a response message.
func encodeStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

func viewResponse(view game.View) (*structpb.Struct, error) {
	out, err := encodeStruct(map[string]any{"game": view})
	return out, toStatus(err)
}

func gameID(in *structpb.Struct) (string, error) {
	id := strings.TrimSpace(in.GetFields()["game_id"].GetStringValue())
	if id == "" {
		return "", toStatus(fmt.Errorf("%w: game_id is required", errBadRequest))
	}
	return id, nil
}

// CreateGame starts a game: {variant, players: [{id, name}], seed}.
func (s *GameService) CreateGame(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req createRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, toStatus(err)
	}
	if err := req.validate(s.defaultVariant); err != nil {
		return nil, toStatus(err)
	}
	view, err := createGame(ctx, s.engine, req)
	if err != nil {
		return nil, toStatus(err)
	}
	if s.logger != nil {
		s.logger.Info("game created via gRPC",
			zap.String("game_id", view.ID),
			zap.String("variant", req.Variant),
		)
	}
	return viewResponse(view)
}

// SubmitAction applies {game_id, action}.
func (s *GameService) SubmitAction(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := gameID(in)
	if err != nil {
		return nil, err
	}
	act := in.GetFields()["action"].GetStructValue()
	if act == nil {
		return nil, toStatus(fmt.Errorf("%w: action is required", errBadRequest))
	}
	data, err := json.Marshal(act.AsMap())
	if err != nil {
		return nil, toStatus(fmt.Errorf("%w: %v", errBadRequest, err))
	}
	view, err := s.engine.Submit(ctx, id, data)
	if err != nil {
		return nil, toStatus(err)
	}
	return viewResponse(view)
}

// GetView returns {game} for {game_id}.
func (s *GameService) GetView(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := gameID(in)
	if err != nil {
		return nil, err
	}
	view, err := s.engine.View(id)
	if err != nil {
		return nil, toStatus(err)
	}
	return viewResponse(view)
}

// LegalActions returns {entity_id, actions} for {game_id, entity_id}.
func (s *GameService) LegalActions(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := gameID(in)
	if err != nil {
		return nil, err
	}
	entityID := in.GetFields()["entity_id"].GetStringValue()
	kinds, err := s.engine.LegalActions(id, entityID)
	if err != nil {
		return nil, toStatus(err)
	}
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	out, err := encodeStruct(map[string]any{"entity_id": entityID, "actions": names})
	return out, toStatus(err)
}

// Undo takes back {count} actions, one by default.
func (s *GameService) Undo(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := gameID(in)
	if err != nil {
		return nil, err
	}
	count := 1
	if v, ok := in.GetFields()["count"]; ok {
		count = int(v.GetNumberValue())
	}
	view, err := s.engine.Undo(ctx, id, count)
	if err != nil {
		return nil, toStatus(err)
	}
	return viewResponse(view)
}

// ListVariants returns {variants}.
func (s *GameService) ListVariants(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	names := engine.Variants(s.variantDir)
	out, err := encodeStruct(map[string]any{"variants": names})
	return out, toStatus(err)
}
