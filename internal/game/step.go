package game

import (
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// Handler applies one action. It must validate before mutating.
type Handler func(action.Action) error

// Step is one rule module of a round's pipeline.
type Step interface {
	// Name describes the step for logs and views.
	Name() string
	// Kinds lists every action kind the step may ever offer.
	Kinds() []action.Kind
	// Actions returns the kinds offered to e right now. It has no side effects.
	Actions(e entity.Entity) []action.Kind
	// Handlers maps each declared kind to its handler.
	Handlers() map[action.Kind]Handler
	// Blocks reports whether the step must be resolved before later steps.
	Blocks() bool
	Passed() bool
	Pass()
	Unpass()
	// Skip auto-passes the step when it has nothing to offer.
	Skip()
	// Setup runs at the start of every entity turn.
	Setup()
	// ActiveEntities lists who may act under the step.
	ActiveEntities() []entity.Entity
}

// Explainer is implemented by steps that can name the rule an action breaks
// when they decline to offer it.
type Explainer interface {
	Explain(a action.Action) error
}

// BaseStep carries the common step state. Concrete steps embed it and
// register their handlers with On.
type BaseStep struct {
	Game     *Game
	Round    *Round
	passed   bool
	kinds    []action.Kind
	handlers map[action.Kind]Handler
}

// NewBaseStep binds a step to its game and round.
func NewBaseStep(g *Game, r *Round) BaseStep {
	return BaseStep{Game: g, Round: r, handlers: make(map[action.Kind]Handler)}
}

func (b *BaseStep) Kinds() []action.Kind              { return b.kinds }
func (b *BaseStep) Handlers() map[action.Kind]Handler { return b.handlers }
func (b *BaseStep) Blocks() bool                      { return true }
func (b *BaseStep) Passed() bool                      { return b.passed }
func (b *BaseStep) Pass()                             { b.passed = true }
func (b *BaseStep) Unpass()                           { b.passed = false }
func (b *BaseStep) Skip()                             { b.passed = true }
func (b *BaseStep) Setup()                            {}

// ActiveEntities defaults to the round's current entity.
func (b *BaseStep) ActiveEntities() []entity.Entity {
	if e := b.Round.CurrentEntity(); e != nil {
		return []entity.Entity{e}
	}
	return nil
}

// CurrentEntity is the round's current entity, or nil.
func (b *BaseStep) CurrentEntity() entity.Entity {
	return b.Round.CurrentEntity()
}

// On registers a typed handler for an action kind.
func On[T action.Action](b *BaseStep, kind action.Kind, fn func(T) error) {
	if b.handlers == nil {
		b.handlers = make(map[action.Kind]Handler)
	}
	b.kinds = append(b.kinds, kind)
	b.handlers[kind] = func(a action.Action) error {
		typed, ok := a.(T)
		if !ok {
			return rules.Misconfigured("%s handler received %T", kind, a)
		}
		return fn(typed)
	}
}

// Offers reports whether kinds contains kind.
func Offers(kinds []action.Kind, kind action.Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// SameEntity compares entities by identity.
func SameEntity(a, b entity.Entity) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID() == b.ID()
}

// verifyHandlers checks that every declared kind has a handler.
func verifyHandlers(s Step) error {
	handlers := s.Handlers()
	for _, k := range s.Kinds() {
		if handlers[k] == nil {
			return rules.Misconfigured("step %s declares %s without a handler", s.Name(), k)
		}
	}
	return nil
}
