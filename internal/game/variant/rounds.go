package variant

import (
	"github.com/railyard/rails-server-go/internal/game"
)

// build adapts a typed step constructor to a StepFactory.
func build[S game.Step](fn func(*game.Game, *game.Round) S) game.StepFactory {
	return func(g *game.Game, r *game.Round) game.Step { return fn(g, r) }
}

// pipelines maps each round type to its ordered steps.
type pipelines map[game.RoundType][]game.StepFactory

// setRounds plays stock rounds followed by as many operating rounds as the
// current phase allows.
type setRounds struct {
	initial game.RoundType
	steps   pipelines
}

func (p setRounds) InitialRound(*game.Game) game.RoundType { return p.initial }

func (p setRounds) Pipeline(_ *game.Game, t game.RoundType) []game.StepFactory {
	return p.steps[t]
}

func (p setRounds) NextRound(g *game.Game, finished *game.Round) (game.RoundType, int) {
	switch finished.Type() {
	case game.RoundAuction:
		return game.RoundStock, g.Turn()
	case game.RoundStock:
		return game.RoundOperating, 1
	default:
		return p.afterOperating(g, finished.Num())
	}
}

func (p setRounds) afterOperating(g *game.Game, num int) (game.RoundType, int) {
	if num < g.OperatingRounds() {
		return game.RoundOperating, num + 1
	}
	return game.RoundStock, g.Turn() + 1
}

// mergerRounds follows every operating round with a merger round and an
// acquisition round.
type mergerRounds struct {
	setRounds
}

func (p mergerRounds) NextRound(g *game.Game, finished *game.Round) (game.RoundType, int) {
	switch finished.Type() {
	case game.RoundOperating:
		return game.RoundMerger, finished.Num()
	case game.RoundMerger:
		return game.RoundAcquisition, finished.Num()
	case game.RoundAcquisition:
		return p.afterOperating(g, finished.Num())
	default:
		return p.setRounds.NextRound(g, finished)
	}
}
