package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
)

// Conversion lets a five-share corporation become a ten-share corporation.
type Conversion struct {
	game.BaseStep
}

// NewConversion builds the conversion step.
func NewConversion(g *game.Game, r *game.Round) *Conversion {
	s := &Conversion{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindConvert, s.convert)
	game.On(&s.BaseStep, action.KindPass, s.pass)
	return s
}

func (s *Conversion) Name() string { return "Convert" }

func (s *Conversion) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok || c.Receivership() || !game.FiveShare(c) {
		return nil
	}
	return []action.Kind{action.KindConvert, action.KindPass}
}

func (s *Conversion) convert(a *action.Convert) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	if err := s.Game.Convert(c); err != nil {
		return err
	}
	s.Pass()
	return nil
}

func (s *Conversion) pass(a *action.Pass) error {
	if _, err := actingOperator(&s.BaseStep, a); err != nil {
		return err
	}
	s.Pass()
	return nil
}
