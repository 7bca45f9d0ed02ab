package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// Token places one station token per turn.
type Token struct {
	game.BaseStep
}

// NewToken builds the token step.
func NewToken(g *game.Game, r *game.Round) *Token {
	s := &Token{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindPlaceToken, s.placeToken)
	game.On(&s.BaseStep, action.KindPass, s.pass)
	return s
}

func (s *Token) Name() string { return "Place a Token" }

func (s *Token) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok || c.Receivership() {
		return nil
	}
	t := c.NextToken()
	if t == nil || c.Cash() < t.Price {
		return nil
	}
	return []action.Kind{action.KindPlaceToken, action.KindPass}
}

func (s *Token) placeToken(a *action.PlaceToken) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	t := c.NextToken()
	if t == nil {
		return rules.Violation("%s has no tokens left", c.Name())
	}
	if err := s.Game.PlaceToken(c, a.Hex, t.Price); err != nil {
		return err
	}
	s.Pass()
	return nil
}

func (s *Token) pass(a *action.Pass) error {
	if _, err := actingOperator(&s.BaseStep, a); err != nil {
		return err
	}
	s.Pass()
	return nil
}

// HomeToken makes a corporation with several home options choose one before
// anything else happens. It is never passed; it blocks whenever a choice is
// pending.
type HomeToken struct {
	game.BaseStep
}

// NewHomeToken builds the home token step.
func NewHomeToken(g *game.Game, r *game.Round) *HomeToken {
	s := &HomeToken{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindPlaceToken, s.placeToken)
	return s
}

func (s *HomeToken) Name() string { return "Place Home Token" }

func (s *HomeToken) Pass() {}
func (s *HomeToken) Skip() {}

func (s *HomeToken) pending() *game.PendingToken {
	pending := s.Round.PendingTokens()
	if len(pending) == 0 {
		return nil
	}
	return &pending[0]
}

// ActiveEntities is the corporation whose home choice is first in line.
func (s *HomeToken) ActiveEntities() []entity.Entity {
	if pt := s.pending(); pt != nil {
		return []entity.Entity{pt.Corporation}
	}
	return s.BaseStep.ActiveEntities()
}

func (s *HomeToken) Actions(e entity.Entity) []action.Kind {
	pt := s.pending()
	if pt == nil || !game.SameEntity(e, pt.Corporation) {
		return nil
	}
	return []action.Kind{action.KindPlaceToken}
}

func (s *HomeToken) placeToken(a *action.PlaceToken) error {
	pt := s.pending()
	if pt == nil || pt.Corporation.ID() != a.EntityID() {
		return rules.Violation("%s has no home token to place", a.EntityID())
	}
	allowed := false
	for _, hex := range pt.Hexes {
		if hex == a.Hex {
			allowed = true
			break
		}
	}
	if !allowed {
		return rules.Violation("%s is not a home of %s", a.Hex, pt.Corporation.Name())
	}
	if err := s.Game.PlaceToken(pt.Corporation, a.Hex, 0); err != nil {
		return err
	}
	s.Round.ResolvePendingToken(pt.Corporation)
	return nil
}
