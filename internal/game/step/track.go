package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// operator returns the current corporation when e is it.
func operator(b *game.BaseStep, e entity.Entity) (*entity.Corporation, bool) {
	c, ok := e.(*entity.Corporation)
	if !ok || c.Closed() || !game.SameEntity(c, b.CurrentEntity()) {
		return nil, false
	}
	return c, true
}

// actingOperator resolves the corporation submitting a, which must be the
// round's current entity.
func actingOperator(b *game.BaseStep, a action.Action) (*entity.Corporation, error) {
	c, ok := operator(b, b.Game.Entity(a.EntityID()))
	if !ok {
		return nil, rules.Violation("it is not %s's turn", a.EntityID())
	}
	return c, nil
}

// Track lays and upgrades tiles.
type Track struct {
	game.BaseStep
	laid int
}

// NewTrack builds the track step.
func NewTrack(g *game.Game, r *game.Round) *Track {
	s := &Track{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindLayTile, s.layTile)
	game.On(&s.BaseStep, action.KindPass, s.pass)
	return s
}

func (s *Track) Name() string { return "Lay Track" }

func (s *Track) Setup() { s.laid = 0 }

func (s *Track) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok || c.Receivership() {
		return nil
	}
	if s.laid >= s.Game.Policies().Map.TileLays(s.Game, c) {
		return nil
	}
	return []action.Kind{action.KindLayTile, action.KindPass}
}

func (s *Track) layTile(a *action.LayTile) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	lays := s.Game.Policies().Map.TileLays(s.Game, c)
	if s.laid >= lays {
		return rules.Violation("%s has no tile lays left", c.Name())
	}
	if err := s.Game.LayTile(c, a.Hex, a.Color); err != nil {
		return err
	}
	s.laid++
	if s.laid >= lays {
		s.Pass()
	}
	return nil
}

func (s *Track) pass(a *action.Pass) error {
	if _, err := actingOperator(&s.BaseStep, a); err != nil {
		return err
	}
	s.Pass()
	return nil
}
