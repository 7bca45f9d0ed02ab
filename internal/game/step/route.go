package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// Route records the revenue the corporation's trains earned. Route finding
// happens outside the engine; the revenue is taken as given.
type Route struct {
	game.BaseStep
}

// NewRoute builds the route step.
func NewRoute(g *game.Game, r *game.Round) *Route {
	s := &Route{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindRunRoutes, s.runRoutes)
	return s
}

func (s *Route) Name() string { return "Run Routes" }

func (s *Route) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok || len(runnable(c)) == 0 {
		return nil
	}
	if _, ran := s.Round.Revenue(c); ran {
		return nil
	}
	return []action.Kind{action.KindRunRoutes}
}

func runnable(c *entity.Corporation) []*entity.Train {
	var out []*entity.Train
	for _, t := range c.Trains() {
		if !t.Operated() && !t.Rusted() {
			out = append(out, t)
		}
	}
	return out
}

func (s *Route) runRoutes(a *action.RunRoutes) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	owned := make(map[string]*entity.Train)
	for _, t := range runnable(c) {
		owned[t.ID()] = t
	}
	used := make(map[string]bool)
	for _, id := range a.Trains {
		if owned[id] == nil {
			return rules.Violation("%s cannot run train %s", c.Name(), id)
		}
		if used[id] {
			return rules.Violation("train %s runs twice", id)
		}
		used[id] = true
	}
	for id := range used {
		owned[id].SetOperated(true)
	}
	s.Round.SetRevenue(c, a.Revenue)
	s.Game.Logf("%s runs for %d", c.Name(), a.Revenue)
	s.Game.Publish(rules.NewEventWithAmount(rules.EventRoutesRun, c.ID(), "", a.Revenue))
	s.Pass()
	return nil
}
