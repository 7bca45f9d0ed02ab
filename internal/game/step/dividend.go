package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// Dividend distributes or withholds the revenue declared by Route. A
// corporation that ran nothing withholds nothing when the step is skipped.
type Dividend struct {
	game.BaseStep
}

// NewDividend builds the dividend step.
func NewDividend(g *game.Game, r *game.Round) *Dividend {
	s := &Dividend{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindDividend, s.dividend)
	return s
}

func (s *Dividend) Name() string { return "Pay or Withhold Dividends" }

func (s *Dividend) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok {
		return nil
	}
	if _, ran := s.Round.Revenue(c); !ran {
		return nil
	}
	return []action.Kind{action.KindDividend}
}

// Skip withholds zero for a corporation that did not run.
func (s *Dividend) Skip() {
	s.BaseStep.Skip()
	c, ok := operator(&s.BaseStep, s.CurrentEntity())
	if !ok || !c.Floated() {
		return
	}
	if _, ran := s.Round.Revenue(c); ran {
		return
	}
	s.Round.SetRevenue(c, 0)
	_ = s.apply(c, action.DividendWithhold, 0)
}

// PerShare is what one ordinary share earns from a payout of amount.
func PerShare(c *entity.Corporation, amount int) int {
	return amount * c.SharePercent() / 100
}

// HalfPayout is the part of revenue paid out under a half dividend: half,
// rounded down to a multiple of the number of share units.
func HalfPayout(c *entity.Corporation, revenue int) int {
	units := c.TotalPercent() / c.SharePercent()
	return revenue / 2 / units * units
}

func (s *Dividend) dividend(a *action.Dividend) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	revenue, ran := s.Round.Revenue(c)
	if !ran {
		return rules.Violation("%s has not run", c.Name())
	}
	if a.Distribution == action.DividendHalf && !s.Game.Config().AllowHalfDividend {
		return rules.Violation("half dividends are not allowed")
	}
	if err := s.apply(c, a.Distribution, revenue); err != nil {
		return err
	}
	s.Pass()
	return nil
}

func (s *Dividend) apply(c *entity.Corporation, kind string, revenue int) error {
	var paid int
	switch kind {
	case action.DividendPayout:
		paid = revenue
		if err := s.Game.Distribute(c, revenue); err != nil {
			return err
		}
	case action.DividendHalf:
		paid = HalfPayout(c, revenue)
		if err := s.Game.Distribute(c, paid); err != nil {
			return err
		}
		if err := s.Game.Withhold(c, revenue-paid); err != nil {
			return err
		}
	case action.DividendWithhold:
		if err := s.Game.Withhold(c, revenue); err != nil {
			return err
		}
	}
	c.SetOperated()
	dirs := s.Game.Policies().Scenario.DividendMovement(s.Game, c, kind, PerShare(c, paid))
	s.Game.MoveSharePrice(c, dirs...)
	return nil
}
