package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// BuyCompany lets a corporation buy a private company from its president for
// between half and twice its value.
type BuyCompany struct {
	game.BaseStep
	blocks bool
}

// NewBuyCompany builds the step as an optional action next to the others.
func NewBuyCompany(g *game.Game, r *game.Round) *BuyCompany {
	return newBuyCompany(g, r, false)
}

// NewBlockingBuyCompany builds the step as a turn of its own, with a pass.
func NewBlockingBuyCompany(g *game.Game, r *game.Round) *BuyCompany {
	return newBuyCompany(g, r, true)
}

func newBuyCompany(g *game.Game, r *game.Round, blocks bool) *BuyCompany {
	s := &BuyCompany{BaseStep: game.NewBaseStep(g, r), blocks: blocks}
	game.On(&s.BaseStep, action.KindBuyCompany, s.buyCompany)
	if blocks {
		game.On(&s.BaseStep, action.KindPass, s.pass)
	}
	return s
}

func (s *BuyCompany) Name() string { return "Buy Companies" }

func (s *BuyCompany) Blocks() bool { return s.blocks }

// MinPrice and MaxPrice bound what a corporation may pay for co.
func MinPrice(co *entity.Company) int { return (co.Value() + 1) / 2 }
func MaxPrice(co *entity.Company) int { return co.Value() * 2 }

// Purchasable lists the companies c may buy now.
func (s *BuyCompany) Purchasable(c *entity.Corporation) []*entity.Company {
	p := c.President()
	if p == nil || c.Receivership() {
		return nil
	}
	var out []*entity.Company
	for _, co := range p.Companies() {
		if !co.Closed() && c.Cash() >= MinPrice(co) {
			out = append(out, co)
		}
	}
	return out
}

func (s *BuyCompany) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok || len(s.Purchasable(c)) == 0 {
		return nil
	}
	if s.blocks {
		return []action.Kind{action.KindBuyCompany, action.KindPass}
	}
	return []action.Kind{action.KindBuyCompany}
}

func (s *BuyCompany) buyCompany(a *action.BuyCompany) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	co := s.Game.Company(a.Company)
	if co == nil || co.Closed() {
		return rules.Violation("unknown company %s", a.Company)
	}
	p := c.President()
	if p == nil || co.Owner() != entity.Entity(p) {
		return rules.Violation("%s can only buy companies from its president", c.Name())
	}
	if a.Price < MinPrice(co) || a.Price > MaxPrice(co) {
		return rules.Violation("%s must cost between %d and %d", co.Name(), MinPrice(co), MaxPrice(co))
	}
	if c.Cash() < a.Price {
		return rules.Violation("%s cannot afford %d", c.Name(), a.Price)
	}
	return s.Game.BuyCompany(c, co, a.Price)
}

func (s *BuyCompany) pass(a *action.Pass) error {
	if _, err := actingOperator(&s.BaseStep, a); err != nil {
		return err
	}
	s.Pass()
	return nil
}
