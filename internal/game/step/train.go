package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// BuyTrain buys trains from the depot. A corporation without trains must buy
// one when the depot has any; its president covers a shortfall.
type BuyTrain struct {
	game.BaseStep
}

// NewBuyTrain builds the train buying step.
func NewBuyTrain(g *game.Game, r *game.Round) *BuyTrain {
	s := &BuyTrain{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindBuyTrain, s.buyTrain)
	game.On(&s.BaseStep, action.KindPass, s.pass)
	return s
}

func (s *BuyTrain) Name() string { return "Buy Trains" }

func (s *BuyTrain) roomFor(c *entity.Corporation) bool {
	return len(c.Trains()) < s.Game.Phase().TrainLimit()
}

// MustBuy reports whether c is forced to buy a train. A corporation without a
// president is only forced when its treasury covers the train.
func (s *BuyTrain) MustBuy(c *entity.Corporation) bool {
	if len(c.Trains()) > 0 || c.Insolvent() || len(s.Game.Depot().Available()) == 0 {
		return false
	}
	return c.President() != nil || c.Cash() >= s.Game.Depot().MinPrice()
}

// Shortfall is how much more than its treasury c needs for the cheapest train.
func (s *BuyTrain) Shortfall(c *entity.Corporation) int {
	short := s.Game.Depot().MinPrice() - c.Cash()
	if short < 0 {
		return 0
	}
	return short
}

// CanCover reports whether c's president can fund a forced purchase.
func (s *BuyTrain) CanCover(c *entity.Corporation) bool {
	short := s.Shortfall(c)
	if short == 0 || s.Game.Config().PlayerDebt {
		return true
	}
	p := c.President()
	return p != nil && p.Cash() >= short
}

func (s *BuyTrain) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok {
		return nil
	}
	if s.MustBuy(c) {
		return []action.Kind{action.KindBuyTrain}
	}
	if s.roomFor(c) && len(s.Game.Depot().Available()) > 0 && c.Cash() >= s.Game.Depot().MinPrice() {
		return []action.Kind{action.KindBuyTrain, action.KindPass}
	}
	return nil
}

func (s *BuyTrain) buyTrain(a *action.BuyTrain) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	t := s.Game.Depot().Find(a.Train)
	if t == nil || !s.Game.TrainAvailable(t) {
		return rules.Violation("train %s is not available", a.Train)
	}
	if a.Price != t.Price() {
		return rules.Violation("%s costs %d", t.Name(), t.Price())
	}
	if !s.roomFor(c) {
		return rules.Violation("%s is at its train limit", c.Name())
	}
	if c.Cash() < t.Price() {
		if err := s.emergencyFunds(c, t); err != nil {
			return err
		}
	}
	return s.Game.BuyTrain(c, t, t.Price())
}

// emergencyFunds has the president pay what c lacks for a forced purchase of
// the cheapest train.
func (s *BuyTrain) emergencyFunds(c *entity.Corporation, t *entity.Train) error {
	if !s.MustBuy(c) {
		return rules.Violation("%s cannot afford %s", c.Name(), t.Name())
	}
	if t.Price() > s.Game.Depot().MinPrice() {
		return rules.Violation("%s must buy the cheapest train", c.Name())
	}
	p := c.President()
	if p == nil {
		return rules.Violation("%s has no president to fund a train", c.Name())
	}
	short := t.Price() - c.Cash()
	if p.Cash() >= short {
		if err := s.Game.Transfer(p, c, short); err != nil {
			return err
		}
		s.Game.Logf("%s contributes %d for a train", p.Name(), short)
		return nil
	}
	if !s.Game.Config().PlayerDebt {
		return rules.Violation("%s cannot fund a train and must go bankrupt", p.Name())
	}
	paid := p.Cash()
	if err := s.Game.Transfer(p, c, paid); err != nil {
		return err
	}
	debt := short - paid
	if err := s.Game.Transfer(s.Game.Bank(), c, debt); err != nil {
		return err
	}
	p.AddDebt(debt)
	s.Game.Logf("%s contributes %d and borrows %d for a train", p.Name(), paid, debt)
	return nil
}

func (s *BuyTrain) pass(a *action.Pass) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	if s.MustBuy(c) {
		return rules.Violation("%s must buy a train", c.Name())
	}
	s.Pass()
	return nil
}

// DiscardTrain makes corporations over the train limit give trains back,
// in operating order. It is never passed.
type DiscardTrain struct {
	game.BaseStep
}

// NewDiscardTrain builds the discard step.
func NewDiscardTrain(g *game.Game, r *game.Round) *DiscardTrain {
	s := &DiscardTrain{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindDiscardTrain, s.discardTrain)
	return s
}

func (s *DiscardTrain) Name() string { return "Discard Train" }

func (s *DiscardTrain) Pass() {}
func (s *DiscardTrain) Skip() {}

func (s *DiscardTrain) ActiveEntities() []entity.Entity {
	if crowded := s.Game.CrowdedCorporations(); len(crowded) > 0 {
		return []entity.Entity{crowded[0]}
	}
	return s.BaseStep.ActiveEntities()
}

func (s *DiscardTrain) Actions(e entity.Entity) []action.Kind {
	crowded := s.Game.CrowdedCorporations()
	if len(crowded) == 0 || !game.SameEntity(e, crowded[0]) {
		return nil
	}
	return []action.Kind{action.KindDiscardTrain}
}

func (s *DiscardTrain) discardTrain(a *action.DiscardTrain) error {
	crowded := s.Game.CrowdedCorporations()
	if len(crowded) == 0 || crowded[0].ID() != a.EntityID() {
		return rules.Violation("%s has no train to discard", a.EntityID())
	}
	c := crowded[0]
	var t *entity.Train
	for _, owned := range c.Trains() {
		if owned.ID() == a.Train {
			t = owned
			break
		}
	}
	if t == nil {
		return rules.Violation("%s does not own %s", c.Name(), a.Train)
	}
	return s.Game.DiscardTrain(c, t)
}

// Bankrupt lets a president who cannot fund a forced train purchase go
// bankrupt. It never blocks.
type Bankrupt struct {
	game.BaseStep
}

// NewBankrupt builds the bankruptcy step.
func NewBankrupt(g *game.Game, r *game.Round) *Bankrupt {
	s := &Bankrupt{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindBankrupt, s.bankrupt)
	return s
}

func (s *Bankrupt) Name() string { return "Bankrupt" }

func (s *Bankrupt) Blocks() bool { return false }

func (s *Bankrupt) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok || !s.mustGoBankrupt(c) {
		return nil
	}
	return []action.Kind{action.KindBankrupt}
}

func (s *Bankrupt) mustGoBankrupt(c *entity.Corporation) bool {
	buy, ok := s.Round.ActiveStep().(*BuyTrain)
	if !ok || !buy.MustBuy(c) || c.President() == nil {
		return false
	}
	return !buy.CanCover(c)
}

func (s *Bankrupt) bankrupt(a *action.Bankrupt) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	if !s.mustGoBankrupt(c) {
		return rules.Violation("%s can still fund a train", c.Name())
	}
	p := c.President()
	if err := s.Game.DeclareBankrupt(p); err != nil {
		return err
	}
	if !s.Game.Config().BankruptcyEndsGame {
		c.SetInsolvent(true)
		s.Game.Logf("%s is insolvent", c.Name())
	}
	return nil
}
