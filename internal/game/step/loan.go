package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// Loan takes and repays corporation loans. A corporation that repaid a loan
// this turn cannot borrow again in the same turn.
type Loan struct {
	game.BaseStep
	afterPayoff bool
}

// NewLoan builds the loan step.
func NewLoan(g *game.Game, r *game.Round) *Loan {
	s := &Loan{BaseStep: game.NewBaseStep(g, r)}
	game.On(&s.BaseStep, action.KindTakeLoan, s.takeLoan)
	game.On(&s.BaseStep, action.KindPayoffLoan, s.payoffLoan)
	game.On(&s.BaseStep, action.KindPass, s.pass)
	return s
}

func (s *Loan) Name() string { return "Loans" }

func (s *Loan) Setup() { s.afterPayoff = false }

func (s *Loan) canPayoff(c *entity.Corporation) bool {
	return c.Loans() > 0 && c.Cash() >= s.Game.Config().LoanAmount
}

func (s *Loan) canTake(c *entity.Corporation) bool {
	return !s.afterPayoff && c.Floated() && s.Game.CanTakeLoan(c)
}

func (s *Loan) Actions(e entity.Entity) []action.Kind {
	c, ok := operator(&s.BaseStep, e)
	if !ok || c.Receivership() {
		return nil
	}
	var kinds []action.Kind
	if s.canPayoff(c) {
		kinds = append(kinds, action.KindPayoffLoan)
	}
	if s.canTake(c) {
		kinds = append(kinds, action.KindTakeLoan)
	}
	if len(kinds) > 0 {
		kinds = append(kinds, action.KindPass)
	}
	return kinds
}

func (s *Loan) takeLoan(a *action.TakeLoan) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	if s.afterPayoff {
		return rules.Violation("%s cannot borrow after repaying this turn", c.Name())
	}
	if !c.Floated() {
		return rules.Violation("%s has not floated", c.Name())
	}
	return s.Game.TakeLoan(c)
}

func (s *Loan) payoffLoan(a *action.PayoffLoan) error {
	c, err := actingOperator(&s.BaseStep, a)
	if err != nil {
		return err
	}
	if err := s.Game.PayoffLoan(c); err != nil {
		return err
	}
	s.afterPayoff = true
	s.Round.SetPaidLoans(c)
	return nil
}

func (s *Loan) pass(a *action.Pass) error {
	if _, err := actingOperator(&s.BaseStep, a); err != nil {
		return err
	}
	s.Pass()
	return nil
}
