package entity

// Player is a participant.
type Player struct {
	Wallet
	id        string
	name      string
	companies []*Company
	passed    bool
	bankrupt  bool
	debt      int
}

// NewPlayer creates a player with starting cash.
func NewPlayer(id, name string, cash int) *Player {
	return &Player{Wallet: Wallet{cash: cash}, id: id, name: name}
}

func (p *Player) ID() string      { return p.id }
func (p *Player) Name() string    { return p.name }
func (p *Player) Type() Type      { return TypePlayer }
func (p *Player) Closed() bool    { return p.bankrupt }
func (p *Player) Player() *Player { return p }

// Companies returns the private companies the player owns.
func (p *Player) Companies() []*Company {
	return append([]*Company(nil), p.companies...)
}

// Passed reports whether the player passed in the current stock round.
func (p *Player) Passed() bool { return p.passed }

func (p *Player) Pass()   { p.passed = true }
func (p *Player) Unpass() { p.passed = false }

// Bankrupt reports whether the player has gone bankrupt.
func (p *Player) Bankrupt() bool { return p.bankrupt }

// DeclareBankrupt removes the player from play.
func (p *Player) DeclareBankrupt() { p.bankrupt = true }

// Debt returns outstanding player debt.
func (p *Player) Debt() int { return p.debt }

// AddDebt records debt the player could not pay in cash.
func (p *Player) AddDebt(amount int) { p.debt += amount }

// PayDebt repays up to the full debt from cash into the bank and returns the
// amount paid.
func (p *Player) PayDebt(bank *Bank) int {
	amount := p.debt
	if p.Cash() < amount {
		amount = p.Cash()
	}
	if amount <= 0 {
		return 0
	}
	p.adjustCash(-amount)
	bank.adjustCash(amount)
	p.debt -= amount
	return amount
}
