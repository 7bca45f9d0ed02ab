package entity

// Bank holds the game's money supply.
type Bank struct {
	Wallet
}

// NewBank creates a bank with its starting cash.
func NewBank(cash int) *Bank {
	return &Bank{Wallet: Wallet{cash: cash}}
}

func (b *Bank) ID() string      { return "bank" }
func (b *Bank) Name() string    { return "The Bank" }
func (b *Bank) Type() Type      { return TypeBank }
func (b *Bank) Closed() bool    { return false }
func (b *Bank) Player() *Player { return nil }

// Broken reports whether the bank has run out of money.
func (b *Bank) Broken() bool {
	return b.Cash() <= 0
}

// SharePool is the open market where sold shares wait for buyers.
type SharePool struct{}

// NewSharePool creates the market pool.
func NewSharePool() *SharePool {
	return &SharePool{}
}

func (p *SharePool) ID() string   { return "market" }
func (p *SharePool) Name() string { return "Market" }
func (p *SharePool) Type() Type   { return TypePool }
