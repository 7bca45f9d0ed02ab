package entity

import (
	"fmt"

	"github.com/railyard/rails-server-go/internal/game/market"
)

// Capitalization decides who receives the money for IPO shares.
type Capitalization string

const (
	// CapitalizationFull pays the whole float capital to the treasury on float
	// and IPO purchases pay the bank.
	CapitalizationFull Capitalization = "full"
	// CapitalizationIncremental pays every IPO purchase to the treasury.
	CapitalizationIncremental Capitalization = "incremental"
)

// Lifecycle is the derived state of a corporation.
type Lifecycle string

const (
	LifecycleUnparred     Lifecycle = "unparred"
	LifecycleParred       Lifecycle = "parred"
	LifecycleFloated      Lifecycle = "floated"
	LifecycleOperating    Lifecycle = "operating"
	LifecycleReceivership Lifecycle = "receivership"
	LifecycleInsolvent    Lifecycle = "insolvent"
	LifecycleClosed       Lifecycle = "closed"
)

// CorporationSpec is the static definition of a corporation.
type CorporationSpec struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Kind  string `yaml:"kind" json:"kind"`
	Minor bool   `yaml:"minor" json:"minor,omitempty"`

	// Shares lists certificate percentages; the first is the president's.
	Shares         []int          `yaml:"shares" json:"shares"`
	FloatPercent   int            `yaml:"float_percent" json:"float_percent"`
	MaxOwnership   int            `yaml:"max_ownership_percent" json:"max_ownership_percent"`
	Capitalization Capitalization `yaml:"capitalization" json:"capitalization"`
	Tokens         []int          `yaml:"tokens" json:"tokens"`
	HomeHexes      []string       `yaml:"home_hexes" json:"home_hexes"`
}

// Token is a station marker.
type Token struct {
	Price int
	Hex   string
}

// Used reports whether the token is on the map.
func (t *Token) Used() bool { return t.Hex != "" }

// Corporation is a share-issuing company that operates trains.
type Corporation struct {
	Wallet
	spec         CorporationSpec
	shares       []*Share
	floatPercent int
	sharePrice   *market.SharePrice
	parPrice     *market.SharePrice
	parRound     int
	floated      bool
	operated     bool
	receivership bool
	insolvent    bool
	closed       bool
	trains       []*Train
	tokens       []*Token
	companies    []*Company
	loans        int
}

// NewCorporation builds a corporation with every share in its IPO.
func NewCorporation(spec CorporationSpec) (*Corporation, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("corporation without id")
	}
	if len(spec.Shares) == 0 {
		return nil, fmt.Errorf("corporation %s has no shares", spec.ID)
	}
	if spec.FloatPercent <= 0 {
		return nil, fmt.Errorf("corporation %s has no float percent", spec.ID)
	}
	if spec.MaxOwnership == 0 {
		spec.MaxOwnership = 60
	}
	if spec.Capitalization == "" {
		spec.Capitalization = CapitalizationFull
	}
	if spec.Name == "" {
		spec.Name = spec.ID
	}
	c := &Corporation{spec: spec, floatPercent: spec.FloatPercent}
	for i, percent := range spec.Shares {
		if percent <= 0 {
			return nil, fmt.Errorf("corporation %s share %d has no percent", spec.ID, i)
		}
		c.shares = append(c.shares, &Share{corporation: c, index: i, percent: percent, president: i == 0, owner: c})
	}
	for _, price := range spec.Tokens {
		c.tokens = append(c.tokens, &Token{Price: price})
	}
	return c, nil
}

func (c *Corporation) ID() string   { return c.spec.ID }
func (c *Corporation) Name() string { return c.spec.Name }
func (c *Corporation) Closed() bool { return c.closed }

func (c *Corporation) Type() Type {
	if c.spec.Minor {
		return TypeMinor
	}
	return TypeCorporation
}

// Kind is the share structure class, e.g. "major", "5-share", "10-share".
func (c *Corporation) Kind() string { return c.spec.Kind }

// Spec returns the static definition.
func (c *Corporation) Spec() CorporationSpec { return c.spec }

// Player returns the president, or nil when no player holds the presidency.
func (c *Corporation) Player() *Player {
	return c.President()
}

// President returns the player holding the president's certificate.
func (c *Corporation) President() *Player {
	if p, ok := c.PresidentShare().owner.(*Player); ok {
		return p
	}
	return nil
}

// Shares returns every certificate in index order.
func (c *Corporation) Shares() []*Share {
	return append([]*Share(nil), c.shares...)
}

// PresidentShare returns the president's certificate.
func (c *Corporation) PresidentShare() *Share {
	for _, s := range c.shares {
		if s.president {
			return s
		}
	}
	return nil
}

// PresidentPercent is the size of the president's certificate.
func (c *Corporation) PresidentPercent() int {
	return c.PresidentShare().percent
}

// SharePercent is the size of an ordinary certificate.
func (c *Corporation) SharePercent() int {
	for _, s := range c.shares {
		if !s.president {
			return s.percent
		}
	}
	return c.PresidentPercent()
}

// TotalPercent is the sum of all certificates.
func (c *Corporation) TotalPercent() int {
	total := 0
	for _, s := range c.shares {
		total += s.percent
	}
	return total
}

// SharesOf returns the certificates held by h, ordinary shares first.
func (c *Corporation) SharesOf(h ShareHolder) []*Share {
	var ordinary, pres []*Share
	for _, s := range c.shares {
		if s.owner != h {
			continue
		}
		if s.president {
			pres = append(pres, s)
		} else {
			ordinary = append(ordinary, s)
		}
	}
	return append(ordinary, pres...)
}

// PercentOf returns the percent held by h.
func (c *Corporation) PercentOf(h ShareHolder) int {
	total := 0
	for _, s := range c.shares {
		if s.owner == h {
			total += s.percent
		}
	}
	return total
}

// IPOPercent is the percent still held by the corporation itself.
func (c *Corporation) IPOPercent() int {
	return c.PercentOf(c)
}

// Holders returns each distinct share holder in first-certificate order.
func (c *Corporation) Holders() []ShareHolder {
	seen := make(map[ShareHolder]bool)
	var out []ShareHolder
	for _, s := range c.shares {
		if !seen[s.owner] {
			seen[s.owner] = true
			out = append(out, s.owner)
		}
	}
	return out
}

// SharePrice implements market.Holder.
func (c *Corporation) SharePrice() *market.SharePrice { return c.sharePrice }

// SetSharePrice implements market.Holder.
func (c *Corporation) SetSharePrice(p *market.SharePrice) { c.sharePrice = p }

// ParPrice is the founding price, nil before par.
func (c *Corporation) ParPrice() *market.SharePrice { return c.parPrice }

// IPOed reports whether the corporation has been parred.
func (c *Corporation) IPOed() bool { return c.parPrice != nil }

// ParRound is the game round counter at which the corporation was parred.
func (c *Corporation) ParRound() int { return c.parRound }

// SetPar records the founding price.
func (c *Corporation) SetPar(p *market.SharePrice, round int) {
	c.parPrice = p
	c.parRound = round
}

func (c *Corporation) FloatPercent() int     { return c.floatPercent }
func (c *Corporation) SetFloatPercent(p int) { c.floatPercent = p }

// Capitalization decides where IPO money goes.
func (c *Corporation) Capitalization() Capitalization { return c.spec.Capitalization }

// MaxOwnership is the most a single player may hold, in percent.
func (c *Corporation) MaxOwnership() int { return c.spec.MaxOwnership }

// PercentToFloat is how much more must leave the IPO before the corporation floats.
func (c *Corporation) PercentToFloat() int {
	sold := c.TotalPercent() - c.IPOPercent()
	if remaining := c.floatPercent - sold; remaining > 0 {
		return remaining
	}
	return 0
}

func (c *Corporation) Floated() bool { return c.floated }
func (c *Corporation) Float()        { c.floated = true }

func (c *Corporation) Operated() bool { return c.operated }
func (c *Corporation) SetOperated()   { c.operated = true }

func (c *Corporation) Receivership() bool      { return c.receivership }
func (c *Corporation) SetReceivership(on bool) { c.receivership = on }
func (c *Corporation) Insolvent() bool         { return c.insolvent }
func (c *Corporation) SetInsolvent(on bool)    { c.insolvent = on }

// Close removes the corporation from play. Shares return to the IPO.
func (c *Corporation) Close() {
	c.closed = true
	for _, s := range c.shares {
		s.owner = c
	}
	c.trains = nil
}

// Lifecycle derives the corporation's state.
func (c *Corporation) Lifecycle() Lifecycle {
	switch {
	case c.closed:
		return LifecycleClosed
	case c.insolvent:
		return LifecycleInsolvent
	case c.receivership:
		return LifecycleReceivership
	case c.operated:
		return LifecycleOperating
	case c.floated:
		return LifecycleFloated
	case c.IPOed():
		return LifecycleParred
	default:
		return LifecycleUnparred
	}
}

// Trains returns the trains owned, in purchase order.
func (c *Corporation) Trains() []*Train {
	return append([]*Train(nil), c.trains...)
}

// Tokens returns the station tokens.
func (c *Corporation) Tokens() []*Token {
	return c.tokens
}

// NextToken returns the first unused token, or nil.
func (c *Corporation) NextToken() *Token {
	for _, t := range c.tokens {
		if !t.Used() {
			return t
		}
	}
	return nil
}

// HasTokenOn reports whether a token of the corporation is on the hex.
func (c *Corporation) HasTokenOn(hex string) bool {
	for _, t := range c.tokens {
		if t.Hex == hex {
			return true
		}
	}
	return false
}

// AddTokens gives the corporation more tokens.
func (c *Corporation) AddTokens(count, price int) {
	for i := 0; i < count; i++ {
		c.tokens = append(c.tokens, &Token{Price: price})
	}
}

// HomeHexes lists the possible home locations.
func (c *Corporation) HomeHexes() []string {
	return append([]string(nil), c.spec.HomeHexes...)
}

// Companies returns the private companies the corporation owns.
func (c *Corporation) Companies() []*Company {
	return append([]*Company(nil), c.companies...)
}

func (c *Corporation) Loans() int  { return c.loans }
func (c *Corporation) AddLoan()    { c.loans++ }
func (c *Corporation) RemoveLoan() { c.loans-- }

// Restructure rewrites the certificate set: the president's certificate
// becomes presidentPercent, every other certificate sharePercent, and extra
// new certificates of sharePercent are issued to newOwner.
func (c *Corporation) Restructure(kind string, presidentPercent, sharePercent, extra int, newOwner ShareHolder) {
	for _, s := range c.shares {
		if s.president {
			s.percent = presidentPercent
		} else {
			s.percent = sharePercent
		}
	}
	next := len(c.shares)
	for i := 0; i < extra; i++ {
		c.shares = append(c.shares, &Share{corporation: c, index: next + i, percent: sharePercent, owner: newOwner})
	}
	c.spec.Kind = kind
}
