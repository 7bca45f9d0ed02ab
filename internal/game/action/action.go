// Package action defines the closed set of commands a game accepts and their
// JSON encoding. Actions are the unit of input and of the replay log.
package action

import (
	"encoding/json"
	"strings"

	"github.com/railyard/rails-server-go/internal/game/rules"
)

// Kind tags an action variant.
type Kind string

const (
	KindPass             Kind = "pass"
	KindMessage          Kind = "message"
	KindBid              Kind = "bid"
	KindPar              Kind = "par"
	KindBuyShares        Kind = "buy_shares"
	KindSellShares       Kind = "sell_shares"
	KindBuyCompany       Kind = "buy_company"
	KindSellCompany      Kind = "sell_company"
	KindPayoffPlayerDebt Kind = "payoff_player_debt"
	KindLayTile          Kind = "lay_tile"
	KindPlaceToken       Kind = "place_token"
	KindRunRoutes        Kind = "run_routes"
	KindDividend         Kind = "dividend"
	KindBuyTrain         Kind = "buy_train"
	KindDiscardTrain     Kind = "discard_train"
	KindTakeLoan         Kind = "take_loan"
	KindPayoffLoan       Kind = "payoff_loan"
	KindConvert          Kind = "convert"
	KindBankrupt         Kind = "bankrupt"
)

// Action is an immutable command issued by an entity.
type Action interface {
	Kind() Kind
	EntityID() string
	// Validate checks that required fields are present. It does not consult
	// game state.
	Validate() error
}

// Base carries the fields shared by every action.
type Base struct {
	Type   Kind   `json:"kind"`
	Entity string `json:"entity_id"`
}

func (b Base) Kind() Kind       { return b.Type }
func (b Base) EntityID() string { return b.Entity }

func (b Base) validate() error {
	if strings.TrimSpace(b.Entity) == "" {
		return rules.Violation("%s: missing entity_id", b.Type)
	}
	return nil
}

func missing(kind Kind, field string) error {
	return rules.Violation("%s: missing %s", kind, field)
}

// Pass ends the entity's turn or declines the current step.
type Pass struct {
	Base
}

func (a *Pass) Validate() error { return a.validate() }

// Message is a chat line recorded in the log. It never changes game state.
type Message struct {
	Base
	Text string `json:"message"`
}

func (a *Message) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.Text) == "" {
		return missing(a.Type, "message")
	}
	return nil
}

// Bid offers a price for a private company in an auction.
type Bid struct {
	Base
	Company string `json:"company"`
	Price   int    `json:"price"`
}

func (a *Bid) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Company == "" {
		return missing(a.Type, "company")
	}
	if a.Price <= 0 {
		return missing(a.Type, "price")
	}
	return nil
}

// Par founds a corporation at a par price.
type Par struct {
	Base
	Corporation string `json:"corporation"`
	SharePrice  int    `json:"share_price"`
}

func (a *Par) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Corporation == "" {
		return missing(a.Type, "corporation")
	}
	if a.SharePrice <= 0 {
		return missing(a.Type, "share_price")
	}
	return nil
}

// Share sources for purchases.
const (
	SourceIPO    = "ipo"
	SourceMarket = "market"
)

// BuyShares buys a percentage of a corporation from the IPO or the market pool.
type BuyShares struct {
	Base
	Corporation string `json:"corporation"`
	Source      string `json:"source"`
	Percent     int    `json:"percent"`
	// President requests the president's certificate held by the pool.
	President bool `json:"president,omitempty"`
}

func (a *BuyShares) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Corporation == "" {
		return missing(a.Type, "corporation")
	}
	if a.Source != SourceIPO && a.Source != SourceMarket {
		return rules.Violation("%s: source must be %q or %q", a.Type, SourceIPO, SourceMarket)
	}
	if a.Percent <= 0 {
		return missing(a.Type, "percent")
	}
	return nil
}

// SellShares sells a percentage of a corporation to the market pool.
type SellShares struct {
	Base
	Corporation string `json:"corporation"`
	Percent     int    `json:"percent"`
}

func (a *SellShares) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Corporation == "" {
		return missing(a.Type, "corporation")
	}
	if a.Percent <= 0 {
		return missing(a.Type, "percent")
	}
	return nil
}

// BuyCompany buys a private company.
type BuyCompany struct {
	Base
	Company string `json:"company"`
	Price   int    `json:"price"`
}

func (a *BuyCompany) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Company == "" {
		return missing(a.Type, "company")
	}
	if a.Price <= 0 {
		return missing(a.Type, "price")
	}
	return nil
}

// SellCompany sells a private company to the bank.
type SellCompany struct {
	Base
	Company string `json:"company"`
}

func (a *SellCompany) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Company == "" {
		return missing(a.Type, "company")
	}
	return nil
}

// PayoffPlayerDebt repays as much outstanding player debt as cash allows.
type PayoffPlayerDebt struct {
	Base
}

func (a *PayoffPlayerDebt) Validate() error { return a.validate() }

// LayTile places or upgrades a tile.
type LayTile struct {
	Base
	Hex      string `json:"hex"`
	Tile     string `json:"tile"`
	Color    string `json:"color"`
	Rotation int    `json:"rotation"`
}

func (a *LayTile) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Hex == "" {
		return missing(a.Type, "hex")
	}
	if a.Tile == "" {
		return missing(a.Type, "tile")
	}
	if a.Color == "" {
		return missing(a.Type, "color")
	}
	if a.Rotation < 0 || a.Rotation > 5 {
		return rules.Violation("%s: rotation must be between 0 and 5", a.Type)
	}
	return nil
}

// PlaceToken places a station token on a hex.
type PlaceToken struct {
	Base
	Hex string `json:"hex"`
}

func (a *PlaceToken) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Hex == "" {
		return missing(a.Type, "hex")
	}
	return nil
}

// RunRoutes declares the revenue earned by the listed trains.
type RunRoutes struct {
	Base
	Revenue int      `json:"revenue"`
	Trains  []string `json:"trains"`
}

func (a *RunRoutes) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Revenue < 0 {
		return rules.Violation("%s: revenue cannot be negative", a.Type)
	}
	if len(a.Trains) == 0 {
		return missing(a.Type, "trains")
	}
	return nil
}

// Dividend kinds.
const (
	DividendPayout   = "payout"
	DividendWithhold = "withhold"
	DividendHalf     = "half"
)

// Dividend decides how the declared revenue is distributed.
type Dividend struct {
	Base
	Distribution string `json:"dividend"`
}

func (a *Dividend) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	switch a.Distribution {
	case DividendPayout, DividendWithhold, DividendHalf:
		return nil
	case "":
		return missing(a.Type, "dividend")
	default:
		return rules.Violation("%s: unknown dividend kind %q", a.Type, a.Distribution)
	}
}

// BuyTrain buys a train from the depot.
type BuyTrain struct {
	Base
	Train string `json:"train"`
	Price int    `json:"price"`
}

func (a *BuyTrain) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Train == "" {
		return missing(a.Type, "train")
	}
	if a.Price <= 0 {
		return missing(a.Type, "price")
	}
	return nil
}

// DiscardTrain returns a train to the depot.
type DiscardTrain struct {
	Base
	Train string `json:"train"`
}

func (a *DiscardTrain) Validate() error {
	if err := a.validate(); err != nil {
		return err
	}
	if a.Train == "" {
		return missing(a.Type, "train")
	}
	return nil
}

// TakeLoan borrows one loan from the bank.
type TakeLoan struct {
	Base
}

func (a *TakeLoan) Validate() error { return a.validate() }

// PayoffLoan repays one loan.
type PayoffLoan struct {
	Base
}

func (a *PayoffLoan) Validate() error { return a.validate() }

// Convert turns a five-share corporation into a ten-share corporation.
type Convert struct {
	Base
}

func (a *Convert) Validate() error { return a.validate() }

// Bankrupt declares the acting player bankrupt.
type Bankrupt struct {
	Base
}

func (a *Bankrupt) Validate() error { return a.validate() }

var registry = map[Kind]func() Action{
	KindPass:             func() Action { return &Pass{} },
	KindMessage:          func() Action { return &Message{} },
	KindBid:              func() Action { return &Bid{} },
	KindPar:              func() Action { return &Par{} },
	KindBuyShares:        func() Action { return &BuyShares{} },
	KindSellShares:       func() Action { return &SellShares{} },
	KindBuyCompany:       func() Action { return &BuyCompany{} },
	KindSellCompany:      func() Action { return &SellCompany{} },
	KindPayoffPlayerDebt: func() Action { return &PayoffPlayerDebt{} },
	KindLayTile:          func() Action { return &LayTile{} },
	KindPlaceToken:       func() Action { return &PlaceToken{} },
	KindRunRoutes:        func() Action { return &RunRoutes{} },
	KindDividend:         func() Action { return &Dividend{} },
	KindBuyTrain:         func() Action { return &BuyTrain{} },
	KindDiscardTrain:     func() Action { return &DiscardTrain{} },
	KindTakeLoan:         func() Action { return &TakeLoan{} },
	KindPayoffLoan:       func() Action { return &PayoffLoan{} },
	KindConvert:          func() Action { return &Convert{} },
	KindBankrupt:         func() Action { return &Bankrupt{} },
}

// Known reports whether kind is part of the action set.
func Known(kind Kind) bool {
	_, ok := registry[kind]
	return ok
}

// Decode parses and validates a JSON action record.
func Decode(data []byte) (Action, error) {
	var head Base
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, rules.Violation("malformed action: %v", err)
	}
	if head.Type == "" {
		return nil, rules.Violation("action is missing kind")
	}
	factory, ok := registry[head.Type]
	if !ok {
		return nil, rules.Violation("unknown action kind %q", head.Type)
	}
	a := factory()
	if err := json.Unmarshal(data, a); err != nil {
		return nil, rules.Violation("malformed %s action: %v", head.Type, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Encode serializes an action.
func Encode(a Action) ([]byte, error) {
	return json.Marshal(a)
}
