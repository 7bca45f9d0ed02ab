package game

import (
	"sort"

	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/market"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// SellAfter restricts when a corporation's shares may be sold.
type SellAfter string

const (
	SellAfterAnyTime SellAfter = "any_time"
	// SellAfterFirst forbids selling during the first stock round.
	SellAfterFirst SellAfter = "first"
	// SellAfterIPO forbids selling in the round the corporation was parred.
	SellAfterIPO SellAfter = "after_ipo"
	// SellAfterOperate forbids selling until the corporation has operated.
	SellAfterOperate SellAfter = "operate"
)

// SellBuyOrder restricts how sales and purchases interleave within a turn.
type SellBuyOrder string

const (
	SellBuySell SellBuyOrder = "sell_buy_sell"
	SellBuy     SellBuyOrder = "sell_buy"
)

// SellMovement is how a sale moves the share price.
type SellMovement string

const (
	SellMovementDownShare SellMovement = "down_share"
	SellMovementDownBlock SellMovement = "down_block"
	SellMovementLeftBlock SellMovement = "left_block"
	SellMovementNone      SellMovement = "none"
)

// HomeTokenTiming is when a corporation's home station is placed.
type HomeTokenTiming string

const (
	HomeTokenFloat          HomeTokenTiming = "float"
	HomeTokenOperate        HomeTokenTiming = "operate"
	HomeTokenOperatingRound HomeTokenTiming = "operating_round"
)

// CompanySpec is the static definition of a private company.
type CompanySpec struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	Value          int    `yaml:"value" json:"value"`
	Revenue        int    `yaml:"revenue" json:"revenue"`
	CountsForLimit bool   `yaml:"counts_for_limit" json:"counts_for_limit"`
}

// Config is the immutable definition of a game variant. It is passed by value
// and never modified after construction.
type Config struct {
	Name       string `yaml:"name" json:"name"`
	MinPlayers int    `yaml:"min_players" json:"min_players"`
	MaxPlayers int    `yaml:"max_players" json:"max_players"`
	BankCash   int    `yaml:"bank_cash" json:"bank_cash"`

	// CertLimit and StartingCash are keyed by player count.
	CertLimit    map[int]int `yaml:"cert_limit" json:"cert_limit"`
	StartingCash map[int]int `yaml:"starting_cash" json:"starting_cash"`

	Market       [][]string               `yaml:"market" json:"market"`
	Corporations []entity.CorporationSpec `yaml:"corporations" json:"corporations"`
	Companies    []CompanySpec            `yaml:"companies" json:"companies"`
	Trains       []entity.TrainSpec       `yaml:"trains" json:"trains"`
	Phases       []rules.Phase            `yaml:"phases" json:"phases"`

	SellAfter              SellAfter       `yaml:"sell_after" json:"sell_after"`
	SellBuyOrder           SellBuyOrder    `yaml:"sell_buy_order" json:"sell_buy_order"`
	SellMovement           SellMovement    `yaml:"sell_movement" json:"sell_movement"`
	MustSellInBlocks       bool            `yaml:"must_sell_in_blocks" json:"must_sell_in_blocks"`
	PresidentSalesToMarket bool            `yaml:"president_sales_to_market" json:"president_sales_to_market"`
	MarketShareLimit       int             `yaml:"market_share_limit" json:"market_share_limit"`
	ParShares              int             `yaml:"par_shares" json:"par_shares"`
	HomeTokenTiming        HomeTokenTiming `yaml:"home_token_timing" json:"home_token_timing"`
	TileLays               int             `yaml:"tile_lays" json:"tile_lays"`
	CompanySaleFee         int             `yaml:"company_sale_fee" json:"company_sale_fee"`

	LoanAmount int `yaml:"loan_amount" json:"loan_amount"`
	TotalLoans int `yaml:"total_loans" json:"total_loans"`

	ExportTrain        bool `yaml:"export_train" json:"export_train"`
	BankruptcyEndsGame bool `yaml:"bankruptcy_ends_game" json:"bankruptcy_ends_game"`
	PlayerDebt         bool `yaml:"player_debt" json:"player_debt"`
	RandomizePlayers   bool `yaml:"randomize_players" json:"randomize_players"`
	AllowHalfDividend  bool `yaml:"allow_half_dividend" json:"allow_half_dividend"`
	DoubleJumpPayout   bool `yaml:"double_jump_payout" json:"double_jump_payout"`
}

// WithDefaults returns a copy of the config with unset constants filled in.
func (c Config) WithDefaults() Config {
	if c.SellAfter == "" {
		c.SellAfter = SellAfterFirst
	}
	if c.SellBuyOrder == "" {
		c.SellBuyOrder = SellBuySell
	}
	if c.SellMovement == "" {
		c.SellMovement = SellMovementDownShare
	}
	if c.MarketShareLimit == 0 {
		c.MarketShareLimit = 50
	}
	if c.ParShares == 0 {
		c.ParShares = 1
	}
	if c.HomeTokenTiming == "" {
		c.HomeTokenTiming = HomeTokenOperate
	}
	if c.TileLays == 0 {
		c.TileLays = 1
	}
	return c
}

// Validate checks the config for structural errors.
func (c Config) Validate() error {
	if c.Name == "" {
		return rules.Misconfigured("variant has no name")
	}
	if c.MinPlayers < 1 || c.MaxPlayers < c.MinPlayers {
		return rules.Misconfigured("%s: invalid player range %d-%d", c.Name, c.MinPlayers, c.MaxPlayers)
	}
	for n := c.MinPlayers; n <= c.MaxPlayers; n++ {
		if c.CertLimit[n] <= 0 {
			return rules.Misconfigured("%s: no certificate limit for %d players", c.Name, n)
		}
		if c.StartingCash[n] <= 0 {
			return rules.Misconfigured("%s: no starting cash for %d players", c.Name, n)
		}
	}
	if c.BankCash <= 0 {
		return rules.Misconfigured("%s: bank has no cash", c.Name)
	}
	if _, err := market.Parse(c.Market); err != nil {
		return rules.Misconfigured("%s: %v", c.Name, err)
	}
	if len(c.Corporations) == 0 {
		return rules.Misconfigured("%s: no corporations", c.Name)
	}
	seen := make(map[string]bool)
	for _, spec := range c.Corporations {
		if seen[spec.ID] {
			return rules.Misconfigured("%s: duplicate entity %s", c.Name, spec.ID)
		}
		seen[spec.ID] = true
	}
	for _, spec := range c.Companies {
		if seen[spec.ID] {
			return rules.Misconfigured("%s: duplicate entity %s", c.Name, spec.ID)
		}
		seen[spec.ID] = true
	}
	if len(c.Trains) == 0 {
		return rules.Misconfigured("%s: no trains", c.Name)
	}
	if len(c.Phases) == 0 {
		return rules.Misconfigured("%s: no phases", c.Name)
	}
	switch c.SellAfter {
	case SellAfterAnyTime, SellAfterFirst, SellAfterIPO, SellAfterOperate:
	default:
		return rules.Misconfigured("%s: unknown sell_after %q", c.Name, c.SellAfter)
	}
	switch c.SellBuyOrder {
	case SellBuySell, SellBuy:
	default:
		return rules.Misconfigured("%s: unknown sell_buy_order %q", c.Name, c.SellBuyOrder)
	}
	switch c.SellMovement {
	case SellMovementDownShare, SellMovementDownBlock, SellMovementLeftBlock, SellMovementNone:
	default:
		return rules.Misconfigured("%s: unknown sell_movement %q", c.Name, c.SellMovement)
	}
	switch c.HomeTokenTiming {
	case HomeTokenFloat, HomeTokenOperate, HomeTokenOperatingRound:
	default:
		return rules.Misconfigured("%s: unknown home_token_timing %q", c.Name, c.HomeTokenTiming)
	}
	return nil
}

// PlayerCounts lists the supported player counts in ascending order.
func (c Config) PlayerCounts() []int {
	counts := make([]int, 0, len(c.CertLimit))
	for n := range c.CertLimit {
		if n >= c.MinPlayers && n <= c.MaxPlayers {
			counts = append(counts, n)
		}
	}
	sort.Ints(counts)
	return counts
}
