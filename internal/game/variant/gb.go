package variant

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
	"github.com/railyard/rails-server-go/internal/game/step"
)

const (
	// lnwr may only be founded once the company tied to it has left play.
	lnwr       = "LNWR"
	lnwrTiedTo = "LB"
)

// gbScenario holds the gb founding and float rules.
type gbScenario struct {
	game.BaseScenario
}

func (s gbScenario) CanPar(g *game.Game, corp *entity.Corporation) bool {
	if !s.BaseScenario.CanPar(g, corp) {
		return false
	}
	if corp.ID() != lnwr {
		return true
	}
	co := g.Company(lnwrTiedTo)
	return co == nil || co.Closed()
}

// Floated moves the unsold IPO shares of a ten-share corporation to the pool.
func (gbScenario) Floated(g *game.Game, corp *entity.Corporation) {
	if game.FiveShare(corp) {
		return
	}
	shares := corp.SharesOf(corp)
	if len(shares) == 0 {
		return
	}
	bundle, err := entity.NewShareBundle(shares)
	if err != nil {
		return
	}
	entity.TransferShares(bundle, g.Pool())
	g.Logf("%s's unsold shares move to the market", corp.Name())
}

func gbPolicies() game.Policies {
	return game.Policies{
		Round: setRounds{
			initial: game.RoundStock,
			steps: pipelines{
				game.RoundStock: {
					build(step.NewHomeToken),
					build(step.NewBuySellParSharesCompanies),
				},
				game.RoundOperating: {
					build(step.NewBankrupt),
					build(step.NewHomeToken),
					build(step.NewTrack),
					build(step.NewToken),
					build(step.NewRoute),
					build(step.NewDividend),
					build(step.NewDiscardTrain),
					build(step.NewBuyTrain),
				},
			},
		},
		Map:      game.DefaultMap{Terrain: map[string]int{"F11": 40, "H5": 40, "I4": 80}},
		Roster:   game.DefaultRoster{},
		Scenario: gbScenario{},
	}
}

// GB is a one-dimensional market game of five-share corporations that later
// form as ten-share corporations, with no auction and insolvency instead of
// bankruptcy.
func GB() Variant {
	return Variant{Config: gbConfig(), Policies: gbPolicies()}
}

func gbCorporation(id, name string, homes ...string) entity.CorporationSpec {
	return entity.CorporationSpec{
		ID:           id,
		Name:         name,
		Kind:         "5-share",
		Shares:       []int{40, 20, 20, 20},
		FloatPercent: 40,
		Tokens:       []int{0, 40, 40},
		HomeHexes:    homes,
	}
}

func gbConfig() game.Config {
	return game.Config{
		Name:         "gb",
		MinPlayers:   2,
		MaxPlayers:   6,
		BankCash:     99999,
		CertLimit:    map[int]int{2: 20, 3: 16, 4: 13, 5: 11, 6: 9},
		StartingCash: map[int]int{2: 750, 3: 500, 4: 375, 5: 300, 6: 250},
		Market: [][]string{
			{"50o", "55o", "60o", "65o", "70p", "75p", "80p", "90p", "100p", "115", "130", "160", "180", "200", "220", "240", "265", "290", "320", "350e", "380e"},
		},
		Corporations: []entity.CorporationSpec{
			gbCorporation("LNWR", "London & North Western", "H11"),
			gbCorporation("GWR", "Great Western", "J5"),
			gbCorporation("LSWR", "London & South Western", "K6"),
			gbCorporation("MR", "Midland", "G12"),
			gbCorporation("NER", "North Eastern", "D15"),
			gbCorporation("CR", "Caledonian", "B9", "C8"),
		},
		Companies: []game.CompanySpec{
			{ID: "LB", Name: "London & Birmingham", Value: 75, Revenue: 15},
			{ID: "SD", Name: "Stockton & Darlington", Value: 45, Revenue: 10},
			{ID: "LM", Name: "Liverpool & Manchester", Value: 60, Revenue: 12},
			{ID: "GJ", Name: "Grand Junction", Value: 100, Revenue: 20},
		},
		Trains: []entity.TrainSpec{
			{Name: "2+1", Distance: 3, Price: 80, Count: 5, RustsOn: "4+2"},
			{Name: "3+1", Distance: 4, Price: 200, Count: 4, RustsOn: "4X"},
			{Name: "4+2", Distance: 6, Price: 300, Count: 3, RustsOn: "6X"},
			{Name: "5+2", Distance: 7, Price: 500, Count: 2},
			{Name: "4X", Distance: 4, Price: 550, Count: 3},
			{Name: "5X", Distance: 5, Price: 650, Count: 2},
			{Name: "6X", Distance: 6, Price: 700, Count: 6},
		},
		Phases: []rules.Phase{
			{Name: "2+1", TileColors: []string{rules.ColorYellow}, OperatingRounds: 2, TrainLimit: 3},
			{Name: "3+1", On: "3+1", TileColors: []string{rules.ColorYellow, rules.ColorGreen}, OperatingRounds: 2, TrainLimit: 3,
				Events: []string{rules.PhaseEventFloat60}},
			{Name: "4+2", On: "4+2", TileColors: []string{rules.ColorYellow, rules.ColorGreen}, OperatingRounds: 2, TrainLimit: 2,
				Events: []string{rules.PhaseEventCloseCompanies}},
			{Name: "5+2", On: "5+2", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown}, OperatingRounds: 2, TrainLimit: 2,
				Events: []string{rules.PhaseEventFloat10Share}},
			{Name: "4X", On: "4X", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown}, OperatingRounds: 2, TrainLimit: 2},
			{Name: "5X", On: "5X", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown}, OperatingRounds: 2, TrainLimit: 2},
			{Name: "6X", On: "6X", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown, rules.ColorGray}, OperatingRounds: 2, TrainLimit: 2},
		},
		SellAfter:              game.SellAfterAnyTime,
		SellBuyOrder:           game.SellBuy,
		SellMovement:           game.SellMovementDownShare,
		MustSellInBlocks:       true,
		PresidentSalesToMarket: true,
		MarketShareLimit:       100,
		ParShares:              1,
		HomeTokenTiming:        game.HomeTokenFloat,
		TileLays:               2,
		CompanySaleFee:         0,
	}
}
