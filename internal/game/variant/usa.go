package variant

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
	"github.com/railyard/rails-server-go/internal/game/step"
)

func usaPolicies() game.Policies {
	return game.Policies{
		Round: mergerRounds{setRounds{
			initial: game.RoundAuction,
			steps: pipelines{
				game.RoundAuction: {build(step.NewWaterfallAuction)},
				game.RoundStock: {
					build(step.NewHomeToken),
					build(step.NewBuySellParSharesDebt),
				},
				game.RoundOperating: operatingSteps(),
				game.RoundMerger:    {build(step.NewConversion)},
				game.RoundAcquisition: {
					build(step.NewBlockingBuyCompany),
					build(step.NewLoan),
				},
			},
		}},
		Map:      game.DefaultMap{Terrain: map[string]int{"D5": 60, "E6": 60, "F7": 120}},
		Roster:   game.DefaultRoster{},
		Scenario: game.BaseScenario{},
	}
}

// USA is a one-dimensional market game with incremental capitalization,
// loans, player debt and merger and acquisition rounds after every operating
// round.
func USA() Variant {
	return Variant{Config: usaConfig(), Policies: usaPolicies()}
}

func usaCorporation(id, name string, homes ...string) entity.CorporationSpec {
	return entity.CorporationSpec{
		ID:             id,
		Name:           name,
		Kind:           "5-share",
		Shares:         []int{40, 20, 20, 20},
		FloatPercent:   60,
		Capitalization: entity.CapitalizationIncremental,
		Tokens:         []int{0, 40, 60, 80},
		HomeHexes:      homes,
	}
}

func usaConfig() game.Config {
	return game.Config{
		Name:         "usa",
		MinPlayers:   3,
		MaxPlayers:   6,
		BankCash:     99999,
		CertLimit:    map[int]int{3: 20, 4: 16, 5: 13, 6: 11},
		StartingCash: map[int]int{3: 630, 4: 420, 5: 360, 6: 300},
		Market: [][]string{
			{"0l", "40", "45", "50p", "55", "60p", "65p", "70", "80p", "90p", "100p", "110p", "120", "135p", "150p", "165p", "180p", "200p",
				"220", "245", "270", "300", "330", "360", "400", "440", "490", "540", "600e"},
		},
		Corporations: []entity.CorporationSpec{
			usaCorporation("ATSF", "Atchison, Topeka & Santa Fe", "H10"),
			usaCorporation("GN", "Great Northern", "C6"),
			usaCorporation("NYC", "New York Central", "D24", "E23"),
			usaCorporation("PRR", "Pennsylvania", "F22"),
			usaCorporation("SP", "Southern Pacific", "J4"),
			usaCorporation("UP", "Union Pacific", "F12"),
			usaCorporation("MP", "Missouri Pacific", "G14"),
		},
		Companies: []game.CompanySpec{
			{ID: "ME", Name: "Maryland Engineering", Value: 40, Revenue: 10},
			{ID: "CW", Name: "Carnegie Works", Value: 60, Revenue: 10},
			{ID: "PR", Name: "Pullman Rails", Value: 90, Revenue: 15},
			{ID: "OIL", Name: "Oil Prospector", Value: 120, Revenue: 20},
		},
		Trains: []entity.TrainSpec{
			{Name: "2", Distance: 2, Price: 100, Count: 7, RustsOn: "4"},
			{Name: "3", Distance: 3, Price: 250, Count: 6, RustsOn: "6"},
			{Name: "4", Distance: 4, Price: 400, Count: 5, RustsOn: "8"},
			{Name: "5", Distance: 5, Price: 600, Count: 4},
			{Name: "6", Distance: 6, Price: 750, Count: 3},
			{Name: "8", Distance: 8, Price: 1100, Count: 8},
		},
		Phases: []rules.Phase{
			{Name: "2", TileColors: []string{rules.ColorYellow}, OperatingRounds: 2, TrainLimit: 4},
			{Name: "3", On: "3", TileColors: []string{rules.ColorYellow, rules.ColorGreen}, OperatingRounds: 2, TrainLimit: 4},
			{Name: "4", On: "4", TileColors: []string{rules.ColorYellow, rules.ColorGreen}, OperatingRounds: 2, TrainLimit: 3},
			{Name: "5", On: "5", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown}, OperatingRounds: 2, TrainLimit: 3,
				Events: []string{rules.PhaseEventCloseCompanies}},
			{Name: "6", On: "6", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown}, OperatingRounds: 2, TrainLimit: 2},
			{Name: "8", On: "8", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown, rules.ColorGray}, OperatingRounds: 2, TrainLimit: 2},
		},
		SellAfter:         game.SellAfterIPO,
		SellBuyOrder:      game.SellBuySell,
		SellMovement:      game.SellMovementLeftBlock,
		MarketShareLimit:  50,
		ParShares:         2,
		HomeTokenTiming:   game.HomeTokenOperate,
		TileLays:          1,
		LoanAmount:        100,
		TotalLoans:        40,
		PlayerDebt:        true,
		AllowHalfDividend: true,
		DoubleJumpPayout:  true,
	}
}
