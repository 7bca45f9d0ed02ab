package variant

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
	"github.com/railyard/rails-server-go/internal/game/step"
)

// operatingSteps is the common operating round pipeline.
func operatingSteps() []game.StepFactory {
	return []game.StepFactory{
		build(step.NewBankrupt),
		build(step.NewBuyCompany),
		build(step.NewHomeToken),
		build(step.NewTrack),
		build(step.NewToken),
		build(step.NewRoute),
		build(step.NewDividend),
		build(step.NewDiscardTrain),
		build(step.NewBuyTrain),
	}
}

func classicPolicies() game.Policies {
	return game.Policies{
		Round: setRounds{
			initial: game.RoundAuction,
			steps: pipelines{
				game.RoundAuction: {build(step.NewWaterfallAuction)},
				game.RoundStock: {
					build(step.NewHomeToken),
					build(step.NewBuySellParShares),
				},
				game.RoundOperating: operatingSteps(),
			},
		},
		Map:      game.DefaultMap{Terrain: map[string]int{"D10": 80, "E11": 80, "F16": 120, "G17": 120}},
		Roster:   game.DefaultRoster{},
		Scenario: game.BaseScenario{},
	}
}

// Classic is a two-dimensional market game with a private company auction,
// full capitalization and bankruptcy ending the game.
func Classic() Variant {
	return Variant{Config: classicConfig(), Policies: classicPolicies()}
}

func classicCorporation(id, name string, homes ...string) entity.CorporationSpec {
	return entity.CorporationSpec{
		ID:           id,
		Name:         name,
		Kind:         "10-share",
		Shares:       []int{20, 10, 10, 10, 10, 10, 10, 10, 10},
		FloatPercent: 60,
		Tokens:       []int{0, 40, 100, 100},
		HomeHexes:    homes,
	}
}

func classicConfig() game.Config {
	return game.Config{
		Name:         "classic",
		MinPlayers:   2,
		MaxPlayers:   6,
		BankCash:     12000,
		CertLimit:    map[int]int{2: 28, 3: 20, 4: 16, 5: 13, 6: 11},
		StartingCash: map[int]int{2: 1200, 3: 800, 4: 600, 5: 480, 6: 400},
		Market: [][]string{
			{"60y", "67", "71", "76", "82", "90", "100p", "112", "126", "142", "160", "180", "200", "225", "250", "275", "300", "325", "350e"},
			{"53y", "60y", "66", "70", "76", "82", "90p", "100", "112", "126", "142", "160", "180", "200", "220", "240", "260", "280", "300"},
			{"46y", "55y", "60y", "65", "70", "76", "82p", "90", "100", "111", "125", "140", "155", "170", "185", "200"},
			{"39o", "48y", "54y", "60y", "66", "71", "76p", "82", "90", "100", "110", "120", "130"},
			{"32o", "41o", "48y", "55y", "62", "67", "71p", "76", "80", "85", "90"},
			{"25b", "34o", "42o", "50y", "58y", "65", "67p", "71", "75", "80"},
			{"18b", "27b", "36o", "45o", "54y", "63", "67", "69", "70"},
			{"10c", "20b", "30b", "40o", "50y", "60y", "67", "68"},
			{"", "10c", "20b", "30b", "40o", "50y", "60y"},
			{"", "", "10c", "20b", "30b", "40o", "50y"},
			{"", "", "", "10c", "20b", "30b", "40o"},
		},
		Corporations: []entity.CorporationSpec{
			classicCorporation("PRR", "Pennsylvania", "H12"),
			classicCorporation("NYC", "New York Central", "E19"),
			classicCorporation("CPR", "Canadian Pacific", "A19"),
			classicCorporation("BO", "Baltimore & Ohio", "I15"),
			classicCorporation("CO", "Chesapeake & Ohio", "F6"),
			classicCorporation("ERIE", "Erie", "E11"),
			classicCorporation("NYNH", "New York, New Haven & Hartford", "G19"),
			classicCorporation("BM", "Boston & Maine", "E23"),
		},
		Companies: []game.CompanySpec{
			{ID: "SV", Name: "Schuylkill Valley", Value: 20, Revenue: 5},
			{ID: "CS", Name: "Champlain & St.Lawrence", Value: 40, Revenue: 10},
			{ID: "DH", Name: "Delaware & Hudson", Value: 70, Revenue: 15},
			{ID: "MH", Name: "Mohawk & Hudson", Value: 110, Revenue: 20},
			{ID: "CA", Name: "Camden & Amboy", Value: 160, Revenue: 25},
			{ID: "BNO", Name: "Baltimore & Ohio Private", Value: 220, Revenue: 30},
		},
		Trains: []entity.TrainSpec{
			{Name: "2", Distance: 2, Price: 80, Count: 6, RustsOn: "4"},
			{Name: "3", Distance: 3, Price: 180, Count: 5, RustsOn: "6"},
			{Name: "4", Distance: 4, Price: 300, Count: 4, RustsOn: "D"},
			{Name: "5", Distance: 5, Price: 450, Count: 3},
			{Name: "6", Distance: 6, Price: 630, Count: 2},
			{Name: "D", Distance: 99, Price: 1100, Count: 6},
		},
		Phases: []rules.Phase{
			{Name: "2", TileColors: []string{rules.ColorYellow}, OperatingRounds: 1, TrainLimit: 4},
			{Name: "3", On: "3", TileColors: []string{rules.ColorYellow, rules.ColorGreen}, OperatingRounds: 2, TrainLimit: 4},
			{Name: "4", On: "4", TileColors: []string{rules.ColorYellow, rules.ColorGreen}, OperatingRounds: 2, TrainLimit: 3},
			{Name: "5", On: "5", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown}, OperatingRounds: 3, TrainLimit: 2,
				Events: []string{rules.PhaseEventCloseCompanies}},
			{Name: "6", On: "6", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown}, OperatingRounds: 3, TrainLimit: 2},
			{Name: "D", On: "D", TileColors: []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown, rules.ColorGray}, OperatingRounds: 3, TrainLimit: 2},
		},
		SellAfter:          game.SellAfterFirst,
		SellBuyOrder:       game.SellBuySell,
		SellMovement:       game.SellMovementDownShare,
		MarketShareLimit:   50,
		ParShares:          1,
		HomeTokenTiming:    game.HomeTokenOperate,
		TileLays:           1,
		BankruptcyEndsGame: true,
	}
}
