package game_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
	"github.com/railyard/rails-server-go/internal/game/step"
)

func factory[S game.Step](fn func(*game.Game, *game.Round) S) game.StepFactory {
	return func(g *game.Game, r *game.Round) game.Step { return fn(g, r) }
}

// testRounds starts with a stock round and then plays the phase's operating
// rounds.
type testRounds struct{}

func (testRounds) InitialRound(*game.Game) game.RoundType { return game.RoundStock }

func (testRounds) NextRound(g *game.Game, finished *game.Round) (game.RoundType, int) {
	if finished.Type() == game.RoundStock {
		return game.RoundOperating, 1
	}
	if finished.Num() < g.OperatingRounds() {
		return game.RoundOperating, finished.Num() + 1
	}
	return game.RoundStock, g.Turn() + 1
}

func (testRounds) Pipeline(_ *game.Game, t game.RoundType) []game.StepFactory {
	if t == game.RoundStock {
		return []game.StepFactory{
			factory(step.NewHomeToken),
			factory(step.NewBuySellParShares),
		}
	}
	return []game.StepFactory{
		factory(step.NewBankrupt),
		factory(step.NewHomeToken),
		factory(step.NewTrack),
		factory(step.NewToken),
		factory(step.NewRoute),
		factory(step.NewDividend),
		factory(step.NewDiscardTrain),
		factory(step.NewBuyTrain),
	}
}

// poolFloat moves a corporation's unsold shares to the market once it floats.
type poolFloat struct {
	game.BaseScenario
}

func (poolFloat) Floated(g *game.Game, corp *entity.Corporation) {
	shares := corp.SharesOf(corp)
	if len(shares) == 0 {
		return
	}
	bundle, err := entity.NewShareBundle(shares)
	if err != nil {
		return
	}
	entity.TransferShares(bundle, g.Pool())
}

func testCorporation(id, home string) entity.CorporationSpec {
	return entity.CorporationSpec{
		ID:           id,
		Name:         id,
		Kind:         "10-share",
		Shares:       []int{20, 10, 10, 10, 10, 10, 10, 10, 10},
		FloatPercent: 30,
		Tokens:       []int{0, 40},
		HomeHexes:    []string{home},
	}
}

func testConfig() game.Config {
	return game.Config{
		Name:         "test",
		MinPlayers:   2,
		MaxPlayers:   4,
		BankCash:     20000,
		CertLimit:    map[int]int{2: 12, 3: 10, 4: 8},
		StartingCash: map[int]int{2: 600, 3: 400, 4: 300},
		Market: [][]string{
			{"40", "50", "60p", "70p", "80p", "90", "100", "110", "120", "130", "140", "150e"},
		},
		Corporations: []entity.CorporationSpec{
			testCorporation("AAA", "A1"),
			testCorporation("BBB", "B1"),
			testCorporation("CCC", "C1"),
		},
		Trains: []entity.TrainSpec{
			{Name: "2", Distance: 2, Price: 80, Count: 4, RustsOn: "4"},
			{Name: "3", Distance: 3, Price: 160, Count: 3},
			{Name: "4", Distance: 4, Price: 250, Count: 3},
		},
		Phases: []rules.Phase{
			{Name: "2", TileColors: []string{rules.ColorYellow}, OperatingRounds: 1, TrainLimit: 3},
			{Name: "3", On: "3", TileColors: []string{rules.ColorYellow, rules.ColorGreen}, OperatingRounds: 2, TrainLimit: 3},
			{Name: "4", On: "4", TileColors: []string{rules.ColorYellow, rules.ColorGreen}, OperatingRounds: 2, TrainLimit: 2},
		},
		SellAfter:        game.SellAfterAnyTime,
		SellBuyOrder:     game.SellBuySell,
		SellMovement:     game.SellMovementDownShare,
		MarketShareLimit: 50,
		ParShares:        2,
		HomeTokenTiming:  game.HomeTokenOperate,
		TileLays:         1,
	}
}

func testPolicies(scenario game.ScenarioPolicy) game.Policies {
	if scenario == nil {
		scenario = game.BaseScenario{}
	}
	return game.Policies{
		Round:    testRounds{},
		Map:      game.DefaultMap{},
		Roster:   game.DefaultRoster{},
		Scenario: scenario,
	}
}

func testSetup(players int, seed int64) game.Setup {
	setup := game.Setup{ID: "g1", Seed: seed}
	for i := 1; i <= players; i++ {
		setup.Players = append(setup.Players, game.PlayerSetup{ID: fmt.Sprintf("p%d", i)})
	}
	return setup
}

func newTestGame(t *testing.T, cfg game.Config, scenario game.ScenarioPolicy) *game.Game {
	t.Helper()
	g, err := game.NewGame(cfg, testPolicies(scenario), testSetup(3, 7))
	require.NoError(t, err)
	return g
}

func activeID(g *game.Game) string {
	active := g.ActiveEntities()
	if len(active) == 0 {
		return ""
	}
	return active[0].ID()
}
