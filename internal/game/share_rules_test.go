package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/market"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

func play(t *testing.T, g *game.Game, actions ...action.Action) {
	t.Helper()
	for _, a := range actions {
		require.NoError(t, g.Process(a), "%s by %s", a.Kind(), a.EntityID())
	}
}

// passOutStockRound passes for whoever is active until the stock round ends.
func passOutStockRound(t *testing.T, g *game.Game) {
	t.Helper()
	for i := 0; i < 12 && g.Round().Type() == game.RoundStock; i++ {
		play(t, g, action.NewPass(activeID(g)))
	}
	require.NotEqual(t, game.RoundStock, g.Round().Type())
}

func TestSoldCorporationCannotBeBoughtBackInRound(t *testing.T) {
	g := newTestGame(t, testConfig(), nil)
	corp := g.Corporation("AAA")

	play(t, g,
		action.NewPar("p1", "AAA", 70),
		action.NewPass("p1"),
		action.NewBuyShares("p2", "AAA", action.SourceIPO, 10),
		action.NewPass("p2"),
		action.NewPass("p3"),
		action.NewPass("p1"),
		action.NewSellShares("p2", "AAA", 10),
	)
	require.Equal(t, "p2", activeID(g))
	require.Equal(t, 10, corp.PercentOf(g.Pool()))
	assert.NotContains(t, g.LegalActions("p2"), action.KindBuyShares)

	for _, source := range []string{action.SourceIPO, action.SourceMarket} {
		err := g.Process(action.NewBuyShares("p2", "AAA", source, 10))
		require.ErrorIs(t, err, rules.ErrRuleViolation)
		assert.Contains(t, err.Error(), "p2 sold AAA this round")
	}

	// The restriction outlasts the turn of the sale.
	play(t, g,
		action.NewPass("p2"),
		action.NewPass("p3"),
		action.NewPass("p1"),
	)
	require.Equal(t, "p2", activeID(g))
	err := g.Process(action.NewBuyShares("p2", "AAA", action.SourceMarket, 10))
	require.ErrorIs(t, err, rules.ErrRuleViolation)
	assert.Contains(t, err.Error(), "p2 sold AAA this round")
	assert.Zero(t, corp.PercentOf(g.Player("p2")))
}

func TestMustSellPreemptsOtherShareActions(t *testing.T) {
	g := newTestGame(t, testConfig(), nil)
	corp := g.Corporation("AAA")
	p1 := g.Player("p1")

	play(t, g, action.NewPar("p1", "AAA", 70))
	extra, err := entity.NewShareBundle(corp.SharesOf(corp)[:4])
	require.NoError(t, err)
	entity.TransferShares(extra, p1)
	require.Equal(t, 70, corp.PercentOf(p1))
	require.True(t, g.MustSell(p1))

	assert.Equal(t, []action.Kind{action.KindSellShares}, g.LegalActions("p1"))

	err = g.Process(action.NewPar("p1", "BBB", 60))
	require.ErrorIs(t, err, rules.ErrRuleViolation)
	assert.Contains(t, err.Error(), "p1 must sell shares")
	err = g.Process(action.NewBuyShares("p1", "AAA", action.SourceIPO, 10))
	require.ErrorIs(t, err, rules.ErrRuleViolation)
	assert.Contains(t, err.Error(), "p1 must sell shares")
	assert.ErrorIs(t, g.Process(action.NewPass("p1")), rules.ErrRuleViolation)
	assert.False(t, g.Corporation("BBB").IPOed())

	play(t, g, action.NewSellShares("p1", "AAA", 10))
	assert.False(t, g.MustSell(p1))
	assert.Equal(t, 60, corp.PercentOf(p1))
	assert.Contains(t, g.LegalActions("p1"), action.KindPass)
}

func TestPresidentDumpEntersReceivership(t *testing.T) {
	cfg := testConfig()
	cfg.PresidentSalesToMarket = true
	g := newTestGame(t, cfg, nil)
	corp := g.Corporation("AAA")
	p1 := g.Player("p1")

	play(t, g, action.NewPar("p1", "AAA", 70))
	cash := p1.Cash()

	play(t, g, action.NewSellShares("p1", "AAA", 30))
	assert.True(t, corp.Receivership())
	assert.Nil(t, corp.President())
	assert.Equal(t, entity.ShareHolder(g.Pool()), corp.PresidentShare().Owner())
	assert.Equal(t, 30, corp.PercentOf(g.Pool()))
	assert.Zero(t, corp.PercentOf(p1))
	assert.Equal(t, cash+210, p1.Cash())
	assert.Equal(t, 40, corp.SharePrice().Price)
	// Nothing is left for the seller, so the turn moved on.
	assert.Equal(t, "p2", activeID(g))
}

func TestPartialPresidentDumpNeedsPoolShares(t *testing.T) {
	for _, toMarket := range []bool{false, true} {
		cfg := testConfig()
		cfg.PresidentSalesToMarket = toMarket
		g := newTestGame(t, cfg, nil)
		corp := g.Corporation("AAA")

		play(t, g,
			action.NewPar("p1", "AAA", 70),
			action.NewSellShares("p1", "AAA", 10),
		)
		// Without a way to sell the rest, p1's turn ends by itself.
		if activeID(g) == "p1" {
			play(t, g, action.NewPass("p1"))
		}
		play(t, g,
			action.NewBuyShares("p2", "AAA", action.SourceMarket, 10),
			action.NewPass("p2"),
			action.NewPass("p3"),
		)
		require.Equal(t, "p1", activeID(g))
		require.Equal(t, 20, corp.PercentOf(g.Player("p1")))
		require.Zero(t, corp.PercentOf(g.Pool()))

		sum := g.Checksum()
		err := g.Process(action.NewSellShares("p1", "AAA", 10))
		require.ErrorIs(t, err, rules.ErrRuleViolation, "president_sales_to_market=%v", toMarket)
		if toMarket {
			assert.Contains(t, err.Error(), "cannot exchange")
		} else {
			assert.Contains(t, err.Error(), "nobody can take over")
		}
		assert.Equal(t, sum, g.Checksum())
		assert.False(t, corp.Receivership())
		assert.Same(t, g.Player("p1"), corp.President())
	}
}

func TestBuyingPresidentCertificateFromPool(t *testing.T) {
	cfg := testConfig()
	cfg.PresidentSalesToMarket = true
	g := newTestGame(t, cfg, nil)
	corp := g.Corporation("AAA")
	p2 := g.Player("p2")

	play(t, g,
		action.NewPar("p1", "AAA", 70),
		action.NewSellShares("p1", "AAA", 30),
	)
	require.True(t, corp.Receivership())
	require.Equal(t, "p2", activeID(g))

	// The buyer must already hold the difference between the president's
	// certificate and an ordinary share.
	err := g.Process(action.NewBuyPresidentShare("p2", "AAA", 20))
	require.ErrorIs(t, err, rules.ErrRuleViolation)
	assert.Contains(t, err.Error(), "p2 needs 10% of AAA")

	play(t, g,
		action.NewBuyShares("p2", "AAA", action.SourceMarket, 10),
		action.NewPass("p2"),
		action.NewPass("p3"),
		action.NewPass("p1"),
	)
	require.Equal(t, "p2", activeID(g))
	cash := p2.Cash()

	play(t, g, action.NewBuyPresidentShare("p2", "AAA", 20))
	assert.Same(t, p2, corp.President())
	assert.False(t, corp.Receivership())
	assert.Equal(t, 30, corp.PercentOf(p2))
	assert.Zero(t, corp.PercentOf(g.Pool()))
	assert.Equal(t, cash-corp.SharePrice().Price*2, p2.Cash())
}

func TestSellAfterModes(t *testing.T) {
	tests := []struct {
		mode      game.SellAfter
		firstErr  string
		secondErr string
	}{
		{mode: game.SellAfterAnyTime},
		{mode: game.SellAfterFirst, firstErr: "first stock round"},
		{mode: game.SellAfterIPO, firstErr: "AAA cannot be sold in the round it was parred"},
		{mode: game.SellAfterOperate, firstErr: "AAA cannot be sold before it operates", secondErr: "before it operates"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			cfg := testConfig()
			cfg.SellAfter = tt.mode
			// Nothing floats, so no operating round gets in the way.
			for i := range cfg.Corporations {
				cfg.Corporations[i].FloatPercent = 50
			}
			g := newTestGame(t, cfg, nil)

			play(t, g, action.NewPar("p1", "AAA", 70))
			if activeID(g) == "p1" {
				play(t, g, action.NewPass("p1"))
			}
			play(t, g, action.NewPass("p2"), action.NewPass("p3"))
			require.Equal(t, "p1", activeID(g))

			sell := action.NewSellShares("p1", "AAA", 10)
			if tt.firstErr == "" {
				assert.Contains(t, g.LegalActions("p1"), action.KindSellShares)
				play(t, g, sell)
				return
			}
			assert.NotContains(t, g.LegalActions("p1"), action.KindSellShares)
			err := g.Process(sell)
			require.ErrorIs(t, err, rules.ErrRuleViolation)
			assert.Contains(t, err.Error(), tt.firstErr)

			play(t, g, action.NewPass("p1"))
			require.Equal(t, game.RoundStock, g.Round().Type())
			require.Equal(t, 2, g.Turn())
			play(t, g, action.NewPass("p2"), action.NewPass("p3"))
			require.Equal(t, "p1", activeID(g))

			err = g.Process(action.NewSellShares("p1", "AAA", 10))
			if tt.secondErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, rules.ErrRuleViolation)
			assert.Contains(t, err.Error(), tt.secondErr)
		})
	}
}

func TestLiquidationDropsCorporationFromOperatingOrder(t *testing.T) {
	cfg := testConfig()
	cfg.Market = [][]string{{"30l", "40", "50", "60p", "70p", "80p", "90", "100", "110", "120", "130", "140", "150e"}}
	g := newTestGame(t, cfg, nil)

	play(t, g,
		action.NewPar("p1", "AAA", 70),
		action.NewPass("p1"),
		action.NewPar("p2", "BBB", 60),
		action.NewPass("p2"),
	)
	passOutStockRound(t, g)
	require.Equal(t, game.RoundOperating, g.Round().Type())
	require.Len(t, g.Round().Entities(), 2)
	require.Equal(t, "AAA", activeID(g))

	bbb := g.Corporation("BBB")
	g.MoveSharePrice(bbb, market.Down, market.Down, market.Down)
	require.True(t, bbb.SharePrice().Is(market.CellLiquidation))

	order := g.Round().Entities()
	require.Len(t, order, 1)
	assert.Equal(t, "AAA", order[0].ID())
	assert.Equal(t, "AAA", activeID(g))
}

func TestReceivershipCorporationKeepsItsTurn(t *testing.T) {
	cfg := testConfig()
	cfg.PresidentSalesToMarket = true
	cfg.SellMovement = game.SellMovementDownBlock
	g := newTestGame(t, cfg, nil)
	aaa := g.Corporation("AAA")

	play(t, g,
		action.NewPar("p1", "AAA", 80),
		action.NewSellShares("p1", "AAA", 20),
		action.NewPass("p1"),
		action.NewPar("p2", "BBB", 60),
		action.NewPass("p2"),
	)
	require.True(t, aaa.Receivership())
	require.Equal(t, 70, aaa.SharePrice().Price)
	passOutStockRound(t, g)

	require.Equal(t, game.RoundOperating, g.Round().Type())
	require.Equal(t, "AAA", activeID(g))
	require.Nil(t, aaa.Player())

	// Receivership skips the voluntary track and token steps.
	assert.Equal(t, []action.Kind{action.KindBuyTrain}, g.LegalActions("AAA"))

	train := g.Depot().Available()[0]
	play(t, g, action.NewBuyTrain("AAA", train.ID(), 80))
	assert.Len(t, aaa.Trains(), 1)
	require.NotNil(t, g.Round().ActiveStep())
	assert.Equal(t, "AAA", activeID(g))
	assert.Contains(t, g.LegalActions("AAA"), action.KindBuyTrain)
}
