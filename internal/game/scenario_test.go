package game_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

func TestParThenBuyFromMarket(t *testing.T) {
	g := newTestGame(t, testConfig(), poolFloat{})
	corp := g.Corporation("AAA")
	pool := g.Pool()

	a := g.Player(activeID(g))
	require.NotNil(t, a)
	cashBefore := a.Cash()

	require.NoError(t, g.Process(action.NewPar(a.ID(), "AAA", 70)))

	// The founder buys the president's certificate and one ordinary share.
	cost := 70 * 30 / 10
	assert.Equal(t, cashBefore-cost, a.Cash())
	held := corp.SharesOf(a)
	require.Len(t, held, 2)
	presidents := 0
	for _, s := range held {
		if s.President() {
			presidents++
		}
	}
	assert.Equal(t, 1, presidents)
	assert.Same(t, a, corp.President())
	assert.True(t, corp.Floated())
	require.Len(t, corp.SharesOf(pool), 7)

	// The market is full, so the founder has nothing left to do.
	b := g.Player(activeID(g))
	require.NotNil(t, b)
	require.NotSame(t, a, b)
	cashBefore = b.Cash()

	require.NoError(t, g.Process(action.NewBuyShares(b.ID(), "AAA", action.SourceMarket, 10)))
	assert.Len(t, corp.SharesOf(pool), 6)
	assert.Equal(t, cashBefore-corp.SharePrice().Price*10/10, b.Cash())
	assert.Equal(t, 10, corp.PercentOf(b))
}

func TestPresidentCertificateSaleRejected(t *testing.T) {
	g := newTestGame(t, testConfig(), nil)
	a := g.Player(activeID(g))
	require.NotNil(t, a)
	require.NoError(t, g.Process(action.NewPar(a.ID(), "AAA", 70)))
	require.Equal(t, a.ID(), activeID(g))
	require.Contains(t, g.LegalActions(a.ID()), action.KindSellShares)

	sum := g.Checksum()
	count := len(g.Actions())
	cash := a.Cash()

	err := g.Process(action.NewSellShares(a.ID(), "AAA", 20))
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrRuleViolation)
	assert.Equal(t, sum, g.Checksum())
	assert.Len(t, g.Actions(), count)
	assert.Equal(t, cash, a.Cash())
	assert.Same(t, a, g.Corporation("AAA").President())
	assert.Empty(t, g.Corporation("AAA").SharesOf(g.Pool()))
}

func TestNotYourTurnRejected(t *testing.T) {
	g := newTestGame(t, testConfig(), nil)
	current := activeID(g)
	for _, p := range g.Players() {
		if p.ID() == current {
			continue
		}
		assert.Empty(t, g.LegalActions(p.ID()))
		err := g.Process(action.NewPass(p.ID()))
		assert.ErrorIs(t, err, rules.ErrRuleViolation)
	}
	assert.Equal(t, current, activeID(g))
}

func TestUnknownEntityRejected(t *testing.T) {
	g := newTestGame(t, testConfig(), nil)
	err := g.Process(action.NewPass("nobody"))
	assert.ErrorIs(t, err, rules.ErrRuleViolation)
	assert.Empty(t, g.Actions())
}

func TestStockRoundEndsWhenEveryonePasses(t *testing.T) {
	g := newTestGame(t, testConfig(), nil)
	for i := 0; i < 3; i++ {
		require.Equal(t, game.RoundStock, g.Round().Type())
		require.NoError(t, g.Process(action.NewPass(activeID(g))))
	}
	// Nothing floated, so the operating round has nobody to run and the next
	// stock round starts at once.
	assert.Equal(t, game.RoundStock, g.Round().Type())
	assert.Equal(t, 2, g.Turn())
}

func TestTruncatedReplayMatchesPrefix(t *testing.T) {
	cfg := testConfig()
	policies := testPolicies(nil)
	setup := testSetup(3, 11)

	g, err := game.NewGame(cfg, policies, setup)
	require.NoError(t, err)
	played, sums, err := playRandom(g, newRand(11), 50, nil)
	require.NoError(t, err)
	require.Len(t, played, 50)

	full, err := game.ReplayActions(cfg, policies, setup, played)
	require.NoError(t, err)
	assert.Equal(t, sums[49], full.Checksum())

	truncated, err := game.ReplayActions(cfg, policies, setup, full.Actions()[:30])
	require.NoError(t, err)
	direct, err := game.ReplayActions(cfg, policies, setup, played[:30])
	require.NoError(t, err)
	assert.Equal(t, direct.Checksum(), truncated.Checksum())
	assert.Equal(t, sums[29], truncated.Checksum())
}

func TestReplayRejectsForeignLog(t *testing.T) {
	cfg := testConfig()
	policies := testPolicies(nil)
	setup := testSetup(3, 1)

	_, err := game.ReplayActions(cfg, policies, setup, []action.Action{action.NewPass("p9")})
	assert.ErrorIs(t, err, rules.ErrReplayInconsistency)

	_, err = game.ReplayActions(cfg, policies, setup, []action.Action{action.NewPass("p2")})
	assert.ErrorIs(t, err, rules.ErrReplayInconsistency)
}
