package game_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/variant"
)

// rulesets are the configurations the properties run against.
func rulesets(t *rapid.T) (game.Config, game.Policies) {
	name := rapid.SampledFrom([]string{"test", "classic", "gb", "usa"}).Draw(t, "rules")
	if name == "test" {
		cfg := testConfig()
		scenario := game.ScenarioPolicy(game.BaseScenario{})
		if rapid.Bool().Draw(t, "pool_float") {
			scenario = poolFloat{}
		}
		return cfg, testPolicies(scenario)
	}
	v, err := variant.Get(name)
	require.NoError(t, err)
	return v.Config, v.Policies
}

func randomGame(t *rapid.T) (*game.Game, game.Config, game.Policies, game.Setup) {
	cfg, policies := rulesets(t)
	setup := testSetup(3, rapid.Int64().Draw(t, "setup_seed"))
	g, err := game.NewGame(cfg, policies, setup)
	require.NoError(t, err)
	return g, cfg, policies, setup
}

func TestReplayIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, cfg, policies, setup := randomGame(t)
		played, sums, err := playRandom(g, newRand(rapid.Int64().Draw(t, "seed")), 120, nil)
		require.NoError(t, err)

		for run := 0; run < 2; run++ {
			replay, err := game.NewGame(cfg, policies, setup)
			require.NoError(t, err)
			for i, a := range played {
				require.NoError(t, replay.Process(a), "action %d", i)
				require.Equal(t, sums[i], replay.Checksum(), "checksum after action %d", i)
			}
		}
	})
}

func TestOnlyActiveEntitiesHaveLegalActions(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, _, _, _ := randomGame(t)
		check := func() {
			if g.Finished() {
				return
			}
			active := g.ActiveEntities()
			require.NotEmpty(t, active)
			require.NotEmpty(t, g.LegalActions(active[0].ID()), "%s is active in %s", active[0].ID(), g.Round().Name())
			isActive := map[string]bool{}
			for _, e := range active {
				isActive[e.ID()] = true
			}
			var all []entity.Entity
			for _, p := range g.Players() {
				all = append(all, p)
			}
			for _, c := range g.Corporations() {
				all = append(all, c)
			}
			for _, e := range all {
				if len(g.LegalActions(e.ID())) > 0 {
					require.True(t, isActive[e.ID()], "%s has actions but is not active in %s", e.ID(), g.Round().Name())
				}
			}
		}
		check()
		_, _, err := playRandom(g, newRand(rapid.Int64().Draw(t, "seed")), 120, func(action.Action) { check() })
		require.NoError(t, err)
	})
}

func TestPurchasesRespectCertificateLimit(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, _, _, _ := randomGame(t)
		_, _, err := playRandom(g, newRand(rapid.Int64().Draw(t, "seed")), 150, func(a action.Action) {
			switch a.Kind() {
			case action.KindBuyShares, action.KindPar, action.KindBuyCompany:
			default:
				return
			}
			p := g.Player(a.EntityID())
			if p == nil {
				return
			}
			require.LessOrEqual(t, g.NumCerts(p), g.CertLimit(), "%s after %s", p.ID(), a.Kind())
		})
		require.NoError(t, err)
	})
}

func TestSharesAlwaysSumToTotal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, _, _, _ := randomGame(t)
		_, _, err := playRandom(g, newRand(rapid.Int64().Draw(t, "seed")), 150, func(action.Action) {
			for _, c := range g.Corporations() {
				if c.Closed() {
					continue
				}
				sum := c.PercentOf(c) + c.PercentOf(g.Pool())
				for _, p := range g.Players() {
					sum += c.PercentOf(p)
				}
				require.Equal(t, c.TotalPercent(), sum, "%s", c.ID())
				require.Equal(t, 100, c.TotalPercent(), "%s", c.ID())
			}
		})
		require.NoError(t, err)
	})
}

func TestParredCorporationsHaveOnePresident(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, _, _, _ := randomGame(t)
		_, _, err := playRandom(g, newRand(rapid.Int64().Draw(t, "seed")), 150, func(action.Action) {
			for _, c := range g.Corporations() {
				if !c.IPOed() || c.Closed() {
					continue
				}
				presidents := 0
				for _, s := range c.Shares() {
					if s.President() {
						presidents++
						require.NotEqual(t, entity.ShareHolder(c), s.Owner(), "%s president's certificate is in the IPO", c.ID())
					}
				}
				require.Equal(t, 1, presidents, "%s", c.ID())
			}
		})
		require.NoError(t, err)
	})
}

func TestRoundsAlwaysAdvance(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		g, _, _, _ := randomGame(t)
		rounds := map[int]bool{g.RoundCounter(): true}
		_, _, err := playRandom(g, newRand(rapid.Int64().Draw(t, "seed")), 300, func(action.Action) {
			rounds[g.RoundCounter()] = true
		})
		require.NoError(t, err)
		if !g.Finished() {
			require.NotNil(t, g.Round())
		}
		require.NotEmpty(t, rounds)
	})
}
