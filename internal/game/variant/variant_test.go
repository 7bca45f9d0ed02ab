package variant_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/rules"
	"github.com/railyard/rails-server-go/internal/game/variant"
)

func setup(players int) game.Setup {
	s := game.Setup{ID: "v1", Seed: 3}
	for _, id := range []string{"ann", "bob", "cat", "dan", "eve", "fay"}[:players] {
		s.Players = append(s.Players, game.PlayerSetup{ID: id})
	}
	return s
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"classic", "gb", "usa"}, variant.Names())
}

func TestGetUnknown(t *testing.T) {
	_, err := variant.Get("1889")
	require.Error(t, err)
	assert.ErrorIs(t, err, rules.ErrConfiguration)
}

func TestBuiltinsStart(t *testing.T) {
	tests := []struct {
		name  string
		first game.RoundType
	}{
		{"classic", game.RoundAuction},
		{"gb", game.RoundStock},
		{"usa", game.RoundAuction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := variant.Get(tt.name)
			require.NoError(t, err)
			require.NoError(t, v.Config.WithDefaults().Validate())

			g, err := v.NewGame(setup(4))
			require.NoError(t, err)
			assert.Equal(t, tt.first, g.Round().Type())
			assert.Equal(t, "ann", g.ActiveEntities()[0].ID())
			for _, p := range g.Players() {
				assert.Equal(t, v.Config.StartingCash[4], p.Cash())
			}
		})
	}
}

func TestTooFewPlayers(t *testing.T) {
	_, err := variant.USA().NewGame(setup(2))
	assert.ErrorIs(t, err, rules.ErrConfiguration)
}

func TestGBFoundingRule(t *testing.T) {
	g, err := variant.GB().NewGame(setup(3))
	require.NoError(t, err)

	err = g.Process(action.NewPar("ann", "LNWR", 70))
	assert.ErrorIs(t, err, rules.ErrRuleViolation)
	assert.Nil(t, g.Corporation("LNWR").ParPrice())

	require.NoError(t, g.Process(action.NewPar("ann", "GWR", 70)))
	assert.Same(t, g.Player("ann"), g.Corporation("GWR").President())
}

func TestParseRoundTrip(t *testing.T) {
	cfg := variant.Classic().Config
	data, err := variant.Marshal("classic", cfg)
	require.NoError(t, err)

	v, err := variant.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, cfg.Name, v.Config.Name)
	assert.Equal(t, cfg.Market, v.Config.Market)
	assert.Equal(t, cfg.CertLimit, v.Config.CertLimit)
	assert.Equal(t, cfg.SellAfter, v.Config.SellAfter)
	assert.Equal(t, cfg.BankruptcyEndsGame, v.Config.BankruptcyEndsGame)
	require.Len(t, v.Config.Corporations, len(cfg.Corporations))
	assert.Equal(t, cfg.Corporations[0].Shares, v.Config.Corporations[0].Shares)
	require.Len(t, v.Config.Phases, len(cfg.Phases))
	for i := range cfg.Phases {
		assert.Equal(t, cfg.Phases[i].Events, v.Config.Phases[i].Events, cfg.Phases[i].Name)
	}

	g, err := v.NewGame(setup(3))
	require.NoError(t, err)
	assert.Equal(t, game.RoundAuction, g.Round().Type())
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	data, err := variant.Marshal("gb", variant.GB().Config)
	require.NoError(t, err)
	data = append(data, []byte("surprise: true\n")...)

	_, err = variant.Parse(data)
	assert.ErrorIs(t, err, rules.ErrConfiguration)
}

func TestParseRejectsUnknownRules(t *testing.T) {
	data, err := variant.Marshal("1817", variant.USA().Config)
	require.NoError(t, err)

	_, err = variant.Parse(data)
	assert.ErrorIs(t, err, rules.ErrConfiguration)
}

func TestLoadFile(t *testing.T) {
	data, err := variant.Marshal("usa", variant.USA().Config)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "usa.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	v, err := variant.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "usa", v.Config.Name)

	_, err = variant.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
