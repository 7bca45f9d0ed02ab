// Package variant defines the built-in game variants and loads variants from
// YAML files. A Variant pairs an immutable config with the policies that
// compose its rounds.
package variant

import (
	"fmt"
	"sort"
	"strings"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// Variant is everything needed to start a game besides the players.
type Variant struct {
	Config   game.Config
	Policies game.Policies
}

// NewGame starts a game of the variant.
func (v Variant) NewGame(setup game.Setup, opts ...game.Option) (*game.Game, error) {
	return game.NewGame(v.Config, v.Policies, setup, opts...)
}

var builtins = map[string]func() Variant{
	"classic": Classic,
	"gb":      GB,
	"usa":     USA,
}

// Names lists the built-in variants.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns a built-in variant by name.
func Get(name string) (Variant, error) {
	build, ok := builtins[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Variant{}, fmt.Errorf("variant %q: %w", name, rules.ErrConfiguration)
	}
	return build(), nil
}

// rulesFor returns the policies of a built-in variant for configs loaded
// from files.
func rulesFor(name string, terrain map[string]int) (game.Policies, error) {
	var p game.Policies
	switch strings.ToLower(name) {
	case "", "classic":
		p = classicPolicies()
	case "gb":
		p = gbPolicies()
	case "usa":
		p = usaPolicies()
	default:
		return game.Policies{}, rules.Misconfigured("unknown rules %q", name)
	}
	if terrain != nil {
		p.Map = game.DefaultMap{Terrain: terrain}
	}
	return p, nil
}
