package game

import (
	"math/rand"

	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/market"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// StepFactory builds one step of a round's pipeline.
type StepFactory func(g *Game, r *Round) Step

// RoundPolicy decides which rounds a game plays and which steps they run.
type RoundPolicy interface {
	// InitialRound is the type of the first round.
	InitialRound(g *Game) RoundType
	// NextRound returns the type and number of the round following finished.
	NextRound(g *Game, finished *Round) (RoundType, int)
	// Pipeline returns the ordered steps for a round type.
	Pipeline(g *Game, t RoundType) []StepFactory
}

// MapPolicy answers questions about the board.
type MapPolicy interface {
	// TerrainCost is the cost of laying a tile on the hex.
	TerrainCost(hex string) int
	// TileLays is the number of tile lays an entity has per turn.
	TileLays(g *Game, e entity.Entity) int
	// HomeHexes lists the home options of a corporation.
	HomeHexes(corp *entity.Corporation) []string
}

// RosterPolicy builds the entities of a game from its config.
type RosterPolicy interface {
	Corporations(cfg Config) ([]*entity.Corporation, error)
	Companies(cfg Config) ([]*entity.Company, error)
	Depot(cfg Config) (*entity.Depot, error)
}

// ScenarioPolicy holds variant rules that do not fit the other policies.
type ScenarioPolicy interface {
	// CanPar reports whether a corporation may be founded now.
	CanPar(g *Game, corp *entity.Corporation) bool
	// PlayerOrder returns the initial seating.
	PlayerOrder(g *Game, players []*entity.Player) []*entity.Player
	// PhaseEvent handles a variant phase event. It returns false for events it
	// does not know.
	PhaseEvent(g *Game, event string) bool
	// Floated runs after a corporation floats.
	Floated(g *Game, corp *entity.Corporation)
	// DividendMovement is the price movement for a distribution.
	DividendMovement(g *Game, corp *entity.Corporation, kind string, perShare int) []market.Direction
}

// Policies bundles the policy objects injected into a game.
type Policies struct {
	Round    RoundPolicy
	Map      MapPolicy
	Roster   RosterPolicy
	Scenario ScenarioPolicy
}

func (p Policies) validate() error {
	if p.Round == nil {
		return rules.Misconfigured("no round policy")
	}
	if p.Map == nil {
		return rules.Misconfigured("no map policy")
	}
	if p.Roster == nil {
		return rules.Misconfigured("no roster policy")
	}
	if p.Scenario == nil {
		return rules.Misconfigured("no scenario policy")
	}
	return nil
}

// DefaultMap charges nothing for terrain and uses the configured tile lays.
type DefaultMap struct {
	Terrain map[string]int
}

func (m DefaultMap) TerrainCost(hex string) int { return m.Terrain[hex] }

func (m DefaultMap) TileLays(g *Game, _ entity.Entity) int { return g.Config().TileLays }

func (m DefaultMap) HomeHexes(corp *entity.Corporation) []string { return corp.HomeHexes() }

// DefaultRoster builds entities straight from the config.
type DefaultRoster struct{}

func (DefaultRoster) Corporations(cfg Config) ([]*entity.Corporation, error) {
	corps := make([]*entity.Corporation, 0, len(cfg.Corporations))
	for _, spec := range cfg.Corporations {
		c, err := entity.NewCorporation(spec)
		if err != nil {
			return nil, rules.Misconfigured("%v", err)
		}
		corps = append(corps, c)
	}
	return corps, nil
}

func (DefaultRoster) Companies(cfg Config) ([]*entity.Company, error) {
	companies := make([]*entity.Company, 0, len(cfg.Companies))
	for _, spec := range cfg.Companies {
		if spec.ID == "" || spec.Value <= 0 {
			return nil, rules.Misconfigured("invalid company %+v", spec)
		}
		companies = append(companies, entity.NewCompany(spec.ID, spec.Name, spec.Value, spec.Revenue, spec.CountsForLimit))
	}
	return companies, nil
}

func (DefaultRoster) Depot(cfg Config) (*entity.Depot, error) {
	d, err := entity.NewDepot(cfg.Trains)
	if err != nil {
		return nil, rules.Misconfigured("%v", err)
	}
	return d, nil
}

// BaseScenario implements ScenarioPolicy with the common rules. Variants embed
// it and override what differs.
type BaseScenario struct{}

func (BaseScenario) CanPar(_ *Game, corp *entity.Corporation) bool {
	return !corp.IPOed() && !corp.Closed()
}

// PlayerOrder keeps the seating as given, or shuffles it with the game's
// seeded source when the variant randomizes players.
func (BaseScenario) PlayerOrder(g *Game, players []*entity.Player) []*entity.Player {
	out := append([]*entity.Player(nil), players...)
	if g.Config().RandomizePlayers {
		shuffle(g.Rand(), out)
	}
	return out
}

func (BaseScenario) PhaseEvent(*Game, string) bool { return false }

func (BaseScenario) Floated(*Game, *entity.Corporation) {}

func (BaseScenario) DividendMovement(g *Game, corp *entity.Corporation, kind string, perShare int) []market.Direction {
	switch kind {
	case action.DividendPayout:
		if g.Config().DoubleJumpPayout && corp.SharePrice() != nil && perShare >= 2*corp.SharePrice().Price {
			return []market.Direction{market.Right, market.Right}
		}
		if perShare == 0 {
			return []market.Direction{market.Left}
		}
		return []market.Direction{market.Right}
	case action.DividendWithhold:
		return []market.Direction{market.Left}
	default:
		return nil
	}
}

func shuffle(r *rand.Rand, players []*entity.Player) {
	r.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
}
