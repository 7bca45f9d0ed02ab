// Package game is the round and step orchestration engine. A Game holds the
// entities, the market and the current Round; every state change flows from
// an Action routed through the round's step pipeline.
package game

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/market"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// maxRoundTransitions bounds the rounds built after a single action.
const maxRoundTransitions = 64

// PlayerSetup seats one player.
type PlayerSetup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Setup is everything besides the config needed to start a game.
type Setup struct {
	ID      string        `json:"id"`
	Players []PlayerSetup `json:"players"`
	Seed    int64         `json:"seed"`
}

// EndReason explains why a game ended or will end.
type EndReason string

const (
	EndBankBroken  EndReason = "bank_broken"
	EndStockMarket EndReason = "stock_market"
	EndBankruptcy  EndReason = "bankruptcy"
)

// Standing is one line of the final ranking.
type Standing struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
	NetWorth int    `json:"net_worth"`
	Rank     int    `json:"rank"`
}

// Option configures a game.
type Option func(*Game)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(g *Game) { g.logger = logger }
}

// WithEventBus publishes game events to bus.
func WithEventBus(bus *rules.EventBus) Option {
	return func(g *Game) { g.events = bus }
}

// Game is the top-level orchestrator. It is not safe for concurrent use; the
// engine serialises access per game.
type Game struct {
	id       string
	cfg      Config
	setup    Setup
	policies Policies
	logger   *zap.Logger
	events   *rules.EventBus
	rand     *rand.Rand

	players      []*entity.Player
	seats        []*entity.Player
	corporations []*entity.Corporation
	companies    []*entity.Company
	entities     map[string]entity.Entity
	bank         *entity.Bank
	pool         *entity.SharePool
	market       *market.Market
	depot        *entity.Depot
	phases       *rules.PhaseManager
	tiles        map[string]string
	loans        int

	round           *Round
	turn            int
	roundCounter    int
	operatingRounds int

	actions   []action.Action
	log       []string
	endReason EndReason
	finished  bool
	standings []Standing
}

// NewGame builds a game and starts its first round.
func NewGame(cfg Config, policies Policies, setup Setup, opts ...Option) (*Game, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := policies.validate(); err != nil {
		return nil, err
	}
	count := len(setup.Players)
	if count < cfg.MinPlayers || count > cfg.MaxPlayers {
		return nil, rules.Misconfigured("%s needs %d-%d players, got %d", cfg.Name, cfg.MinPlayers, cfg.MaxPlayers, count)
	}

	g := &Game{
		id:       setup.ID,
		cfg:      cfg,
		setup:    setup,
		policies: policies,
		rand:     rand.New(rand.NewSource(setup.Seed)),
		entities: make(map[string]entity.Entity),
		bank:     entity.NewBank(cfg.BankCash),
		pool:     entity.NewSharePool(),
		tiles:    make(map[string]string),
		loans:    cfg.TotalLoans,
		turn:     1,
	}
	for _, opt := range opts {
		opt(g)
	}

	var err error
	if g.market, err = market.Parse(cfg.Market); err != nil {
		return nil, rules.Misconfigured("%v", err)
	}
	if g.phases, err = rules.NewPhaseManager(cfg.Phases); err != nil {
		return nil, err
	}
	if g.corporations, err = policies.Roster.Corporations(cfg); err != nil {
		return nil, err
	}
	if g.companies, err = policies.Roster.Companies(cfg); err != nil {
		return nil, err
	}
	if g.depot, err = policies.Roster.Depot(cfg); err != nil {
		return nil, err
	}

	players := make([]*entity.Player, 0, count)
	for _, ps := range setup.Players {
		if strings.TrimSpace(ps.ID) == "" {
			return nil, rules.Misconfigured("player without id")
		}
		name := ps.Name
		if name == "" {
			name = ps.ID
		}
		players = append(players, entity.NewPlayer(ps.ID, name, 0))
	}
	for _, p := range players {
		if err := g.register(p); err != nil {
			return nil, err
		}
	}
	for _, c := range g.corporations {
		if err := g.register(c); err != nil {
			return nil, err
		}
	}
	for _, c := range g.companies {
		if err := g.register(c); err != nil {
			return nil, err
		}
	}

	g.players = policies.Scenario.PlayerOrder(g, players)
	g.seats = append([]*entity.Player(nil), g.players...)
	cash := cfg.StartingCash[count]
	for _, p := range g.players {
		if err := entity.Transfer(g.bank, p, cash); err != nil {
			return nil, rules.Misconfigured("%v", err)
		}
	}

	if err := g.startRound(policies.Round.InitialRound(g), 1); err != nil {
		return nil, err
	}
	if err := g.advanceRounds(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Game) register(e entity.Entity) error {
	if _, ok := g.entities[e.ID()]; ok {
		return rules.Misconfigured("duplicate entity id %s", e.ID())
	}
	g.entities[e.ID()] = e
	return nil
}

func (g *Game) ID() string                          { return g.id }
func (g *Game) Config() Config                      { return g.cfg }
func (g *Game) Setup() Setup                        { return g.setup }
func (g *Game) Policies() Policies                  { return g.policies }
func (g *Game) Logger() *zap.Logger                 { return g.logger }
func (g *Game) Rand() *rand.Rand                    { return g.rand }
func (g *Game) Bank() *entity.Bank                  { return g.bank }
func (g *Game) Pool() *entity.SharePool             { return g.pool }
func (g *Game) Market() *market.Market              { return g.market }
func (g *Game) Depot() *entity.Depot                { return g.depot }
func (g *Game) Phase() *rules.PhaseManager          { return g.phases }
func (g *Game) Round() *Round                       { return g.round }
func (g *Game) Turn() int                           { return g.turn }
func (g *Game) RoundCounter() int                   { return g.roundCounter }
func (g *Game) OperatingRounds() int                { return g.operatingRounds }
func (g *Game) Finished() bool                      { return g.finished }
func (g *Game) EndReason() EndReason                { return g.endReason }
func (g *Game) Companies() []*entity.Company        { return append([]*entity.Company(nil), g.companies...) }
func (g *Game) Corporations() []*entity.Corporation { return append([]*entity.Corporation(nil), g.corporations...) }
func (g *Game) Actions() []action.Action            { return append([]action.Action(nil), g.actions...) }
func (g *Game) Log() []string                       { return append([]string(nil), g.log...) }
func (g *Game) LoansAvailable() int                 { return g.loans }
func (g *Game) Standings() []Standing               { return append([]Standing(nil), g.standings...) }

// Players returns the players in priority order.
func (g *Game) Players() []*entity.Player {
	return append([]*entity.Player(nil), g.players...)
}

// Seats returns the players in seating order.
func (g *Game) Seats() []*entity.Player {
	return append([]*entity.Player(nil), g.seats...)
}

// Entity looks up a player, corporation or company by ID.
func (g *Game) Entity(id string) entity.Entity {
	return g.entities[id]
}

// Player looks up a player by ID.
func (g *Game) Player(id string) *entity.Player {
	p, _ := g.entities[id].(*entity.Player)
	return p
}

// Corporation looks up a corporation or minor by ID.
func (g *Game) Corporation(id string) *entity.Corporation {
	c, _ := g.entities[id].(*entity.Corporation)
	return c
}

// Company looks up a private company by ID.
func (g *Game) Company(id string) *entity.Company {
	c, _ := g.entities[id].(*entity.Company)
	return c
}

// TileColor returns the colour currently on a hex, empty when bare.
func (g *Game) TileColor(hex string) string {
	return g.tiles[hex]
}

// SetTile records the colour of the tile laid on a hex.
func (g *Game) SetTile(hex, color string) {
	g.tiles[hex] = color
}

// Tiles returns a copy of the laid tiles by hex.
func (g *Game) Tiles() map[string]string {
	out := make(map[string]string, len(g.tiles))
	for k, v := range g.tiles {
		out[k] = v
	}
	return out
}

// ActiveEntities lists who may act now.
func (g *Game) ActiveEntities() []entity.Entity {
	if g.finished || g.round == nil {
		return nil
	}
	return g.round.ActiveEntities()
}

// LegalActions lists the action kinds the entity may submit now.
func (g *Game) LegalActions(entityID string) []action.Kind {
	if g.finished || g.round == nil {
		return nil
	}
	e := g.Entity(entityID)
	if e == nil {
		return nil
	}
	return g.round.LegalActions(e)
}

// Logf appends a line to the human-readable game log.
func (g *Game) Logf(format string, args ...any) {
	g.log = append(g.log, fmt.Sprintf(format, args...))
}

func (g *Game) publish(evt rules.Event) {
	if g.events == nil {
		return
	}
	evt.Sequence = len(g.actions)
	g.events.Publish(evt)
}

// Publish sends an event to the game's event bus.
func (g *Game) Publish(evt rules.Event) {
	g.publish(evt)
}

// Process validates and applies one action. A rejected action leaves the game
// unchanged. Panics inside steps surface as configuration errors.
func (g *Game) Process(a action.Action) (err error) {
	if a == nil {
		return rules.Violation("no action")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = rules.Misconfigured("panic while processing %s: %v", a.Kind(), rec)
			if g.logger != nil {
				g.logger.Error("step panicked",
					zap.String("game_id", g.id),
					zap.String("kind", string(a.Kind())),
					zap.Any("panic", rec),
				)
			}
		}
	}()

	if err := a.Validate(); err != nil {
		return err
	}
	if g.finished {
		return rules.Violation("game is over")
	}
	e := g.Entity(a.EntityID())
	if e == nil {
		return rules.Violation("unknown entity %s", a.EntityID())
	}

	if msg, ok := a.(*action.Message); ok {
		g.actions = append(g.actions, a)
		g.Logf("%s: %s", e.Name(), msg.Text)
		return nil
	}

	if err := g.round.Process(a); err != nil {
		if g.logger != nil {
			g.logger.Debug("action rejected",
				zap.String("game_id", g.id),
				zap.String("kind", string(a.Kind())),
				zap.String("entity_id", a.EntityID()),
				zap.Error(err),
			)
		}
		return err
	}
	if g.endReason == EndBankruptcy {
		g.endGame()
	} else if err := g.advanceRounds(); err != nil {
		return err
	}
	g.actions = append(g.actions, a)
	return nil
}

func (g *Game) startRound(t RoundType, num int) error {
	r, err := newRound(g, t, num)
	if err != nil {
		return err
	}
	g.round = r
	g.roundCounter++
	if t == RoundOperating && num == 1 {
		g.operatingRounds = g.phases.OperatingRounds()
	}
	g.Logf("-- %s --", r.Name())
	if g.logger != nil {
		g.logger.Debug("round started",
			zap.String("game_id", g.id),
			zap.String("round", r.Name()),
			zap.Int("turn", g.turn),
		)
	}
	g.publish(rules.NewEvent(rules.EventRoundStarted, "", string(t)))
	r.kind.setup(r)
	return nil
}

// advanceRounds builds rounds while the current one is finished.
func (g *Game) advanceRounds() error {
	for i := 0; !g.finished && g.round.Finished(); i++ {
		if i >= maxRoundTransitions {
			return rules.Misconfigured("round policy did not produce a playable round")
		}
		finished := g.round
		finished.kind.finish(finished)
		g.publish(rules.NewEvent(rules.EventRoundFinished, "", string(finished.typ)))

		next, num := g.policies.Round.NextRound(g, finished)
		if g.shouldEnd(finished, next) {
			g.endGame()
			return nil
		}
		if next == RoundStock && finished.typ != RoundStock {
			if finished.typ != RoundAuction {
				g.turn++
			}
		}
		if err := g.startRound(next, num); err != nil {
			return err
		}
	}
	return nil
}

func (g *Game) shouldEnd(finished *Round, next RoundType) bool {
	switch g.endReason {
	case EndStockMarket:
		return finished.typ == RoundOperating
	case EndBankBroken:
		return finished.typ.Operating() && !next.Operating()
	case EndBankruptcy:
		return true
	}
	return false
}

// TriggerEnd records a game-end condition. The game ends when the condition's
// timing is reached.
func (g *Game) TriggerEnd(reason EndReason) {
	if g.endReason == "" || reason == EndBankruptcy {
		g.endReason = reason
		g.Logf("Game end triggered: %s", reason)
		if g.logger != nil {
			g.logger.Info("game end triggered",
				zap.String("game_id", g.id),
				zap.String("reason", string(reason)),
			)
		}
	}
}

func (g *Game) endGame() {
	g.finished = true
	g.standings = g.rank()
	g.Logf("-- Game over --")
	for _, s := range g.standings {
		g.Logf("%d. %s (%d)", s.Rank, s.Name, s.NetWorth)
	}
	if g.logger != nil {
		g.logger.Info("game ended",
			zap.String("game_id", g.id),
			zap.String("reason", string(g.endReason)),
		)
	}
	g.publish(rules.NewEvent(rules.EventGameEnded, "", string(g.endReason)))
}

// NetWorth values a player's cash, shares at the current price and companies.
func (g *Game) NetWorth(p *entity.Player) int {
	worth := p.Cash() - p.Debt()
	for _, c := range g.corporations {
		if c.Closed() || c.SharePrice() == nil {
			continue
		}
		worth += c.SharePrice().Price * c.PercentOf(p) / c.SharePercent()
	}
	for _, co := range p.Companies() {
		worth += co.Value()
	}
	return worth
}

// rank orders players by net worth; ties keep seating order.
func (g *Game) rank() []Standing {
	out := make([]Standing, 0, len(g.seats))
	for _, p := range g.seats {
		out = append(out, Standing{PlayerID: p.ID(), Name: p.Name(), NetWorth: g.NetWorth(p)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NetWorth > out[j].NetWorth })
	for i := range out {
		out[i].Rank = i + 1
		if i > 0 && out[i].NetWorth == out[i-1].NetWorth {
			out[i].Rank = out[i-1].Rank
		}
	}
	return out
}

// givePriorityAfter rotates the player order so the player after p leads.
func (g *Game) givePriorityAfter(p *entity.Player) {
	idx := -1
	for i, other := range g.seats {
		if other == p {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	n := len(g.seats)
	order := make([]*entity.Player, 0, n)
	for i := 1; i <= n; i++ {
		order = append(order, g.seats[(idx+i)%n])
	}
	g.players = order
	g.Logf("%s has priority deal", order[0].Name())
}

// PriorityDeal returns the player who acts first in the next stock round.
func (g *Game) PriorityDeal() *entity.Player {
	if len(g.players) == 0 {
		return nil
	}
	return g.players[0]
}

// OperatingOrder lists the entities that operate: minors by ID, then floated
// corporations by share price.
func (g *Game) OperatingOrder() []*entity.Corporation {
	var minors, corps []*entity.Corporation
	for _, c := range g.corporations {
		if c.Closed() || !c.Floated() {
			continue
		}
		if c.Type() == entity.TypeMinor {
			minors = append(minors, c)
		} else {
			corps = append(corps, c)
		}
	}
	sort.SliceStable(minors, func(i, j int) bool { return minors[i].ID() < minors[j].ID() })
	sort.SliceStable(corps, func(i, j int) bool { return market.Compare(corps[i], corps[j]) < 0 })
	return append(minors, corps...)
}
