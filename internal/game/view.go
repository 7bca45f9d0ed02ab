package game

import (
	"sort"

	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
)

// View is a read-only snapshot of a game for clients.
type View struct {
	ID           string            `json:"id"`
	Variant      string            `json:"variant"`
	Turn         int               `json:"turn"`
	Actions      int               `json:"actions"`
	Round        RoundView         `json:"round"`
	Phase        PhaseView         `json:"phase"`
	Bank         int               `json:"bank"`
	BankBroken   bool              `json:"bank_broken"`
	LoansLeft    int               `json:"loans_left"`
	PriorityDeal string            `json:"priority_deal,omitempty"`
	Players      []PlayerView      `json:"players"`
	Corporations []CorporationView `json:"corporations"`
	Companies    []CompanyView     `json:"companies"`
	Market       []MarketCellView  `json:"market"`
	Depot        DepotView         `json:"depot"`
	Tiles        map[string]string `json:"tiles,omitempty"`
	Finished     bool              `json:"finished"`
	EndReason    EndReason         `json:"end_reason,omitempty"`
	Standings    []Standing        `json:"standings,omitempty"`
}

// RoundView describes the current round.
type RoundView struct {
	Type           RoundType                `json:"type"`
	Name           string                   `json:"name"`
	Num            int                      `json:"num"`
	EntityIndex    int                      `json:"entity_index"`
	Entities       []string                 `json:"entities"`
	ActiveEntities []string                 `json:"active_entities"`
	ActiveStep     string                   `json:"active_step,omitempty"`
	LegalActions   map[string][]action.Kind `json:"legal_actions,omitempty"`
}

// PhaseView describes the current phase.
type PhaseView struct {
	Name            string   `json:"name"`
	TrainLimit      int      `json:"train_limit"`
	OperatingRounds int      `json:"operating_rounds"`
	Tiles           []string `json:"tiles"`
}

// PlayerView is a player's public state.
type PlayerView struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Cash      int      `json:"cash"`
	Debt      int      `json:"debt,omitempty"`
	Passed    bool     `json:"passed"`
	Bankrupt  bool     `json:"bankrupt"`
	Certs     int      `json:"certs"`
	NetWorth  int      `json:"net_worth"`
	Companies []string `json:"companies,omitempty"`
}

// CorporationView is a corporation's public state.
type CorporationView struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Kind         string           `json:"kind"`
	Cash         int              `json:"cash"`
	Lifecycle    entity.Lifecycle `json:"lifecycle"`
	SharePrice   int              `json:"share_price,omitempty"`
	Cell         string           `json:"cell,omitempty"`
	ParPrice     int              `json:"par_price,omitempty"`
	President    string           `json:"president,omitempty"`
	Holdings     map[string]int   `json:"holdings"`
	Trains       []string         `json:"trains,omitempty"`
	Tokens       []string         `json:"tokens,omitempty"`
	TokensLeft   int              `json:"tokens_left"`
	Loans        int              `json:"loans,omitempty"`
	Companies    []string         `json:"companies,omitempty"`
	FloatPercent int              `json:"float_percent"`
}

// CompanyView is a private company's public state.
type CompanyView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Value   int    `json:"value"`
	Revenue int    `json:"revenue"`
	Owner   string `json:"owner,omitempty"`
	Closed  bool   `json:"closed"`
}

// MarketCellView is an occupied market cell.
type MarketCellView struct {
	Cell         string   `json:"cell"`
	Price        int      `json:"price"`
	Corporations []string `json:"corporations"`
}

// DepotView lists the trains left to buy.
type DepotView struct {
	Available []string `json:"available"`
	Upcoming  []string `json:"upcoming"`
	Discarded []string `json:"discarded,omitempty"`
}

// View builds a snapshot of the game. It does not change state.
func (g *Game) View() View {
	v := View{
		ID:         g.id,
		Variant:    g.cfg.Name,
		Turn:       g.turn,
		Actions:    len(g.actions),
		Bank:       g.bank.Cash(),
		BankBroken: g.bank.Broken(),
		LoansLeft:  g.loans,
		Finished:   g.finished,
		EndReason:  g.endReason,
		Standings:  g.Standings(),
		Tiles:      g.Tiles(),
	}
	if p := g.PriorityDeal(); p != nil {
		v.PriorityDeal = p.ID()
	}
	phase := g.phases.Current()
	v.Phase = PhaseView{
		Name:            phase.Name,
		TrainLimit:      phase.TrainLimit,
		OperatingRounds: phase.OperatingRounds,
		Tiles:           append([]string(nil), phase.TileColors...),
	}
	if r := g.round; r != nil {
		v.Round = g.roundView(r)
	}

	for _, p := range g.seats {
		pv := PlayerView{
			ID:       p.ID(),
			Name:     p.Name(),
			Cash:     p.Cash(),
			Debt:     p.Debt(),
			Passed:   p.Passed(),
			Bankrupt: p.Bankrupt(),
			Certs:    g.NumCerts(p),
			NetWorth: g.NetWorth(p),
		}
		for _, co := range p.Companies() {
			pv.Companies = append(pv.Companies, co.ID())
		}
		v.Players = append(v.Players, pv)
	}

	for _, c := range g.corporations {
		v.Corporations = append(v.Corporations, corporationView(c))
	}

	for _, co := range g.companies {
		cv := CompanyView{ID: co.ID(), Name: co.Name(), Value: co.Value(), Revenue: co.Revenue(), Closed: co.Closed()}
		if owner := co.Owner(); owner != nil {
			cv.Owner = owner.ID()
		}
		v.Companies = append(v.Companies, cv)
	}

	seen := make(map[string]bool)
	for _, c := range g.corporations {
		sp := c.SharePrice()
		if sp == nil || seen[sp.ID()] {
			continue
		}
		seen[sp.ID()] = true
		v.Market = append(v.Market, MarketCellView{Cell: sp.ID(), Price: sp.Price, Corporations: sp.Corporations()})
	}
	sort.Slice(v.Market, func(i, j int) bool { return v.Market[i].Cell < v.Market[j].Cell })

	for _, t := range g.depot.Available() {
		v.Depot.Available = append(v.Depot.Available, t.ID())
	}
	for _, t := range g.depot.Upcoming() {
		v.Depot.Upcoming = append(v.Depot.Upcoming, t.ID())
	}
	for _, t := range g.depot.Discarded() {
		v.Depot.Discarded = append(v.Depot.Discarded, t.ID())
	}
	return v
}

func (g *Game) roundView(r *Round) RoundView {
	rv := RoundView{
		Type:         r.typ,
		Name:         r.Name(),
		Num:          r.num,
		EntityIndex:  r.entityIndex,
		LegalActions: make(map[string][]action.Kind),
	}
	for _, e := range r.entities {
		rv.Entities = append(rv.Entities, e.ID())
	}
	if g.finished {
		return rv
	}
	for _, e := range r.ActiveEntities() {
		rv.ActiveEntities = append(rv.ActiveEntities, e.ID())
		rv.LegalActions[e.ID()] = r.LegalActions(e)
	}
	if s := r.ActiveStep(); s != nil {
		rv.ActiveStep = s.Name()
	}
	return rv
}

func corporationView(c *entity.Corporation) CorporationView {
	cv := CorporationView{
		ID:           c.ID(),
		Name:         c.Name(),
		Kind:         c.Kind(),
		Cash:         c.Cash(),
		Lifecycle:    c.Lifecycle(),
		Holdings:     make(map[string]int),
		Loans:        c.Loans(),
		FloatPercent: c.FloatPercent(),
	}
	if sp := c.SharePrice(); sp != nil {
		cv.SharePrice = sp.Price
		cv.Cell = sp.ID()
	}
	if pp := c.ParPrice(); pp != nil {
		cv.ParPrice = pp.Price
	}
	if p := c.President(); p != nil {
		cv.President = p.ID()
	}
	for _, h := range c.Holders() {
		cv.Holdings[h.ID()] = c.PercentOf(h)
	}
	for _, t := range c.Trains() {
		cv.Trains = append(cv.Trains, t.ID())
	}
	for _, t := range c.Tokens() {
		if t.Used() {
			cv.Tokens = append(cv.Tokens, t.Hex)
		} else {
			cv.TokensLeft++
		}
	}
	for _, co := range c.Companies() {
		cv.Companies = append(cv.Companies, co.ID())
	}
	return cv
}
