package game_test

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
	"github.com/railyard/rails-server-go/internal/game/step"
)

func newRand(seed int64) *rand.Rand { return rand.New(rand.NewSource(seed)) }

var tileColors = []string{rules.ColorYellow, rules.ColorGreen, rules.ColorBrown}

// playRandom submits up to n actions picked at random from what the active
// entity may legally do. Bankruptcy is only chosen when nothing else is
// accepted. It returns the accepted actions and the checksum after each one;
// after, when set, runs after every accepted action.
func playRandom(g *game.Game, rng *rand.Rand, n int, after func(a action.Action)) ([]action.Action, []string, error) {
	var played []action.Action
	var sums []string
	for len(played) < n && !g.Finished() {
		active := g.ActiveEntities()
		if len(active) == 0 {
			return played, sums, fmt.Errorf("nobody can act in %s", g.Round().Name())
		}
		e := active[0]
		kinds := g.LegalActions(e.ID())
		var cands, last []action.Action
		for _, k := range kinds {
			if k == action.KindBankrupt {
				last = append(last, candidates(g, e, k)...)
				continue
			}
			cands = append(cands, candidates(g, e, k)...)
		}
		rng.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })
		cands = append(cands, last...)

		accepted := false
		for _, a := range cands {
			err := g.Process(a)
			if err == nil {
				accepted = true
				played = append(played, a)
				sums = append(sums, g.Checksum())
				if after != nil {
					after(a)
				}
				break
			}
			if !rules.IsViolation(err) {
				return played, sums, err
			}
		}
		if !accepted {
			return played, sums, fmt.Errorf("%s may %v in %s but every attempt was rejected", e.ID(), kinds, g.Round().Name())
		}
	}
	return played, sums, nil
}

// candidates lists concrete actions of kind that e might submit. Most of them
// are expected to be rejected.
func candidates(g *game.Game, e entity.Entity, kind action.Kind) []action.Action {
	id := e.ID()
	var out []action.Action
	switch kind {
	case action.KindPass:
		out = append(out, action.NewPass(id))

	case action.KindBid:
		auction, _ := g.Round().ActiveStep().(*step.WaterfallAuction)
		for _, co := range g.Companies() {
			if co.Owner() != nil || co.Closed() {
				continue
			}
			prices := []int{co.Value(), co.Value() + step.MinBidIncrement, co.Value() + 4*step.MinBidIncrement}
			if auction != nil {
				prices = append(prices, auction.Price(co), auction.HighestBid(co)+step.MinBidIncrement)
			}
			for _, price := range prices {
				if price > 0 {
					out = append(out, action.NewBid(id, co.ID(), price))
				}
			}
		}

	case action.KindPar:
		for _, c := range g.Corporations() {
			if c.IPOed() || c.Closed() {
				continue
			}
			for _, cell := range g.Market().ParPrices() {
				out = append(out, action.NewPar(id, c.ID(), cell.Price))
			}
		}

	case action.KindBuyShares:
		for _, c := range g.Corporations() {
			if !c.IPOed() || c.Closed() {
				continue
			}
			out = append(out,
				action.NewBuyShares(id, c.ID(), action.SourceIPO, c.SharePercent()),
				action.NewBuyShares(id, c.ID(), action.SourceMarket, c.SharePercent()),
				action.NewBuyPresidentShare(id, c.ID(), c.PresidentPercent()),
			)
		}

	case action.KindSellShares:
		p, ok := e.(*entity.Player)
		if !ok {
			break
		}
		for _, c := range g.Corporations() {
			held := c.PercentOf(p)
			for pct := c.SharePercent(); pct <= held; pct += c.SharePercent() {
				out = append(out, action.NewSellShares(id, c.ID(), pct))
			}
		}

	case action.KindBuyCompany:
		for _, co := range g.Companies() {
			if co.Closed() {
				continue
			}
			out = append(out,
				action.NewBuyCompany(id, co.ID(), co.Value()),
				action.NewBuyCompany(id, co.ID(), step.MinPrice(co)),
				action.NewBuyCompany(id, co.ID(), step.MaxPrice(co)),
			)
		}

	case action.KindSellCompany:
		if p, ok := e.(*entity.Player); ok {
			for _, co := range p.Companies() {
				out = append(out, action.NewSellCompany(id, co.ID()))
			}
		}

	case action.KindLayTile:
		for _, hex := range boardHexes(g) {
			for _, color := range tileColors {
				out = append(out, action.NewLayTile(id, hex, "t-"+color, color, 0))
			}
		}

	case action.KindPlaceToken:
		for _, hex := range boardHexes(g) {
			out = append(out, action.NewPlaceToken(id, hex))
		}

	case action.KindRunRoutes:
		c, ok := e.(*entity.Corporation)
		if !ok {
			break
		}
		var trains []string
		for _, t := range c.Trains() {
			if !t.Operated() && !t.Rusted() {
				trains = append(trains, t.ID())
			}
		}
		if len(trains) > 0 {
			out = append(out,
				action.NewRunRoutes(id, 30*len(trains), trains...),
				action.NewRunRoutes(id, 0, trains[0]),
			)
		}

	case action.KindDividend:
		for _, kind := range []string{action.DividendPayout, action.DividendWithhold, action.DividendHalf} {
			out = append(out, action.NewDividend(id, kind))
		}

	case action.KindBuyTrain:
		for _, t := range g.Depot().Available() {
			out = append(out, action.NewBuyTrain(id, t.ID(), t.Price()))
		}

	case action.KindDiscardTrain:
		if c, ok := e.(*entity.Corporation); ok {
			for _, t := range c.Trains() {
				out = append(out, action.NewDiscardTrain(id, t.ID()))
			}
		}

	case action.KindPayoffPlayerDebt:
		out = append(out, action.NewPayoffPlayerDebt(id))
	case action.KindTakeLoan:
		out = append(out, action.NewTakeLoan(id))
	case action.KindPayoffLoan:
		out = append(out, action.NewPayoffLoan(id))
	case action.KindConvert:
		out = append(out, action.NewConvert(id))
	case action.KindBankrupt:
		out = append(out, action.NewBankrupt(id))
	}
	return out
}

// boardHexes is every home hex, every hex with a tile and a few open hexes.
func boardHexes(g *game.Game) []string {
	seen := map[string]bool{}
	var out []string
	add := func(hex string) {
		if !seen[hex] {
			seen[hex] = true
			out = append(out, hex)
		}
	}
	for _, c := range g.Corporations() {
		for _, hex := range c.HomeHexes() {
			add(hex)
		}
	}
	tiles := make([]string, 0, len(g.Tiles()))
	for hex := range g.Tiles() {
		tiles = append(tiles, hex)
	}
	sort.Strings(tiles)
	for _, hex := range tiles {
		add(hex)
	}
	for _, hex := range []string{"X1", "X2", "X3"} {
		add(hex)
	}
	return out
}
