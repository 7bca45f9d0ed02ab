package game

import (
	"sort"

	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/market"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// cashHolder resolves an owner to something that can receive money.
func cashHolder(e entity.Entity) entity.CashHolder {
	switch v := e.(type) {
	case *entity.Player:
		return v
	case *entity.Corporation:
		return v
	}
	return nil
}

func (g *Game) payoutCompanies() {
	for _, co := range g.companies {
		if co.Closed() || co.Revenue() <= 0 || co.Owner() == nil {
			continue
		}
		to := cashHolder(co.Owner())
		if to == nil {
			continue
		}
		if err := g.Transfer(g.bank, to, co.Revenue()); err != nil {
			continue
		}
		g.Logf("%s collects %d from %s", co.Owner().Name(), co.Revenue(), co.Name())
	}
}

// placeHomeToken places the home station when there is a single option and
// queues a choice otherwise.
func (g *Game) placeHomeToken(c *entity.Corporation) {
	hexes := g.policies.Map.HomeHexes(c)
	if len(hexes) == 0 {
		return
	}
	for _, hex := range hexes {
		if c.HasTokenOn(hex) {
			return
		}
	}
	if len(hexes) == 1 {
		token := c.NextToken()
		if token == nil {
			return
		}
		token.Hex = hexes[0]
		g.Logf("%s places its home token on %s", c.Name(), hexes[0])
		g.publish(rules.NewEvent(rules.EventTokenPlaced, c.ID(), hexes[0]))
		return
	}
	if g.round == nil {
		return
	}
	for _, pt := range g.round.pendingTokens {
		if pt.Corporation == c {
			return
		}
	}
	g.round.AddPendingToken(PendingToken{Corporation: c, Hexes: hexes})
}

// PlaceToken spends the next unused token of c on hex.
func (g *Game) PlaceToken(c *entity.Corporation, hex string, price int) error {
	token := c.NextToken()
	if token == nil {
		return rules.Violation("%s has no tokens left", c.Name())
	}
	if c.HasTokenOn(hex) {
		return rules.Violation("%s already has a token on %s", c.Name(), hex)
	}
	if price > 0 {
		if err := g.Transfer(c, g.bank, price); err != nil {
			return err
		}
	}
	token.Hex = hex
	g.Logf("%s places a token on %s for %d", c.Name(), hex, price)
	g.publish(rules.NewEventWithAmount(rules.EventTokenPlaced, c.ID(), hex, price))
	return nil
}

// TrainAvailable reports whether t can be bought from the depot now.
func (g *Game) TrainAvailable(t *entity.Train) bool {
	for _, a := range g.depot.Available() {
		if a == t {
			return true
		}
	}
	return false
}

// BuyTrain buys t from the depot for c. The corporation must already hold
// the price.
func (g *Game) BuyTrain(c *entity.Corporation, t *entity.Train, price int) error {
	if !g.TrainAvailable(t) {
		return rules.Violation("train %s is not available", t.ID())
	}
	if c.Cash() < price {
		return rules.Violation("%s cannot afford %s", c.Name(), t.Name())
	}
	if err := g.Transfer(c, g.bank, price); err != nil {
		return err
	}
	if err := g.depot.Sell(t, c); err != nil {
		return rules.Misconfigured("%v", err)
	}
	if g.round != nil {
		g.round.SetTrainBought()
	}
	g.Logf("%s buys a %s train for %d", c.Name(), t.Name(), price)
	g.publish(rules.NewEventWithAmount(rules.EventTrainBought, c.ID(), t.ID(), price))
	g.trainAcquired(t.Name())
	return nil
}

// trainAcquired advances phases and rusts trains for the first train of a name.
func (g *Game) trainAcquired(name string) {
	for _, p := range g.phases.TrainBought(name) {
		g.enterPhase(p)
	}
	if rusted := g.depot.Rust(name); len(rusted) > 0 {
		for _, t := range rusted {
			g.Logf("%s train rusts", t.ID())
		}
		g.publish(rules.NewEventWithAmount(rules.EventTrainsRusted, "", name, len(rusted)))
	}
	for _, t := range g.depot.Obsolete(name) {
		g.Logf("%s train becomes obsolete", t.ID())
	}
}

func (g *Game) enterPhase(p rules.Phase) {
	g.Logf("-- Phase %s (train limit %d, %d operating rounds) --", p.Name, p.TrainLimit, p.OperatingRounds)
	if g.logger != nil {
		g.logger.Info("phase changed",
			zap.String("game_id", g.id),
			zap.String("phase", p.Name),
		)
	}
	g.publish(rules.NewEvent(rules.EventPhaseChanged, "", p.Name))
	for _, event := range p.Events {
		switch event {
		case rules.PhaseEventCloseCompanies:
			g.closeAllCompanies()
		case rules.PhaseEventFloat60:
			for _, c := range g.corporations {
				if !c.IPOed() {
					c.SetFloatPercent(60)
				}
			}
			g.Logf("Unstarted corporations now float at 60%%")
		case rules.PhaseEventFloat10Share:
			if !g.policies.Scenario.PhaseEvent(g, event) {
				g.floatTenShare()
			}
		default:
			if !g.policies.Scenario.PhaseEvent(g, event) && g.logger != nil {
				g.logger.Warn("unhandled phase event",
					zap.String("game_id", g.id),
					zap.String("event", event),
				)
			}
		}
	}
}

// floatTenShare turns every unstarted five-share corporation into a ten-share
// corporation that floats at 60%.
func (g *Game) floatTenShare() {
	for _, c := range g.corporations {
		if c.IPOed() || c.Closed() || !FiveShare(c) {
			continue
		}
		c.Restructure("10-share", 20, 10, 5, c)
		c.SetFloatPercent(60)
	}
	g.Logf("Unstarted corporations now form with ten shares")
}

func (g *Game) closeAllCompanies() {
	for _, co := range g.companies {
		if co.Closed() {
			continue
		}
		g.CloseCompany(co)
	}
}

// CloseCompany removes a private company from play.
func (g *Game) CloseCompany(co *entity.Company) {
	entity.CloseCompany(co)
	g.Logf("%s closes", co.Name())
	g.publish(rules.NewEvent(rules.EventCompanyClosed, co.ID(), ""))
}

// CrowdedCorporations lists operating corporations over the train limit.
func (g *Game) CrowdedCorporations() []*entity.Corporation {
	limit := g.phases.TrainLimit()
	var out []*entity.Corporation
	for _, c := range g.corporations {
		if !c.Closed() && len(c.Trains()) > limit {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return market.Compare(out[i], out[j]) < 0 })
	return out
}

// DiscardTrain returns a train of c to the depot.
func (g *Game) DiscardTrain(c *entity.Corporation, t *entity.Train) error {
	if t.Owner() != c {
		return rules.Violation("%s does not own %s", c.Name(), t.ID())
	}
	g.depot.Discard(t)
	g.Logf("%s discards %s", c.Name(), t.ID())
	g.publish(rules.NewEvent(rules.EventTrainDiscarded, c.ID(), t.ID()))
	return nil
}

func (g *Game) exportTrain() {
	t := g.depot.Export()
	if t == nil {
		return
	}
	g.Logf("%s train is exported", t.ID())
	g.publish(rules.NewEvent(rules.EventTrainExported, "", t.ID()))
	g.trainAcquired(t.Name())
}

// CloseCorporation removes c from play. Shares return to the corporation,
// trains to the depot and cash to the bank.
func (g *Game) CloseCorporation(c *entity.Corporation) {
	if c.Closed() {
		return
	}
	for _, co := range c.Companies() {
		g.CloseCompany(co)
	}
	g.depot.ReturnAll(c)
	_ = g.Transfer(c, g.bank, c.Cash())
	g.market.Remove(c)
	c.Close()
	if g.round != nil {
		g.round.ResolvePendingToken(c)
	}
	g.Logf("%s closes", c.Name())
	g.publish(rules.NewEvent(rules.EventCorporationClosed, c.ID(), ""))
}

// MaxLoans is the number of loans c may hold: one per share unit.
func (g *Game) MaxLoans(c *entity.Corporation) int {
	return c.TotalPercent() / c.SharePercent()
}

// CanTakeLoan reports whether c may borrow.
func (g *Game) CanTakeLoan(c *entity.Corporation) bool {
	return g.cfg.LoanAmount > 0 && g.loans > 0 && c.Loans() < g.MaxLoans(c)
}

// TakeLoan lends c one loan and moves its price left.
func (g *Game) TakeLoan(c *entity.Corporation) error {
	if !g.CanTakeLoan(c) {
		return rules.Violation("%s cannot take a loan", c.Name())
	}
	if err := g.Transfer(g.bank, c, g.cfg.LoanAmount); err != nil {
		return err
	}
	g.loans--
	c.AddLoan()
	g.Logf("%s takes a loan of %d", c.Name(), g.cfg.LoanAmount)
	g.publish(rules.NewEventWithAmount(rules.EventLoanTaken, c.ID(), "", g.cfg.LoanAmount))
	g.MoveSharePrice(c, market.Left)
	return nil
}

// PayoffLoan repays one loan of c and moves its price right.
func (g *Game) PayoffLoan(c *entity.Corporation) error {
	if c.Loans() == 0 {
		return rules.Violation("%s has no loans", c.Name())
	}
	if err := g.Transfer(c, g.bank, g.cfg.LoanAmount); err != nil {
		return err
	}
	g.loans++
	c.RemoveLoan()
	g.Logf("%s pays off a loan for %d", c.Name(), g.cfg.LoanAmount)
	g.publish(rules.NewEventWithAmount(rules.EventLoanPaid, c.ID(), "", g.cfg.LoanAmount))
	g.MoveSharePrice(c, market.Right)
	return nil
}

// FiveShare reports whether c is divided into five share units.
func FiveShare(c *entity.Corporation) bool {
	return c.TotalPercent()/c.SharePercent() == 5
}

// Convert turns a five-share corporation into a ten-share corporation. New
// shares go to the pool when floated, otherwise to the IPO, and a floated
// corporation is paid for them.
func (g *Game) Convert(c *entity.Corporation) error {
	if !FiveShare(c) {
		return rules.Violation("%s is not a five-share corporation", c.Name())
	}
	var owner entity.ShareHolder = c
	if c.Floated() {
		owner = g.pool
	}
	c.Restructure("10-share", 20, 10, 5, owner)
	if c.Floated() && c.SharePrice() != nil {
		capital := c.SharePrice().Price * 5
		if err := g.Transfer(g.bank, c, capital); err != nil {
			return err
		}
		g.Logf("%s converts to a ten-share corporation and receives %d", c.Name(), capital)
	} else {
		g.Logf("%s converts to a ten-share corporation", c.Name())
	}
	g.publish(rules.NewEvent(rules.EventCorporationConverted, c.ID(), ""))
	return nil
}

// DeclareBankrupt removes p from play. Depending on the variant the game ends
// at once, or the player's holdings go to the market and the game goes on
// while at least two players are solvent.
func (g *Game) DeclareBankrupt(p *entity.Player) error {
	if p.Bankrupt() {
		return rules.Violation("%s is already bankrupt", p.Name())
	}
	p.DeclareBankrupt()
	g.Logf("%s goes bankrupt", p.Name())
	g.publish(rules.NewEvent(rules.EventBankrupt, p.ID(), ""))
	if g.cfg.BankruptcyEndsGame || g.solventPlayers() < 2 {
		g.TriggerEnd(EndBankruptcy)
		return nil
	}
	for _, c := range g.corporations {
		shares := c.SharesOf(p)
		if len(shares) == 0 {
			continue
		}
		pres := c.President() == p
		bundle, err := entity.NewShareBundle(shares)
		if err != nil {
			return rules.Misconfigured("%v", err)
		}
		entity.TransferShares(bundle, g.pool)
		if pres {
			c.SetReceivership(true)
			g.publish(rules.NewEvent(rules.EventReceivership, c.ID(), p.ID()))
		}
	}
	for _, co := range p.Companies() {
		g.CloseCompany(co)
	}
	_ = g.Transfer(p, g.bank, p.Cash())
	return nil
}

func (g *Game) solventPlayers() int {
	n := 0
	for _, p := range g.players {
		if !p.Bankrupt() {
			n++
		}
	}
	return n
}

// PayDebt repays as much of p's debt as cash allows.
func (g *Game) PayDebt(p *entity.Player) int {
	paid := p.PayDebt(g.bank)
	if paid > 0 {
		g.Logf("%s pays %d of debt", p.Name(), paid)
	}
	return paid
}

// Distribute pays amount of revenue to c's share holders. Players are paid by
// the bank, pool shares pay the corporation and IPO shares pay nothing.
func (g *Game) Distribute(c *entity.Corporation, amount int) error {
	if amount <= 0 {
		return nil
	}
	for _, h := range c.Holders() {
		share := amount * c.PercentOf(h) / 100
		if share == 0 {
			continue
		}
		var to entity.CashHolder
		switch holder := h.(type) {
		case *entity.Player:
			to = holder
		case *entity.SharePool:
			to = c
		default:
			continue
		}
		if err := g.Transfer(g.bank, to, share); err != nil {
			return err
		}
	}
	g.Logf("%s pays %d", c.Name(), amount)
	g.publish(rules.NewEventWithAmount(rules.EventDividendPaid, c.ID(), "", amount))
	return nil
}

// Withhold puts amount of revenue into c's treasury.
func (g *Game) Withhold(c *entity.Corporation, amount int) error {
	if amount <= 0 {
		return nil
	}
	if err := g.Transfer(g.bank, c, amount); err != nil {
		return err
	}
	g.Logf("%s withholds %d", c.Name(), amount)
	return nil
}

// BuyCompany moves a private company from seller, or the bank when seller is
// nil, to buyer for price.
func (g *Game) BuyCompany(buyer entity.CashHolder, co *entity.Company, price int) error {
	var seller entity.CashHolder = g.bank
	if owner := co.Owner(); owner != nil {
		if seller = cashHolder(owner); seller == nil {
			return rules.Violation("%s cannot be sold by %s", co.Name(), owner.Name())
		}
	}
	if err := g.Transfer(buyer, seller, price); err != nil {
		return err
	}
	entity.TransferCompany(co, buyer)
	g.Logf("%s buys %s from %s for %d", buyer.Name(), co.Name(), seller.Name(), price)
	g.publish(rules.NewEventWithAmount(rules.EventCompanyBought, buyer.ID(), co.ID(), price))
	return nil
}

// SellCompany returns p's company to the bank for price.
func (g *Game) SellCompany(p *entity.Player, co *entity.Company, price int) error {
	if co.Owner() != entity.Entity(p) {
		return rules.Violation("%s does not own %s", p.Name(), co.Name())
	}
	if err := g.Transfer(g.bank, p, price); err != nil {
		return err
	}
	entity.TransferCompany(co, nil)
	g.Logf("%s sells %s to the bank for %d", p.Name(), co.Name(), price)
	g.publish(rules.NewEventWithAmount(rules.EventCompanySold, p.ID(), co.ID(), price))
	return nil
}

// LayTile records a tile lay on hex and charges the terrain cost of a bare hex.
func (g *Game) LayTile(e entity.Entity, hex, color string) error {
	current := g.tiles[hex]
	if !g.phases.TileColorAvailable(color) {
		return rules.Violation("%s tiles are not available in phase %s", color, g.phases.Name())
	}
	if !rules.CanUpgrade(current, color) {
		return rules.Violation("cannot lay %s on %s showing %q", color, hex, current)
	}
	if current == "" {
		if cost := g.policies.Map.TerrainCost(hex); cost > 0 {
			payer := cashHolder(e)
			if payer == nil {
				return rules.Violation("%s cannot pay for terrain", e.Name())
			}
			if err := g.Transfer(payer, g.bank, cost); err != nil {
				return err
			}
			g.Logf("%s pays %d for terrain on %s", e.Name(), cost, hex)
		}
	}
	g.tiles[hex] = color
	g.Logf("%s lays a %s tile on %s", e.Name(), color, hex)
	g.publish(rules.NewEvent(rules.EventTileLaid, e.ID(), hex))
	return nil
}
