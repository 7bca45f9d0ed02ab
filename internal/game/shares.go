package game

import (
	"sort"

	"go.uber.org/zap"

	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/market"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// CertLimit is the certificate limit for the game's player count.
func (g *Game) CertLimit() int {
	return g.cfg.CertLimit[len(g.seats)]
}

// NumCerts counts the certificates p holds that count toward the limit.
func (g *Game) NumCerts(p *entity.Player) int {
	n := 0
	for _, c := range g.corporations {
		if sp := c.SharePrice(); sp != nil && !sp.CountsForLimit() {
			continue
		}
		n += len(c.SharesOf(p))
	}
	for _, co := range p.Companies() {
		if co.CountsForLimit() {
			n++
		}
	}
	return n
}

// CertsCountFor reports whether certificates of c count toward the limit at
// its current price.
func CertsCountFor(c *entity.Corporation) bool {
	sp := c.SharePrice()
	return sp == nil || sp.CountsForLimit()
}

// HoldingOK reports whether p may hold percent more of c.
func (g *Game) HoldingOK(p *entity.Player, c *entity.Corporation, percent int) bool {
	if sp := c.SharePrice(); sp != nil && sp.Is(market.CellUnlimited) {
		return true
	}
	return c.PercentOf(p)+percent <= c.MaxOwnership()
}

// MustSell reports whether p is over the certificate limit or an ownership
// ceiling.
func (g *Game) MustSell(p *entity.Player) bool {
	if g.NumCerts(p) > g.CertLimit() {
		return true
	}
	for _, c := range g.corporations {
		if !g.HoldingOK(p, c, 0) {
			return true
		}
	}
	return false
}

// Transfer moves cash and records the bank breaking.
func (g *Game) Transfer(from, to entity.CashHolder, amount int) error {
	if err := entity.Transfer(from, to, amount); err != nil {
		return rules.Violation("%v", err)
	}
	if from == entity.CashHolder(g.bank) && g.bank.Broken() && g.endReason == "" {
		g.Logf("The bank is broken")
		g.publish(rules.NewEvent(rules.EventBankBroken, "bank", ""))
		g.TriggerEnd(EndBankBroken)
	}
	return nil
}

// ipoReceiver is who is paid for shares bought from the corporation's IPO.
func (g *Game) ipoReceiver(c *entity.Corporation) entity.CashHolder {
	if c.Capitalization() == entity.CapitalizationIncremental {
		return c
	}
	return g.bank
}

// ParLot returns the certificates a founder receives: the president's
// certificate plus ordinaries up to the configured par size.
func (g *Game) ParLot(c *entity.Corporation) []*entity.Share {
	lot := []*entity.Share{c.PresidentShare()}
	for _, s := range c.SharesOf(c) {
		if len(lot) >= g.cfg.ParShares {
			break
		}
		if !s.President() {
			lot = append(lot, s)
		}
	}
	return lot
}

// ParCost is what the founder pays to par c at price.
func (g *Game) ParCost(c *entity.Corporation, price int) int {
	bundle, err := entity.NewShareBundle(g.ParLot(c))
	if err != nil {
		return 0
	}
	return bundle.PriceAt(price)
}

// Par founds c at the par cell and gives the founder the par lot.
func (g *Game) Par(p *entity.Player, c *entity.Corporation, cell *market.SharePrice) error {
	bundle, err := entity.NewShareBundle(g.ParLot(c))
	if err != nil {
		return rules.Misconfigured("%v", err)
	}
	cost := bundle.PriceAt(cell.Price)
	if err := g.Transfer(p, g.ipoReceiver(c), cost); err != nil {
		return err
	}
	g.market.SetPar(c, cell)
	c.SetPar(cell, g.roundCounter)
	entity.TransferShares(bundle, p)
	g.Logf("%s pars %s at %d and buys %d%% for %d", p.Name(), c.Name(), cell.Price, bundle.Percent(), cost)
	evt := rules.NewEventWithAmount(rules.EventCorporationParred, p.ID(), c.ID(), cell.Price)
	g.publish(evt)
	g.checkFloat(c)
	return nil
}

// BuyShares pays price for the bundle and moves it to p.
func (g *Game) BuyShares(p *entity.Player, bundle *entity.ShareBundle, price int) error {
	c := bundle.Corporation()
	var receiver entity.CashHolder = g.bank
	fromIPO := bundle.Owner() == entity.ShareHolder(c)
	if fromIPO {
		receiver = g.ipoReceiver(c)
	}
	if err := g.Transfer(p, receiver, price); err != nil {
		return err
	}
	entity.TransferShares(bundle, p)
	source := "the market"
	if fromIPO {
		source = "the IPO"
	}
	g.Logf("%s buys %d%% of %s from %s for %d", p.Name(), bundle.Percent(), c.Name(), source, price)
	g.publish(rules.NewEventWithAmount(rules.EventSharesBought, p.ID(), c.ID(), bundle.Percent()))
	g.updatePresidency(c, p)
	g.checkFloat(c)
	return nil
}

// updatePresidency hands the presidency to p if p now holds more than the
// president, or takes it out of receivership when p owns the certificate.
func (g *Game) updatePresidency(c *entity.Corporation, p *entity.Player) {
	pres := c.President()
	if pres == nil {
		return
	}
	if c.Receivership() {
		c.SetReceivership(false)
	}
	if pres == p || c.PercentOf(p) <= c.PercentOf(pres) {
		return
	}
	if err := entity.SwapPresidency(c, pres, p); err != nil {
		if g.logger != nil {
			g.logger.Debug("presidency unchanged", zap.String("corporation", c.ID()), zap.Error(err))
		}
		return
	}
	g.Logf("%s becomes president of %s", p.Name(), c.Name())
	g.publish(rules.NewEvent(rules.EventPresidentChanged, p.ID(), c.ID()))
}

func (g *Game) checkFloat(c *entity.Corporation) {
	if c.Floated() || !c.IPOed() || c.PercentToFloat() > 0 {
		return
	}
	c.Float()
	if c.Capitalization() == entity.CapitalizationFull {
		capital := c.ParPrice().Price * c.TotalPercent() / c.SharePercent()
		// Float capital comes from the bank even if it breaks the bank.
		_ = g.Transfer(g.bank, c, capital)
		g.Logf("%s floats and receives %d", c.Name(), capital)
	} else {
		g.Logf("%s floats", c.Name())
	}
	g.publish(rules.NewEventWithAmount(rules.EventCorporationFloated, c.ID(), "", c.Cash()))
	if g.cfg.HomeTokenTiming == HomeTokenFloat {
		g.placeHomeToken(c)
	}
	g.policies.Scenario.Floated(g, c)
}

// SalePlan describes a validated sale before it is executed.
type SalePlan struct {
	Seller       *entity.Player
	Corporation  *entity.Corporation
	Percent      int
	NewPresident *entity.Player
	Dump         bool
}

// PlanSale validates a sale of percent of c by p without changing state.
func (g *Game) PlanSale(p *entity.Player, c *entity.Corporation, percent int) (*SalePlan, error) {
	if c.SharePrice() == nil {
		return nil, rules.Violation("%s has no share price", c.Name())
	}
	if percent <= 0 || percent%c.SharePercent() != 0 {
		return nil, rules.Violation("cannot sell %d%% of %s", percent, c.Name())
	}
	held := c.PercentOf(p)
	if percent > held {
		return nil, rules.Violation("%s holds only %d%% of %s", p.Name(), held, c.Name())
	}
	if c.PercentOf(g.pool)+percent > g.cfg.MarketShareLimit {
		return nil, rules.Violation("the market cannot hold more than %d%% of %s", g.cfg.MarketShareLimit, c.Name())
	}
	plan := &SalePlan{Seller: p, Corporation: c, Percent: percent}
	if c.President() != p {
		return plan, nil
	}

	remaining := held - percent
	presPercent := c.PresidentPercent()
	if other, otherPercent := g.largestOtherHolder(c, p); other != nil && otherPercent > remaining && otherPercent >= presPercent {
		plan.NewPresident = other
		return plan, nil
	}
	if remaining >= presPercent {
		return plan, nil
	}
	if !g.cfg.PresidentSalesToMarket {
		return nil, rules.Violation("nobody can take over the presidency of %s", c.Name())
	}
	if percent < presPercent {
		need := presPercent - percent
		if ordinaryPercent(c, g.pool) < need {
			return nil, rules.Violation("the market cannot exchange %s's president's certificate", c.Name())
		}
	}
	plan.Dump = true
	return plan, nil
}

func ordinaryPercent(c *entity.Corporation, h entity.ShareHolder) int {
	total := 0
	for _, s := range c.SharesOf(h) {
		if !s.President() {
			total += s.Percent()
		}
	}
	return total
}

// largestOtherHolder returns the player other than p with the most shares of
// c; ties go to the first player after p in seating order.
func (g *Game) largestOtherHolder(c *entity.Corporation, p *entity.Player) (*entity.Player, int) {
	start := 0
	for i, s := range g.seats {
		if s == p {
			start = i
			break
		}
	}
	var best *entity.Player
	bestPercent := 0
	n := len(g.seats)
	for i := 1; i < n; i++ {
		other := g.seats[(start+i)%n]
		if other.Bankrupt() {
			continue
		}
		if pct := c.PercentOf(other); pct > bestPercent {
			best, bestPercent = other, pct
		}
	}
	return best, bestPercent
}

// SellShares executes a planned sale.
func (g *Game) SellShares(plan *SalePlan) error {
	p, c := plan.Seller, plan.Corporation
	price := c.SharePrice().Price * plan.Percent / c.SharePercent()

	switch {
	case plan.NewPresident != nil:
		if err := entity.SwapPresidency(c, p, plan.NewPresident); err != nil {
			return rules.Misconfigured("%v", err)
		}
		g.Logf("%s becomes president of %s", plan.NewPresident.Name(), c.Name())
		g.publish(rules.NewEvent(rules.EventPresidentChanged, plan.NewPresident.ID(), c.ID()))
	case plan.Dump:
		if err := g.dumpPresidency(c, p, plan.Percent); err != nil {
			return err
		}
	}

	if !plan.Dump {
		shares := pickOrdinaries(c, p, plan.Percent)
		bundle, err := entity.NewShareBundle(shares)
		if err != nil {
			return rules.Misconfigured("%v", err)
		}
		entity.TransferShares(bundle, g.pool)
	}
	if err := g.Transfer(g.bank, p, price); err != nil {
		return err
	}
	g.Logf("%s sells %d%% of %s for %d", p.Name(), plan.Percent, c.Name(), price)
	g.publish(rules.NewEventWithAmount(rules.EventSharesSold, p.ID(), c.ID(), plan.Percent))
	g.moveAfterSale(c, plan.Percent)
	return nil
}

// dumpPresidency puts the president's certificate in the pool. A partial sale
// takes ordinaries back from the pool; a larger one adds seller ordinaries.
func (g *Game) dumpPresidency(c *entity.Corporation, p *entity.Player, percent int) error {
	pres := c.PresidentShare()
	presBundle, err := entity.NewShareBundle([]*entity.Share{pres})
	if err != nil {
		return rules.Misconfigured("%v", err)
	}
	if percent < pres.Percent() {
		back := pickOrdinaries(c, g.pool, pres.Percent()-percent)
		backBundle, err := entity.NewShareBundle(back)
		if err != nil {
			return rules.Misconfigured("%v", err)
		}
		entity.TransferShares(backBundle, p)
	} else if extra := percent - pres.Percent(); extra > 0 {
		more, err := entity.NewShareBundle(pickOrdinaries(c, p, extra))
		if err != nil {
			return rules.Misconfigured("%v", err)
		}
		entity.TransferShares(more, g.pool)
	}
	entity.TransferShares(presBundle, g.pool)
	c.SetReceivership(true)
	g.Logf("%s enters receivership", c.Name())
	g.publish(rules.NewEvent(rules.EventReceivership, c.ID(), p.ID()))
	return nil
}

func pickOrdinaries(c *entity.Corporation, h entity.ShareHolder, percent int) []*entity.Share {
	var out []*entity.Share
	for _, s := range c.SharesOf(h) {
		if percent <= 0 {
			break
		}
		if !s.President() && s.Percent() <= percent {
			out = append(out, s)
			percent -= s.Percent()
		}
	}
	return out
}

func (g *Game) moveAfterSale(c *entity.Corporation, percent int) {
	switch g.cfg.SellMovement {
	case SellMovementDownShare:
		units := percent / c.SharePercent()
		dirs := make([]market.Direction, units)
		for i := range dirs {
			dirs[i] = market.Down
		}
		g.MoveSharePrice(c, dirs...)
	case SellMovementDownBlock:
		g.MoveSharePrice(c, market.Down)
	case SellMovementLeftBlock:
		g.MoveSharePrice(c, market.Left)
	}
}

// MoveSharePrice walks c along the market and applies cell effects.
func (g *Game) MoveSharePrice(c *entity.Corporation, dirs ...market.Direction) {
	if len(dirs) == 0 {
		return
	}
	from, to := g.market.Move(c, dirs...)
	if from == nil {
		return
	}
	if from != to {
		g.Logf("%s's share price moves from %d to %d", c.Name(), from.Price, to.Price)
		evt := rules.NewEventWithAmount(rules.EventPriceMoved, c.ID(), "", to.Price)
		evt.Metadata["from"] = from.ID()
		evt.Metadata["to"] = to.ID()
		g.publish(evt)
	}
	if to.Is(market.CellClose) {
		g.CloseCorporation(c)
		return
	}
	if to.Is(market.CellEndGame) {
		g.TriggerEnd(EndStockMarket)
	}
	if g.round != nil {
		g.round.RecalculateOrder()
	}
}

func (g *Game) moveSoldOutUp() {
	var soldOut []*entity.Corporation
	for _, c := range g.corporations {
		if c.Closed() || c.SharePrice() == nil {
			continue
		}
		if c.IPOPercent() == 0 && c.PercentOf(g.pool) == 0 {
			soldOut = append(soldOut, c)
		}
	}
	sort.SliceStable(soldOut, func(i, j int) bool { return market.Compare(soldOut[i], soldOut[j]) < 0 })
	for _, c := range soldOut {
		g.MoveSharePrice(c, market.Up)
	}
}
