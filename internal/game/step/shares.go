// Package step holds the rule modules that rounds compose into pipelines.
package step

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/market"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// ShareOptions selects the optional parts of the share trading step.
type ShareOptions struct {
	// Companies lets players buy private companies from the bank and sell
	// them back.
	Companies bool
	// PlayerDebt offers payoff_player_debt and blocks buying while a player
	// owes money.
	PlayerDebt bool
}

// BuySellParShares is the stock round step: buy, sell and par.
type BuySellParShares struct {
	game.BaseStep
	opts ShareOptions

	// boughtChecks extend Bought; any true result counts as a buy.
	boughtChecks []func(p *entity.Player) bool
}

// NewBuySellParShares builds the plain share step.
func NewBuySellParShares(g *game.Game, r *game.Round) *BuySellParShares {
	return newShareStep(g, r, ShareOptions{})
}

// NewBuySellParSharesCompanies builds the share step that also trades private
// companies with the bank.
func NewBuySellParSharesCompanies(g *game.Game, r *game.Round) *BuySellParShares {
	return newShareStep(g, r, ShareOptions{Companies: true})
}

// NewBuySellParSharesDebt builds the share step for variants with player debt.
func NewBuySellParSharesDebt(g *game.Game, r *game.Round) *BuySellParShares {
	return newShareStep(g, r, ShareOptions{PlayerDebt: true})
}

func newShareStep(g *game.Game, r *game.Round, opts ShareOptions) *BuySellParShares {
	s := &BuySellParShares{BaseStep: game.NewBaseStep(g, r), opts: opts}
	game.On(&s.BaseStep, action.KindBuyShares, s.buyShares)
	game.On(&s.BaseStep, action.KindSellShares, s.sellShares)
	game.On(&s.BaseStep, action.KindPar, s.par)
	game.On(&s.BaseStep, action.KindPass, s.pass)
	if opts.Companies {
		game.On(&s.BaseStep, action.KindBuyCompany, s.buyCompany)
		game.On(&s.BaseStep, action.KindSellCompany, s.sellCompany)
	}
	if opts.PlayerDebt {
		game.On(&s.BaseStep, action.KindPayoffPlayerDebt, s.payoffDebt)
		s.boughtChecks = append(s.boughtChecks, s.paidDebt)
	}
	return s
}

func (s *BuySellParShares) Name() string { return "Buy/Sell/Par Shares" }

// Actions lists what the current player may do.
func (s *BuySellParShares) Actions(e entity.Entity) []action.Kind {
	p, ok := e.(*entity.Player)
	if !ok || p.Bankrupt() || !game.SameEntity(e, s.CurrentEntity()) {
		return nil
	}
	if s.Game.MustSell(p) {
		if s.canSellAny(p) {
			return []action.Kind{action.KindSellShares}
		}
		return nil
	}

	debtFree := !s.opts.PlayerDebt || p.Debt() == 0
	var kinds []action.Kind
	if debtFree && s.canBuyAny(p) {
		kinds = append(kinds, action.KindBuyShares)
	}
	if debtFree && s.canParAny(p) {
		kinds = append(kinds, action.KindPar)
	}
	if s.opts.Companies && s.canBuyAnyCompany(p) {
		kinds = append(kinds, action.KindBuyCompany)
	}
	if s.opts.PlayerDebt && p.Debt() > 0 && p.Cash() > 0 {
		kinds = append(kinds, action.KindPayoffPlayerDebt)
	}
	if s.canSellAny(p) {
		kinds = append(kinds, action.KindSellShares)
	}
	if s.opts.Companies && s.canSellAnyCompany(p) {
		kinds = append(kinds, action.KindSellCompany)
	}
	if len(kinds) > 0 {
		kinds = append(kinds, action.KindPass)
	}
	return kinds
}

// Pass ends the player's turn. A player who did nothing this turn has passed
// for the round; one who acted has not.
func (s *BuySellParShares) Pass() {
	s.BaseStep.Pass()
	p, ok := s.CurrentEntity().(*entity.Player)
	if !ok {
		return
	}
	if len(s.Round.CurrentActions()) == 0 {
		p.Pass()
	} else {
		p.Unpass()
	}
}

// Skip behaves like Pass.
func (s *BuySellParShares) Skip() { s.Pass() }

// Bought reports whether p bought or parred this turn, or did anything a
// variant counts as a buy.
func (s *BuySellParShares) Bought(p *entity.Player) bool {
	for _, a := range s.Round.CurrentActions() {
		if a.EntityID() != p.ID() {
			continue
		}
		switch a.Kind() {
		case action.KindBuyShares, action.KindPar, action.KindBuyCompany:
			return true
		}
	}
	for _, check := range s.boughtChecks {
		if check(p) {
			return true
		}
	}
	return false
}

// Sold reports whether p sold anything this turn.
func (s *BuySellParShares) Sold(p *entity.Player) bool {
	return s.Round.SoldThisTurn(p)
}

// AddBoughtCheck extends Bought with a variant rule.
func (s *BuySellParShares) AddBoughtCheck(check func(p *entity.Player) bool) {
	s.boughtChecks = append(s.boughtChecks, check)
}

func (s *BuySellParShares) paidDebt(p *entity.Player) bool {
	for _, a := range s.Round.CurrentActions() {
		if a.Kind() == action.KindPayoffPlayerDebt && a.EntityID() == p.ID() {
			return true
		}
	}
	return false
}

func (s *BuySellParShares) soldThisRound(p *entity.Player, id string) bool {
	_, sold := s.Round.Sold(p, id)
	return sold
}

// canBuyMultiple allows another buy of c this turn when c sits in a multiple
// buy cell and every earlier buy this turn was of c.
func (s *BuySellParShares) canBuyMultiple(p *entity.Player, c *entity.Corporation) bool {
	sp := c.SharePrice()
	if sp == nil || !sp.Is(market.CellMultipleBuy) {
		return false
	}
	for _, a := range s.Round.CurrentActions() {
		if a.EntityID() != p.ID() {
			continue
		}
		switch v := a.(type) {
		case *action.Par, *action.BuyCompany:
			return false
		case *action.BuyShares:
			if v.Corporation != c.ID() {
				return false
			}
		}
	}
	return true
}

func (s *BuySellParShares) certsFit(p *entity.Player, c *entity.Corporation, certs int) bool {
	if !game.CertsCountFor(c) {
		return true
	}
	return s.Game.NumCerts(p)+certs <= s.Game.CertLimit()
}

// canBuy checks a purchase of bundle by p without changing state.
func (s *BuySellParShares) canBuy(p *entity.Player, bundle *entity.ShareBundle) error {
	c := bundle.Corporation()
	if c.Closed() || !c.IPOed() {
		return rules.Violation("%s is not open for trading", c.Name())
	}
	if s.opts.PlayerDebt && p.Debt() > 0 {
		return rules.Violation("%s must pay off debt before buying", p.Name())
	}
	if s.soldThisRound(p, c.ID()) {
		return rules.Violation("%s sold %s this round", p.Name(), c.Name())
	}
	if s.Bought(p) && !s.canBuyMultiple(p, c) {
		return rules.Violation("%s already bought this turn", p.Name())
	}
	if bundle.Units() > 1 && !bundle.PresidentsShare() && !s.canBuyMultiple(p, c) {
		return rules.Violation("only one certificate of %s may be bought at a time", c.Name())
	}
	if price := s.purchasePrice(bundle); p.Cash() < price {
		return rules.Violation("%s cannot afford %d", p.Name(), price)
	}
	if !s.Game.HoldingOK(p, c, bundle.Percent()) {
		return rules.Violation("%s would hold more than %d%% of %s", p.Name(), c.MaxOwnership(), c.Name())
	}
	if !s.certsFit(p, c, len(bundle.Shares())) {
		return rules.Violation("%s is at the certificate limit", p.Name())
	}
	if bundle.PresidentsShare() && bundle.Owner() == entity.ShareHolder(s.Game.Pool()) {
		need := c.PresidentPercent() - c.SharePercent()
		if c.PercentOf(p) < need {
			return rules.Violation("%s needs %d%% of %s to buy the president's certificate", p.Name(), need, c.Name())
		}
	}
	return nil
}

// purchasePrice is par for IPO shares and the market price for pool shares.
func (s *BuySellParShares) purchasePrice(bundle *entity.ShareBundle) int {
	c := bundle.Corporation()
	if bundle.Owner() == entity.ShareHolder(c) && c.ParPrice() != nil {
		return bundle.PriceAt(c.ParPrice().Price)
	}
	return bundle.Price()
}

// bundleFor assembles percent of c from the source holder.
func (s *BuySellParShares) bundleFor(c *entity.Corporation, source string, percent int, president bool) (*entity.ShareBundle, error) {
	var holder entity.ShareHolder = c
	if source == action.SourceMarket {
		holder = s.Game.Pool()
	}
	var picked []*entity.Share
	remaining := percent
	if president {
		pres := c.PresidentShare()
		if pres.Owner() != holder {
			return nil, rules.Violation("the president's certificate of %s is not available", c.Name())
		}
		picked = append(picked, pres)
		remaining -= pres.Percent()
	}
	for _, sh := range c.SharesOf(holder) {
		if remaining <= 0 {
			break
		}
		if !sh.President() && sh.Percent() <= remaining {
			picked = append(picked, sh)
			remaining -= sh.Percent()
		}
	}
	if remaining != 0 || len(picked) == 0 {
		return nil, rules.Violation("%d%% of %s is not available from the %s", percent, c.Name(), source)
	}
	return entity.NewShareBundle(picked)
}

func (s *BuySellParShares) canBuyAny(p *entity.Player) bool {
	for _, c := range s.Game.Corporations() {
		if c.Closed() || !c.IPOed() {
			continue
		}
		for _, source := range []string{action.SourceIPO, action.SourceMarket} {
			bundle, err := s.bundleFor(c, source, c.SharePercent(), false)
			if err == nil && s.canBuy(p, bundle) == nil {
				return true
			}
		}
		if bundle, err := s.bundleFor(c, action.SourceMarket, c.PresidentPercent(), true); err == nil && s.canBuy(p, bundle) == nil {
			return true
		}
	}
	return false
}

func (s *BuySellParShares) parCell(c *entity.Corporation, price int) *market.SharePrice {
	cell := s.Game.Market().FindPar(price)
	if cell == nil || !cell.Is(market.CellPar) {
		return nil
	}
	return cell
}

func (s *BuySellParShares) canPar(p *entity.Player, c *entity.Corporation, cell *market.SharePrice) error {
	if !s.Game.Policies().Scenario.CanPar(s.Game, c) {
		return rules.Violation("%s cannot be parred now", c.Name())
	}
	if s.opts.PlayerDebt && p.Debt() > 0 {
		return rules.Violation("%s must pay off debt before parring", p.Name())
	}
	if s.Bought(p) {
		return rules.Violation("%s already bought this turn", p.Name())
	}
	if cell == nil {
		return rules.Violation("not a par price")
	}
	lot := s.Game.ParLot(c)
	if s.Game.NumCerts(p)+len(lot) > s.Game.CertLimit() {
		return rules.Violation("%s is at the certificate limit", p.Name())
	}
	if cost := s.Game.ParCost(c, cell.Price); p.Cash() < cost {
		return rules.Violation("%s cannot afford %d to par %s", p.Name(), cost, c.Name())
	}
	return nil
}

func (s *BuySellParShares) canParAny(p *entity.Player) bool {
	pars := s.Game.Market().ParPrices()
	for _, c := range s.Game.Corporations() {
		if c.IPOed() || c.Closed() {
			continue
		}
		for _, cell := range pars {
			if s.canPar(p, c, cell) == nil {
				return true
			}
		}
	}
	return false
}

// canSell checks the sale rules that do not depend on the amount.
func (s *BuySellParShares) canSell(p *entity.Player, c *entity.Corporation) error {
	if c.Closed() || c.SharePrice() == nil {
		return rules.Violation("%s has no share price", c.Name())
	}
	cfg := s.Game.Config()
	switch cfg.SellAfter {
	case game.SellAfterFirst:
		if s.Game.Turn() <= 1 {
			return rules.Violation("shares cannot be sold in the first stock round")
		}
	case game.SellAfterIPO:
		if c.ParRound() == s.Game.RoundCounter() {
			return rules.Violation("%s cannot be sold in the round it was parred", c.Name())
		}
	case game.SellAfterOperate:
		if !c.Operated() {
			return rules.Violation("%s cannot be sold before it operates", c.Name())
		}
	}
	if cfg.SellBuyOrder == game.SellBuy && s.Bought(p) {
		return rules.Violation("%s cannot sell after buying", p.Name())
	}
	if cfg.MustSellInBlocks {
		if t, ok := s.Round.Sold(p, c.ID()); ok && t == game.SoldNow {
			return rules.Violation("%s already sold %s this turn", p.Name(), c.Name())
		}
	}
	return nil
}

func (s *BuySellParShares) canSellAny(p *entity.Player) bool {
	for _, c := range s.Game.Corporations() {
		if c.PercentOf(p) == 0 || s.canSell(p, c) != nil {
			continue
		}
		if _, err := s.Game.PlanSale(p, c, c.SharePercent()); err == nil {
			return true
		}
		if _, err := s.Game.PlanSale(p, c, c.PercentOf(p)); err == nil {
			return true
		}
	}
	return false
}

func (s *BuySellParShares) canBuyAnyCompany(p *entity.Player) bool {
	if s.Bought(p) || p.Cash() <= 0 || s.Game.NumCerts(p) >= s.Game.CertLimit() {
		return false
	}
	for _, co := range s.Game.Companies() {
		if co.Owner() == nil && !co.Closed() && !s.soldThisRound(p, co.ID()) && p.Cash() >= co.Value() {
			return true
		}
	}
	return false
}

func (s *BuySellParShares) canSellAnyCompany(p *entity.Player) bool {
	return !s.Bought(p) && s.Game.Turn() > 1 && len(p.Companies()) > 0
}

func (s *BuySellParShares) player(a action.Action) (*entity.Player, error) {
	p := s.Game.Player(a.EntityID())
	if p == nil || !game.SameEntity(p, s.CurrentEntity()) {
		return nil, rules.Violation("it is not %s's turn", a.EntityID())
	}
	return p, nil
}

func (s *BuySellParShares) corporation(id string) (*entity.Corporation, error) {
	c := s.Game.Corporation(id)
	if c == nil {
		return nil, rules.Violation("unknown corporation %s", id)
	}
	return c, nil
}

// Explain returns the rule a share action breaks, or nil when the action
// would be accepted. It never changes state.
func (s *BuySellParShares) Explain(a action.Action) error {
	var err error
	switch v := a.(type) {
	case *action.BuyShares:
		_, _, err = s.checkBuy(v)
	case *action.SellShares:
		_, err = s.checkSell(v)
	case *action.Par:
		_, _, _, err = s.checkPar(v)
	}
	return err
}

func (s *BuySellParShares) checkBuy(a *action.BuyShares) (*entity.Player, *entity.ShareBundle, error) {
	p, err := s.player(a)
	if err != nil {
		return nil, nil, err
	}
	if s.Game.MustSell(p) {
		return nil, nil, rules.Violation("%s must sell shares", p.Name())
	}
	c, err := s.corporation(a.Corporation)
	if err != nil {
		return nil, nil, err
	}
	bundle, err := s.bundleFor(c, a.Source, a.Percent, a.President)
	if err != nil {
		return nil, nil, err
	}
	if err := s.canBuy(p, bundle); err != nil {
		return nil, nil, err
	}
	return p, bundle, nil
}

func (s *BuySellParShares) buyShares(a *action.BuyShares) error {
	p, bundle, err := s.checkBuy(a)
	if err != nil {
		return err
	}
	if err := s.Game.BuyShares(p, bundle, s.purchasePrice(bundle)); err != nil {
		return err
	}
	s.Round.RecordPurchase(p, bundle.Corporation().ID(), bundle.Percent())
	return nil
}

func (s *BuySellParShares) checkSell(a *action.SellShares) (*game.SalePlan, error) {
	p, err := s.player(a)
	if err != nil {
		return nil, err
	}
	c, err := s.corporation(a.Corporation)
	if err != nil {
		return nil, err
	}
	if err := s.canSell(p, c); err != nil {
		return nil, err
	}
	return s.Game.PlanSale(p, c, a.Percent)
}

func (s *BuySellParShares) sellShares(a *action.SellShares) error {
	plan, err := s.checkSell(a)
	if err != nil {
		return err
	}
	if err := s.Game.SellShares(plan); err != nil {
		return err
	}
	s.Round.RecordSale(plan.Seller, plan.Corporation.ID())
	return nil
}

func (s *BuySellParShares) checkPar(a *action.Par) (*entity.Player, *entity.Corporation, *market.SharePrice, error) {
	p, err := s.player(a)
	if err != nil {
		return nil, nil, nil, err
	}
	if s.Game.MustSell(p) {
		return nil, nil, nil, rules.Violation("%s must sell shares", p.Name())
	}
	c, err := s.corporation(a.Corporation)
	if err != nil {
		return nil, nil, nil, err
	}
	cell := s.parCell(c, a.SharePrice)
	if err := s.canPar(p, c, cell); err != nil {
		return nil, nil, nil, err
	}
	return p, c, cell, nil
}

func (s *BuySellParShares) par(a *action.Par) error {
	p, c, cell, err := s.checkPar(a)
	if err != nil {
		return err
	}
	if err := s.Game.Par(p, c, cell); err != nil {
		return err
	}
	s.Round.RecordPurchase(p, c.ID(), c.PercentOf(p))
	return nil
}

func (s *BuySellParShares) buyCompany(a *action.BuyCompany) error {
	p, err := s.player(a)
	if err != nil {
		return err
	}
	co := s.Game.Company(a.Company)
	switch {
	case co == nil:
		return rules.Violation("unknown company %s", a.Company)
	case co.Closed() || co.Owner() != nil:
		return rules.Violation("%s is not for sale", co.Name())
	case s.soldThisRound(p, co.ID()):
		return rules.Violation("%s sold %s this round", p.Name(), co.Name())
	case s.Bought(p):
		return rules.Violation("%s already bought this turn", p.Name())
	case a.Price != co.Value():
		return rules.Violation("%s costs %d", co.Name(), co.Value())
	case co.CountsForLimit() && s.Game.NumCerts(p) >= s.Game.CertLimit():
		return rules.Violation("%s is at the certificate limit", p.Name())
	}
	return s.Game.BuyCompany(p, co, a.Price)
}

func (s *BuySellParShares) sellCompany(a *action.SellCompany) error {
	p, err := s.player(a)
	if err != nil {
		return err
	}
	co := s.Game.Company(a.Company)
	switch {
	case co == nil:
		return rules.Violation("unknown company %s", a.Company)
	case s.Game.Turn() <= 1:
		return rules.Violation("companies cannot be sold in the first stock round")
	case s.Bought(p):
		return rules.Violation("%s cannot sell after buying", p.Name())
	}
	price := co.Value() - s.Game.Config().CompanySaleFee
	if price < 0 {
		price = 0
	}
	if err := s.Game.SellCompany(p, co, price); err != nil {
		return err
	}
	s.Round.RecordSale(p, co.ID())
	return nil
}

func (s *BuySellParShares) payoffDebt(a *action.PayoffPlayerDebt) error {
	p, err := s.player(a)
	if err != nil {
		return err
	}
	if p.Debt() == 0 {
		return rules.Violation("%s has no debt", p.Name())
	}
	if s.Game.PayDebt(p) == 0 {
		return rules.Violation("%s has no cash to pay debt", p.Name())
	}
	return nil
}

func (s *BuySellParShares) pass(a *action.Pass) error {
	if _, err := s.player(a); err != nil {
		return err
	}
	s.Pass()
	return nil
}
