package game

import (
	"fmt"
	"sort"

	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/market"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// RoundType names a kind of round.
type RoundType string

const (
	RoundAuction     RoundType = "auction"
	RoundStock       RoundType = "stock"
	RoundOperating   RoundType = "operating"
	RoundMerger      RoundType = "merger"
	RoundAcquisition RoundType = "acquisition"
)

var roundNames = map[RoundType]string{
	RoundAuction:     "Auction Round",
	RoundStock:       "Stock Round",
	RoundOperating:   "Operating Round",
	RoundMerger:      "Merger Round",
	RoundAcquisition: "Acquisition Round",
}

// Operating reports whether rounds of the type walk corporations in
// operating order.
func (t RoundType) Operating() bool {
	return t == RoundOperating || t == RoundMerger || t == RoundAcquisition
}

// SaleTiming records when a player sold a corporation or company.
type SaleTiming int

const (
	// SoldPreviously marks a sale in an earlier turn of the round.
	SoldPreviously SaleTiming = iota + 1
	// SoldNow marks a sale in the current turn.
	SoldNow
)

// PendingToken is a home station waiting for its corporation to choose a hex.
type PendingToken struct {
	Corporation *entity.Corporation
	Hexes       []string
}

// Round is an ordered pipeline of steps over an ordered list of entities.
type Round struct {
	game        *Game
	typ         RoundType
	num         int
	kind        roundKind
	entities    []entity.Entity
	entityIndex int
	steps       []Step

	currentActions []action.Action
	playersSold    map[string]map[string]SaleTiming
	playersBought  map[string]map[string]int
	lastToAct      *entity.Player
	pendingTokens  []PendingToken
	paidLoans      map[string]bool
	revenue        map[string]int
	acted          bool
	trainBought    bool
}

func newRound(g *Game, t RoundType, num int) (*Round, error) {
	kind, ok := roundKinds[t]
	if !ok {
		return nil, rules.Misconfigured("unknown round type %q", t)
	}
	r := &Round{
		game:          g,
		typ:           t,
		num:           num,
		kind:          kind,
		playersSold:   make(map[string]map[string]SaleTiming),
		playersBought: make(map[string]map[string]int),
		paidLoans:     make(map[string]bool),
		revenue:       make(map[string]int),
	}
	r.entities = kind.selectEntities(r)
	for _, factory := range g.policies.Round.Pipeline(g, t) {
		s := factory(g, r)
		if err := verifyHandlers(s); err != nil {
			return nil, err
		}
		r.steps = append(r.steps, s)
	}
	if len(r.steps) == 0 {
		return nil, rules.Misconfigured("%s has no steps", t)
	}
	return r, nil
}

func (r *Round) Type() RoundType  { return r.typ }
func (r *Round) Num() int         { return r.num }
func (r *Round) Steps() []Step    { return append([]Step(nil), r.steps...) }
func (r *Round) EntityIndex() int { return r.entityIndex }

// Name is the display name, e.g. "Operating Round 2".
func (r *Round) Name() string {
	return fmt.Sprintf("%s %d", roundNames[r.typ], r.num)
}

// Entities returns the turn order.
func (r *Round) Entities() []entity.Entity {
	return append([]entity.Entity(nil), r.entities...)
}

// CurrentEntity is the entity at the cursor, or nil for an empty round.
func (r *Round) CurrentEntity() entity.Entity {
	if r.entityIndex < 0 || r.entityIndex >= len(r.entities) {
		return nil
	}
	return r.entities[r.entityIndex]
}

// SetEntityIndex moves the cursor. Steps that drive turn order use it.
func (r *Round) SetEntityIndex(i int) {
	if i >= 0 && i < len(r.entities) {
		r.entityIndex = i
	}
}

// IndexOf returns the position of e in the turn order, or -1.
func (r *Round) IndexOf(e entity.Entity) int {
	for i, other := range r.entities {
		if SameEntity(other, e) {
			return i
		}
	}
	return -1
}

func (r *Round) blocking(s Step) bool {
	if s.Passed() || !s.Blocks() {
		return false
	}
	active := s.ActiveEntities()
	if len(active) == 0 {
		return false
	}
	return len(s.Actions(active[0])) > 0
}

// ActiveStep is the first unpassed step that blocks, or nil.
func (r *Round) ActiveStep() Step {
	for _, s := range r.steps {
		if r.blocking(s) {
			return s
		}
	}
	return nil
}

// ActiveEntities lists who may act now.
func (r *Round) ActiveEntities() []entity.Entity {
	if s := r.ActiveStep(); s != nil {
		return s.ActiveEntities()
	}
	return nil
}

// active reports whether e may act: it must be one of the active step's
// active entities.
func (r *Round) active(e entity.Entity) bool {
	s := r.ActiveStep()
	if s == nil {
		return false
	}
	for _, other := range s.ActiveEntities() {
		if SameEntity(e, other) {
			return true
		}
	}
	return false
}

// LegalActions is the union of kinds offered to e by the unpassed steps up to
// and including the first blocking step. Only active entities have any.
func (r *Round) LegalActions(e entity.Entity) []action.Kind {
	if e == nil || !r.active(e) {
		return nil
	}
	var out []action.Kind
	for _, s := range r.steps {
		if s.Passed() {
			continue
		}
		for _, k := range s.Actions(e) {
			if !Offers(out, k) {
				out = append(out, k)
			}
		}
		if r.blocking(s) {
			break
		}
	}
	return out
}

// Finished reports whether the round has nothing left to do.
func (r *Round) Finished() bool {
	return r.kind.finished(r)
}

// Process routes an action to the first step that offers its kind or blocks.
func (r *Round) Process(a action.Action) error {
	e := r.game.Entity(a.EntityID())
	if !r.active(e) {
		return rules.Violation("it is not %s's turn", e.Name())
	}
	var chosen Step
	for _, s := range r.steps {
		if s.Passed() {
			continue
		}
		offered := Offers(s.Actions(e), a.Kind())
		blocking := r.blocking(s)
		if blocking && !offered {
			if err := explain(s, a); err != nil {
				return err
			}
			return rules.Violation("%s cannot %s during %s", e.Name(), a.Kind(), s.Name())
		}
		if blocking || offered {
			chosen = s
			break
		}
	}
	if chosen == nil {
		for _, s := range r.steps {
			if err := explain(s, a); err != nil {
				return err
			}
		}
		return rules.Violation("%s cannot %s now", e.Name(), a.Kind())
	}
	handler := chosen.Handlers()[a.Kind()]
	if handler == nil {
		return rules.Misconfigured("step %s offered %s without a handler", chosen.Name(), a.Kind())
	}
	if err := handler(a); err != nil {
		return err
	}

	r.currentActions = append(r.currentActions, a)
	if p, ok := e.(*entity.Player); ok && a.Kind() != action.KindPass {
		r.lastToAct = p
	}
	r.SkipSteps()
	r.kind.afterProcess(r, a)
	return nil
}

// explain asks s why it refuses a, if s handles a's kind and can say.
func explain(s Step, a action.Action) error {
	x, ok := s.(Explainer)
	if !ok || s.Handlers()[a.Kind()] == nil {
		return nil
	}
	return x.Explain(a)
}

// SkipSteps auto-passes leading blocking steps that offer nothing.
func (r *Round) SkipSteps() {
	if e := r.CurrentEntity(); e != nil && e.Closed() {
		return
	}
	for _, s := range r.steps {
		if s.Passed() || !s.Blocks() {
			continue
		}
		if r.blocking(s) {
			break
		}
		s.Skip()
	}
}

// NextEntity advances the cursor under the round's turn policy.
func (r *Round) NextEntity() {
	r.kind.nextEntity(r)
}

func (r *Round) rearm() {
	r.currentActions = nil
	for _, s := range r.steps {
		s.Unpass()
	}
	for _, s := range r.steps {
		s.Setup()
	}
}

// RecalculateOrder re-sorts the corporations that have not yet operated and
// drops trailing corporations whose price sits in a liquidation cell.
func (r *Round) RecalculateOrder() {
	if !r.typ.Operating() {
		return
	}
	index := r.entityIndex + 1
	if index < len(r.entities)-1 {
		rest := r.entities[index:]
		sort.SliceStable(rest, func(i, j int) bool {
			a, aok := rest[i].(market.Holder)
			b, bok := rest[j].(market.Holder)
			if !aok || !bok {
				return false
			}
			return market.Compare(a, b) < 0
		})
	}
	for len(r.entities) > index {
		last, ok := r.entities[len(r.entities)-1].(*entity.Corporation)
		if !ok || last.SharePrice() == nil || !last.SharePrice().Is(market.CellLiquidation) {
			break
		}
		r.entities = r.entities[:len(r.entities)-1]
	}
}

// CurrentActions returns the actions of the current turn.
func (r *Round) CurrentActions() []action.Action {
	return append([]action.Action(nil), r.currentActions...)
}

// LastToAct is the last player who took a non-pass action.
func (r *Round) LastToAct() *entity.Player { return r.lastToAct }

// Acted reports whether any action was taken this round.
func (r *Round) Acted() bool { return r.acted }

// Sold reports when p sold the corporation or company with the given ID.
func (r *Round) Sold(p *entity.Player, id string) (SaleTiming, bool) {
	t, ok := r.playersSold[p.ID()][id]
	return t, ok
}

// RecordSale marks a sale by p in the current turn.
func (r *Round) RecordSale(p *entity.Player, id string) {
	if r.playersSold[p.ID()] == nil {
		r.playersSold[p.ID()] = make(map[string]SaleTiming)
	}
	r.playersSold[p.ID()][id] = SoldNow
}

// SoldThisTurn reports whether p sold anything in the current turn.
func (r *Round) SoldThisTurn(p *entity.Player) bool {
	for _, t := range r.playersSold[p.ID()] {
		if t == SoldNow {
			return true
		}
	}
	return false
}

// RecordPurchase adds percent to what p bought of id this round.
func (r *Round) RecordPurchase(p *entity.Player, id string, percent int) {
	if r.playersBought[p.ID()] == nil {
		r.playersBought[p.ID()] = make(map[string]int)
	}
	r.playersBought[p.ID()][id] += percent
}

// Bought returns the percent of id p bought this round.
func (r *Round) Bought(p *entity.Player, id string) int {
	return r.playersBought[p.ID()][id]
}

func (r *Round) endTurn() {
	for _, sold := range r.playersSold {
		for id, t := range sold {
			if t == SoldNow {
				sold[id] = SoldPreviously
			}
		}
	}
	r.currentActions = nil
}

// PendingTokens lists home stations waiting for a choice.
func (r *Round) PendingTokens() []PendingToken {
	return append([]PendingToken(nil), r.pendingTokens...)
}

// AddPendingToken queues a home station choice.
func (r *Round) AddPendingToken(pt PendingToken) {
	r.pendingTokens = append(r.pendingTokens, pt)
}

// ResolvePendingToken removes the pending choice of corp.
func (r *Round) ResolvePendingToken(corp *entity.Corporation) {
	for i, pt := range r.pendingTokens {
		if pt.Corporation == corp {
			r.pendingTokens = append(r.pendingTokens[:i:i], r.pendingTokens[i+1:]...)
			return
		}
	}
}

// PaidLoans reports whether the entity paid interest or loans this round.
func (r *Round) PaidLoans(e entity.Entity) bool { return r.paidLoans[e.ID()] }

// SetPaidLoans records that e has settled its loan obligations.
func (r *Round) SetPaidLoans(e entity.Entity) { r.paidLoans[e.ID()] = true }

// Revenue returns the revenue e declared this round.
func (r *Round) Revenue(e entity.Entity) (int, bool) {
	amount, ok := r.revenue[e.ID()]
	return amount, ok
}

// SetRevenue records the revenue e's trains earned.
func (r *Round) SetRevenue(e entity.Entity, amount int) { r.revenue[e.ID()] = amount }

// TrainBought reports whether a train was bought this round.
func (r *Round) TrainBought() bool { return r.trainBought }

// SetTrainBought records a train purchase.
func (r *Round) SetTrainBought() { r.trainBought = true }

// roundKind is the turn policy of a round type.
type roundKind interface {
	selectEntities(r *Round) []entity.Entity
	setup(r *Round)
	afterProcess(r *Round, a action.Action)
	nextEntity(r *Round)
	skipEntity(r *Round, e entity.Entity) bool
	finished(r *Round) bool
	finish(r *Round)
}

var roundKinds = map[RoundType]roundKind{
	RoundStock:       stockKind{},
	RoundAuction:     auctionKind{},
	RoundOperating:   operatingKind{payouts: true, homeTokens: true, resetTrains: true},
	RoundMerger:      operatingKind{},
	RoundAcquisition: operatingKind{},
}

// stockKind cycles through players until all of them pass in a row.
type stockKind struct{}

func (stockKind) selectEntities(r *Round) []entity.Entity {
	out := make([]entity.Entity, 0, len(r.game.players))
	for _, p := range r.game.players {
		out = append(out, p)
	}
	return out
}

func (k stockKind) setup(r *Round) {
	for _, p := range r.game.players {
		p.Unpass()
	}
	r.entityIndex = 0
	if e := r.CurrentEntity(); e != nil && k.skipEntity(r, e) {
		k.nextEntity(r)
		return
	}
	for _, s := range r.steps {
		s.Setup()
	}
	r.SkipSteps()
	if r.ActiveStep() == nil {
		k.nextEntity(r)
	}
}

func (k stockKind) afterProcess(r *Round, a action.Action) {
	if a.Kind() == action.KindMessage {
		return
	}
	r.acted = true
	if r.ActiveStep() != nil {
		return
	}
	k.nextEntity(r)
}

func (k stockKind) nextEntity(r *Round) {
	for guard := 0; guard <= 2*len(r.entities); guard++ {
		if k.finished(r) {
			return
		}
		r.endTurn()
		r.entityIndex = (r.entityIndex + 1) % len(r.entities)
		e := r.CurrentEntity()
		if k.skipEntity(r, e) {
			continue
		}
		r.rearm()
		r.game.publish(rules.NewEvent(rules.EventTurnStarted, e.ID(), ""))
		r.SkipSteps()
		if r.ActiveStep() != nil {
			return
		}
	}
}

func (stockKind) skipEntity(_ *Round, e entity.Entity) bool {
	p, ok := e.(*entity.Player)
	return !ok || p.Bankrupt()
}

func (k stockKind) finished(r *Round) bool {
	for _, e := range r.entities {
		if p, ok := e.(*entity.Player); ok && !p.Bankrupt() && !p.Passed() {
			return false
		}
	}
	return true
}

func (stockKind) finish(r *Round) {
	r.game.moveSoldOutUp()
	if r.lastToAct != nil {
		r.game.givePriorityAfter(r.lastToAct)
	}
}

// auctionKind lets the auction step drive the cursor.
type auctionKind struct{}

func (auctionKind) selectEntities(r *Round) []entity.Entity {
	return stockKind{}.selectEntities(r)
}

func (auctionKind) setup(r *Round) {
	r.entityIndex = 0
	for _, s := range r.steps {
		s.Setup()
	}
	r.SkipSteps()
}

func (auctionKind) afterProcess(r *Round, a action.Action) {
	if a.Kind() != action.KindMessage {
		r.acted = true
	}
}

func (k auctionKind) nextEntity(r *Round) {
	if len(r.entities) == 0 {
		return
	}
	for i := 0; i < len(r.entities); i++ {
		r.entityIndex = (r.entityIndex + 1) % len(r.entities)
		if !k.skipEntity(r, r.CurrentEntity()) {
			break
		}
	}
	r.currentActions = nil
	for _, s := range r.steps {
		s.Setup()
	}
}

func (auctionKind) skipEntity(r *Round, e entity.Entity) bool {
	return stockKind{}.skipEntity(r, e)
}

func (auctionKind) finished(r *Round) bool {
	return r.ActiveStep() == nil
}

func (auctionKind) finish(r *Round) {
	if r.lastToAct != nil {
		r.game.givePriorityAfter(r.lastToAct)
	}
}

// operatingKind walks corporations once in operating order.
type operatingKind struct {
	payouts     bool
	homeTokens  bool
	resetTrains bool
}

func (operatingKind) selectEntities(r *Round) []entity.Entity {
	corps := r.game.OperatingOrder()
	out := make([]entity.Entity, 0, len(corps))
	for _, c := range corps {
		out = append(out, c)
	}
	return out
}

func (k operatingKind) setup(r *Round) {
	if k.payouts {
		r.game.payoutCompanies()
	}
	if k.homeTokens && r.game.cfg.HomeTokenTiming == HomeTokenOperatingRound {
		for _, e := range r.entities {
			if c, ok := e.(*entity.Corporation); ok {
				r.game.placeHomeToken(c)
			}
		}
	}
	r.entityIndex = 0
	for _, s := range r.steps {
		s.Setup()
	}
	if k.anyToAct(r) {
		k.startOperating(r)
	}
}

func (k operatingKind) anyToAct(r *Round) bool {
	for _, e := range r.entities {
		if !k.skipEntity(r, e) {
			return true
		}
	}
	return false
}

func (k operatingKind) startOperating(r *Round) {
	e := r.CurrentEntity()
	if e == nil {
		return
	}
	if k.skipEntity(r, e) {
		k.nextEntity(r)
		return
	}
	if c, ok := e.(*entity.Corporation); ok {
		if k.resetTrains {
			for _, t := range c.Trains() {
				t.SetOperated(false)
			}
		}
		if k.homeTokens && r.game.cfg.HomeTokenTiming == HomeTokenOperate {
			r.game.placeHomeToken(c)
		}
	}
	r.game.publish(rules.NewEvent(rules.EventTurnStarted, e.ID(), ""))
	r.SkipSteps()
	if k.finished(r) {
		k.nextEntity(r)
	}
}

func (k operatingKind) afterProcess(r *Round, a action.Action) {
	if a.Kind() == action.KindMessage {
		return
	}
	r.acted = true
	if r.ActiveStep() != nil {
		e := r.CurrentEntity()
		if e.Player() != nil {
			return
		}
		if c, ok := e.(*entity.Corporation); ok && c.Receivership() {
			return
		}
	}
	k.nextEntity(r)
}

func (k operatingKind) nextEntity(r *Round) {
	if r.entityIndex >= len(r.entities)-1 {
		return
	}
	r.entityIndex++
	if k.skipEntity(r, r.CurrentEntity()) {
		k.nextEntity(r)
		return
	}
	r.rearm()
	k.startOperating(r)
}

func (operatingKind) skipEntity(_ *Round, e entity.Entity) bool {
	return e == nil || e.Closed()
}

func (k operatingKind) finished(r *Round) bool {
	return r.ActiveStep() == nil || !k.anyToAct(r)
}

func (k operatingKind) finish(r *Round) {
	if k.payouts && !r.trainBought && r.game.cfg.ExportTrain {
		r.game.exportTrain()
	}
}
