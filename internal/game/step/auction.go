package step

import (
	"sort"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

const (
	// MinBidIncrement is the smallest raise over a company's value or the
	// current high bid.
	MinBidIncrement = 5
	// PassDiscount is taken off the cheapest company after everyone passes.
	PassDiscount = 5
)

// Bid is a committed offer for a company.
type Bid struct {
	Player *entity.Player
	Price  int
}

// WaterfallAuction sells the private companies in value order. The cheapest
// company is bought outright; bids on the others wait until every cheaper
// company is sold, then resolve among their bidders.
type WaterfallAuction struct {
	game.BaseStep

	bids      map[string][]Bid
	discounts map[string]int
	passes    int

	// auctioning is the company being resolved among several bidders.
	auctioning *entity.Company
}

// NewWaterfallAuction builds the auction step.
func NewWaterfallAuction(g *game.Game, r *game.Round) *WaterfallAuction {
	s := &WaterfallAuction{
		BaseStep:  game.NewBaseStep(g, r),
		bids:      make(map[string][]Bid),
		discounts: make(map[string]int),
	}
	game.On(&s.BaseStep, action.KindBid, s.bid)
	game.On(&s.BaseStep, action.KindPass, s.pass)
	return s
}

func (s *WaterfallAuction) Name() string { return "Waterfall Auction" }

// Companies lists the unsold companies, cheapest first.
func (s *WaterfallAuction) Companies() []*entity.Company {
	var out []*entity.Company
	for _, co := range s.Game.Companies() {
		if co.Owner() == nil && !co.Closed() {
			out = append(out, co)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Value() < out[j].Value() })
	return out
}

// Price is what the cheapest company costs now.
func (s *WaterfallAuction) Price(co *entity.Company) int {
	return co.Value() - s.discounts[co.ID()]
}

// Bids returns the committed bids on a company in bid order.
func (s *WaterfallAuction) Bids(co *entity.Company) []Bid {
	return append([]Bid(nil), s.bids[co.ID()]...)
}

// HighestBid returns the current high bid on co, or zero.
func (s *WaterfallAuction) HighestBid(co *entity.Company) int {
	high := 0
	for _, b := range s.bids[co.ID()] {
		if b.Price > high {
			high = b.Price
		}
	}
	return high
}

// Committed is the cash p has bid on companies other than except.
func (s *WaterfallAuction) Committed(p *entity.Player, except *entity.Company) int {
	total := 0
	for id, bids := range s.bids {
		if except != nil && id == except.ID() {
			continue
		}
		for _, b := range bids {
			if b.Player == p {
				total += b.Price
			}
		}
	}
	return total
}

// ActiveEntities is the lowest bidder while a company is being resolved,
// otherwise the round's current player.
func (s *WaterfallAuction) ActiveEntities() []entity.Entity {
	if s.auctioning != nil {
		if low := s.lowestBidder(); low != nil {
			return []entity.Entity{low}
		}
	}
	return s.BaseStep.ActiveEntities()
}

func (s *WaterfallAuction) Actions(e entity.Entity) []action.Kind {
	if len(s.Companies()) == 0 {
		return nil
	}
	active := s.ActiveEntities()
	if len(active) == 0 || !game.SameEntity(e, active[0]) {
		return nil
	}
	return []action.Kind{action.KindBid, action.KindPass}
}

// lowestBidder is the bidder with the lowest offer on the company being
// resolved; ties go to the earlier bid.
func (s *WaterfallAuction) lowestBidder() *entity.Player {
	bids := s.bids[s.auctioning.ID()]
	if len(bids) == 0 {
		return nil
	}
	low := bids[0]
	for _, b := range bids[1:] {
		if b.Price < low.Price {
			low = b
		}
	}
	return low.Player
}

func (s *WaterfallAuction) bid(a *action.Bid) error {
	p := s.Game.Player(a.EntityID())
	active := s.ActiveEntities()
	if p == nil || len(active) == 0 || !game.SameEntity(p, active[0]) {
		return rules.Violation("it is not %s's turn to bid", a.EntityID())
	}
	co := s.Game.Company(a.Company)
	if co == nil || co.Owner() != nil || co.Closed() {
		return rules.Violation("%s is not for auction", a.Company)
	}

	if s.auctioning != nil {
		return s.raise(p, co, a.Price)
	}

	companies := s.Companies()
	if co == companies[0] {
		price := s.Price(co)
		if a.Price != price {
			return rules.Violation("%s costs %d", co.Name(), price)
		}
		if p.Cash()-s.Committed(p, nil) < price {
			return rules.Violation("%s cannot afford %s", p.Name(), co.Name())
		}
		if err := s.Game.BuyCompany(p, co, price); err != nil {
			return err
		}
		s.passes = 0
		if err := s.resolveNext(); err != nil {
			return err
		}
		if s.auctioning == nil {
			s.Round.NextEntity()
		}
		return nil
	}

	minBid := co.Value() + MinBidIncrement
	if high := s.HighestBid(co); high+MinBidIncrement > minBid {
		minBid = high + MinBidIncrement
	}
	if a.Price < minBid {
		return rules.Violation("the minimum bid on %s is %d", co.Name(), minBid)
	}
	if p.Cash()-s.Committed(p, co) < a.Price {
		return rules.Violation("%s cannot afford to bid %d", p.Name(), a.Price)
	}
	s.placeBid(p, co, a.Price)
	s.Game.Logf("%s bids %d for %s", p.Name(), a.Price, co.Name())
	s.passes = 0
	s.Round.NextEntity()
	return nil
}

// raise handles a bid while a company is being resolved among its bidders.
func (s *WaterfallAuction) raise(p *entity.Player, co *entity.Company, price int) error {
	if co != s.auctioning {
		return rules.Violation("%s is being auctioned", s.auctioning.Name())
	}
	if minBid := s.HighestBid(co) + MinBidIncrement; price < minBid {
		return rules.Violation("the minimum bid on %s is %d", co.Name(), minBid)
	}
	if p.Cash()-s.Committed(p, co) < price {
		return rules.Violation("%s cannot afford to bid %d", p.Name(), price)
	}
	s.placeBid(p, co, price)
	s.Game.Logf("%s raises to %d for %s", p.Name(), price, co.Name())
	return nil
}

func (s *WaterfallAuction) placeBid(p *entity.Player, co *entity.Company, price int) {
	bids := s.bids[co.ID()]
	for i, b := range bids {
		if b.Player == p {
			bids = append(bids[:i:i], bids[i+1:]...)
			break
		}
	}
	s.bids[co.ID()] = append(bids, Bid{Player: p, Price: price})
}

func (s *WaterfallAuction) pass(a *action.Pass) error {
	p := s.Game.Player(a.EntityID())
	active := s.ActiveEntities()
	if p == nil || len(active) == 0 || !game.SameEntity(p, active[0]) {
		return rules.Violation("it is not %s's turn", a.EntityID())
	}

	if s.auctioning != nil {
		co := s.auctioning
		bids := s.bids[co.ID()]
		for i, b := range bids {
			if b.Player == p {
				s.bids[co.ID()] = append(bids[:i:i], bids[i+1:]...)
				break
			}
		}
		s.Game.Logf("%s leaves the auction for %s", p.Name(), co.Name())
		if err := s.resolve(co); err != nil {
			return err
		}
		if s.auctioning == nil {
			s.Round.NextEntity()
		}
		return nil
	}

	s.Game.Logf("%s passes", p.Name())
	s.passes++
	if s.passes >= s.bidders() {
		s.passes = 0
		if err := s.discountCheapest(); err != nil {
			return err
		}
	}
	if len(s.Companies()) > 0 && s.auctioning == nil {
		s.Round.NextEntity()
	}
	return nil
}

func (s *WaterfallAuction) bidders() int {
	n := 0
	for _, p := range s.Game.Players() {
		if !p.Bankrupt() {
			n++
		}
	}
	return n
}

// discountCheapest lowers the cheapest company's price after a full round of
// passes. At zero it goes free to the player whose turn is next.
func (s *WaterfallAuction) discountCheapest() error {
	companies := s.Companies()
	if len(companies) == 0 {
		return nil
	}
	co := companies[0]
	s.discounts[co.ID()] += PassDiscount
	price := s.Price(co)
	if price > 0 {
		s.Game.Logf("%s is reduced to %d", co.Name(), price)
		return nil
	}
	s.Round.NextEntity()
	p, ok := s.Round.CurrentEntity().(*entity.Player)
	if !ok {
		return nil
	}
	if err := s.sell(p, co, 0); err != nil {
		return err
	}
	return s.resolveNext()
}

// resolveNext sells every newly cheapest company that has bids.
func (s *WaterfallAuction) resolveNext() error {
	for {
		companies := s.Companies()
		if len(companies) == 0 {
			return nil
		}
		co := companies[0]
		if len(s.bids[co.ID()]) == 0 {
			return nil
		}
		if err := s.resolve(co); err != nil {
			return err
		}
		if s.auctioning != nil {
			return nil
		}
	}
}

// resolve sells co to its only bidder, or starts an auction among several.
func (s *WaterfallAuction) resolve(co *entity.Company) error {
	bids := s.bids[co.ID()]
	switch len(bids) {
	case 0:
		s.auctioning = nil
		return nil
	case 1:
		win := bids[0]
		delete(s.bids, co.ID())
		s.auctioning = nil
		if err := s.sell(win.Player, co, win.Price); err != nil {
			return err
		}
		return s.resolveNext()
	default:
		s.auctioning = co
		return nil
	}
}

// sell completes a sale the auction already committed to. Bids are reserved
// against cash, so a failure here means the auction state is corrupt.
func (s *WaterfallAuction) sell(p *entity.Player, co *entity.Company, price int) error {
	if err := s.Game.BuyCompany(p, co, price); err != nil {
		return rules.Misconfigured("selling %s to %s for %d: %v", co.Name(), p.Name(), price, err)
	}
	return nil
}
