package entity

import (
	"fmt"
)

// Share is one certificate of a corporation.
type Share struct {
	corporation *Corporation
	index       int
	percent     int
	president   bool
	owner       ShareHolder
}

// ID identifies the certificate as "<corporation>_<index>".
func (s *Share) ID() string {
	return fmt.Sprintf("%s_%d", s.corporation.ID(), s.index)
}

func (s *Share) Corporation() *Corporation { return s.corporation }
func (s *Share) Percent() int              { return s.percent }
func (s *Share) President() bool           { return s.president }
func (s *Share) Owner() ShareHolder        { return s.owner }

// ShareBundle groups shares of one corporation for a single trade.
type ShareBundle struct {
	shares  []*Share
	percent int
}

// NewShareBundle groups shares. All shares must belong to the same corporation.
func NewShareBundle(shares []*Share) (*ShareBundle, error) {
	if len(shares) == 0 {
		return nil, fmt.Errorf("share bundle is empty")
	}
	corp := shares[0].corporation
	percent := 0
	for _, s := range shares {
		if s.corporation != corp {
			return nil, fmt.Errorf("share bundle mixes %s and %s", corp.ID(), s.corporation.ID())
		}
		percent += s.percent
	}
	return &ShareBundle{shares: append([]*Share(nil), shares...), percent: percent}, nil
}

func (b *ShareBundle) Shares() []*Share          { return append([]*Share(nil), b.shares...) }
func (b *ShareBundle) Corporation() *Corporation { return b.shares[0].corporation }
func (b *ShareBundle) Percent() int              { return b.percent }

// Owner returns the holder of the first share.
func (b *ShareBundle) Owner() ShareHolder { return b.shares[0].owner }

// PresidentsShare reports whether the bundle contains the president's certificate.
func (b *ShareBundle) PresidentsShare() bool {
	for _, s := range b.shares {
		if s.president {
			return true
		}
	}
	return false
}

// Units is the bundle size in ordinary shares.
func (b *ShareBundle) Units() int {
	return b.percent / b.Corporation().SharePercent()
}

// Price values the bundle at the corporation's current share price.
func (b *ShareBundle) Price() int {
	sp := b.Corporation().SharePrice()
	if sp == nil {
		return 0
	}
	return b.PriceAt(sp.Price)
}

// PriceAt values the bundle at a given per-share price.
func (b *ShareBundle) PriceAt(price int) int {
	return price * b.percent / b.Corporation().SharePercent()
}

// TransferShares moves every share in the bundle to a new holder.
func TransferShares(b *ShareBundle, to ShareHolder) {
	for _, s := range b.shares {
		s.owner = to
	}
}

// SwapPresidency exchanges the president's certificate held by from for
// ordinary shares of equal percent held by to. It fails without mutating if
// to cannot supply enough ordinary shares.
func SwapPresidency(c *Corporation, from, to ShareHolder) error {
	pres := c.PresidentShare()
	if pres.owner != from {
		return fmt.Errorf("%s does not hold the president's certificate of %s", from.Name(), c.ID())
	}
	var given []*Share
	needed := pres.percent
	for _, s := range c.SharesOf(to) {
		if needed == 0 {
			break
		}
		if s.percent <= needed {
			given = append(given, s)
			needed -= s.percent
		}
	}
	if needed != 0 {
		return fmt.Errorf("%s cannot exchange %d%% of %s for the president's certificate", to.Name(), pres.percent, c.ID())
	}
	for _, s := range given {
		s.owner = from
	}
	pres.owner = to
	return nil
}
