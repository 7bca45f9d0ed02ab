package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// ChecksumVersion identifies the canonical representation format.
const ChecksumVersion = 1

// Checksum computes a deterministic SHA-256 checksum of the game state.
// Equal states always produce equal checksums regardless of map iteration
// order.
func (g *Game) Checksum() string {
	sum := sha256.Sum256([]byte(g.canonical()))
	return hex.EncodeToString(sum[:])
}

// canonical builds a representation of the state that is independent of map
// iteration order.
func (g *Game) canonical() string {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("GAME:%s|%d|%s|%d|%d|%t|%s|%d|%d\n",
		g.cfg.Name,
		ChecksumVersion,
		g.phases.Name(),
		g.turn,
		g.operatingRounds,
		g.finished,
		g.endReason,
		g.bank.Cash(),
		g.loans,
	))

	if r := g.round; r != nil {
		ids := make([]string, len(r.entities))
		for i, e := range r.entities {
			ids[i] = e.ID()
		}
		buf.WriteString(fmt.Sprintf("ROUND:%s|%d|%d|%s\n", r.typ, r.num, r.entityIndex, strings.Join(ids, ",")))
		for _, s := range r.steps {
			buf.WriteString(fmt.Sprintf("  STEP:%s|%t\n", s.Name(), s.Passed()))
		}
		for _, pt := range r.pendingTokens {
			buf.WriteString(fmt.Sprintf("  PENDING:%s|%s\n", pt.Corporation.ID(), strings.Join(pt.Hexes, ",")))
		}
	}

	// Player order matters: it is the priority order.
	order := make([]string, len(g.players))
	for i, p := range g.players {
		order[i] = p.ID()
	}
	buf.WriteString("PLAYER_ORDER:")
	buf.WriteString(strings.Join(order, ","))
	buf.WriteString("\n")

	for _, p := range g.seats {
		companies := make([]string, 0)
		for _, co := range p.Companies() {
			companies = append(companies, co.ID())
		}
		sort.Strings(companies)
		buf.WriteString(fmt.Sprintf("PLAYER:%s|%d|%d|%t|%t|%s\n",
			p.ID(),
			p.Cash(),
			p.Debt(),
			p.Passed(),
			p.Bankrupt(),
			strings.Join(companies, ","),
		))
	}

	corpIDs := make([]string, 0, len(g.corporations))
	for _, c := range g.corporations {
		corpIDs = append(corpIDs, c.ID())
	}
	sort.Strings(corpIDs)
	for _, id := range corpIDs {
		c := g.Corporation(id)
		price, par := "", ""
		if sp := c.SharePrice(); sp != nil {
			price = fmt.Sprintf("%s@%d", sp.ID(), sp.Position(c.ID()))
		}
		if pp := c.ParPrice(); pp != nil {
			par = pp.ID()
		}
		buf.WriteString(fmt.Sprintf("CORPORATION:%s|%s|%d|%s|%s|%s|%d|%d\n",
			id,
			c.Kind(),
			c.Cash(),
			c.Lifecycle(),
			price,
			par,
			c.Loans(),
			c.FloatPercent(),
		))
		// Shares in index order; the owner is what changes.
		for _, s := range c.Shares() {
			buf.WriteString(fmt.Sprintf("  SHARE:%s|%d|%t|%s\n", s.ID(), s.Percent(), s.President(), s.Owner().ID()))
		}
		for _, t := range c.Trains() {
			buf.WriteString(fmt.Sprintf("  TRAIN:%s|%t|%t\n", t.ID(), t.Operated(), t.Obsolete()))
		}
		for _, t := range c.Tokens() {
			buf.WriteString(fmt.Sprintf("  TOKEN:%d|%s\n", t.Price, t.Hex))
		}
	}

	for _, co := range g.companies {
		owner := ""
		if co.Owner() != nil {
			owner = co.Owner().ID()
		}
		buf.WriteString(fmt.Sprintf("COMPANY:%s|%s|%t\n", co.ID(), owner, co.Closed()))
	}

	depot := make([]string, 0)
	for _, t := range g.depot.Upcoming() {
		depot = append(depot, t.ID())
	}
	buf.WriteString("DEPOT:")
	buf.WriteString(strings.Join(depot, ","))
	buf.WriteString("\n")
	discarded := make([]string, 0)
	for _, t := range g.depot.Discarded() {
		discarded = append(discarded, t.ID())
	}
	buf.WriteString("DISCARDED:")
	buf.WriteString(strings.Join(discarded, ","))
	buf.WriteString("\n")

	hexes := make([]string, 0, len(g.tiles))
	for h := range g.tiles {
		hexes = append(hexes, h)
	}
	sort.Strings(hexes)
	for _, h := range hexes {
		buf.WriteString(fmt.Sprintf("TILE:%s|%s\n", h, g.tiles[h]))
	}

	return buf.String()
}
