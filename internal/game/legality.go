package game

import (
	"github.com/railyard/rails-server-go/internal/game/entity"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// Legality returns a checker over g's current share positions.
func (g *Game) Legality() *rules.LegalityChecker {
	return rules.NewLegalityChecker(holdings{g})
}

// holdings adapts a Game to rules.GameStateAccessor. Only the treasury, the
// pool and the players count as holders, so a certificate parked anywhere
// else breaks the share total.
type holdings struct{ g *Game }

func (h holdings) Corporations() []rules.CorporationInfo {
	out := make([]rules.CorporationInfo, 0, len(h.g.corporations))
	for _, c := range h.g.corporations {
		info := rules.CorporationInfo{
			ID:           c.ID(),
			TotalPercent: c.TotalPercent(),
			Parred:       c.IPOed(),
			Closed:       c.Closed(),
			Holdings:     make(map[string]int),
		}
		holders := []entity.ShareHolder{c, h.g.pool}
		for _, p := range h.g.players {
			holders = append(holders, p)
		}
		for _, holder := range holders {
			if pct := c.PercentOf(holder); pct > 0 {
				info.Holdings[holder.ID()] += pct
			}
		}
		for _, s := range c.Shares() {
			if !s.President() || s.Owner() == nil {
				continue
			}
			// A parred corporation's president must sit outside its treasury.
			if c.IPOed() && s.Owner() == entity.ShareHolder(c) {
				continue
			}
			info.PresidentHolders = append(info.PresidentHolders, s.Owner().ID())
		}
		out = append(out, info)
	}
	return out
}

func (h holdings) Players() []rules.PlayerInfo {
	out := make([]rules.PlayerInfo, 0, len(h.g.players))
	for _, p := range h.g.players {
		out = append(out, rules.PlayerInfo{
			PlayerID:     p.ID(),
			Certificates: h.g.NumCerts(p),
			Bankrupt:     p.Bankrupt(),
		})
	}
	return out
}

func (h holdings) CertLimit() int { return h.g.CertLimit() }
