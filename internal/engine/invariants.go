package engine

import (
	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/action"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// checkInvariants runs the holdings checks after a. A player who just
// acquired a certificate must also be within the certificate limit; anyone
// else may sit above it until their next turn forces a sale.
func checkInvariants(g *game.Game, a action.Action) error {
	lc := g.Legality()
	if failures := lc.CheckInvariants(); len(failures) > 0 {
		f := failures[0]
		return rules.Misconfigured("%s: %v", f.Reason, f.Details)
	}
	if a == nil || g.Player(a.EntityID()) == nil {
		return nil
	}
	switch a.Kind() {
	case action.KindBuyShares, action.KindPar, action.KindBuyCompany:
		if r := lc.CheckCertificateLimit(a.EntityID()); !r.Legal {
			return rules.Misconfigured("%s: %v", r.Reason, r.Details)
		}
	}
	return nil
}
