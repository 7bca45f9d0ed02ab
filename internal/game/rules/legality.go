package rules

import (
	"fmt"
	"sort"
)

// LegalityChecker validates the holdings invariants of a game state: share
// totals, president certificates and certificate limits.
type LegalityChecker struct {
	gameState GameStateAccessor
}

// GameStateAccessor provides the holdings information needed for checks.
type GameStateAccessor interface {
	// Corporations returns every corporation's share breakdown.
	Corporations() []CorporationInfo
	// Players returns every player's certificate count.
	Players() []PlayerInfo
	// CertLimit returns the per-player certificate limit.
	CertLimit() int
}

// CorporationInfo describes who holds a corporation's shares.
type CorporationInfo struct {
	ID           string
	TotalPercent int
	Parred       bool
	Closed       bool
	// Holdings maps holder ID to percent held.
	Holdings map[string]int
	// PresidentHolders lists holders of a president's certificate.
	PresidentHolders []string
}

// PlayerInfo describes a player's certificate position.
type PlayerInfo struct {
	PlayerID     string
	Certificates int
	Bankrupt     bool
}

// LegalityResult represents the result of a legality check.
type LegalityResult struct {
	Legal   bool
	Reason  string
	Details map[string]string
}

// NewLegalityChecker creates a new legality checker.
func NewLegalityChecker(gameState GameStateAccessor) *LegalityChecker {
	return &LegalityChecker{
		gameState: gameState,
	}
}

// CheckShareTotals verifies that every open corporation's shares add up to its
// total.
func (lc *LegalityChecker) CheckShareTotals() LegalityResult {
	if lc == nil || lc.gameState == nil {
		return LegalityResult{Legal: true, Reason: "Legality checker not initialized"}
	}

	for _, corp := range lc.gameState.Corporations() {
		if corp.Closed {
			continue
		}
		sum := 0
		for _, percent := range corp.Holdings {
			sum += percent
		}
		if sum != corp.TotalPercent {
			return LegalityResult{
				Legal:  false,
				Reason: "Share percentages do not sum to the corporation total",
				Details: map[string]string{
					"corporation_id": corp.ID,
					"sum":            fmt.Sprintf("%d", sum),
					"total":          fmt.Sprintf("%d", corp.TotalPercent),
				},
			}
		}
	}

	return LegalityResult{Legal: true, Reason: "Share totals consistent"}
}

// CheckPresidents verifies that each corporation has exactly one president's certificate.
func (lc *LegalityChecker) CheckPresidents() LegalityResult {
	if lc == nil || lc.gameState == nil {
		return LegalityResult{Legal: true, Reason: "Legality checker not initialized"}
	}

	for _, corp := range lc.gameState.Corporations() {
		if corp.Closed {
			continue
		}
		if len(corp.PresidentHolders) != 1 {
			holders := append([]string(nil), corp.PresidentHolders...)
			sort.Strings(holders)
			return LegalityResult{
				Legal:  false,
				Reason: "Corporation must have exactly one president's certificate",
				Details: map[string]string{
					"corporation_id": corp.ID,
					"holders":        fmt.Sprintf("%v", holders),
				},
			}
		}
	}

	return LegalityResult{Legal: true, Reason: "Presidents consistent"}
}

// CheckCertificateLimit verifies a single player's certificate count.
func (lc *LegalityChecker) CheckCertificateLimit(playerID string) LegalityResult {
	if lc == nil || lc.gameState == nil {
		return LegalityResult{Legal: true, Reason: "Legality checker not initialized"}
	}

	limit := lc.gameState.CertLimit()
	for _, player := range lc.gameState.Players() {
		if player.PlayerID != playerID {
			continue
		}
		if player.Certificates > limit {
			return LegalityResult{
				Legal:  false,
				Reason: "Certificate limit exceeded",
				Details: map[string]string{
					"player_id":    player.PlayerID,
					"certificates": fmt.Sprintf("%d", player.Certificates),
					"limit":        fmt.Sprintf("%d", limit),
				},
			}
		}
		return LegalityResult{Legal: true, Reason: "Within certificate limit"}
	}

	return LegalityResult{
		Legal:   false,
		Reason:  "Player not found",
		Details: map[string]string{"player_id": playerID},
	}
}

// CheckInvariants runs the structural checks and returns the failures.
func (lc *LegalityChecker) CheckInvariants() []LegalityResult {
	var failures []LegalityResult
	for _, result := range []LegalityResult{lc.CheckShareTotals(), lc.CheckPresidents()} {
		if !result.Legal {
			failures = append(failures, result)
		}
	}
	return failures
}
