package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockGameStateAccessor implements GameStateAccessor for testing
type mockGameStateAccessor struct {
	corporations []CorporationInfo
	players      []PlayerInfo
	limit        int
}

func (m *mockGameStateAccessor) Corporations() []CorporationInfo { return m.corporations }
func (m *mockGameStateAccessor) Players() []PlayerInfo           { return m.players }
func (m *mockGameStateAccessor) CertLimit() int                  { return m.limit }

func TestLegalityChecker_ShareTotals(t *testing.T) {
	state := &mockGameStateAccessor{
		corporations: []CorporationInfo{{
			ID:               "PRR",
			TotalPercent:     100,
			Holdings:         map[string]int{"PRR": 50, "p1": 30, "market": 20},
			PresidentHolders: []string{"p1"},
		}},
	}
	lc := NewLegalityChecker(state)
	assert.True(t, lc.CheckShareTotals().Legal)
	assert.Empty(t, lc.CheckInvariants())

	state.corporations[0].Holdings["market"] = 10
	result := lc.CheckShareTotals()
	assert.False(t, result.Legal)
	assert.Equal(t, "PRR", result.Details["corporation_id"])
	assert.Equal(t, "90", result.Details["sum"])
}

func TestLegalityChecker_Presidents(t *testing.T) {
	state := &mockGameStateAccessor{
		corporations: []CorporationInfo{
			{ID: "B&O", TotalPercent: 100, Holdings: map[string]int{"B&O": 100}, PresidentHolders: []string{"B&O"}},
			{ID: "NYC", TotalPercent: 100, Holdings: map[string]int{"NYC": 100}, PresidentHolders: nil},
			{ID: "CPR", TotalPercent: 100, Closed: true, Holdings: map[string]int{"CPR": 100}},
		},
	}
	lc := NewLegalityChecker(state)
	result := lc.CheckPresidents()
	assert.False(t, result.Legal)
	assert.Equal(t, "NYC", result.Details["corporation_id"])
	assert.Len(t, lc.CheckInvariants(), 1)
}

func TestLegalityChecker_CertificateLimit(t *testing.T) {
	state := &mockGameStateAccessor{
		players: []PlayerInfo{{PlayerID: "p1", Certificates: 11}, {PlayerID: "p2", Certificates: 12}},
		limit:   11,
	}
	lc := NewLegalityChecker(state)
	assert.True(t, lc.CheckCertificateLimit("p1").Legal)

	result := lc.CheckCertificateLimit("p2")
	assert.False(t, result.Legal)
	assert.Equal(t, "12", result.Details["certificates"])
	assert.False(t, lc.CheckCertificateLimit("p9").Legal)
}

func TestLegalityChecker_NilIsPermissive(t *testing.T) {
	var lc *LegalityChecker
	assert.True(t, lc.CheckShareTotals().Legal)
	assert.True(t, lc.CheckPresidents().Legal)
}

func TestLegalityChecker_ClosedCorporationsIgnored(t *testing.T) {
	state := &mockGameStateAccessor{
		corporations: []CorporationInfo{
			{ID: "LB", TotalPercent: 100, Closed: true, Holdings: map[string]int{"p1": 20}},
		},
	}
	lc := NewLegalityChecker(state)
	assert.True(t, lc.CheckShareTotals().Legal)
	assert.Empty(t, lc.CheckInvariants())
}
