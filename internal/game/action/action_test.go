package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/railyard/rails-server-go/internal/game/rules"
)

func TestDecode(t *testing.T) {
	a, err := Decode([]byte(`{"kind":"buy_shares","entity_id":"p1","corporation":"PRR","source":"market","percent":10}`))
	require.NoError(t, err)

	buy, ok := a.(*BuyShares)
	require.True(t, ok)
	assert.Equal(t, KindBuyShares, buy.Kind())
	assert.Equal(t, "p1", buy.EntityID())
	assert.Equal(t, "PRR", buy.Corporation)
	assert.Equal(t, SourceMarket, buy.Source)
	assert.Equal(t, 10, buy.Percent)
	assert.False(t, buy.President)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"kind":`},
		{"missing kind", `{"entity_id":"p1"}`},
		{"unknown kind", `{"kind":"teleport","entity_id":"p1"}`},
		{"missing entity", `{"kind":"pass"}`},
		{"missing corporation", `{"kind":"par","entity_id":"p1","share_price":100}`},
		{"missing price", `{"kind":"par","entity_id":"p1","corporation":"PRR"}`},
		{"bad source", `{"kind":"buy_shares","entity_id":"p1","corporation":"PRR","source":"bank","percent":10}`},
		{"bad dividend", `{"kind":"dividend","entity_id":"PRR","dividend":"maybe"}`},
		{"negative revenue", `{"kind":"run_routes","entity_id":"PRR","revenue":-10,"trains":["2-0"]}`},
		{"no trains", `{"kind":"run_routes","entity_id":"PRR","revenue":10}`},
		{"bad rotation", `{"kind":"lay_tile","entity_id":"PRR","hex":"H10","tile":"57","color":"yellow","rotation":6}`},
		{"empty message", `{"kind":"message","entity_id":"p1","message":"  "}`},
		{"wrong field type", `{"kind":"bid","entity_id":"p1","company":"SV","price":"twenty"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.json))
			require.Error(t, err)
			assert.True(t, rules.IsViolation(err), "decode failures are rule violations: %v", err)
		})
	}
}

func TestEncodeDecodeKeepsKindAndEntity(t *testing.T) {
	actions := []Action{
		NewPass("p1"),
		NewBid("p1", "SV", 25),
		NewPar("p2", "B&O", 100),
		NewBuyPresidentShare("p3", "PRR", 20),
		NewSellShares("p1", "PRR", 20),
		NewLayTile("PRR", "H10", "57", "yellow", 2),
		NewRunRoutes("PRR", 80, "2-0", "2-1"),
		NewDividend("PRR", DividendHalf),
		NewBuyTrain("PRR", "3-0", 180),
		NewTakeLoan("NYC"),
		NewConvert("LNWR"),
	}
	for _, a := range actions {
		t.Run(string(a.Kind()), func(t *testing.T) {
			data, err := Encode(a)
			require.NoError(t, err)
			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, a, decoded)
		})
	}
}

func TestKnown(t *testing.T) {
	assert.True(t, Known(KindPayoffPlayerDebt))
	assert.False(t, Known(Kind("process_pass")))
}
