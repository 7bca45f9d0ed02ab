package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPhases() []Phase {
	return []Phase{
		{Name: "2", TileColors: []string{ColorYellow}, OperatingRounds: 1, TrainLimit: 4},
		{Name: "3", On: "3", TileColors: []string{ColorYellow, ColorGreen}, OperatingRounds: 2, TrainLimit: 4},
		{Name: "4", On: "4", TileColors: []string{ColorYellow, ColorGreen}, OperatingRounds: 2, TrainLimit: 3},
		{Name: "5", On: "5", TileColors: []string{ColorYellow, ColorGreen, ColorBrown}, OperatingRounds: 3, TrainLimit: 2,
			Events: []string{PhaseEventCloseCompanies}},
	}
}

func TestPhaseManagerAdvancesOnTriggeringTrain(t *testing.T) {
	pm, err := NewPhaseManager(testPhases())
	require.NoError(t, err)

	assert.Equal(t, "2", pm.Name())
	assert.Empty(t, pm.TrainBought("2"))
	assert.Empty(t, pm.TrainBought("4"), "a later phase trigger must not skip the one before it")

	entered := pm.TrainBought("3")
	require.Len(t, entered, 1)
	assert.Equal(t, "3", pm.Name())
	assert.Equal(t, 2, pm.OperatingRounds())
	assert.True(t, pm.TileColorAvailable(ColorGreen))
	assert.False(t, pm.TileColorAvailable(ColorBrown))

	pm.TrainBought("4")
	entered = pm.TrainBought("5")
	require.Len(t, entered, 1)
	assert.Equal(t, []string{PhaseEventCloseCompanies}, entered[0].Events)
	assert.Equal(t, 2, pm.TrainLimit())
	assert.Empty(t, pm.TrainBought("5"), "last phase stays put")
}

func TestPhaseManagerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		phases []Phase
	}{
		{"empty", nil},
		{"no name", []Phase{{OperatingRounds: 1}}},
		{"no operating rounds", []Phase{{Name: "2"}}},
		{"unknown colour", []Phase{{Name: "2", OperatingRounds: 1, TileColors: []string{"purple"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPhaseManager(tt.phases)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
		})
	}
}

func TestCanUpgrade(t *testing.T) {
	assert.True(t, CanUpgrade("", ColorYellow))
	assert.False(t, CanUpgrade("", ColorGreen))
	assert.True(t, CanUpgrade(ColorYellow, ColorGreen))
	assert.True(t, CanUpgrade(ColorBrown, ColorGray))
	assert.False(t, CanUpgrade(ColorYellow, ColorBrown))
	assert.False(t, CanUpgrade(ColorGreen, ColorGreen))
	assert.False(t, CanUpgrade(ColorGray, "black"))
}
