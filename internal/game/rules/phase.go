package rules

import (
	"fmt"
	"strings"
)

// Tile colours in upgrade order.
const (
	ColorYellow = "yellow"
	ColorGreen  = "green"
	ColorBrown  = "brown"
	ColorGray   = "gray"
)

var colorOrder = map[string]int{
	ColorYellow: 1,
	ColorGreen:  2,
	ColorBrown:  3,
	ColorGray:   4,
}

// Phase events fired when a phase begins.
const (
	PhaseEventCloseCompanies = "close_companies"
	PhaseEventFloat60        = "float_60"
	PhaseEventFloat10Share   = "float_10_share"
)

// Phase is one train-driven era of a game.
type Phase struct {
	Name            string   `yaml:"name" json:"name"`
	On              string   `yaml:"on" json:"on,omitempty"`
	TileColors      []string `yaml:"tiles" json:"tiles"`
	OperatingRounds int      `yaml:"operating_rounds" json:"operating_rounds"`
	TrainLimit      int      `yaml:"train_limit" json:"train_limit"`
	Events          []string `yaml:"events,omitempty" json:"events,omitempty"`
}

// CanUpgrade reports whether a hex showing colour from may be replaced by a
// tile of colour to. An empty from means a bare hex.
func CanUpgrade(from, to string) bool {
	target, ok := colorOrder[to]
	if !ok {
		return false
	}
	if from == "" {
		return target == colorOrder[ColorYellow]
	}
	current, ok := colorOrder[from]
	if !ok {
		return false
	}
	return target == current+1
}

// PhaseManager tracks the current phase and advances it on train purchases.
type PhaseManager struct {
	phases []Phase
	index  int
}

// NewPhaseManager creates a phase manager starting at the first phase.
func NewPhaseManager(phases []Phase) (*PhaseManager, error) {
	if len(phases) == 0 {
		return nil, Misconfigured("no phases defined")
	}
	for i, p := range phases {
		if strings.TrimSpace(p.Name) == "" {
			return nil, Misconfigured("phase %d has no name", i)
		}
		if p.OperatingRounds < 1 {
			return nil, Misconfigured("phase %s must have at least one operating round", p.Name)
		}
		for _, c := range p.TileColors {
			if _, ok := colorOrder[c]; !ok {
				return nil, Misconfigured("phase %s has unknown tile colour %q", p.Name, c)
			}
		}
	}
	return &PhaseManager{phases: phases}, nil
}

// Current returns the phase in effect.
func (pm *PhaseManager) Current() Phase {
	return pm.phases[pm.index]
}

// Index returns the position of the current phase.
func (pm *PhaseManager) Index() int {
	return pm.index
}

// Name returns the current phase name.
func (pm *PhaseManager) Name() string {
	return pm.phases[pm.index].Name
}

// OperatingRounds returns the number of operating rounds per set in the current phase.
func (pm *PhaseManager) OperatingRounds() int {
	return pm.phases[pm.index].OperatingRounds
}

// TrainLimit returns the per-corporation train limit.
func (pm *PhaseManager) TrainLimit() int {
	return pm.phases[pm.index].TrainLimit
}

// TileColorAvailable reports whether tiles of the colour may be laid.
func (pm *PhaseManager) TileColorAvailable(color string) bool {
	for _, c := range pm.phases[pm.index].TileColors {
		if c == color {
			return true
		}
	}
	return false
}

// TrainBought advances through every following phase triggered by the train
// name and returns the phases entered, in order.
func (pm *PhaseManager) TrainBought(trainName string) []Phase {
	var entered []Phase
	for pm.index+1 < len(pm.phases) && pm.phases[pm.index+1].On == trainName {
		pm.index++
		entered = append(entered, pm.phases[pm.index])
	}
	return entered
}

func (p Phase) String() string {
	return fmt.Sprintf("phase %s", p.Name)
}
