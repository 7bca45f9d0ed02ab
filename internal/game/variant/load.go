package variant

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/railyard/rails-server-go/internal/game"
	"github.com/railyard/rails-server-go/internal/game/rules"
)

// File is the YAML form of a variant. Rules names the built-in variant whose
// round composition and scenario rules the config plays under.
type File struct {
	Rules       string         `yaml:"rules"`
	Terrain     map[string]int `yaml:"terrain,omitempty"`
	game.Config `yaml:",inline"`
}

// Parse decodes a YAML variant. Unknown keys are rejected.
func Parse(data []byte) (Variant, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return Variant{}, fmt.Errorf("decode variant: %w: %v", rules.ErrConfiguration, err)
	}
	policies, err := rulesFor(f.Rules, f.Terrain)
	if err != nil {
		return Variant{}, err
	}
	cfg := f.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return Variant{}, err
	}
	return Variant{Config: cfg, Policies: policies}, nil
}

// LoadFile reads a YAML variant from disk.
func LoadFile(path string) (Variant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Variant{}, fmt.Errorf("read variant %s: %w", path, err)
	}
	v, err := Parse(data)
	if err != nil {
		return Variant{}, fmt.Errorf("variant %s: %w", path, err)
	}
	return v, nil
}

// Marshal encodes a variant's config as YAML under the given rules.
func Marshal(rulesName string, cfg game.Config) ([]byte, error) {
	out, err := yaml.Marshal(File{Rules: rulesName, Config: cfg})
	if err != nil {
		return nil, fmt.Errorf("encode variant: %w", err)
	}
	return out, nil
}
