// Package profile handles target.toml files describing the build-time
// capabilities of the embedded target a bytecode container is destined
// for. A profile maps onto a rite.Config, so a container can be
// validated on the development host exactly as the target's loader
// would accept or reject it.
package profile

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/chazu/riteload/rite"
)

// Profile represents a target.toml configuration.
type Profile struct {
	Target Target `toml:"target"`
	Limits Limits `toml:"limits"`
}

// Target describes the constant types the target build supports. The
// fields are pointers so an absent key can default to enabled.
type Target struct {
	Name  string `toml:"name"`
	Text  *bool  `toml:"text"`
	Float *bool  `toml:"float"`
	Int64 *bool  `toml:"int64"`
}

// Limits bounds the loader's resource use on the target.
type Limits struct {
	MaxDepth int `toml:"max-depth"`
	MaxAlloc int `toml:"max-alloc"`
}

// Load parses a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var p Profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if p.Limits.MaxDepth < 0 {
		return nil, fmt.Errorf("invalid max-depth %d in %s", p.Limits.MaxDepth, path)
	}
	if p.Limits.MaxAlloc < 0 {
		return nil, fmt.Errorf("invalid max-alloc %d in %s", p.Limits.MaxAlloc, path)
	}
	return &p, nil
}

// Config returns the rite.Config this profile describes. Absent keys
// fall back to the permissive defaults.
func (p *Profile) Config() rite.Config {
	cfg := rite.DefaultConfig()
	if p.Target.Text != nil {
		cfg.Text = *p.Target.Text
	}
	if p.Target.Float != nil {
		cfg.Float = *p.Target.Float
	}
	if p.Target.Int64 != nil {
		cfg.Int64 = *p.Target.Int64
	}
	if p.Limits.MaxDepth > 0 {
		cfg.MaxDepth = p.Limits.MaxDepth
	}
	if p.Limits.MaxAlloc > 0 {
		cfg.MaxAlloc = p.Limits.MaxAlloc
	}
	return cfg
}
