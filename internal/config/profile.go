// Package config holds the mapping profile: sensitivity, timing, target stick
// and the mouse-to-pad binding table. Profiles are stored as JSON, YAML or
// TOML, picked by file extension.
package config

import (
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/Alia5/rawpad/engine"
	"github.com/Alia5/rawpad/mapping"
)

// ErrConfigLoad is returned together with the default profile when a stored
// profile exists but cannot be used.
var ErrConfigLoad = errors.New("failed to load profile")

// Profile is a mapping profile as persisted.
type Profile struct {
	Name         string
	SensitivityX float64
	SensitivityY float64
	// SensitivityScale is a percentage applied to both axes; 100 is 1.0x.
	SensitivityScale int
	HoldMs           int
	TickMs           int
	Stick            string
	// Bindings maps mouse button names (left, right, middle, x1, x2) to pad
	// button names (a, b, lb, dpad-up, ...).
	Bindings map[string]string
}

// DefaultProfile is the profile written on first start.
func DefaultProfile() Profile {
	cfg := engine.DefaultConfig()
	return Profile{
		Name:             "default",
		SensitivityX:     cfg.Sensitivity.X,
		SensitivityY:     cfg.Sensitivity.Y,
		SensitivityScale: 100,
		HoldMs:           int(cfg.Sensitivity.Hold / time.Millisecond),
		TickMs:           int(cfg.TickInterval / time.Millisecond),
		Stick:            cfg.Stick,
		Bindings:         cfg.Bindings.Names(),
	}
}

// Validate checks everything EngineConfig would reject.
func (p Profile) Validate() error {
	_, err := p.EngineConfig()
	return err
}

// EngineConfig converts the profile into an engine session configuration.
func (p Profile) EngineConfig() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	if p.SensitivityScale < 0 {
		return cfg, fmt.Errorf("sensitivityScale must not be negative, got %d", p.SensitivityScale)
	}
	if p.SensitivityX < 0 || p.SensitivityY < 0 {
		return cfg, fmt.Errorf("sensitivity must not be negative, got %v/%v", p.SensitivityX, p.SensitivityY)
	}
	if p.HoldMs < 0 {
		return cfg, fmt.Errorf("holdMs must not be negative, got %d", p.HoldMs)
	}
	if p.TickMs <= 0 {
		return cfg, fmt.Errorf("tickMs must be positive, got %d", p.TickMs)
	}
	bindings, err := mapping.ParseBindings(p.Bindings)
	if err != nil {
		return cfg, err
	}
	if _, err := mapping.NewButtonMapper(bindings); err != nil {
		return cfg, err
	}
	switch p.Stick {
	case "", "left", "right":
	default:
		return cfg, fmt.Errorf("stick must be left or right, got %q", p.Stick)
	}

	scale := float64(p.SensitivityScale) / 100
	cfg.Sensitivity = mapping.Sensitivity{
		X:    p.SensitivityX * scale,
		Y:    p.SensitivityY * scale,
		Hold: time.Duration(p.HoldMs) * time.Millisecond,
	}
	cfg.TickInterval = time.Duration(p.TickMs) * time.Millisecond
	cfg.Bindings = bindings
	if p.Stick != "" {
		cfg.Stick = p.Stick
	}
	return cfg, nil
}

// document is the on-disk shape. Pointer fields tell "absent" from zero so a
// partial file only overrides what it names.
type document struct {
	Name             *string           `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	SensitivityX     *float64          `json:"sensitivityX,omitempty" yaml:"sensitivityX,omitempty" toml:"sensitivityX,omitempty"`
	SensitivityY     *float64          `json:"sensitivityY,omitempty" yaml:"sensitivityY,omitempty" toml:"sensitivityY,omitempty"`
	SensitivityScale *int              `json:"sensitivityScale,omitempty" yaml:"sensitivityScale,omitempty" toml:"sensitivityScale,omitempty"`
	HoldMs           *int              `json:"holdMs,omitempty" yaml:"holdMs,omitempty" toml:"holdMs,omitempty"`
	TickMs           *int              `json:"tickMs,omitempty" yaml:"tickMs,omitempty" toml:"tickMs,omitempty"`
	Stick            *string           `json:"stick,omitempty" yaml:"stick,omitempty" toml:"stick,omitempty"`
	Bindings         map[string]string `json:"bindings,omitempty" yaml:"bindings,omitempty" toml:"bindings,omitempty"`
}

func toDocument(p Profile) document {
	return document{
		Name:             &p.Name,
		SensitivityX:     &p.SensitivityX,
		SensitivityY:     &p.SensitivityY,
		SensitivityScale: &p.SensitivityScale,
		HoldMs:           &p.HoldMs,
		TickMs:           &p.TickMs,
		Stick:            &p.Stick,
		Bindings:         maps.Clone(p.Bindings),
	}
}

// profile overlays the document onto the defaults.
func (d document) profile() Profile {
	p := DefaultProfile()
	if d.Name != nil {
		p.Name = *d.Name
	}
	if d.SensitivityX != nil {
		p.SensitivityX = *d.SensitivityX
	}
	if d.SensitivityY != nil {
		p.SensitivityY = *d.SensitivityY
	}
	if d.SensitivityScale != nil {
		p.SensitivityScale = *d.SensitivityScale
	}
	if d.HoldMs != nil {
		p.HoldMs = *d.HoldMs
	}
	if d.TickMs != nil {
		p.TickMs = *d.TickMs
	}
	if d.Stick != nil {
		p.Stick = *d.Stick
	}
	if d.Bindings != nil {
		p.Bindings = d.Bindings
	}
	return p
}
