package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Alia5/rawpad/device/xbox360"
	"github.com/Alia5/rawpad/internal/config"
	"github.com/Alia5/rawpad/rawinput"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "profile.json")
	s := config.NewStore(path, nil)

	p, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, config.DefaultProfile(), p)

	_, err = os.Stat(path)
	require.NoError(t, err, "defaults must be persisted")

	again, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestLoadCorruptKeepsFile(t *testing.T) {
	cases := map[string]string{
		"profile.json": `{"sensitivityX": `,
		"profile.yaml": "bindings: [unclosed",
		"profile.toml": "holdMs = = 3",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			p, err := config.NewStore(path, nil).Load()
			assert.ErrorIs(t, err, config.ErrConfigLoad)
			assert.Equal(t, config.DefaultProfile(), p)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, body, string(data))
		})
	}
}

func TestLoadInvalidProfile(t *testing.T) {
	cases := map[string]string{
		"unknown pad button":   `{"bindings": {"left": "z"}}`,
		"unknown mouse button": `{"bindings": {"thumb": "a"}}`,
		"duplicate target":     `{"bindings": {"left": "a", "right": "a"}}`,
		"zero tick":            `{"tickMs": 0}`,
		"negative hold":        `{"holdMs": -1}`,
		"bad stick":            `{"stick": "middle"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profile.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := config.NewStore(path, nil).Load()
			assert.ErrorIs(t, err, config.ErrConfigLoad)
		})
	}
}

func TestRoundTripFormats(t *testing.T) {
	custom := config.Profile{
		Name:             "fps",
		SensitivityX:     0.1,
		SensitivityY:     0.08,
		SensitivityScale: 150,
		HoldMs:           60,
		TickMs:           10,
		Stick:            "left",
		Bindings:         map[string]string{"left": "rb", "right": "lb", "x1": "dpad-up"},
	}

	for _, name := range []string{"p.json", "p.yaml", "p.yml", "p.toml"} {
		t.Run(name, func(t *testing.T) {
			s := config.NewStore(filepath.Join(t.TempDir(), name), nil)
			require.NoError(t, s.Save(custom))
			got, err := s.Load()
			require.NoError(t, err)
			assert.Equal(t, custom, got)
		})
	}
}

func TestPartialDocumentKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: slow\nsensitivityScale: 50\n"), 0o644))

	p, err := config.NewStore(path, nil).Load()
	require.NoError(t, err)
	want := config.DefaultProfile()
	want.Name = "slow"
	want.SensitivityScale = 50
	assert.Equal(t, want, p)
}

func TestEngineConfig(t *testing.T) {
	p := config.DefaultProfile()
	p.SensitivityScale = 50
	p.HoldMs = 250
	p.TickMs = 8
	p.Bindings = map[string]string{"middle": "guide"}

	cfg, err := p.EngineConfig()
	require.NoError(t, err)
	assert.InDelta(t, 0.03, cfg.Sensitivity.X, 1e-12)
	assert.InDelta(t, 0.03, cfg.Sensitivity.Y, 1e-12)
	assert.Equal(t, 250*time.Millisecond, cfg.Sensitivity.Hold)
	assert.Equal(t, 8*time.Millisecond, cfg.TickInterval)
	assert.Equal(t, "right", cfg.Stick)
	assert.Equal(t, xbox360.ButtonGuide, cfg.Bindings[rawinput.MouseMiddle])
	assert.Len(t, cfg.Bindings, 1)
}

func TestDefaultProfileMatchesStock(t *testing.T) {
	p := config.DefaultProfile()
	assert.Equal(t, "default", p.Name)
	assert.Equal(t, 100, p.SensitivityScale)
	assert.Equal(t, 100, p.HoldMs)
	assert.Equal(t, 20, p.TickMs)
	assert.Equal(t, map[string]string{"left": "a", "right": "b", "middle": "x", "x1": "y", "x2": "lb"}, p.Bindings)
}
