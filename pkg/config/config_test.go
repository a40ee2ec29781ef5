package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/physics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, contents string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestProcess(t *testing.T) {
	// Default config
	config, err := Process([]string{})
	require.NoError(t, err)
	assert.Equal(t, physics.DefaultOptions(), config.World())
	assert.Len(t, config.Bodies, 3)
	assert.Equal(t, Retain{Radius: 2, Every: 20}, config.Terrain.Retain)

	dir := t.TempDir()

	// yaml config
	{
		yaml := writeConfig(t, dir, "config.yaml", `
run:
  tickMillis: 10
`)
		config, err := Process([]string{yaml})
		require.NoError(t, err)
		assert.Equal(t, 10.0, config.Run.TickMillis)
		assert.Equal(t, 600, config.Run.Ticks, "untouched fields keep their defaults")
	}

	// json config
	{
		json := writeConfig(t, dir, "config.json", `{
  "physics": {
    "gravity": [0, -20, 0]
  }
}`)
		config, err := Process([]string{json})
		require.NoError(t, err)
		assert.Equal(t, geom.Vector{0, -20, 0}, config.Physics.Gravity)
	}

	// multiple yaml
	{
		yaml1 := writeConfig(t, dir, "config1.yaml", `
terrain:
  generator: flat
  flatHeight: 3
bodies:
  - name: only
    position: [0, 3, 0]
    extent: [1, 1, 1]
    mass: 2
    airDrag: 0
`)
		yaml2 := writeConfig(t, dir, "config2.yaml", `
terrain:
  flatHeight: 5
run:
  duration: 1m
`)
		config, err := Process([]string{yaml1, yaml2})
		require.NoError(t, err)
		assert.Equal(t, "flat", config.Terrain.Generator)
		assert.Equal(t, 5, config.Terrain.FlatHeight, "later files win")
		assert.Equal(t, time.Minute, config.Run.Duration)
		require.Len(t, config.Bodies, 1, "lists are replaced")
		require.NotNil(t, config.Bodies[0].Mass)
		assert.Equal(t, 2.0, *config.Bodies[0].Mass)
	}

	// unknown format
	{
		toml := writeConfig(t, dir, "config.toml", `run = 1`)
		_, err := Process([]string{toml})
		assert.Error(t, err)
	}

	// missing file
	_, err = Process([]string{filepath.Join(dir, "nope.yaml")})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative extent", func(c *Config) { c.Bodies[0].Extent[1] = -1 }},
		{"unknown generator", func(c *Config) { c.Terrain.Generator = "moon" }},
		{"unknown store", func(c *Config) { c.Terrain.Store.Kind = "tape" }},
		{"fs store without directory", func(c *Config) {
			c.Terrain.Store.Kind = StoreKindFS
			c.Terrain.Store.Directory = ""
		}},
		{"zero tick", func(c *Config) { c.Run.TickMillis = 0 }},
		{"negative retain radius", func(c *Config) { c.Terrain.Retain.Radius = -1 }},
		{"zero cutoff", func(c *Config) { c.Physics.Tunables.AutoStepCutoff = 0 }},
		{"negative drag override", func(c *Config) {
			drag := -1.0
			c.Bodies[0].AirDrag = &drag
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := Process(nil)
			require.NoError(t, err)
			tt.mutate(config)
			assert.ErrorIs(t, config.Validate(), ErrInvalid)
		})
	}
}

func TestPopulate(t *testing.T) {
	config, err := Process(nil)
	require.NoError(t, err)

	grid, err := config.Grid()
	require.NoError(t, err)
	defer grid.Close()

	world := physics.New(config.World(), grid.IsSolid, grid.IsFluid)
	handles, err := config.Populate(world)
	require.NoError(t, err)
	require.Len(t, handles, 3)
	assert.Equal(t, handles, world.Bodies())

	walker := world.Body(handles[1])
	assert.True(t, walker.AutoStep)
	assert.Equal(t, geom.Vector{3, 0, 0}, walker.Velocity)
	assert.Equal(t, 1.0, walker.Mass)

	swimmer := world.Body(handles[2])
	assert.Equal(t, 0.5, swimmer.Mass)

	// the crate falls onto the dirt at y = 5 and stays there
	for i := 0; i < 300; i++ {
		world.Tick(config.Run.TickMillis)
	}
	crate := world.Body(handles[0])
	assert.Equal(t, int8(-1), crate.AtRestY())
	assert.InDelta(t, 5.0, crate.Position()[1], 1e-6)

	// the swimmer ends up in the pool
	assert.True(t, swimmer.InFluid)
}
