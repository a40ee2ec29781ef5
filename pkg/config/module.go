package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cfoust/voxphys/pkg/geom"
	"github.com/cfoust/voxphys/pkg/physics"
	"github.com/cfoust/voxphys/pkg/voxel"

	"github.com/go-redis/redis/v9"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DEFAULT []byte

var ErrInvalid = fmt.Errorf("invalid config")

func readFile(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("does not exist")
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".json":
		return os.ReadFile(path)
	}

	return nil, fmt.Errorf("not in a valid format")
}

// Process starts from the default configuration and applies the provided
// configuration files on top of it, in order. Fields a file leaves out keep
// their previous value; lists are replaced wholesale.
func Process(configPaths []string) (*Config, error) {
	config := Config{}
	if err := yaml.Unmarshal(DEFAULT, &config); err != nil {
		return nil, fmt.Errorf("invalid default config file: %w", err)
	}

	for _, path := range configPaths {
		data, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf(
				"could not process config file %s: %w",
				path,
				err,
			)
		}

		// JSON is a subset of YAML
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf(
				"could not merge config file %s: %w",
				path,
				err,
			)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid)
}

func (c *Config) Validate() error {
	tunables := c.Physics.Tunables
	if tunables.AutoStepCutoff <= 0 {
		return invalid("physics.tunables.autoStepCutoff must be positive")
	}
	if tunables.SleepFrames < 0 {
		return invalid("physics.tunables.sleepFrames must not be negative")
	}
	if tunables.Epsilon < 0 || tunables.ImpactEpsilon < 0 || tunables.SleepVelocitySq < 0 ||
		tunables.StepClearance < 0 || tunables.SweepEpsilon < 0 {
		return invalid("physics.tunables must not be negative")
	}
	if !c.Physics.Gravity.IsFinite() {
		return invalid("physics.gravity must be finite")
	}
	if c.Physics.AirDrag < 0 || c.Physics.FluidDrag < 0 || c.Physics.FluidDensity < 0 {
		return invalid("physics drag and density must not be negative")
	}

	if _, err := voxel.NamedGenerator(c.Terrain.Generator, c.Terrain.FlatHeight); err != nil {
		return fmt.Errorf("terrain.generator: %v: %w", err, ErrInvalid)
	}

	switch c.Terrain.Store.Kind {
	case StoreKindMemory, StoreKindRedis:
	case StoreKindFS:
		if c.Terrain.Store.Directory == "" {
			return invalid("terrain.store.directory is required for the fs store")
		}
	default:
		return invalid("unknown terrain.store.kind %q", c.Terrain.Store.Kind)
	}

	if c.Terrain.Retain.Radius < 0 || c.Terrain.Retain.Every < 0 {
		return invalid("terrain.retain.radius and terrain.retain.every must not be negative")
	}

	for i, body := range c.Bodies {
		if _, err := geom.NewAABB(body.Position, body.Extent); err != nil {
			return fmt.Errorf("bodies[%d] (%s): %v: %w", i, body.Name, err, ErrInvalid)
		}
		if !body.Position.IsFinite() || !body.Velocity.IsFinite() {
			return invalid("bodies[%d] (%s) must have a finite position and velocity", i, body.Name)
		}
		if body.AirDrag != nil && *body.AirDrag < 0 {
			return invalid("bodies[%d] (%s) airDrag must not be negative", i, body.Name)
		}
		if body.FluidDrag != nil && *body.FluidDrag < 0 {
			return invalid("bodies[%d] (%s) fluidDrag must not be negative", i, body.Name)
		}
	}

	run := c.Run
	if run.TickMillis <= 0 {
		return invalid("run.tickMillis must be positive")
	}
	if run.Ticks < 0 || run.Workers < 0 || run.Duration < 0 {
		return invalid("run.ticks, run.workers and run.duration must not be negative")
	}
	if run.Stream.SnapshotsPerSecond <= 0 {
		return invalid("run.stream.snapshotsPerSecond must be positive")
	}
	if run.Recorder.SampleEvery <= 0 {
		return invalid("run.recorder.sampleEvery must be positive")
	}

	return nil
}

// World returns the physics options described by the config.
func (c *Config) World() physics.Options {
	p := c.Physics
	t := p.Tunables
	return physics.Options{
		Gravity:          p.Gravity,
		AirDrag:          p.AirDrag,
		FluidDrag:        p.FluidDrag,
		FluidDensity:     p.FluidDensity,
		MinBounceImpulse: p.MinBounceImpulse,
		Debug:            p.Debug,
		Tunables: physics.Tunables{
			AutoStepCutoff:  t.AutoStepCutoff,
			Epsilon:         t.Epsilon,
			ImpactEpsilon:   t.ImpactEpsilon,
			SleepVelocitySq: t.SleepVelocitySq,
			SleepFrames:     t.SleepFrames,
			StepClearance:   t.StepClearance,
			SweepEpsilon:    t.SweepEpsilon,
		},
	}
}

func (b Body) AABB() (geom.AABB, error) {
	return geom.NewAABB(b.Position, b.Extent)
}

func (b Body) Options() []physics.BodyOption {
	options := []physics.BodyOption{
		physics.WithVelocity(b.Velocity),
		physics.WithRestitution(b.Restitution),
		physics.WithAutoStep(b.AutoStep),
	}
	if b.Mass != nil {
		options = append(options, physics.WithMass(*b.Mass))
	}
	if b.Friction != nil {
		options = append(options, physics.WithFriction(*b.Friction))
	}
	if b.GravityMultiplier != nil {
		options = append(options, physics.WithGravityMultiplier(*b.GravityMultiplier))
	}
	if b.AirDrag != nil {
		options = append(options, physics.WithAirDrag(*b.AirDrag))
	}
	if b.FluidDrag != nil {
		options = append(options, physics.WithFluidDrag(*b.FluidDrag))
	}
	return options
}

// Populate adds the configured bodies to world, returning their handles in
// config order.
func (c *Config) Populate(world *physics.World, extra ...physics.BodyOption) ([]physics.Handle, error) {
	handles := make([]physics.Handle, 0, len(c.Bodies))
	for _, body := range c.Bodies {
		box, err := body.AABB()
		if err != nil {
			return nil, fmt.Errorf("could not add body %s: %w", body.Name, err)
		}
		handles = append(handles, world.AddBody(box, append(body.Options(), extra...)...))
	}
	return handles, nil
}

func (c *Config) Generator() (voxel.Generator, error) {
	return voxel.NamedGenerator(c.Terrain.Generator, c.Terrain.FlatHeight)
}

// Store opens the chunk store for unloaded terrain.
func (c *Config) Store() voxel.Store {
	settings := c.Terrain.Store
	switch settings.Kind {
	case StoreKindFS:
		return voxel.FSStore(settings.Directory)
	case StoreKindRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     settings.Redis.Address,
			Password: settings.Redis.Password,
			DB:       settings.Redis.DB,
		})
		return voxel.NewRedisStore(client, settings.Redis.Expiry)
	}
	return voxel.NewMemoryStore()
}

// Grid builds the voxel world described by the terrain settings.
func (c *Config) Grid() (*voxel.Grid, error) {
	generator, err := c.Generator()
	if err != nil {
		return nil, err
	}
	return voxel.NewGrid(voxel.DefaultRegistry(), generator, c.Store())
}
