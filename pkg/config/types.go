package config

import (
	"time"

	"github.com/cfoust/voxphys/pkg/geom"
)

type Tunables struct {
	AutoStepCutoff  float64 `yaml:"autoStepCutoff"`
	Epsilon         float64 `yaml:"epsilon"`
	ImpactEpsilon   float64 `yaml:"impactEpsilon"`
	SleepVelocitySq float64 `yaml:"sleepVelocitySq"`
	SleepFrames     int     `yaml:"sleepFrames"`
	StepClearance   float64 `yaml:"stepClearance"`
	SweepEpsilon    float64 `yaml:"sweepEpsilon"`
}

type Physics struct {
	Gravity          geom.Vector `yaml:"gravity"`
	AirDrag          float64     `yaml:"airDrag"`
	FluidDrag        float64     `yaml:"fluidDrag"`
	FluidDensity     float64     `yaml:"fluidDensity"`
	MinBounceImpulse float64     `yaml:"minBounceImpulse"`
	Debug            bool        `yaml:"debug"`
	Tunables         Tunables    `yaml:"tunables"`
}

type StoreKind string

const (
	StoreKindMemory StoreKind = "memory"
	StoreKindFS     StoreKind = "fs"
	StoreKindRedis  StoreKind = "redis"
)

type RedisSettings struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Expiry   time.Duration `yaml:"expiry"`
}

type Store struct {
	Kind      StoreKind     `yaml:"kind"`
	Directory string        `yaml:"directory"`
	Redis     RedisSettings `yaml:"redis"`
}

// Retain pages chunks out of memory once they are more than Radius chunks
// away from every body, checking every Every ticks. Zero Every disables it.
type Retain struct {
	Radius int `yaml:"radius"`
	Every  int `yaml:"every"`
}

type Terrain struct {
	Generator  string `yaml:"generator"`
	FlatHeight int    `yaml:"flatHeight"`
	Store      Store  `yaml:"store"`
	Retain     Retain `yaml:"retain"`
}

// Body describes one body of a scenario. Unset pointer fields fall back to
// the engine defaults.
type Body struct {
	Name              string      `yaml:"name"`
	Position          geom.Vector `yaml:"position"`
	Extent            geom.Vector `yaml:"extent"`
	Velocity          geom.Vector `yaml:"velocity"`
	Mass              *float64    `yaml:"mass"`
	Friction          *float64    `yaml:"friction"`
	Restitution       float64     `yaml:"restitution"`
	GravityMultiplier *float64    `yaml:"gravityMultiplier"`
	AirDrag           *float64    `yaml:"airDrag"`
	FluidDrag         *float64    `yaml:"fluidDrag"`
	AutoStep          bool        `yaml:"autoStep"`
}

type Stream struct {
	Port               int     `yaml:"port"`
	SnapshotsPerSecond float64 `yaml:"snapshotsPerSecond"`
}

type Recorder struct {
	Path        string `yaml:"path"`
	SampleEvery int    `yaml:"sampleEvery"`
}

type Run struct {
	TickMillis float64 `yaml:"tickMillis"`
	Ticks      int     `yaml:"ticks"`
	Workers    int     `yaml:"workers"`
	// Duration limits how long a realtime run lasts. Zero means forever.
	Duration time.Duration `yaml:"duration"`
	Stream   Stream        `yaml:"stream"`
	Recorder Recorder      `yaml:"recorder"`
}

type Config struct {
	Physics Physics `yaml:"physics"`
	Terrain Terrain `yaml:"terrain"`
	Bodies  []Body  `yaml:"bodies"`
	Run     Run     `yaml:"run"`
}
