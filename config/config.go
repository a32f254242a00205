package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Simulation Simulation `toml:"simulation"`
	Host       Host       `toml:"host"`
	Route      Route      `toml:"route"`
	Logging    Logging    `toml:"logging"`
}

type Simulation struct {
	TimeStep       float64 `toml:"time_step"`     // seconds per fixed tick
	MaxSubSteps    int     `toml:"max_sub_steps"` // ticks per Update before dropping time
	GravityX       float64 `toml:"gravity_x"`
	GravityY       float64 `toml:"gravity_y"`
	Iterations     uint    `toml:"iterations"`
	Damping        float64 `toml:"damping"`
	SleepThreshold float64 `toml:"sleep_threshold"`
}

// Interval returns the fixed tick length as a duration.
func (s Simulation) Interval() time.Duration {
	return time.Duration(s.TimeStep * float64(time.Second))
}

// Traversal orders used by the scene host when starting entities.
const (
	TraversalDeclared = "declared"
	TraversalReverse  = "reverse"
	TraversalShuffled = "shuffled"
)

type Host struct {
	Traversal string `toml:"traversal"`
	Seed      int64  `toml:"seed"`
}

type Route struct {
	MinSeparation float64 `toml:"min_separation"`
	Resolution    float64 `toml:"resolution"` // wire segment length
}

type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

var (
	ErrTimeStep   = errors.New("config: time_step must be positive")
	ErrSubSteps   = errors.New("config: max_sub_steps must be positive")
	ErrTraversal  = errors.New("config: unknown host traversal")
	ErrResolution = errors.New("config: route resolution must be positive")
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse overlays TOML data onto the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Simulation.TimeStep <= 0 {
		return ErrTimeStep
	}
	if c.Simulation.MaxSubSteps <= 0 {
		return ErrSubSteps
	}
	switch c.Host.Traversal {
	case TraversalDeclared, TraversalReverse, TraversalShuffled:
	default:
		return fmt.Errorf("%w: %q", ErrTraversal, c.Host.Traversal)
	}
	if c.Route.Resolution <= 0 {
		return ErrResolution
	}
	if c.Route.MinSeparation < 0 {
		c.Route.MinSeparation = 0
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Simulation: Simulation{
			TimeStep:       1.0 / 60.0,
			MaxSubSteps:    5,
			GravityX:       0,
			GravityY:       980,
			Iterations:     20,
			Damping:        1.0,
			SleepThreshold: 0,
		},
		Host: Host{
			Traversal: TraversalDeclared,
			Seed:      1,
		},
		Route: Route{
			MinSeparation: 0.5,
			Resolution:    8,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
