package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/ensemble"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/sim"
)

const (
	DefaultEnsembleCount     = 10
	DefaultParticles         = 500
	DefaultThreads           = 4
	DefaultRadius            = 1.0
	DefaultSpeed             = 2.0
	DefaultMinDistance       = 0.1
	DefaultTag               = "ensemble"
	DefaultIterations        = 2000
	DefaultInteractionRadius = 1.0
	DefaultNoise             = 0.1
	DefaultDt                = 0.01
	DefaultFrameInterval     = 10
	DefaultDataDir           = "./data"
	DefaultLogLevel          = "info"
)

type Config struct {
	Ensemble   EnsembleConfig   `yaml:"ensemble" toml:"ensemble"`
	Simulation SimulationConfig `yaml:"simulation" toml:"simulation"`
	DataDir    string           `yaml:"data_dir" toml:"data_dir"`
	LogLevel   string           `yaml:"log_level" toml:"log_level"`
}

type EnsembleConfig struct {
	Count       int     `yaml:"count" toml:"count"`
	Particles   int     `yaml:"particles" toml:"particles"`
	Threads     int     `yaml:"threads" toml:"threads"`
	Radius      float64 `yaml:"radius" toml:"radius"`
	Speed       float64 `yaml:"speed" toml:"speed"`
	MinDistance float64 `yaml:"min_distance" toml:"min_distance"`
	Tag         string  `yaml:"tag" toml:"tag"`
	MaxAttempts int     `yaml:"max_attempts" toml:"max_attempts"`
	Seed        int64   `yaml:"seed" toml:"seed"`
}

type SimulationConfig struct {
	Iterations        uint64  `yaml:"iterations" toml:"iterations"`
	InteractionRadius float64 `yaml:"interaction_radius" toml:"interaction_radius"`
	Noise             float64 `yaml:"noise" toml:"noise"`
	Dt                float64 `yaml:"dt" toml:"dt"`
	FrameInterval     uint64  `yaml:"frame_interval" toml:"frame_interval"`
	Workers           int     `yaml:"workers" toml:"workers"`
	Seed              int64   `yaml:"seed" toml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Ensemble: EnsembleConfig{
			Count:       DefaultEnsembleCount,
			Particles:   DefaultParticles,
			Threads:     DefaultThreads,
			Radius:      DefaultRadius,
			Speed:       DefaultSpeed,
			MinDistance: DefaultMinDistance,
			Tag:         DefaultTag,
		},
		Simulation: SimulationConfig{
			Iterations:        DefaultIterations,
			InteractionRadius: DefaultInteractionRadius,
			Noise:             DefaultNoise,
			Dt:                DefaultDt,
			FrameInterval:     DefaultFrameInterval,
			Workers:           DefaultThreads,
		},
		DataDir:  DefaultDataDir,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a YAML or TOML file over the defaults. The format is chosen
// by extension; anything other than .toml is parsed as YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := toml.NewEncoder(f).Encode(cfg); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks every bound and reports the first violation as a
// *dynamo.ConfigError.
func (c *Config) Validate() error {
	e := c.Ensemble
	switch {
	case e.Count < 1:
		return dynamo.Invalid("ensemble.count", e.Count, "must be at least 1")
	case e.Threads < 1:
		return dynamo.Invalid("ensemble.threads", e.Threads, "must be at least 1")
	case e.Tag == "":
		return dynamo.Invalid("ensemble.tag", e.Tag, "must not be empty")
	case strings.ContainsAny(e.Tag, `/\`):
		return dynamo.Invalid("ensemble.tag", e.Tag, "must not contain path separators")
	}
	if err := c.GenParams().Validate(); err != nil {
		return err
	}
	if err := c.SimParams().Validate(); err != nil {
		return err
	}
	if c.DataDir == "" {
		return dynamo.Invalid("data_dir", c.DataDir, "must not be empty")
	}
	if !logging.ValidLevel(c.LogLevel) {
		return dynamo.Invalid("log_level", c.LogLevel, "must be one of trace, debug, info, warn, error")
	}
	return nil
}

func (c *Config) GenParams() ensemble.GenParams {
	return ensemble.GenParams{
		N:           c.Ensemble.Particles,
		Radius:      c.Ensemble.Radius,
		Speed:       c.Ensemble.Speed,
		MinDistance: c.Ensemble.MinDistance,
		MaxAttempts: c.Ensemble.MaxAttempts,
	}
}

// SimParams combines the sphere from the ensemble section with the
// dynamics from the simulation section.
func (c *Config) SimParams() sim.Params {
	return sim.Params{
		Radius:            c.Ensemble.Radius,
		Speed:             c.Ensemble.Speed,
		InteractionRadius: c.Simulation.InteractionRadius,
		Eta:               c.Simulation.Noise,
		Dt:                c.Simulation.Dt,
		Iterations:        c.Simulation.Iterations,
		FrameInterval:     c.Simulation.FrameInterval,
		Workers:           c.Simulation.Workers,
		Seed:              c.Simulation.Seed,
	}
}
