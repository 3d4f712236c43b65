package config

import "sort"

// Presets are named dynamics regimes. Each overrides only the simulation
// section and the particle count.
var Presets = map[string]*Config{
	"ordered": {
		Ensemble:   EnsembleConfig{Particles: 300, MinDistance: 0.05},
		Simulation: SimulationConfig{Iterations: 2000, InteractionRadius: 0.5, Noise: 0.02, Dt: 0.01, FrameInterval: 10},
	},
	"critical": {
		Ensemble:   EnsembleConfig{Particles: 500, MinDistance: 0.05},
		Simulation: SimulationConfig{Iterations: 5000, InteractionRadius: 0.3, Noise: 0.6, Dt: 0.01, FrameInterval: 25},
	},
	"disordered": {
		Ensemble:   EnsembleConfig{Particles: 300, MinDistance: 0.05},
		Simulation: SimulationConfig{Iterations: 2000, InteractionRadius: 0.2, Noise: 2.0, Dt: 0.01, FrameInterval: 10},
	},
	"dense": {
		Ensemble:   EnsembleConfig{Particles: 1000, MinDistance: 0.03},
		Simulation: SimulationConfig{Iterations: 1000, InteractionRadius: 0.25, Noise: 0.1, Dt: 0.005, FrameInterval: 10},
	},
}

// GetPreset returns a full configuration: defaults with the named preset
// applied, or nil when there is no such preset.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Apply(p)
	return cfg
}

// Apply copies the non-zero particle count, separation and simulation
// settings of p onto c.
func (c *Config) Apply(p *Config) {
	if p.Ensemble.Particles > 0 {
		c.Ensemble.Particles = p.Ensemble.Particles
	}
	if p.Ensemble.MinDistance > 0 {
		c.Ensemble.MinDistance = p.Ensemble.MinDistance
	}
	s := p.Simulation
	if s.Iterations > 0 {
		c.Simulation.Iterations = s.Iterations
	}
	if s.InteractionRadius > 0 {
		c.Simulation.InteractionRadius = s.InteractionRadius
	}
	if s.Noise > 0 {
		c.Simulation.Noise = s.Noise
	}
	if s.Dt > 0 {
		c.Simulation.Dt = s.Dt
	}
	if s.FrameInterval > 0 {
		c.Simulation.FrameInterval = s.FrameInterval
	}
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
