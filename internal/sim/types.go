package sim

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/dynamo"
)

var (
	// ErrNoParticles is returned when an engine is built with an empty flock.
	ErrNoParticles = errors.New("sim: initial particle set is empty")

	// ErrSizeMismatch is returned when a request's initial flock does not
	// hold the number of particles its entry declares.
	ErrSizeMismatch = errors.New("sim: initial flock size mismatch")
)

// Params are the physical and numerical settings of one run. They are
// immutable once an Engine is built.
type Params struct {
	Radius            float64 `json:"radius" yaml:"radius"`
	Speed             float64 `json:"speed" yaml:"speed"`
	InteractionRadius float64 `json:"interaction_radius" yaml:"interaction_radius"`
	Eta               float64 `json:"noise" yaml:"noise"`
	Dt                float64 `json:"dt" yaml:"dt"`
	Iterations        uint64  `json:"iterations" yaml:"iterations"`
	FrameInterval     uint64  `json:"frame_interval" yaml:"frame_interval"`
	Workers           int     `json:"workers" yaml:"workers"`
	Seed              int64   `json:"seed" yaml:"seed"`
}

func DefaultParams() Params {
	return Params{
		Radius:            1.0,
		Speed:             2.0,
		InteractionRadius: 1.0,
		Eta:               0.1,
		Dt:                0.01,
		Iterations:        2000,
		FrameInterval:     10,
		Workers:           4,
		Seed:              1,
	}
}

// Validate checks every bound the engine relies on and reports the first
// violation as a *dynamo.ConfigError.
func (p Params) Validate() error {
	switch {
	case !(p.Radius > 0) || math.IsInf(p.Radius, 0):
		return dynamo.Invalid("radius", p.Radius, "must be positive and finite")
	case !(p.Speed >= 0) || math.IsInf(p.Speed, 0):
		return dynamo.Invalid("speed", p.Speed, "must be non-negative and finite")
	case !(p.InteractionRadius >= 0):
		return dynamo.Invalid("interaction_radius", p.InteractionRadius, "must be non-negative")
	case !(p.Eta >= 0):
		return dynamo.Invalid("noise", p.Eta, "must be non-negative")
	case !(p.Dt > 0) || math.IsInf(p.Dt, 0):
		return dynamo.Invalid("dt", p.Dt, "must be positive and finite")
	case p.FrameInterval < 1:
		return dynamo.Invalid("frame_interval", p.FrameInterval, "must be at least 1")
	case p.Workers < 1:
		return dynamo.Invalid("workers", p.Workers, "must be at least 1")
	}
	return nil
}

// Snapshot is a value copy of the flock at one step.
type Snapshot struct {
	Step      uint64          `json:"step"`
	Time      float64         `json:"time"`
	Particles []bird.Particle `json:"particles"`
}

// Metric observes emitted snapshots and reduces them to a single number.
type Metric interface {
	Name() string
	Observe(s Snapshot)
	Value() float64
	Reset()
}

// Request describes one simulation run seeded from an ensemble entry.
type Request struct {
	ID         string          `json:"id"`
	Tag        string          `json:"tag"`
	EnsembleID string          `json:"ensemble_id"`
	Initial    []bird.Particle `json:"-"`
	Params     Params          `json:"params"`

	// Size is the flock size recorded with the entry. Zero skips the check.
	Size int `json:"-"`
}

func (r Request) Validate() error {
	if r.Size > 0 && len(r.Initial) != r.Size {
		return fmt.Errorf("%w: entry %s declares %d particles, got %d",
			ErrSizeMismatch, r.EnsembleID, r.Size, len(r.Initial))
	}
	return r.Params.Validate()
}

// Result is the assembled outcome of a run.
type Result struct {
	ID              string             `json:"id"`
	Tag             string             `json:"tag"`
	EnsembleID      string             `json:"ensemble_id"`
	Params          Params             `json:"params"`
	Particles       int                `json:"particles"`
	Snapshots       []Snapshot         `json:"-"`
	FinalState      []bird.Particle    `json:"-"`
	CreatedAt       time.Time          `json:"created_at"`
	TotalSteps      uint64             `json:"total_steps"`
	DurationSeconds float64            `json:"duration_seconds"`
	Frames          int                `json:"frames"`
	Metrics         map[string]float64 `json:"metrics,omitempty"`
}

// NewResult assembles a Result from the frames a consumer received. Total
// steps and final state come from the last snapshot, duration is
// steps·dt.
func NewResult(req Request, snaps []Snapshot, metrics map[string]float64) *Result {
	r := &Result{
		ID:         req.ID,
		Tag:        req.Tag,
		EnsembleID: req.EnsembleID,
		Params:     req.Params,
		Particles:  len(req.Initial),
		Snapshots:  snaps,
		CreatedAt:  time.Now(),
		Frames:     len(snaps),
		Metrics:    metrics,
	}
	if n := len(snaps); n > 0 {
		last := snaps[n-1]
		r.TotalSteps = last.Step
		r.FinalState = last.Particles
		if r.Particles == 0 {
			r.Particles = len(last.Particles)
		}
	}
	r.DurationSeconds = float64(r.TotalSteps) * req.Params.Dt
	return r
}
