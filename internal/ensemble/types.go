package ensemble

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/dynamo"
)

// DefaultMaxAttempts is the rejection budget used when GenParams.MaxAttempts is 0.
const DefaultMaxAttempts = 1_000_000

var ErrCapacityExceeded = errors.New("ensemble: separation constraint cannot be satisfied")

type GenParams struct {
	N           int     `json:"n_particles" yaml:"particles"`
	Radius      float64 `json:"radius" yaml:"radius"`
	Speed       float64 `json:"speed" yaml:"speed"`
	MinDistance float64 `json:"min_distance" yaml:"min_distance"`
	MaxAttempts int     `json:"max_attempts,omitempty" yaml:"max_attempts"`
}

func (p GenParams) Validate() error {
	switch {
	case p.N < 1:
		return dynamo.Invalid("particles", p.N, "must be at least 1")
	case !(p.Radius > 0) || math.IsInf(p.Radius, 0):
		return dynamo.Invalid("radius", p.Radius, "must be positive and finite")
	case !(p.Speed >= 0) || math.IsInf(p.Speed, 0):
		return dynamo.Invalid("speed", p.Speed, "must be non-negative and finite")
	case !(p.MinDistance >= 0):
		return dynamo.Invalid("min_distance", p.MinDistance, "must be non-negative")
	case p.MaxAttempts < 0:
		return dynamo.Invalid("max_attempts", p.MaxAttempts, "must be non-negative")
	}
	return nil
}

func (p GenParams) budget() int {
	if p.MaxAttempts == 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

// Entry is one generated initial flock.
type Entry struct {
	ID        int             `json:"id"`
	Tag       string          `json:"tag"`
	Particles []bird.Particle `json:"birds"`
	Params    GenParams       `json:"params"`
	CreatedAt time.Time       `json:"created_at"`
}

// CapacityError reports an entry whose rejection budget ran out.
type CapacityError struct {
	EntryID   int
	Accepted  int
	Requested int
	Attempts  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("ensemble: entry %d: placed %d of %d particles, %d consecutive rejections",
		e.EntryID, e.Accepted, e.Requested, e.Attempts)
}

func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// Summary describes a finished generation.
type Summary struct {
	Tag       string
	Requested int
	Generated int
	Dropped   int
	Workers   int
	Elapsed   time.Duration
}
