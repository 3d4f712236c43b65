package sim

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/pipe"
	"github.com/san-kum/flocksim/internal/vec"
)

// headingThreshold is the smallest mean-heading norm that is normalized;
// below it neighbours cancel and the particle keeps its own velocity.
const headingThreshold = 1e-6

// Engine advances a fixed flock under the alignment rule.
//
// The engine owns two particle buffers. A step reads only the current one
// and writes each particle's update into its own slot of the other, then
// the roles swap. Step count and time belong to the goroutine calling Run.
type Engine struct {
	params  Params
	bufs    [2][]bird.Particle
	cur     int
	steps   uint64
	time    float64
	workers int
	rngs    []*rand.Rand

	stop    atomic.Bool
	frames  pipe.Sink[Snapshot]
	emitted uint64
	dropped uint64
	metrics []Metric
	log     logrus.FieldLogger
}

// New builds an engine over a copy of initial. frames may be nil, in which
// case snapshots are discarded.
func New(initial []bird.Particle, params Params, frames pipe.Sink[Snapshot], log logrus.FieldLogger) (*Engine, error) {
	if len(initial) == 0 {
		return nil, ErrNoParticles
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if i := firstNonFinite(initial); i >= 0 {
		return nil, fmt.Errorf("%w: initial particle %d is %v", dynamo.ErrInvalidState, i, initial[i])
	}
	if frames == nil {
		frames = pipe.Discard[Snapshot]{}
	}

	n := len(initial)
	e := &Engine{
		params:  params,
		workers: dynamo.Workers(params.Workers, n),
		frames:  frames,
		log:     logging.OrDiscard(log),
	}
	e.bufs[0] = make([]bird.Particle, n)
	e.bufs[1] = make([]bird.Particle, n)
	copy(e.bufs[0], initial)

	e.rngs = make([]*rand.Rand, e.workers)
	for w := range e.rngs {
		e.rngs[w] = rand.New(rand.NewSource(params.Seed + int64(w)))
	}

	return e, nil
}

func (e *Engine) AddMetric(m Metric) { e.metrics = append(e.metrics, m) }

func (e *Engine) Params() Params    { return e.params }
func (e *Engine) StepCount() uint64 { return e.steps }
func (e *Engine) Time() float64     { return e.time }
func (e *Engine) Workers() int      { return e.workers }

// Dropped is the number of snapshots the frame sink refused.
func (e *Engine) Dropped() uint64 { return e.dropped }

// Emitted is the number of snapshots produced, delivered or not.
func (e *Engine) Emitted() uint64 { return e.emitted }

// Particles returns a copy of the current flock.
func (e *Engine) Particles() []bird.Particle {
	out := make([]bird.Particle, len(e.bufs[e.cur]))
	copy(out, e.bufs[e.cur])
	return out
}

// Stop asks Run to return at the next iteration boundary. Safe to call
// from any goroutine.
func (e *Engine) Stop() { e.stop.Store(true) }

func (e *Engine) Stopped() bool { return e.stop.Load() }

// Metrics returns the current value of every registered metric.
func (e *Engine) Metrics() map[string]float64 {
	out := make(map[string]float64, len(e.metrics))
	for _, m := range e.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

// Run performs up to Params.Iterations steps. It returns early, with a nil
// error, once Stop has been called, and with ctx.Err() if ctx is done. A
// step in progress always completes. A frame holding NaN or Inf ends the
// run with a *dynamo.StepError wrapping dynamo.ErrInvalidState.
func (e *Engine) Run(ctx context.Context) error {
	for _, m := range e.metrics {
		m.Reset()
	}

	log := e.log.WithFields(logrus.Fields{
		"particles": len(e.bufs[0]),
		"workers":   e.workers,
	})
	log.WithField("iterations", e.params.Iterations).Debug("simulation started")

	for i := uint64(0); i < e.params.Iterations; i++ {
		if e.stop.Load() {
			log.WithField("step", e.steps).Info("simulation stopped")
			break
		}
		select {
		case <-ctx.Done():
			log.WithField("step", e.steps).Warn("simulation cancelled")
			return ctx.Err()
		default:
		}

		e.Step()

		if e.steps%e.params.FrameInterval == 0 {
			if i := firstNonFinite(e.bufs[e.cur]); i >= 0 {
				err := &dynamo.StepError{
					Step:    e.steps,
					Time:    e.time,
					Wrapped: fmt.Errorf("%w: particle %d", dynamo.ErrInvalidState, i),
				}
				log.WithError(err).Error("simulation diverged")
				return err
			}
			e.emit()
		}
	}

	log.WithFields(logrus.Fields{
		"step":    e.steps,
		"frames":  e.emitted,
		"dropped": e.dropped,
	}).Debug("simulation finished")
	return nil
}

// Step advances the flock by one time step.
func (e *Engine) Step() {
	cur := e.bufs[e.cur]
	next := e.bufs[1-e.cur]

	dynamo.ParallelFor(len(cur), e.workers, func(w, start, end int) {
		rng := e.rngs[w]
		for i := start; i < end; i++ {
			next[i] = e.update(rng, cur, i)
		}
	})

	e.cur = 1 - e.cur
	e.steps++
	e.time += e.params.Dt
}

func (e *Engine) update(rng *rand.Rand, cur []bird.Particle, i int) bird.Particle {
	self := cur[i]
	p := &e.params

	heading := e.alignedHeading(cur, i)
	heading = bird.AddNoise(rng, heading, self, p.Eta)
	pos, vel := bird.MoveBird(self.Position, heading, p.Dt, p.Radius, p.Speed)
	return bird.New(pos, vel)
}

// alignedHeading is the mean of the neighbours' velocities transported to
// particle i, rescaled to the flock speed. Without usable neighbours it is
// i's own velocity.
func (e *Engine) alignedHeading(cur []bird.Particle, i int) vec.Vec3 {
	self := cur[i]
	var sum vec.Vec3
	count := 0

	for j := range cur {
		if j == i {
			continue
		}
		d := self.DistanceFrom(cur[j], e.params.Radius)
		if d <= vec.Epsilon || d >= e.params.InteractionRadius {
			continue
		}
		sum = sum.Add(cur[j].ParallelTransportVelocity(self))
		count++
	}

	if count == 0 {
		return self.Velocity
	}
	mean := sum.Div(float64(count))
	if mean.Norm() < headingThreshold {
		return self.Velocity
	}
	return mean.Normalize().Scale(e.params.Speed)
}

// firstNonFinite returns the index of the first particle holding NaN or
// Inf, or -1.
func firstNonFinite(flock []bird.Particle) int {
	for i, p := range flock {
		if !p.Position.IsFinite() || !p.Velocity.IsFinite() {
			return i
		}
	}
	return -1
}

func (e *Engine) emit() {
	snap := Snapshot{
		Step:      e.steps,
		Time:      e.time,
		Particles: e.Particles(),
	}
	for _, m := range e.metrics {
		m.Observe(snap)
	}
	e.emitted++

	if err := e.frames.Send(snap); err != nil {
		if e.dropped == 0 {
			e.log.WithError(err).WithField("step", e.steps).Debug("frame consumer gone, dropping frames")
		}
		e.dropped++
	}
}
