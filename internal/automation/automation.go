package automation

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/flocksim/internal/analysis"
	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/metrics"
	"github.com/san-kum/flocksim/internal/sim"
)

// Scenario is a scripted sequence of phases run back to back on one flock,
// e.g. an ordered start followed by a noise quench.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep overrides the base parameters for one phase. Nil fields
// keep the previous phase's value.
type ScenarioStep struct {
	Name              string   `yaml:"name"`
	Iterations        uint64   `yaml:"iterations"`
	Noise             *float64 `yaml:"noise"`
	InteractionRadius *float64 `yaml:"interaction_radius"`
	Dt                *float64 `yaml:"dt"`
	FrameInterval     uint64   `yaml:"frame_interval"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}

	return &scenario, nil
}

// RunScenario executes every phase, each starting from the final flock of
// the one before. Step counts in the results restart at each phase.
func RunScenario(ctx context.Context, scenario *Scenario, initial []bird.Particle, base sim.Params, log logrus.FieldLogger) ([]*sim.Result, error) {
	log = logging.OrDiscard(log).WithField("scenario", scenario.Name)
	results := make([]*sim.Result, 0, len(scenario.Steps))

	flock := initial
	p := base
	for i, step := range scenario.Steps {
		p = step.apply(p)
		p.Seed = base.Seed + int64(i)*1000

		frames := sim.NewCollector()
		eng, err := sim.New(flock, p, frames, log)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		for _, m := range metrics.Standard(p) {
			eng.AddMetric(m)
		}

		log.WithFields(logrus.Fields{
			"step":  i + 1,
			"name":  step.Name,
			"noise": p.Eta,
		}).Info("running scenario step")

		if err := eng.Run(ctx); err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		req := sim.Request{ID: fmt.Sprint(i + 1), Tag: scenario.Name, Initial: flock, Params: p}
		results = append(results, frames.Result(req, eng.Metrics()))
		flock = eng.Particles()
	}

	return results, nil
}

func (s ScenarioStep) apply(p sim.Params) sim.Params {
	if s.Iterations > 0 {
		p.Iterations = s.Iterations
	}
	if s.Noise != nil {
		p.Eta = *s.Noise
	}
	if s.InteractionRadius != nil {
		p.InteractionRadius = *s.InteractionRadius
	}
	if s.Dt != nil {
		p.Dt = *s.Dt
	}
	if s.FrameInterval > 0 {
		p.FrameInterval = s.FrameInterval
	}
	return p
}

// Sweepable parameters.
const (
	ParamNoise             = "noise"
	ParamInteractionRadius = "interaction_radius"
	ParamSpeed             = "speed"
)

// ParameterSweep runs the flock across a range of one parameter, with
// Replicates independent runs per value.
type ParameterSweep struct {
	ParamName  string
	ParamMin   float64
	ParamMax   float64
	NumSteps   int
	Replicates int
	Base       sim.Params

	// Initial flocks; replicate r starts from Initial[r % len(Initial)].
	Initial [][]bird.Particle

	// BurnIn is the leading fraction of each order series discarded as
	// transient.
	BurnIn float64

	Parallel int
}

// SweepResult is the late-time order parameter statistics at one value.
type SweepResult struct {
	ParamValue     float64 `json:"value"`
	MeanOrder      float64 `json:"mean_order"`
	StdOrder       float64 `json:"std_order"`
	Susceptibility float64 `json:"susceptibility"`
	Runs           int     `json:"runs"`
}

func (s *ParameterSweep) validate() error {
	switch s.ParamName {
	case ParamNoise, ParamInteractionRadius, ParamSpeed:
	default:
		return fmt.Errorf("cannot sweep parameter %q", s.ParamName)
	}
	if s.NumSteps < 1 {
		return fmt.Errorf("sweep needs at least one step, got %d", s.NumSteps)
	}
	if len(s.Initial) == 0 {
		return fmt.Errorf("sweep needs at least one initial flock")
	}
	return nil
}

func (s *ParameterSweep) value(i int) float64 {
	if s.NumSteps == 1 {
		return s.ParamMin
	}
	return s.ParamMin + float64(i)*(s.ParamMax-s.ParamMin)/float64(s.NumSteps-1)
}

func (s *ParameterSweep) params(v float64) sim.Params {
	p := s.Base
	switch s.ParamName {
	case ParamNoise:
		p.Eta = v
	case ParamInteractionRadius:
		p.InteractionRadius = v
	case ParamSpeed:
		p.Speed = v
	}
	return p
}

// RunSweep executes the sweep one value at a time; the replicates of a
// value run concurrently.
func RunSweep(ctx context.Context, sweep *ParameterSweep, log logrus.FieldLogger) ([]SweepResult, error) {
	if err := sweep.validate(); err != nil {
		return nil, err
	}
	log = logging.OrDiscard(log)
	reps := max(sweep.Replicates, 1)
	results := make([]SweepResult, 0, sweep.NumSteps)

	for i := 0; i < sweep.NumSteps; i++ {
		v := sweep.value(i)
		p := sweep.params(v)

		reqs := make([]sim.Request, reps)
		for r := range reqs {
			q := p
			q.Seed = p.Seed + int64(i*reps+r)
			reqs[r] = sim.Request{
				ID:      fmt.Sprintf("%s=%g#%d", sweep.ParamName, v, r),
				Tag:     "sweep",
				Initial: sweep.Initial[r%len(sweep.Initial)],
				Params:  q,
			}
		}

		batch := &sim.Batch{Parallel: sweep.Parallel, Log: log}
		runs, err := batch.Run(ctx, reqs)
		if err != nil {
			return results, err
		}

		var pooled []float64
		var chi float64
		for _, run := range runs {
			tail := analysis.Tail(analysis.OrderSeries(run.Snapshots), 1-sweep.BurnIn)
			pooled = append(pooled, tail...)
			chi += analysis.Susceptibility(tail, run.Particles)
		}
		st := analysis.Summarize(pooled)

		res := SweepResult{
			ParamValue:     v,
			MeanOrder:      st.Mean,
			StdOrder:       st.Std,
			Susceptibility: chi / float64(len(runs)),
			Runs:           len(runs),
		}
		results = append(results, res)

		log.WithFields(logrus.Fields{
			sweep.ParamName: v,
			"order":         fmt.Sprintf("%.3f", res.MeanOrder),
		}).Infof("sweep %d/%d", i+1, sweep.NumSteps)
	}

	return results, nil
}
