package sim

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/flocksim/internal/logging"
)

// Batch runs independent simulation requests concurrently, each on its own
// Engine, and collects their frames in memory.
type Batch struct {
	// Parallel caps the number of engines running at once; <= 0 means
	// one per request.
	Parallel int

	// Metrics, when set, builds a fresh metric set for every engine from
	// that engine's request.
	Metrics func(Request) []Metric

	Log logrus.FieldLogger
}

// Run executes every request and returns results in request order. The
// first failing request cancels the rest.
func (b *Batch) Run(ctx context.Context, reqs []Request) ([]*Result, error) {
	log := logging.OrDiscard(b.Log)
	results := make([]*Result, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	if b.Parallel > 0 {
		g.SetLimit(b.Parallel)
	}

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			if err := req.Validate(); err != nil {
				return fmt.Errorf("run %s: %w", req.ID, err)
			}
			collector := NewCollector()
			eng, err := New(req.Initial, req.Params, collector, log.WithField("run", req.ID))
			if err != nil {
				return fmt.Errorf("run %s: %w", req.ID, err)
			}
			if b.Metrics != nil {
				for _, m := range b.Metrics(req) {
					eng.AddMetric(m)
				}
			}

			if err := eng.Run(ctx); err != nil {
				return fmt.Errorf("run %s: %w", req.ID, err)
			}

			results[i] = collector.Result(req, eng.Metrics())
			log.WithFields(logrus.Fields{
				"run":    req.ID,
				"steps":  eng.StepCount(),
				"frames": collector.Len(),
			}).Debug("run complete")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
