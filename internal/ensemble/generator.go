package ensemble

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/flocksim/internal/dynamo"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/pipe"
)

// Generator builds many entries concurrently.
type Generator struct {
	// Workers is the requested parallelism; the effective worker count is
	// min(Workers, GOMAXPROCS, entries).
	Workers int

	// Seed is the base seed. Entry i samples from Seed+i, so output does
	// not depend on the worker count.
	Seed int64

	Log logrus.FieldLogger
}

// Generate builds count entries tagged tag and sends each to sink as soon
// as it is complete. Worker w handles a contiguous block of entry ids. A
// sink that refuses entries does not stop generation; the refusals are
// counted in Summary.Dropped.
func (g *Generator) Generate(ctx context.Context, tag string, count int, p GenParams, sink pipe.Sink[Entry]) (Summary, error) {
	sum := Summary{Tag: tag, Requested: count}
	if count < 1 {
		return sum, dynamo.Invalid("count", count, "must be at least 1")
	}
	if g.Workers < 1 {
		return sum, dynamo.Invalid("threads", g.Workers, "must be at least 1")
	}
	if err := p.Validate(); err != nil {
		return sum, err
	}
	if sink == nil {
		sink = pipe.Discard[Entry]{}
	}

	log := logging.OrDiscard(g.Log).WithField("tag", tag)
	workers := dynamo.Workers(g.Workers, count)
	per := dynamo.ChunkSize(count, workers)
	sum.Workers = workers

	log.WithFields(logrus.Fields{
		"workers":      workers,
		"requested":    g.Workers,
		"entries":      count,
		"particles":    p.N,
		"radius":       p.Radius,
		"min_distance": p.MinDistance,
	}).Info("generating ensemble")

	start := time.Now()
	var generated, dropped atomic.Int64

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)

	for w := 0; w < workers; w++ {
		w := w
		first := w * per
		if first >= count {
			break
		}
		last := min(first+per, count)

		eg.Go(func() error {
			wlog := log.WithField("worker", w)
			wlog.Debugf("entries %d..%d", first, last-1)

			for id := first; id < last; id++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				rng := rand.New(rand.NewSource(g.Seed + int64(id)))
				birds, err := Sample(ctx, rng, p)
				if err != nil {
					var ce *CapacityError
					if errors.As(err, &ce) {
						ce.EntryID = id
					}
					wlog.WithError(err).WithField("entry", id).Error("entry failed")
					return err
				}

				entry := Entry{ID: id, Tag: tag, Particles: birds, Params: p, CreatedAt: time.Now()}
				if err := sink.Send(entry); err != nil {
					dropped.Add(1)
					wlog.WithError(err).WithField("entry", id).Warn("entry not persisted")
				}
				n := generated.Add(1)
				wlog.WithField("entry", id).Debugf("generated (%d/%d)", n, count)
			}
			return nil
		})
	}

	err := eg.Wait()
	sum.Generated = int(generated.Load())
	sum.Dropped = int(dropped.Load())
	sum.Elapsed = time.Since(start)
	if err != nil {
		return sum, err
	}
	if sum.Generated != count {
		return sum, fmt.Errorf("ensemble: generated %d of %d entries", sum.Generated, count)
	}

	log.WithFields(logrus.Fields{
		"generated": sum.Generated,
		"dropped":   sum.Dropped,
		"elapsed":   sum.Elapsed.Round(time.Millisecond),
	}).Info("ensemble complete")
	return sum, nil
}
