package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/ensemble"
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/storage"
	"github.com/san-kum/flocksim/internal/stream"
	"github.com/san-kum/flocksim/internal/viz"
)

var (
	addr string
	fps  int
)

// initialFlock loads [tag] [id] when given, otherwise samples a new flock
// from the ensemble configuration.
func initialFlock(cfg *config.Config, args []string) ([]bird.Particle, sim.Params, string, error) {
	if len(args) == 2 {
		entryTag, id, err := parseEntryArgs(args)
		if err != nil {
			return nil, sim.Params{}, "", err
		}
		entry, err := storage.New(cfg.DataDir).LoadEntry(entryTag, id)
		if err != nil {
			return nil, sim.Params{}, "", err
		}
		return entry.Particles, entryParams(cfg, entry), storage.Name(entryTag, id), nil
	}

	rng := rand.New(rand.NewSource(cfg.Ensemble.Seed))
	flock, err := ensemble.Sample(context.Background(), rng, cfg.GenParams())
	if err != nil {
		return nil, sim.Params{}, "", err
	}
	title := "random flock"
	if preset != "" {
		title = preset
	}
	return flock, cfg.SimParams(), title, nil
}

func liveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live [tag] [id]",
		Short: "run a flock with live terminal visualization",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or [tag] [id]")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flock, p, title, err := initialFlock(cfg, args)
			if err != nil {
				return err
			}
			// the terminal belongs to the view
			log.SetOutput(io.Discard)

			m, err := viz.NewModel(flock, p, title, log)
			if err != nil {
				return err
			}
			return viz.Run(m)
		},
	}
	ensembleFlags(cmd)
	simulationFlags(cmd)
	return cmd
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [tag] [id]",
		Short: "stream a running flock to websocket clients",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 0 && len(args) != 2 {
				return fmt.Errorf("expected no arguments or [tag] [id]")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			flock, p, title, err := initialFlock(cfg, args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			hub := stream.NewHub(log)
			errc := make(chan error, 1)
			go func() { errc <- stream.Serve(ctx, addr, hub) }()

			eng, err := sim.New(flock, p, nil, log)
			if err != nil {
				return err
			}
			log.WithField("flock", title).Infof("serving on ws://%s/ws", addr)

			// paced by hand: Run would emit frames faster than anyone can watch
			ticker := time.NewTicker(time.Second / time.Duration(max(fps, 1)))
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return <-errc
				case err := <-errc:
					return err
				case <-ticker.C:
					for i := uint64(0); i < p.FrameInterval; i++ {
						eng.Step()
					}
					snap := sim.Snapshot{Step: eng.StepCount(), Time: eng.Time(), Particles: eng.Particles()}
					if err := hub.Send(snap); err != nil {
						log.WithError(err).Debug("frame dropped")
					}
				}
			}
		},
	}
	ensembleFlags(cmd)
	simulationFlags(cmd)
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	cmd.Flags().IntVar(&fps, "fps", 20, "frames per second")
	return cmd
}
