package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/automation"
	"github.com/san-kum/flocksim/internal/bird"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/ensemble"
	"github.com/san-kum/flocksim/internal/storage"
)

var (
	sweepParam      string
	sweepMin        float64
	sweepMax        float64
	sweepSteps      int
	sweepReplicates int
	sweepEntryTag   string
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "order parameter across a range of noise (or another parameter)",
		RunE:  runSweep,
	}
	ensembleFlags(cmd)
	simulationFlags(cmd)
	cmd.Flags().StringVar(&sweepParam, "param", automation.ParamNoise, "parameter to sweep (noise, interaction_radius, speed)")
	cmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	cmd.Flags().Float64Var(&sweepMax, "max", 3, "last value")
	cmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of values")
	cmd.Flags().IntVar(&sweepReplicates, "replicates", 3, "runs per value")
	cmd.Flags().Float64Var(&burnIn, "burn-in", 0.5, "leading fraction of frames discarded")
	cmd.Flags().StringVar(&sweepEntryTag, "from", "", "use stored entries of this tag as initial flocks")
	return cmd
}

// sweepFlocks loads the stored entries of a tag, or samples fresh flocks
// from the ensemble configuration.
func sweepFlocks(ctx context.Context, cfg *config.Config, st *storage.Store, n int) ([][]bird.Particle, error) {
	if sweepEntryTag != "" {
		infos, err := st.ListEntries(sweepEntryTag)
		if err != nil {
			return nil, err
		}
		if len(infos) == 0 {
			return nil, fmt.Errorf("no entries for tag %q", sweepEntryTag)
		}
		flocks := make([][]bird.Particle, 0, min(n, len(infos)))
		for _, info := range infos[:min(n, len(infos))] {
			e, err := st.LoadEntry(info.Tag, info.ID)
			if err != nil {
				return nil, err
			}
			flocks = append(flocks, e.Particles)
		}
		return flocks, nil
	}

	flocks := make([][]bird.Particle, n)
	for i := range flocks {
		rng := rand.New(rand.NewSource(cfg.Ensemble.Seed + int64(i)))
		flock, err := ensemble.Sample(ctx, rng, cfg.GenParams())
		if err != nil {
			return nil, err
		}
		flocks[i] = flock
	}
	return flocks, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	flocks, err := sweepFlocks(ctx, cfg, st, sweepReplicates)
	if err != nil {
		return err
	}

	sweep := &automation.ParameterSweep{
		ParamName:  sweepParam,
		ParamMin:   sweepMin,
		ParamMax:   sweepMax,
		NumSteps:   sweepSteps,
		Replicates: sweepReplicates,
		Base:       cfg.SimParams(),
		Initial:    flocks,
		BurnIn:     burnIn,
		Parallel:   cfg.Ensemble.Threads,
	}

	fmt.Printf("sweeping %s over [%g, %g] in %d steps, %d replicates...\n",
		sweepParam, sweepMin, sweepMax, sweepSteps, sweepReplicates)
	results, err := automation.RunSweep(ctx, sweep, log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tORDER\tSTD\tCHI\n", sweepParam)
	order := make([]float64, len(results))
	for i, r := range results {
		fmt.Fprintf(w, "%.3f\t%.4f\t%.4f\t%.4f\n", r.ParamValue, r.MeanOrder, r.StdOrder, r.Susceptibility)
		order[i] = r.MeanOrder
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(order) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(order,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.LowerBound(0),
			asciigraph.UpperBound(1),
			asciigraph.Caption("order vs "+sweepParam),
		))
	}

	path, err := st.SaveAnalysis(fmt.Sprintf("sweep-%s-%s", cfg.Ensemble.Tag, sweepParam), results)
	if err != nil {
		return err
	}
	fmt.Printf("\nsaved %s\n", path)
	return nil
}
