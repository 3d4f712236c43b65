package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/automation"
	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/ensemble"
	"github.com/san-kum/flocksim/internal/metrics"
	"github.com/san-kum/flocksim/internal/sim"
	"github.com/san-kum/flocksim/internal/storage"
)

var simulateAll bool

func simulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate [tag] [id]",
		Short: "run the flocking dynamics on a stored ensemble entry",
		Long: "Runs one entry, streaming frames to disk. With --all every entry of the\n" +
			"tag is run concurrently and saved when finished.",
		Args: cobra.RangeArgs(1, 2),
		RunE: runSimulate,
	}
	simulationFlags(cmd)
	cmd.Flags().BoolVar(&simulateAll, "all", false, "simulate every entry of the tag")
	cmd.Flags().IntVar(&threads, "threads", config.DefaultThreads, "concurrent runs with --all")
	return cmd
}

func parseEntryArgs(args []string) (string, int, error) {
	if len(args) < 2 {
		return "", 0, fmt.Errorf("expected [tag] [id]")
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return "", 0, fmt.Errorf("invalid entry id %q: %w", args[1], err)
	}
	return args[0], id, nil
}

// entryParams returns the simulation parameters for e: sphere and speed
// come from the entry, dynamics from the configuration.
func entryParams(cfg *config.Config, e *ensemble.Entry) sim.Params {
	p := cfg.SimParams()
	p.Radius = e.Params.Radius
	p.Speed = e.Params.Speed
	return p
}

func newRequest(e *ensemble.Entry, p sim.Params) sim.Request {
	return sim.Request{
		ID:         fmt.Sprintf("%d_%d", e.ID, time.Now().Unix()),
		Tag:        e.Tag,
		EnsembleID: storage.Name(e.Tag, e.ID),
		Initial:    e.Particles,
		Params:     p,
		Size:       e.Params.N,
	}
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	if simulateAll {
		return simulateTag(cmd, cfg, st, args[0])
	}

	entryTag, id, err := parseEntryArgs(args)
	if err != nil {
		return err
	}
	entry, err := st.LoadEntry(entryTag, id)
	if err != nil {
		return err
	}

	req := newRequest(entry, entryParams(cfg, entry))
	if err := req.Validate(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, err := st.StartFrameRecorder(ctx, req, log)
	if err != nil {
		return err
	}
	eng, err := sim.New(req.Initial, req.Params, rec.Sink(), log)
	if err != nil {
		rec.Close(nil)
		return err
	}
	for _, m := range metrics.Standard(req.Params) {
		eng.AddMetric(m)
	}

	// first interrupt stops at the next step boundary, frames so far are kept
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt)
	defer signal.Stop(sigc)
	go func() {
		if _, ok := <-sigc; ok {
			log.Warn("interrupt: stopping after current step")
			eng.Stop()
		}
	}()

	fmt.Printf("simulating %s (%d particles, %d steps, %d workers)...\n",
		req.EnsembleID, len(req.Initial), req.Params.Iterations, eng.Workers())
	start := time.Now()
	if err := eng.Run(ctx); err != nil {
		rec.Close(nil)
		return err
	}
	result, err := rec.Close(eng.Metrics())
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("run id: %s\n", storage.RunID(result))
	fmt.Printf("steps: %d, frames: %d, dropped: %d\n", result.TotalSteps, result.Frames, eng.Dropped())
	printMetrics(result.Metrics)
	return nil
}

func simulateTag(cmd *cobra.Command, cfg *config.Config, st *storage.Store, entryTag string) error {
	infos, err := st.ListEntries(entryTag)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return fmt.Errorf("no entries for tag %q", entryTag)
	}

	reqs := make([]sim.Request, 0, len(infos))
	for _, info := range infos {
		entry, err := st.LoadEntry(info.Tag, info.ID)
		if err != nil {
			return err
		}
		reqs = append(reqs, newRequest(entry, entryParams(cfg, entry)))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	parallel := cfg.Ensemble.Threads
	if cmd.Flags().Changed("threads") {
		parallel = threads
	}
	batch := &sim.Batch{
		Parallel: parallel,
		Metrics:  func(r sim.Request) []sim.Metric { return metrics.Standard(r.Params) },
		Log:      log,
	}

	fmt.Printf("simulating %d entries of %s...\n", len(reqs), entryTag)
	start := time.Now()
	results, err := batch.Run(ctx, reqs)
	if err != nil {
		return err
	}
	for _, r := range results {
		runID, err := st.SaveRun(r)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"run": runID, "final_order": r.Metrics["final_order"]}).Info("run saved")
	}
	fmt.Printf("completed %d runs in %v\n", len(results), time.Since(start))
	return nil
}

func printMetrics(m map[string]float64) {
	if len(m) == 0 {
		return
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6f\n", name, m[name])
	}
}

func scenarioCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenario [file] [tag] [id]",
		Short: "run a scripted multi-phase scenario on an entry",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			sc, err := automation.LoadScenario(args[0])
			if err != nil {
				return err
			}
			entryTag, id, err := parseEntryArgs(args[1:])
			if err != nil {
				return err
			}
			entry, err := st.LoadEntry(entryTag, id)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			results, err := automation.RunScenario(ctx, sc, entry.Particles, entryParams(cfg, entry), log)
			if err != nil {
				return err
			}
			stamp := time.Now().Unix()
			for i, r := range results {
				r.ID = fmt.Sprintf("%s_%d_%d", sc.Name, stamp, i+1)
				r.Tag = entry.Tag
				r.EnsembleID = storage.Name(entry.Tag, entry.ID)
				runID, err := st.SaveRun(r)
				if err != nil {
					return err
				}
				fmt.Printf("step %d (%s): noise=%.2f final_order=%.3f run=%s\n",
					i+1, sc.Steps[i].Name, r.Params.Eta, r.Metrics["final_order"], runID)
			}
			return nil
		},
	}
	simulationFlags(cmd)
	return cmd
}
