package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/ensemble"
)

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate an ensemble of initial flocks",
		RunE:  runGenerate,
	}
	ensembleFlags(cmd)
	return cmd
}

func runGenerate(cmd *cobra.Command, args []string) error {
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

	writer := st.StartEntryWriter(ctx, log)
	gen := &ensemble.Generator{
		Workers: cfg.Ensemble.Threads,
		Seed:    cfg.Ensemble.Seed,
		Log:     log,
	}

	fmt.Printf("generating %d entries of %d particles...\n", cfg.Ensemble.Count, cfg.Ensemble.Particles)
	summary, genErr := gen.Generate(ctx, cfg.Ensemble.Tag, cfg.Ensemble.Count, cfg.GenParams(), writer.Sink())
	saved, writeErr := writer.Wait()

	if genErr != nil {
		return genErr
	}
	if writeErr != nil {
		return fmt.Errorf("persisting entries: %w", writeErr)
	}

	fmt.Printf("completed in %v\n", summary.Elapsed)
	fmt.Printf("tag: %s\n", summary.Tag)
	fmt.Printf("workers: %d\n", summary.Workers)
	fmt.Printf("saved: %d/%d\n", saved, summary.Requested)
	return nil
}
