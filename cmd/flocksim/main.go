package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/config"
	"github.com/san-kum/flocksim/internal/logging"
	"github.com/san-kum/flocksim/internal/storage"
)

var (
	configFile string
	logLevel   string
	dataDir    string
	preset     string

	// ensemble
	count       int
	particles   int
	threads     int
	radius      float64
	speed       float64
	minDistance float64
	tag         string
	maxAttempts int
	genSeed     int64

	// simulation
	iterations        uint64
	interactionRadius float64
	noise             float64
	dt                float64
	frameInterval     uint64
	workers           int
	simSeed           int64

	log *logrus.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "flocksim",
		Short:         "vicsek flocking on a sphere",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logging.New(logLevel, os.Stderr)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")

	rootCmd.AddCommand(
		generateCmd(),
		simulateCmd(),
		scenarioCmd(),
		listCmd(),
		plotCmd(),
		analyzeCmd(),
		sweepCmd(),
		liveCmd(),
		serveCmd(),
		exportSVGCmd(),
		presetsCmd(),
		initConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func ensembleFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&count, "count", config.DefaultEnsembleCount, "number of entries")
	cmd.Flags().IntVar(&particles, "particles", config.DefaultParticles, "particles per entry")
	cmd.Flags().IntVar(&threads, "threads", config.DefaultThreads, "worker threads")
	cmd.Flags().Float64Var(&radius, "radius", config.DefaultRadius, "sphere radius")
	cmd.Flags().Float64Var(&speed, "speed", config.DefaultSpeed, "particle speed")
	cmd.Flags().Float64Var(&minDistance, "min-distance", config.DefaultMinDistance, "minimum geodesic separation")
	cmd.Flags().StringVar(&tag, "tag", config.DefaultTag, "ensemble tag")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "consecutive rejections before giving up (0 = default)")
	cmd.Flags().Int64Var(&genSeed, "seed", 1, "random seed")
}

func simulationFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&iterations, "iterations", config.DefaultIterations, "number of steps")
	cmd.Flags().Float64Var(&interactionRadius, "interaction-radius", config.DefaultInteractionRadius, "neighbourhood radius")
	cmd.Flags().Float64Var(&noise, "noise", config.DefaultNoise, "noise strength eta")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Uint64Var(&frameInterval, "frame-interval", config.DefaultFrameInterval, "steps between frames")
	cmd.Flags().IntVar(&workers, "workers", config.DefaultThreads, "engine worker threads")
	cmd.Flags().Int64Var(&simSeed, "sim-seed", 1, "simulation random seed")
}

// loadConfig layers defaults, preset, config file and changed flags, in
// that order, and validates the result.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if preset != "" {
			fileCfg.Apply(config.Presets[preset])
		}
		cfg = fileCfg
	}

	f := cmd.Flags()
	e, s := &cfg.Ensemble, &cfg.Simulation
	if f.Changed("count") {
		e.Count = count
	}
	if f.Changed("particles") {
		e.Particles = particles
	}
	if f.Changed("threads") {
		e.Threads = threads
	}
	if f.Changed("radius") {
		e.Radius = radius
	}
	if f.Changed("speed") {
		e.Speed = speed
	}
	if f.Changed("min-distance") {
		e.MinDistance = minDistance
	}
	if f.Changed("tag") {
		e.Tag = tag
	}
	if f.Changed("max-attempts") {
		e.MaxAttempts = maxAttempts
	}
	if f.Changed("seed") {
		e.Seed = genSeed
	}
	if f.Changed("iterations") {
		s.Iterations = iterations
	}
	if f.Changed("interaction-radius") {
		s.InteractionRadius = interactionRadius
	}
	if f.Changed("noise") {
		s.Noise = noise
	}
	if f.Changed("dt") {
		s.Dt = dt
	}
	if f.Changed("frame-interval") {
		s.FrameInterval = frameInterval
	}
	if f.Changed("workers") {
		s.Workers = workers
	}
	if f.Changed("sim-seed") {
		s.Seed = simSeed
	}
	if f.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}
	return cfg, nil
}

func openStore(cfg *config.Config) (*storage.Store, error) {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-12s particles=%d noise=%.2f interaction_radius=%.2f iterations=%d\n",
					name, p.Ensemble.Particles, p.Simulation.Noise,
					p.Simulation.InteractionRadius, p.Simulation.Iterations)
			}
			return nil
		},
	}
}

func initConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [path]",
		Short: "write the default (or preset) configuration to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
}
