package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/flocksim/internal/analysis"
	"github.com/san-kum/flocksim/internal/export"
	"github.com/san-kum/flocksim/internal/storage"
	"github.com/san-kum/flocksim/internal/viz"
)

var (
	listEntries bool
	listTag     string
	clusterDist float64
	minAlign    float64
	burnIn      float64
	frameIndex  int
	outPath     string
	svgSize     int
	rotX, rotY  float64
	plotOrder   bool
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list runs, or ensemble entries with --entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			if listEntries {
				return printEntries(st)
			}
			return printRuns(st)
		},
	}
	cmd.Flags().BoolVar(&listEntries, "entries", false, "list ensemble entries instead of runs")
	cmd.Flags().StringVar(&listTag, "tag", "", "only entries with this tag")
	return cmd
}

func printEntries(st *storage.Store) error {
	infos, err := st.ListEntries(listTag)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("no entries found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TAG\tID\tPATH")
	for _, e := range infos {
		fmt.Fprintf(w, "%s\t%d\t%s\n", e.Tag, e.ID, e.Path)
	}
	return w.Flush()
}

func printRuns(st *storage.Store) error {
	runs, err := st.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tENTRY\tTIME\tBIRDS\tSTEPS\tNOISE\tRADIUS\tORDER")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.3f\t%.3f\t%.3f\n",
			storage.RunID(r),
			r.EnsembleID,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Particles,
			r.TotalSteps,
			r.Params.Eta,
			r.Params.InteractionRadius,
			r.Metrics["final_order"],
		)
	}
	return w.Flush()
}

func plotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the order parameter of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			run, err := st.LoadRunWithFrames(args[0])
			if err != nil {
				return err
			}
			if len(run.Snapshots) < 2 {
				return fmt.Errorf("no data to plot")
			}

			fmt.Printf("run: %s\n", storage.RunID(run))
			fmt.Printf("entry: %s\n", run.EnsembleID)
			fmt.Printf("frames: %d\n\n", len(run.Snapshots))

			polar := analysis.OrderSeries(run.Snapshots)
			rot := make([]float64, len(run.Snapshots))
			for i, s := range run.Snapshots {
				rot[i] = analysis.RotationalOrder(s.Particles)
			}

			for _, series := range []struct {
				data    []float64
				caption string
			}{
				{polar, "polar order |<v>|"},
				{rot, "rotational order |<r x v>|"},
			} {
				fmt.Println(asciigraph.Plot(series.data,
					asciigraph.Height(10),
					asciigraph.Width(80),
					asciigraph.LowerBound(0),
					asciigraph.UpperBound(1),
					asciigraph.Caption(series.caption),
				))
				fmt.Println()
			}
			return nil
		},
	}
}

// AnalysisReport is what analyze prints and saves.
type AnalysisReport struct {
	Run               string                 `json:"run"`
	Frames            int                    `json:"frames"`
	Order             analysis.SeriesStats   `json:"order"`
	RotationalOrder   float64                `json:"rotational_order"`
	Susceptibility    float64                `json:"susceptibility"`
	DominantFrequency float64                `json:"dominant_frequency"`
	Clusters          analysis.ClusterResult `json:"clusters"`
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "order statistics, clusters and spectrum of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			run, err := st.LoadRunWithFrames(args[0])
			if err != nil {
				return err
			}
			if len(run.Snapshots) == 0 {
				return fmt.Errorf("no data")
			}

			series := analysis.Tail(analysis.OrderSeries(run.Snapshots), 1-burnIn)
			frameDt := run.Params.Dt * float64(run.Params.FrameInterval)
			dist := clusterDist
			if dist <= 0 {
				dist = run.Params.InteractionRadius
			}

			report := AnalysisReport{
				Run:               args[0],
				Frames:            len(run.Snapshots),
				Order:             analysis.Summarize(series),
				RotationalOrder:   analysis.RotationalOrder(run.FinalState),
				Susceptibility:    analysis.Susceptibility(series, run.Particles),
				DominantFrequency: analysis.DominantFrequency(series, frameDt),
				Clusters:          analysis.FindClusters(run.FinalState, run.Params.Radius, dist, minAlign),
			}

			fmt.Printf("analysis: %s (%d frames, last %.0f%%)\n\n", report.Run, report.Frames, 100*(1-burnIn))
			fmt.Printf("order:        mean %.4f  std %.4f  min %.4f  max %.4f\n",
				report.Order.Mean, report.Order.Std, report.Order.Min, report.Order.Max)
			fmt.Printf("rotational:   %.4f\n", report.RotationalOrder)
			fmt.Printf("chi:          %.4f\n", report.Susceptibility)
			if report.DominantFrequency > 0 {
				fmt.Printf("dominant f:   %.4f (period %.3f)\n", report.DominantFrequency, 1/report.DominantFrequency)
			}
			fmt.Printf("clusters:     %d (largest %d, %.1f%% of flock, mean size %.1f)\n",
				len(report.Clusters.Clusters), report.Clusters.Largest,
				100*report.Clusters.LargestFrac, report.Clusters.MeanSize)

			if len(series) > 8 {
				freqs, power := analysis.Spectrum(series, frameDt)
				if len(power) > 2 {
					fmt.Println()
					fmt.Println(asciigraph.Plot(power[1:],
						asciigraph.Height(8),
						asciigraph.Width(80),
						asciigraph.Caption(fmt.Sprintf("power spectrum (0..%.2f)", freqs[len(freqs)-1])),
					))
				}
			}

			if err := st.Init(); err != nil {
				return err
			}
			path, err := st.SaveAnalysis(args[0], report)
			if err != nil {
				return err
			}
			fmt.Printf("\nsaved %s\n", path)
			return nil
		},
	}
	cmd.Flags().Float64Var(&clusterDist, "cluster-distance", 0, "cluster link distance (default interaction radius)")
	cmd.Flags().Float64Var(&minAlign, "min-align", 0.9, "minimum heading cosine to link (-1 disables)")
	cmd.Flags().Float64Var(&burnIn, "burn-in", 0.5, "leading fraction of frames discarded")
	return cmd
}

func exportSVGCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render a frame (or the order series) of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			run, err := st.LoadRunWithFrames(args[0])
			if err != nil {
				return err
			}
			if len(run.Snapshots) == 0 {
				return fmt.Errorf("no frames in run %s", args[0])
			}

			var svg string
			if plotOrder {
				svg = export.SeriesSVG(analysis.Times(run.Snapshots), analysis.OrderSeries(run.Snapshots), svgSize, svgSize/2, "#00ccff")
			} else {
				idx := frameIndex
				if idx < 0 {
					idx += len(run.Snapshots)
				}
				if idx < 0 || idx >= len(run.Snapshots) {
					return fmt.Errorf("frame %d out of range (0..%d)", frameIndex, len(run.Snapshots)-1)
				}
				cam := viz.NewCamera()
				cam.RotX, cam.RotY = rotX, rotY
				svg = export.SnapshotSVG(run.Snapshots[idx], run.Params.Radius, cam, svgSize)
			}

			out := outPath
			if out == "" {
				out = args[0] + ".svg"
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := export.Write(f, svg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&frameIndex, "frame", -1, "frame index, negative counts from the end")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.svg)")
	cmd.Flags().IntVar(&svgSize, "size", 800, "image size in pixels")
	cmd.Flags().Float64Var(&rotX, "tilt", -0.4, "camera tilt (radians)")
	cmd.Flags().Float64Var(&rotY, "turn", 0, "camera turn (radians)")
	cmd.Flags().BoolVar(&plotOrder, "order", false, "plot the order parameter series instead of a frame")
	return cmd
}
