package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/analysis"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

var analyzeOpts struct {
	Interval time.Duration
	Workers  int
	JSON     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze VIDEO",
	Short: "Sample a video and summarize the detected expressions",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().DurationVarP(&analyzeOpts.Interval, "interval", "i", analysis.DefaultInterval, "Media time between samples")
	analyzeCmd.Flags().IntVarP(&analyzeOpts.Workers, "workers", "w", analysis.DefaultWorkers, "Concurrent model calls")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.JSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	video, err := media.OpenVideoFile(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = video.Close() }()

	svc, err := newModel()
	if err != nil {
		return err
	}

	duration := video.Duration()
	acfg := analysis.Config{
		Interval: analyzeOpts.Interval,
		Workers:  analyzeOpts.Workers,
		Options:  provider.DetectOptions{InputSize: cfg.LiveInputSize, ScoreThreshold: cfg.ScoreThreshold},
	}

	bar := progressbar.NewOptions(len(analysis.Positions(duration, acfg.Interval)),
		progressbar.OptionSetDescription("Analyzing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	samples, err := analysis.Run(cmd.Context(), svc, video, acfg, func() { _ = bar.Add(1) })
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	report := analysis.Summarize(samples, duration)

	if analyzeOpts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return printReport(report, duration)
}

func printReport(report analysis.Report, duration time.Duration) error {
	fmt.Printf("Duration: %s  Samples: %d  Faces: %d\n\n", duration.Round(time.Millisecond), report.Samples, report.Faces)

	if report.Faces == 0 {
		fmt.Println("No face detected in any sample.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "EMOTION\tMEAN\tSTDDEV\tDOMINANT")
	fmt.Fprintln(w, "-------\t----\t------\t--------")
	for _, s := range report.Stats {
		fmt.Fprintf(w, "%s\t%.1f%%\t%.1f\t%d\n", s.Emotion, s.Mean, s.StdDev, s.Dominant)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "FROM\tTO\tDOMINANT")
	fmt.Fprintln(w, "----\t--\t--------")
	for _, seg := range report.Timeline {
		fmt.Fprintf(w, "%s\t%s\t%s\n", seg.Start.Round(time.Millisecond), seg.End.Round(time.Millisecond), seg.Emotion)
	}
	return w.Flush()
}
