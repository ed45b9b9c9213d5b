package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/detection"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

var detectJSON bool

var detectCmd = &cobra.Command{
	Use:   "detect IMAGE...",
	Short: "Classify the expression in one or more still images",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDetect,
}

func init() {
	detectCmd.Flags().BoolVar(&detectJSON, "json", false, "Print results as JSON lines")
	rootCmd.AddCommand(detectCmd)
}

type detectOutput struct {
	File   string         `json:"file"`
	Result emotion.Result `json:"result"`
	Error  string         `json:"error,omitempty"`
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	svc, err := newModel()
	if err != nil {
		return err
	}
	if err := svc.Load(ctx); err != nil {
		return fmt.Errorf("load model: %w", err)
	}

	opts := provider.DetectOptions{InputSize: cfg.ImageInputSize, ScoreThreshold: cfg.ScoreThreshold}
	configured, _ := detection.ParseNoFacePolicy(cfg.NoFacePolicy)
	policy := detection.ResolvePolicies(configured).Still

	outputs := make([]detectOutput, 0, len(args))
	failed := 0
	for _, path := range args {
		out := detectOutput{File: path}

		r, err := detectFile(ctx, svc, path, opts, policy)
		if err != nil {
			out.Error = err.Error()
			failed++
		} else {
			out.Result = r
		}
		outputs = append(outputs, out)
	}

	if detectJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, out := range outputs {
			if err := enc.Encode(out); err != nil {
				return err
			}
		}
	} else if err := printDetections(outputs); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(args))
	}
	return nil
}

func detectFile(ctx context.Context, model detection.Model, path string, opts provider.DetectOptions, policy detection.NoFacePolicy) (emotion.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return emotion.Result{}, err
	}

	frame, err := media.DecodeImage(data, opts.InputSize)
	if err != nil {
		return emotion.Result{}, err
	}

	scores, err := model.DetectOne(ctx, frame.Data, opts)
	if err != nil {
		return emotion.Result{}, err
	}
	if scores == nil {
		if r := policy.Apply(nil); r != nil {
			return *r, nil
		}
		return emotion.NoFace(), nil
	}
	return emotion.Normalize(*scores), nil
}

func printDetections(outputs []detectOutput) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)

	header := []string{"FILE", "FACE", "DOMINANT", "CONFIDENCE"}
	for _, e := range emotion.All {
		header = append(header, strings.ToUpper(e.String()))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	for _, out := range outputs {
		name := filepath.Base(out.File)
		if out.Error != "" {
			fmt.Fprintf(w, "%s\terror: %s\n", name, out.Error)
			continue
		}

		r := out.Result
		row := []string{name, yesNo(r.FaceDetected), r.DominantEmotion.String(), fmt.Sprintf("%d%%", r.Confidence)}
		for _, e := range emotion.All {
			row = append(row, fmt.Sprintf("%d%%", r.Emotions.Get(e)))
		}
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
