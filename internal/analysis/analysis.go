// Package analysis samples a video offline and summarizes the detected
// expressions: per-emotion mean and standard deviation plus a dominant timeline.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/detection"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/media"
	"github.com/saturnino-fabrica-de-software/emotisense/internal/provider"
)

const (
	DefaultInterval = 500 * time.Millisecond
	DefaultWorkers  = 4
)

// Frames is a seekable video
type Frames interface {
	Duration() time.Duration
	FrameAt(pos time.Duration) (media.Frame, error)
}

type Config struct {
	Interval time.Duration
	Workers  int
	Options  provider.DetectOptions
}

func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Workers:  DefaultWorkers,
		Options:  provider.LiveOptions(),
	}
}

// Sample is the result at one media position. Result is nil when the model found no face.
type Sample struct {
	Position time.Duration
	Result   *emotion.Result
}

// Positions lists the media times sampled for a video of length d, starting at zero
func Positions(d, interval time.Duration) []time.Duration {
	if d <= 0 || interval <= 0 {
		return nil
	}
	n := int(d/interval) + 1
	if time.Duration(n-1)*interval >= d {
		n--
	}
	out := make([]time.Duration, n)
	for i := range out {
		out[i] = time.Duration(i) * interval
	}
	return out
}

// Run samples the video and classifies every frame. Model calls run on up to
// cfg.Workers goroutines; progress is called once per finished sample and may be nil.
func Run(ctx context.Context, model detection.Model, frames Frames, cfg Config, progress func()) ([]Sample, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	positions := Positions(frames.Duration(), cfg.Interval)
	if len(positions) == 0 {
		return nil, errors.New("video has no duration")
	}

	if err := model.Load(ctx); err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	samples := make([]Sample, len(positions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, pos := range positions {
		g.Go(func() error {
			frame, err := frames.FrameAt(pos)
			if err != nil {
				return fmt.Errorf("read frame at %s: %w", pos, err)
			}

			scores, err := model.DetectOne(ctx, frame.Data, cfg.Options)
			if err != nil {
				return fmt.Errorf("detect at %s: %w", pos, err)
			}

			samples[i] = Sample{Position: pos}
			if scores != nil {
				r := emotion.Normalize(*scores)
				samples[i].Result = &r
			}

			if progress != nil {
				progress()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Stats describes one emotion across the face samples
type Stats struct {
	Emotion  emotion.Emotion `json:"emotion"`
	Mean     float64         `json:"mean"`
	StdDev   float64         `json:"std_dev"`
	Dominant int             `json:"dominant"`
}

// Segment is a run of consecutive samples with the same dominant emotion
type Segment struct {
	Start   time.Duration   `json:"start"`
	End     time.Duration   `json:"end"`
	Emotion emotion.Emotion `json:"emotion"`
}

type Report struct {
	Samples  int       `json:"samples"`
	Faces    int       `json:"faces"`
	Stats    []Stats   `json:"stats"`
	Timeline []Segment `json:"timeline"`
}

// Summarize aggregates samples ordered by position. end closes the last segment.
// No-face samples are left out of the statistics and split the timeline.
func Summarize(samples []Sample, end time.Duration) Report {
	report := Report{Samples: len(samples)}

	var values [emotion.Count][]float64
	var dominant [emotion.Count]int

	var open *Segment
	closeAt := func(pos time.Duration) {
		if open != nil {
			open.End = pos
			report.Timeline = append(report.Timeline, *open)
			open = nil
		}
	}

	for _, s := range samples {
		if s.Result == nil || !s.Result.FaceDetected {
			closeAt(s.Position)
			continue
		}

		report.Faces++
		for _, e := range emotion.All {
			values[e] = append(values[e], float64(s.Result.Emotions.Get(e)))
		}
		dominant[s.Result.DominantEmotion]++

		if open != nil && open.Emotion == s.Result.DominantEmotion {
			continue
		}
		closeAt(s.Position)
		open = &Segment{Start: s.Position, Emotion: s.Result.DominantEmotion}
	}
	closeAt(end)

	if report.Faces == 0 {
		return report
	}

	report.Stats = make([]Stats, 0, emotion.Count)
	for _, e := range emotion.All {
		mean, std := stat.MeanStdDev(values[e], nil)
		if len(values[e]) < 2 {
			std = 0
		}
		report.Stats = append(report.Stats, Stats{Emotion: e, Mean: mean, StdDev: std, Dominant: dominant[e]})
	}
	return report
}
