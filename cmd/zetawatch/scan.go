package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"zetawatch/pkg/compression"
	"zetawatch/pkg/render"
	"zetawatch/pkg/sweep"
	"zetawatch/pkg/zeta"
)

func scanCmd(a *app) *cobra.Command {
	var (
		until       float64
		parallel    bool
		chartPath   string
		framePath   string
		archivePath string
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Sweep from t=0 to --to as fast as possible and print the zeros",
		Example: `zetawatch scan --to 50
zetawatch scan --to 100 --chart zeta.png --archive scan.zwa`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			nc, err := a.connect()
			if err != nil {
				return err
			}
			if nc != nil {
				defer nc.Close()
			}
			eval, err := a.evaluator(nc, parallel)
			if err != nil {
				return err
			}

			res, err := scan(ctx, a.cfg.Sweep, eval, sweep.NewViewport(a.cfg.Render.Width, a.cfg.Render.Height), until, a.entry("scan"))
			if err != nil {
				return err
			}
			res.print(cmd.OutOrStdout())

			if chartPath != "" {
				p, err := render.Chart(res.Samples, res.Events, a.cfg.Sweep.ZeroThreshold)
				if err != nil {
					return err
				}
				if err := render.SaveChart(chartPath, p); err != nil {
					return err
				}
			}
			if framePath != "" {
				img, err := render.Frame(res.Viewport, res.Last, render.Options{Stride: a.cfg.Render.Stride})
				if err != nil {
					return err
				}
				if err := render.SavePNG(framePath, img); err != nil {
					return err
				}
			}
			if archivePath != "" {
				arc, err := compression.NewArchive(a.cfg.Sweep.Step, res.Parameter, res.Events, res.Last.Trail)
				if err != nil {
					return err
				}
				return compression.SaveArchive(archivePath, arc)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&until, "to", 50, "last t to evaluate")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "split the direct sum across goroutines (pays off for t in the thousands)")
	cmd.Flags().StringVar(&chartPath, "chart", "", "write a |ζ| chart (png, svg or pdf by extension)")
	cmd.Flags().StringVar(&framePath, "frame", "", "write the final frame as PNG")
	cmd.Flags().StringVar(&archivePath, "archive", "", "write a session archive")
	return cmd
}

// scanResult is what a finished scan leaves behind.
type scanResult struct {
	Samples   []sweep.Sample
	Events    []sweep.ZeroEvent
	Last      sweep.Tick
	Viewport  sweep.Viewport
	Parameter float64
	Skipped   int
}

// scan steps a session without a timer until the parameter passes until.
func scan(ctx context.Context, cfg sweep.Config, eval zeta.Evaluator, vp sweep.Viewport, until float64, logger *logrus.Entry) (*scanResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := sweep.NewDiscoveryLog()
	s := sweep.NewSession(cfg, eval, vp, sweep.KnownZeros, log)
	res := &scanResult{Viewport: vp}

	for s.Parameter() <= until {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := s.Parameter()
		tick, ok, err := s.Step()
		if err != nil {
			return nil, fmt.Errorf("scan at t=%g: %w", t, err)
		}
		if !ok {
			res.Skipped++
			logger.WithField("t", t).Debug("numeric failure, sample skipped")
			continue
		}
		res.Samples = append(res.Samples, tick.Sample)
		res.Last = tick
		if tick.Event != nil {
			logger.WithFields(logrus.Fields{
				"seq":       tick.Event.Seq,
				"t":         tick.Event.Parameter,
				"magnitude": tick.Event.Magnitude,
			}).Debug("zero found")
		}
	}
	res.Events = log.All()
	res.Parameter = s.Parameter()
	return res, nil
}

func (r *scanResult) print(w io.Writer) {
	for _, ev := range r.Events {
		fmt.Fprintln(w, ev)
	}
	verified := 0
	for _, ev := range r.Events {
		if ev.Verified {
			verified++
		}
	}
	fmt.Fprintf(w, "Total zeros found: %d (%d verified, %d samples, %d skipped)\n",
		len(r.Events), verified, len(r.Samples), r.Skipped)
}
