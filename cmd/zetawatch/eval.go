package main

import (
	"fmt"
	"math/cmplx"
	"strconv"

	"github.com/spf13/cobra"

	"zetawatch/pkg/render"
	"zetawatch/pkg/zeta"
)

func evalCmd(a *app) *cobra.Command {
	var (
		method     string
		digits     int
		parallel   bool
		spiralPath string
		spiralSize int
	)
	cmd := &cobra.Command{
		Use:   "eval t [t...]",
		Short: "Evaluate ζ(0.5+it) at the given t",
		Example: `zetawatch eval 14.134725
zetawatch eval --method riemann-siegel --spiral rs.png 1000`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("method") {
				a.cfg.Sweep.Method = zeta.Method(method)
			}
			if cmd.Flags().Changed("digits") {
				a.cfg.Sweep.Digits = digits
			}
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

			out := cmd.OutOrStdout()
			for _, arg := range args {
				t, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					return fmt.Errorf("bad t %q: %w", arg, err)
				}
				z, err := eval.Evaluate(t)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "ζ(0.5+%gi) = (%.12f, %.12f)  |ζ| = %.12e  θ = %.6f\n",
					t, real(z), imag(z), cmplx.Abs(z), zeta.Theta(t))

				if spiralPath != "" {
					links, err := spiralLinks(a.cfg.Sweep.Method, t)
					if err != nil {
						return err
					}
					path := spiralPath
					if len(args) > 1 {
						path = fmt.Sprintf("%s.%s.png", spiralPath, arg)
					}
					if err := render.SavePNG(path, render.Spiral(links, spiralSize)); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "euler-maclaurin, riemann-siegel or auto")
	cmd.Flags().IntVar(&digits, "digits", zeta.DefaultDigits, "decimal digits of precision (6..15)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "split the direct sum across goroutines (pays off for t in the thousands)")
	cmd.Flags().StringVar(&spiralPath, "spiral", "", "draw the partial sums to this PNG")
	cmd.Flags().IntVar(&spiralSize, "spiral-size", 1024, "spiral image side in pixels")
	return cmd
}

// maxSpiralLinks keeps spiral drawing responsive for large t.
const maxSpiralLinks = 200_000

func spiralLinks(m zeta.Method, t float64) ([]complex128, error) {
	var links []complex128
	if m == zeta.MethodRiemannSiegel {
		_, l, err := zeta.RiemannSiegelWithLinks(t)
		if err != nil {
			return nil, err
		}
		links = l
	} else {
		l, err := zeta.Links(complex(zeta.CriticalLine, t))
		if err != nil {
			return nil, err
		}
		links = l
	}
	if len(links) > maxSpiralLinks {
		links = render.Downsample(links, (len(links)+maxSpiralLinks-1)/maxSpiralLinks)
	}
	return links, nil
}
