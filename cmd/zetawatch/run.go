package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"zetawatch/pkg/api"
	"zetawatch/pkg/compression"
	"zetawatch/pkg/publish"
	"zetawatch/pkg/render"
	"zetawatch/pkg/sweep"
)

func runCmd(a *app) *cobra.Command {
	var (
		width, height float64
		duration      time.Duration
		parallel      bool
		httpAddr      string
		frameDir      string
		archivePath   string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the live sweep until interrupted",
		Example: `zetawatch run --duration 30s
zetawatch run --http :8080 --frames /tmp/frames`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("http") {
				a.cfg.HTTP.Addr = httpAddr
			}
			if cmd.Flags().Changed("frames") {
				a.cfg.Render.FrameDir = frameDir
			}
			if cmd.Flags().Changed("archive") {
				a.cfg.Archive.Path = archivePath
			}
			if cmd.Flags().Changed("width") {
				a.cfg.Render.Width = width
			}
			if cmd.Flags().Changed("height") {
				a.cfg.Render.Height = height
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			if duration > 0 {
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return a.run(ctx, cmd, parallel)
		},
	}
	cmd.Flags().Float64Var(&width, "width", 0, "display width in pixels")
	cmd.Flags().Float64Var(&height, "height", 0, "display height in pixels")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	cmd.Flags().BoolVar(&parallel, "parallel", false, "split the direct sum across goroutines (pays off for t in the thousands)")
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve the HTTP API on this address")
	cmd.Flags().StringVar(&frameDir, "frames", "", "write PNG frames into this directory")
	cmd.Flags().StringVar(&archivePath, "archive", "", "write a session archive here on exit")
	return cmd
}

func (a *app) run(ctx context.Context, cmd *cobra.Command, parallel bool) error {
	logger := a.entry("run")

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
	engine, err := sweep.NewEngine(a.cfg.Sweep,
		sweep.WithEvaluator(eval),
		sweep.WithLogger(a.entry("sweep")),
	)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var printMu sync.Mutex
	engine.OnTick(func(t sweep.Tick) {
		if t.Event == nil {
			return
		}
		printMu.Lock()
		defer printMu.Unlock()
		fmt.Fprintln(out, t.Notice)
		fmt.Fprintln(out, t.Event)
	})

	if nc != nil {
		pub, err := publish.NewPublisher(nc,
			publish.WithPrefix(a.cfg.NATS.Prefix),
			publish.WithFormat(a.cfg.NATS.Format),
			publish.WithLogger(a.entry("publish")),
			zerosOnly(a.cfg.NATS.ZerosOnly),
		)
		if err != nil {
			return err
		}
		defer pub.Attach(engine)()
	}

	opts := render.Options{Stride: a.cfg.Render.Stride}
	if dir := a.cfg.Render.FrameDir; dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		defer engine.OnTick(frameWriter(a, dir, opts))()
	}

	var srv *http.Server
	if addr := a.cfg.HTTP.Addr; addr != "" {
		apiSrv := api.NewServer(engine, a.entry("api"), opts)
		defer apiSrv.Close()
		srv = &http.Server{Addr: addr, Handler: apiSrv.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.WithField("addr", addr).Info("http api listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Error("http api stopped")
			}
		}()
	}

	if err := engine.Start(a.cfg.Render.Width, a.cfg.Render.Height); err != nil {
		return err
	}
	<-ctx.Done()

	if srv != nil {
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdown)
	}

	// The API may have stopped the sweep already.
	t, trail := engine.Parameter(), engine.Trail()
	if err := engine.Stop(); err != nil && !errors.Is(err, sweep.ErrNotRunning) {
		return err
	}

	events := engine.Log()
	fmt.Fprintf(out, "Total zeros found: %d\n", len(events))
	if path := a.cfg.Archive.Path; path != "" {
		arc, err := compression.NewArchive(a.cfg.Sweep.Step, t, events, trail)
		if err != nil {
			return err
		}
		if err := compression.SaveArchive(path, arc); err != nil {
			return err
		}
		logger.WithField("path", path).Info("archive written")
	}
	return nil
}

func zerosOnly(on bool) publish.Option {
	if on {
		return publish.WithoutTicks()
	}
	return func(*publish.Publisher) {}
}

// frameWriter saves every FrameEvery-th tick as a numbered PNG.
func frameWriter(a *app, dir string, opts render.Options) func(sweep.Tick) {
	every := a.cfg.Render.FrameEvery
	logger := a.entry("frames")
	n := 0
	return func(t sweep.Tick) {
		n++
		if n%every != 0 {
			return
		}
		vp := sweep.NewViewport(a.cfg.Render.Width, a.cfg.Render.Height)
		img, err := render.Frame(vp, t, opts)
		if err != nil {
			logger.WithError(err).Warn("frame render failed")
			return
		}
		path := filepath.Join(dir, fmt.Sprintf("frame-%06d.png", n))
		if err := render.SavePNG(path, img); err != nil {
			logger.WithError(err).Warn("frame save failed")
		}
	}
}
