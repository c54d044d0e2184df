// Command zetawatch sweeps the critical line of the Riemann zeta function,
// announcing zeros as the trajectory of ζ(0.5+it) passes through the origin.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"zetawatch/pkg/config"
	"zetawatch/pkg/publish"
	"zetawatch/pkg/zeta"
)

// app carries what the persistent flags resolve to.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "zetawatch",
		Short: "Watch ζ(0.5+it) wind around the origin and log its zeros",
		Long: `zetawatch walks t along the critical line, evaluates the Riemann zeta
function at every step and raises an event whenever |ζ| dips below the zero
threshold. Confirmed zeros are checked against the first ten known zeros.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "text or json (overrides config)")

	cmd.AddCommand(runCmd(a), scanCmd(a), evalCmd(a), watchCmd(a), workerCmd(a))
	return cmd
}

func (a *app) load() error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.LoadFile(a.configPath); err != nil {
			return fmt.Errorf("load %s: %w", a.configPath, err)
		}
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	l, err := cfg.Log.Logger(os.Stderr)
	if err != nil {
		return err
	}
	a.cfg, a.log = cfg, l
	return nil
}

func (a *app) entry(component string) *logrus.Entry {
	return a.log.WithField("component", component)
}

// connect dials NATS when a URL is configured. The returned conn is nil
// otherwise.
func (a *app) connect() (*nats.Conn, error) {
	if a.cfg.NATS.URL == "" {
		return nil, nil
	}
	nc, err := nats.Connect(a.cfg.NATS.URL, nats.Name("zetawatch"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", a.cfg.NATS.URL, err)
	}
	a.log.WithField("url", a.cfg.NATS.URL).Info("connected to NATS")
	return nc, nil
}

// evaluator builds the configured evaluator. With nats.distributed set the
// Euler-Maclaurin direct sum is farmed out over nc; with parallel set it
// runs on local goroutines.
func (a *app) evaluator(nc *nats.Conn, parallel bool) (zeta.Evaluator, error) {
	var sum zeta.SumFunc
	switch {
	case a.cfg.NATS.Distributed && nc != nil:
		sum = publish.RemoteSum(nc, a.cfg.NATS.PartialSubject, a.cfg.NATS.ChunkSize, a.cfg.NATS.Timeout)
	case parallel:
		sum = zeta.ParallelSum(0, 0)
	}
	return zeta.NewWithSum(a.cfg.Sweep.Method, a.cfg.Sweep.Digits, sum)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
