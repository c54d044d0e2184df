package main

import (
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"zetawatch/pkg/publish"
)

func workerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Serve partial zeta sums to distributed evaluators over NATS",
		Long: `worker joins the configured queue group and answers partial sum requests,
so a sweep with nats.distributed set can spread its direct sums over many
machines.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nc, err := a.connect()
			if err != nil {
				return err
			}
			if nc == nil {
				return errors.New("worker needs nats.url")
			}
			defer nc.Close()

			logger := a.entry("worker")
			sub, err := publish.ServePartialSums(nc, a.cfg.NATS.PartialSubject, a.cfg.NATS.Queue, logger)
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()
			logger.WithFields(logrus.Fields{
				"subject": a.cfg.NATS.PartialSubject,
				"queue":   a.cfg.NATS.Queue,
			}).Info("worker ready")

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			<-ctx.Done()
			return nil
		},
	}
}
