package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"zetawatch/pkg/publish"
)

func watchCmd(a *app) *cobra.Command {
	var ticks bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Print zero events published by a running sweep",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nc, err := a.connect()
			if err != nil {
				return err
			}
			if nc == nil {
				return errors.New("watch needs nats.url")
			}
			defer nc.Close()

			logger := a.entry("watch")
			prefix := a.cfg.NATS.Prefix
			out := cmd.OutOrStdout()
			var mu sync.Mutex
			count := 0

			_, err = nc.Subscribe(prefix+".zero", func(msg *nats.Msg) {
				ev, err := publish.DecodeZero(a.cfg.NATS.Format, msg.Data)
				if err != nil {
					logger.WithError(err).Warn("bad zero event")
					return
				}
				mu.Lock()
				defer mu.Unlock()
				count++
				fmt.Fprintln(out, ev)
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			if ticks {
				_, err = nc.Subscribe(prefix+".tick", func(msg *nats.Msg) {
					var tm publish.TickMessage
					if err := json.Unmarshal(msg.Data, &tm); err != nil {
						logger.WithError(err).Warn("bad tick")
						return
					}
					mu.Lock()
					defer mu.Unlock()
					fmt.Fprintln(out, tm.Info)
				})
				if err != nil {
					return fmt.Errorf("subscribe: %w", err)
				}
			}
			logger.WithField("subject", prefix+".>").Info("watching")

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			<-ctx.Done()

			mu.Lock()
			fmt.Fprintf(out, "Total zeros seen: %d\n", count)
			mu.Unlock()
			return nil
		},
	}
	cmd.Flags().BoolVar(&ticks, "ticks", false, "also print every tick")
	return cmd
}
