package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/rapidmidiex/rmxscore/api"
	"github.com/rapidmidiex/rmxscore/config"
	"github.com/rapidmidiex/rmxscore/jianpu"
)

func newWatchCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <score id>",
		Short: "Print a score every time it is saved",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			client := api.New(cfg.Server)
			doc, err := client.Get(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s (%s, %d bpm)\n  %s\n", doc.Title, doc.TimeSignature, doc.Tempo, jianpu.Format(doc.Notes))

			updates, err := client.Watch(ctx, args[0])
			if err != nil {
				return err
			}
			for doc := range updates {
				fmt.Fprintf(out, "%s (%s, %d bpm)\n  %s\n", doc.Title, doc.TimeSignature, doc.Tempo, jianpu.Format(doc.Notes))
			}
			return nil
		},
	}
}
