package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rapidmidiex/rmxscore"
	"github.com/rapidmidiex/rmxscore/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Uh oh, there was an error: %v\n", err)
		os.Exit(1)
	}
	cobra.CheckErr(newRootCmd(&cfg).ExecuteContext(context.Background()))
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:   "rmx",
		Short: "Write scores on a staff or in jianpu",
		Long: `rmx edits single staff scores in the terminal, either by pointing at
the staff or by typing numbered notation, and shares them through a score server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rmxscore.Run(*cfg)
		},
	}
	cfg.ClientFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "edit",
			Short: "Open the terminal score editor (default)",
			RunE:  root.RunE,
		},
		newServeCmd(cfg),
		newParseCmd(),
		newExportCmd(),
		newWatchCmd(cfg),
	)
	return root
}

// readText joins args, or reads stdin when there are none.
func readText(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}
