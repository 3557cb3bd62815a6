package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rapidmidiex/rmxscore/jianpu"
	"github.com/rapidmidiex/rmxscore/quantize"
	"github.com/rapidmidiex/rmxscore/score"
)

func newParseCmd() *cobra.Command {
	var timeSig string
	cmd := &cobra.Command{
		Use:   "parse [jianpu...]",
		Short: "Print the measures of jianpu text",
		Example: `  rmx parse 1 2 3 4 5-
  echo "1. 7 6 5--" | rmx parse --time 3/4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ts, err := score.ParseTimeSignature(timeSig)
			if err != nil {
				return err
			}
			text, err := readText(cmd, args)
			if err != nil {
				return err
			}

			res := jianpu.Parse(text)
			for _, w := range res.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			measures, truncated := quantize.Quantize(res.Notes, ts.Beats(), score.MaxMeasures)
			for i, m := range measures {
				names := make([]string, len(m.Notes))
				for j, n := range m.Notes {
					names[j] = n.String()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%3d | %s\n", i+1, strings.Join(names, " "))
			}
			if truncated {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", score.ErrMeasureLimit)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&timeSig, "time", "t", score.FourFour.String(), "time signature: 2/4, 3/4 or 4/4")
	return cmd
}
