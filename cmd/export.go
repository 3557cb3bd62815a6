package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rapidmidiex/rmxscore/jianpu"
	"github.com/rapidmidiex/rmxscore/score"
	"github.com/rapidmidiex/rmxscore/smfexport"
)

func newExportCmd() *cobra.Command {
	var (
		out     string
		title   string
		timeSig string
		tempo   int
	)
	cmd := &cobra.Command{
		Use:     "export [jianpu...]",
		Short:   "Write jianpu text to a standard MIDI file",
		Example: `  rmx export -o ode.mid --title Ode 3 3 4 5 5 4 3 2`,
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
			doc := score.Document{
				Title:         title,
				TimeSignature: ts,
				Tempo:         tempo,
				Notes:         res.Notes,
			}.Normalize()

			if err := smfexport.WriteFile(out, doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d notes to %s\n", len(doc.Notes), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "score.mid", "output file")
	cmd.Flags().StringVar(&title, "title", score.DefaultTitle, "track name")
	cmd.Flags().StringVarP(&timeSig, "time", "t", score.FourFour.String(), "time signature: 2/4, 3/4 or 4/4")
	cmd.Flags().IntVar(&tempo, "tempo", score.DefaultTempo, "beats per minute")
	return cmd
}
