package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/polysynth/internal/note"
)

var noteCmd = &cobra.Command{
	Use:     "note <name>...",
	Short:   "Show key numbers and frequencies of note names",
	Example: `  polysynth note 4a 4c# 3eb`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var rows []row
		for _, a := range args {
			n, err := note.Parse(a)
			if err != nil {
				return err
			}
			rows = append(rows, kv(n.String(), fmt.Sprintf("key %2d  %9.3f Hz", n.Key, n.Freq())))
		}
		fmt.Fprintln(cmd.OutOrStdout(), panel("notes", rows...))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
}
