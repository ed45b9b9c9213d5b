package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/emotisense/internal/emotion"
)

var emotionsCmd = &cobra.Command{
	Use:   "emotions",
	Short: "List the expression labels and their display metadata",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "LABEL\tNAME\tCOLOR\tDESCRIPTION")
		fmt.Fprintln(w, "-----\t----\t-----\t-----------")
		for _, info := range emotion.Catalog() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Emotion, info.Name, info.Color, info.Description)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(emotionsCmd)
}
