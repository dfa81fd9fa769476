package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/jsphweid/fretcoach/tuning"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(presetsCmd)
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "Lists tuning presets",
	Long:  `Lists tuning presets with the frequency of every string at the configured reference pitch.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		heading := color.New(color.Bold)
		for _, p := range tuning.Presets(cfg.ReferenceHz) {
			heading.Printf("%s", p.Name)
			fmt.Printf("  %s\n", p.Description)
			// highest string first, the way they are numbered
			for i := len(p.Strings) - 1; i >= 0; i-- {
				s := p.Strings[i]
				fmt.Printf("  %d  %-4s %8.2f Hz\n", s.Number, s.Note, s.FrequencyHz)
			}
		}
	},
}
