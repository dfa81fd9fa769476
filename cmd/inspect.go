package cmd

import (
	"fmt"

	"github.com/jsphweid/fretcoach/util"
	"github.com/spf13/cobra"
)

func init() {
	inspectCmd.Flags().IntVar(&practiceTrack, "track", -1, "only read this MIDI track")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <song.mid|timeline.json>",
	Short: "Shows the expected notes of a song",
	Long:  `Shows the expected notes of a song with their fretboard positions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return inspect(args[0])
	},
}

func inspect(path string) error {
	tl, err := loadTimeline(path)
	if err != nil {
		return err
	}

	perString := make(map[int]int)
	fmt.Printf("%5s %4s %9s %9s  %-4s %s\n", "bar", "beat", "ms", "len", "note", "string/fret")
	for _, n := range tl.Notes {
		perString[n.String]++
		fmt.Printf("%5d %4d %9.1f %9.1f  %-4s %d/%d\n",
			n.MeasureIndex+1, n.BeatIndex+1, n.TimeMs, n.DurationMs, n.NoteName, n.String, n.Fret)
	}

	fmt.Printf("\n%d notes, %.1f s\n", len(tl.Notes), tl.DurationMs/1000)
	for _, str := range util.GetKeys(perString) {
		fmt.Printf("  string %d: %d\n", str, perString[str])
	}
	return nil
}
