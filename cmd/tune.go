package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/jsphweid/fretcoach/engine"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/sample"
	"github.com/jsphweid/fretcoach/tuning"
	"github.com/spf13/cobra"
)

var (
	tunePreset      string
	tunePace        time.Duration
	tuneAutoAdvance bool
)

func init() {
	tuneCmd.Flags().StringVar(&tunePreset, "preset", "", "tuning preset (default from config)")
	tuneCmd.Flags().DurationVar(&tunePace, "pace", 0, "replay one sample per interval; 0 replays as fast as possible on frame time")
	tuneCmd.Flags().BoolVar(&tuneAutoAdvance, "auto-advance", true, "move to the next string once the current one is in tune")
	rootCmd.AddCommand(tuneCmd)
}

var tuneCmd = &cobra.Command{
	Use:   "tune <pitch-track>",
	Short: "Tunes from a recorded pitch track",
	Long: `Runs the tuner over a pitch track: one "frequencyHz confidence" pair per
line, one line per analysis frame. Lines starting with # are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return tune(cmd.Context(), args[0])
	},
}

var statusColors = map[model.TuningStatus]*color.Color{
	model.StatusWaiting: color.New(color.Faint),
	model.StatusFlat:    color.New(color.FgRed),
	model.StatusSharp:   color.New(color.FgRed),
	model.StatusAlmost:  color.New(color.FgYellow),
	model.StatusInTune:  color.New(color.FgGreen, color.Bold),
}

func tune(ctx context.Context, path string) error {
	if tunePreset == "" {
		tunePreset = cfg.Preset
	}
	preset, err := tuning.PresetWithReference(tunePreset, cfg.ReferenceHz)
	if err != nil {
		return err
	}
	sess, err := tuning.NewSession(preset, cfg.Completion())
	if err != nil {
		return err
	}

	src, err := sample.Open(path, tunePace)
	if err != nil {
		return err
	}
	defer src.Close()

	opts := []engine.Option{engine.WithLogger(logger)}
	if tunePace == 0 {
		clock := engine.NewFrameClock(time.Now(), cfg.Hop())
		opts = append(opts, engine.WithClock(clock.Now))
	}
	tuner := engine.NewTuner(sess, cfg, opts...)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	if err := tuner.Start(ctx, src); err != nil {
		return err
	}

	var last model.TuningUpdate
	show := func(u model.TuningUpdate) {
		if u.Status == last.Status && u.CurrentStringIndex == last.CurrentStringIndex {
			return
		}
		last = u
		printUpdate(u)
		if tuneAutoAdvance && u.Status == model.StatusInTune && u.CurrentStringIndex == sess.CurrentIndex() {
			sess.Advance()
		}
	}

loop:
	for {
		select {
		case u := <-tuner.Updates().C():
			show(u)
		case <-tuner.Done():
			break loop
		}
	}
drain:
	for {
		select {
		case u := <-tuner.Updates().C():
			show(u)
		default:
			break drain
		}
	}

	if err := tuner.Stop(); err != nil {
		return err
	}
	if n := src.Skipped(); n > 0 {
		logger.Warn("tune: skipped malformed lines", "count", n)
	}

	fmt.Println()
	for _, s := range sess.Strings() {
		mark := color.RedString("not tuned")
		if s.Tuned {
			mark = color.GreenString("tuned")
		}
		fmt.Printf("  %d  %-4s %s\n", s.Number, s.Note, mark)
	}
	if sess.Completed() {
		color.New(color.FgGreen, color.Bold).Println("All done.")
	}
	return nil
}

func printUpdate(u model.TuningUpdate) {
	c := statusColors[u.Status]
	target := fmt.Sprintf("[%d/%d] %s", u.CurrentStringIndex+1, u.TotalStrings, u.TargetString.Note)
	if u.Status == model.StatusWaiting {
		fmt.Printf("%-14s %s\n", target, c.Sprint(u.Status))
		return
	}
	fmt.Printf("%-14s %-8s %7.2f Hz %+6.1f cents  (hearing %s)\n",
		target, c.Sprint(u.Status), u.DetectedFrequencyHz, u.CentsDeviation, u.Note)
}
