package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/jsphweid/fretcoach/db"
	"github.com/jsphweid/fretcoach/engine"
	"github.com/jsphweid/fretcoach/file"
	"github.com/jsphweid/fretcoach/midi"
	"github.com/jsphweid/fretcoach/midi/live"
	"github.com/jsphweid/fretcoach/model"
	"github.com/jsphweid/fretcoach/sample"
	"github.com/jsphweid/fretcoach/scoring"
	"github.com/spf13/cobra"
)

var (
	practiceNotes    string
	practiceSamples  string
	practiceMidiIn   string
	practiceSpeed    float64
	practiceTitle    string
	practiceTrack    int
	practiceStartMs  float64
	practiceMaxNotes int
	practiceSave     bool
)

func init() {
	f := practiceCmd.Flags()
	f.StringVar(&practiceNotes, "notes", "", `detected notes, one "timestampMs NOTE" per line`)
	f.StringVar(&practiceSamples, "samples", "", "pitch track to detect notes from")
	f.StringVar(&practiceMidiIn, "midi-in", "", "play live on this MIDI input port")
	f.Float64Var(&practiceSpeed, "speed", 1, "playback speed factor")
	f.StringVar(&practiceTitle, "title", "", "title for the report (default file name)")
	f.IntVar(&practiceTrack, "track", -1, "only read this MIDI track")
	f.Float64Var(&practiceStartMs, "start-ms", 0, "skip the song up to here")
	f.IntVar(&practiceMaxNotes, "max-notes", 0, "stop after this many notes")
	f.BoolVar(&practiceSave, "save", true, "write the report to the report dir")
	practiceCmd.MarkFlagsMutuallyExclusive("notes", "samples", "midi-in")
	rootCmd.AddCommand(practiceCmd)
}

var practiceCmd = &cobra.Command{
	Use:   "practice <song.mid|timeline.json>",
	Short: "Scores a play-along against a song",
	Long: `Scores played notes against the expected notes of a song.

The notes come from a recorded note list (--notes), a recorded pitch track
(--samples) or a live MIDI instrument (--midi-in).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := loadTimeline(args[0])
		if err != nil {
			return err
		}
		title := practiceTitle
		if title == "" {
			title = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		}

		var report model.ScoreReport
		switch {
		case practiceNotes != "":
			report, err = scoreNotesFile(tl, title)
		case practiceSamples != "":
			report, err = scoreSamplesFile(cmd.Context(), tl, title)
		case practiceMidiIn != "":
			report, err = playLive(cmd.Context(), tl, title)
		default:
			return errors.New("one of --notes, --samples or --midi-in is required")
		}
		if err != nil {
			return err
		}

		printReport(report)
		if practiceSave {
			return saveReport(cmd.Context(), report)
		}
		return nil
	},
}

func loadTimeline(path string) (model.Timeline, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return file.ReadTimeline(path)
	}
	s, err := midi.ReadMidiFile(path)
	if err != nil {
		return model.Timeline{}, err
	}
	opts := midi.DefaultTimelineOptions()
	opts.Track = practiceTrack
	opts.StartMs = practiceStartMs
	opts.MaxNotes = practiceMaxNotes
	return midi.Timeline(s, opts)
}

func scoreNotesFile(tl model.Timeline, title string) (model.ScoreReport, error) {
	f, err := os.Open(practiceNotes)
	if err != nil {
		return model.ScoreReport{}, err
	}
	defer f.Close()
	events, err := file.ReadDetectedNotes(f)
	if err != nil {
		return model.ScoreReport{}, err
	}
	return offlineReport(tl, events, title), nil
}

func scoreSamplesFile(ctx context.Context, tl model.Timeline, title string) (model.ScoreReport, error) {
	src, err := sample.Open(practiceSamples, 0)
	if err != nil {
		return model.ScoreReport{}, err
	}
	defer src.Close()

	tracker := engine.NewNoteTracker(cfg.SmootherParams(), cfg.ReferenceHz, cfg.SilenceFrames)
	hopMs := float64(cfg.Hop()) / float64(time.Millisecond)
	events, err := engine.DetectNotes(ctx, src, tracker, hopMs)
	if err != nil {
		return model.ScoreReport{}, err
	}
	logger.Info("practice: notes detected", "count", len(events))
	return offlineReport(tl, events, title), nil
}

func offlineReport(tl model.Timeline, events []model.DetectedNoteEvent, title string) model.ScoreReport {
	e := scoring.Replay(tl, events, cfg.ScoringParams(practiceSpeed))
	return e.Report(uuid.NewString(), title, time.Now(), e.ScaledDurationMs())
}

func playLive(ctx context.Context, tl model.Timeline, title string) (model.ScoreReport, error) {
	p := engine.NewPractice(title, tl, practiceSpeed, cfg, engine.WithLogger(logger))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := p.Start(ctx); err != nil {
		return model.ScoreReport{}, err
	}
	stopListening, err := live.Listen(practiceMidiIn, p.PlaybackMs, func(ev model.DetectedNoteEvent) {
		if !p.Submit(ev) {
			logger.Warn("practice: note dropped", "note", ev.Note.String())
		}
	}, logger)
	if err != nil {
		_, _ = p.Stop()
		return model.ScoreReport{}, err
	}
	defer stopListening()

	fmt.Println(color.New(color.Bold).Sprintf("Playing %q, %d notes. Ctrl-C to stop.", title, p.Snapshot().TotalNotes))
loop:
	for {
		select {
		case s := <-p.Updates().C():
			fmt.Printf("\r%5.1f%%  %d/%d  streak %d   ", s.AccuracyPercent, s.Correct, s.TotalNotes, s.CurrentStreak)
		case <-p.Done():
			break loop
		case <-ctx.Done():
			break loop
		}
	}
	fmt.Println()
	return p.Stop()
}

func printReport(r model.ScoreReport) {
	grade := color.New(color.FgGreen, color.Bold)
	if r.FinalScore < 70 {
		grade = color.New(color.FgRed, color.Bold)
	}
	fmt.Printf("%s  (speed %.2gx)\n", r.Title, r.SpeedFactor)
	fmt.Printf("  grade      %s\n", grade.Sprint(r.Grade))
	fmt.Printf("  score      %.1f  (accuracy %.1f%%, timing penalty %.1f)\n", r.FinalScore, r.AccuracyPercent, r.TimingPenalty)
	fmt.Printf("  notes      %d correct, %d wrong, %d missed of %d\n", r.Correct, r.Incorrect, r.Missed, r.TotalNotes)
	fmt.Printf("  timing     %.0f ms average\n", r.AverageTimingErrorMs)
	fmt.Printf("  best run   %d\n", r.MaxStreak)
	if r.Stray > 0 {
		fmt.Printf("  extra      %d notes outside any window\n", r.Stray)
	}
}

func openArchive() (*db.Archive, error) {
	if cfg.DynamoTable == "" {
		return nil, nil
	}
	return db.Dial(cfg.DynamoTable, cfg.DynamoRegion, cfg.DynamoEndpoint)
}

func saveReport(ctx context.Context, r model.ScoreReport) error {
	path, err := file.WriteReport(cfg.ReportDir, r)
	if err != nil {
		return err
	}
	logger.Info("practice: report written", "path", path)

	archive, err := openArchive()
	if err != nil || archive == nil {
		return err
	}
	if err := archive.SaveReport(ctx, r); err != nil {
		return err
	}
	logger.Info("practice: report archived", "table", cfg.DynamoTable, "session", r.SessionID)
	return nil
}
