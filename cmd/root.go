package cmd

import (
	"log/slog"
	"os"

	"github.com/jsphweid/fretcoach/config"
	"github.com/jsphweid/fretcoach/constants"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	debug   bool

	// set in PersistentPreRunE, before any command runs
	cfg    = config.Default()
	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:          "fretcoach",
	Short:        "Guitar tuner and play-along scorer",
	Long:         `Tunes a guitar string by string and scores practice runs against a MIDI or JSON timeline.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger(debug)
		path := cfgPath
		if path == "" {
			path = constants.GetConfigPath()
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
		logger.Debug("config: loaded", "path", path, "preset", cfg.Preset, "reference_hz", cfg.ReferenceHz)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "YAML config file (default $FRETCOACH_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging with source locations")
}

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}
