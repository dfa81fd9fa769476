package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jsphweid/fretcoach/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	serveOrigins string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveOrigins, "origins", "*", "comma separated CORS origins")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the tuner and practice scorer over HTTP",
	Long:  `Serves the tuner and practice scorer over HTTP for a browser or app front end.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	var store server.ReportStore
	archive, err := openArchive()
	if err != nil {
		return err
	}
	if archive != nil {
		store = archive
	}

	s := server.New(cfg, logger, store)
	defer s.Shutdown()

	srv := &http.Server{
		Addr:              serveAddr,
		Handler:           s.Handler(strings.Split(serveOrigins, ",")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serve: listening", "addr", serveAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
