package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pocket-tracker/tracker/internal/api"
	"github.com/pocket-tracker/tracker/internal/db"
	"github.com/pocket-tracker/tracker/internal/logging"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded tracks and run summaries over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :8090)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logging.InitLogging()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.ServeAddr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Left as a nil interface when the journal is unavailable
	var runs api.RunRepository
	if cfg.DatabasePath != "" {
		database, err := db.Open(ctx, cfg.DatabasePath)
		if err != nil {
			log.Printf("Warning: journal disabled: %v", err)
		} else {
			defer database.Close()
			runs = database
		}
	}

	srv := &http.Server{
		Addr:              cfg.ServeAddr,
		Handler:           api.NewRouter(api.NewHandler(runs, cfg.RecordsDir), cfg.AllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server starting on %s (records=%s)", cfg.ServeAddr, cfg.RecordsDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Println("Goodbye!")
	return nil
}
