package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/scopeworks/discovery/errors"
	"github.com/scopeworks/discovery/logger"
	"github.com/scopeworks/discovery/server"
)

// ServeCmd starts the HTTP API server.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the discovery HTTP API server",
	Long: `Start the HTTP API server backing the discovery knowledge store.

The server applies pending migrations on startup and shuts down gracefully
on SIGINT/SIGTERM.

Examples:
  discovery serve                       # Listen on the configured address
  discovery serve --addr :9000          # Override the listen address`,
	RunE: runServe,
}

var serveAddrFlag string

func init() {
	ServeCmd.Flags().StringVar(&serveAddrFlag, "addr", "", "Listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}
	if serveAddrFlag != "" {
		cfg.Server.Addr = serveAddrFlag
	}

	database, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	srv := server.New(database, cfg, logger.Logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Infow("Received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
