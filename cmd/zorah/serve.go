package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/zorah/internal/config"
	"github.com/nao1215/zorah/internal/database"
	"github.com/nao1215/zorah/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the crawler as an HTTP API",
		Long: `Serve exposes the crawler over HTTP.

Endpoints:
  GET  /health   liveness probe
  POST /crawl    body {"url": "<seed>"}; responds with the JSON records

Each request runs one crawl with the same options as 'zorah crawl'.
Finished runs are archived unless --save=false is given.

Examples:
  # Listen on the default address
  zorah serve

  # Listen on all interfaces and log JSON lines
  zorah serve --listen :8080 --log-json

  # Try it
  curl -X POST -d '{"url":"https://www.example.com"}' http://127.0.0.1:8080/crawl`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addCrawlFlags(cmd)
	cmd.Flags().StringP("listen", "l", config.DefaultListenAddr,
		"Address the API listens on")
	cmd.Flags().BoolP("save", "s", true,
		"Archive every finished run")
	cmd.Flags().Bool("log-json", false,
		"Write logs as JSON lines")

	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg, cmd.ErrOrStderr(), logger)
}

// buildServeConfig is buildConfig plus the serve command's options.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := buildConfig(cmd, nil)
	if err != nil {
		return nil, err
	}

	v, err := newViper(cmd)
	if err != nil {
		return nil, err
	}
	cfg.ListenAddr = v.GetString("listen")
	cfg.SaveToDB = v.GetBool("save")
	cfg.LogJSON = v.GetBool("log-json")
	return cfg, nil
}

// runServe serves the API until ctx is cancelled.
func runServe(ctx context.Context, cfg *config.Config, stderr io.Writer, logger *slog.Logger) error {
	proxy, stopProxy, err := setupProxy(ctx, cfg, stderr, logger)
	if err != nil {
		return err
	}
	defer stopProxy()

	opts := []server.Option{server.WithLogger(logger)}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open archive: %w", err)
		}
		defer db.Close()
		opts = append(opts, server.WithArchive(db))
	}

	srv := server.New(newCrawlerFactory(cfg, proxy, logger), opts...)

	fmt.Fprintf(stderr, "Listening on http://%s (Ctrl+C to stop)\n", cfg.ListenAddr)
	return srv.ListenAndServe(ctx, cfg.ListenAddr)
}
