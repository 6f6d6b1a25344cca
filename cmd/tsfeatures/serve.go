package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jward/tsfeatures"
	"github.com/jward/tsfeatures/internal/observability"
	"github.com/jward/tsfeatures/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the analysis HTTP service",
	Long:  `Listens for POST requests carrying {"filename", "fileContents"} and answers with the detected features. /metrics and /healthz are served alongside.`,
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default: server.addr from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := flagAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := providers.Logger
	analyzer := tsfeatures.NewAnalyzer(tsfeatures.WithLogger(logger))
	srv := server.New(analyzer,
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
		server.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		server.WithMetrics(observability.NewMetrics()),
		server.WithTracer(providers.Tracer),
		server.WithLogger(logger),
	)
	return srv.ListenAndServe(ctx, addr)
}
