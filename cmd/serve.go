package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nikogura/resume-analyzer/pkg/server"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var serveAddr string

//nolint:gochecknoglobals // Cobra boilerplate
var serveLocalRoot string

//nolint:gochecknoglobals // Cobra boilerplate
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Receive S3 event notifications over HTTP",
	Long: `Starts an HTTP server that accepts S3 event notifications.

  POST /events   S3 event JSON, answered with the batch summary
  GET  /healthz  dependency checks

Example:
  resume-analyzer serve --addr :8080`,
	RunE: runServe,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveLocalRoot, "local-root", "", "read objects from this directory instead of S3")
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var a *app
	a, err = newApp(ctx, cfg, logger, appOptions{localRoot: serveLocalRoot})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.processor, a.checks, logger)
	err = srv.ListenAndServe(ctx, addr)
	return err
}
