package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/verity/verity/internal/cache"
	"github.com/verity/verity/internal/metrics"
	"github.com/verity/verity/internal/pipeline"
	"github.com/verity/verity/internal/server"
)

// serveCmd represents the HTTP service
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve verification runs over HTTP",
	Long: `Serve exposes POST /check, GET /reports/{id}, a health endpoint at GET /
and Prometheus metrics at GET /metrics.

Example:
  verity serve --addr :8001`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	p, err := pipeline.NewPipeline(cfg,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metrics.New(reg)),
	)
	if err != nil {
		return err
	}
	defer p.Close()

	reports := cache.NewReportStore(cfg.Server.ReportTTL, 10*time.Minute)
	handler := server.New(p, p.Provider(), reports, logger)
	srv := server.NewServer(cfg.Server.Addr, server.NewRouter(handler, reg))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr, "backend", cfg.Backend.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		// checks still running give up their queued renders
		p.Shutdown()
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
