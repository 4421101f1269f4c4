package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"transmission-api/internal/api"
	"transmission-api/internal/common/camunda"
	"transmission-api/internal/common/config"
	lookuptransmission "transmission-api/internal/workers/transmission/lookup-transmission"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when enabled, the workflow worker",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)
	if cfg.EnvFile != "" {
		log.Info("loaded environment file", map[string]interface{}{"path": cfg.EnvFile})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.Close()

	// Warm the catalog; a failure here is served later from retries or the snapshot.
	if _, err := a.catalog.Get(ctx); err != nil {
		log.Warn("initial catalog load failed", map[string]interface{}{"error": err.Error()})
	}

	deps := api.Deps{
		Lookup:  a.service,
		Catalog: a.catalog,
		Models:  a.llm,
		Prober:  a.llm,
		Model:   a.llm.Model(),
		Logger:  log,
	}
	if cfg.Camunda.Enabled {
		handler, err := startWorker(ctx, cfg, a)
		if err != nil {
			return err
		}
		defer handler.Close()
		deps.Workflow = handler
	}

	requestTimeout := config.GetDuration(cfg.Server.RequestTimeout)
	router := api.NewRouter(deps, api.Options{
		RequestTimeout: requestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	srv := api.NewServer(cfg.Server.Address, router, requestTimeout)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("HTTP server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, draining", nil)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if a.file != nil && cfg.Catalog.Watch {
		stopWatch, err := a.file.Watch(gctx, a.catalog.Invalidate, log)
		if err != nil {
			log.Warn("catalog file watch disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer stopWatch()
		}
	}

	err = g.Wait()
	log.Info("transmission-api stopped", nil)
	return err
}

func startWorker(ctx context.Context, cfg *config.Config, a *app) (*lookuptransmission.Handler, error) {
	client, err := camunda.NewClient(ctx, cfg.Camunda.BrokerAddress, a.log)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)

	handler, err := lookuptransmission.NewHandler(lookuptransmission.HandlerOptions{
		AppConfig: cfg,
		Camunda:   client,
		Lookup:    a.service,
		Logger:    a.log,
	})
	if err != nil {
		return nil, err
	}
	if err := handler.Register(); err != nil {
		return nil, err
	}
	wc := handler.GetConfig()
	a.log.Info("workflow worker started", map[string]interface{}{
		"taskType":      handler.GetTaskType(),
		"enabled":       handler.IsEnabled(),
		"maxJobsActive": wc.MaxJobsActive,
		"timeout":       wc.Timeout.String(),
	})
	return handler, nil
}
