package cmd

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github/itish2003/notehub/controller"
	"github/itish2003/notehub/querycache"
	"github/itish2003/notehub/services"
	"github/itish2003/notehub/web"
)

const shutdownTimeout = 10 * time.Second

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the notes pages over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "address to listen on (overrides listen_addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	api := services.NewNotesAPI(httpClient, cfg.APIURL, cfg.APIToken, cfg.PerPage, logger)
	sessions := services.NewSessionStore(api, cfg.SessionTTL, cfg.ToastDuration, logger,
		querycache.WithStaleTime(cfg.StaleTime))

	tmpl, err := loadTemplates(cfg.TemplatesDir)
	if err != nil {
		return err
	}
	notesController := controller.NewNotesController(api, services.NewNotesLoader(api, logger), sessions, tmpl, Version, logger)

	if cfg.TemplatesDir != "" {
		watcher := services.NewTemplateWatcher(cfg.TemplatesDir, func() error {
			t, err := web.LoadDir(cfg.TemplatesDir)
			if err != nil {
				return err
			}
			notesController.SetTemplates(t)
			return nil
		}, logger)
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("template watcher stopped", "error", err)
			}
		}()
	}
	go sweepSessions(ctx, sessions, cfg.SessionTTL)

	if cfg.SlogLevel() > slog.LevelDebug && !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: controller.SetupRouter(notesController),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown failed", "error", err)
		}
	}()

	logger.Info("notehub server starting", "addr", cfg.ListenAddr, "api", cfg.APIURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	logger.Info("notehub server stopped")
	return nil
}

// loadTemplates reads dir when set and the embedded templates otherwise.
func loadTemplates(dir string) (*template.Template, error) {
	if dir != "" {
		return web.LoadDir(dir)
	}
	return web.Templates()
}

func sweepSessions(ctx context.Context, sessions *services.SessionStore, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	ticker := time.NewTicker(max(ttl/2, time.Minute))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions.Sweep()
		}
	}
}
