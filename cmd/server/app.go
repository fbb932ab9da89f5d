package main

import (
	"context"
	"net/http"

	"github.com/diewo77/go-proposals/internal/config"
	"github.com/diewo77/go-proposals/internal/handlers"
	"github.com/diewo77/go-proposals/internal/metrics"
	"github.com/diewo77/go-proposals/internal/middleware"
	"github.com/diewo77/go-proposals/internal/render"
	"github.com/diewo77/go-proposals/internal/repository"
	"github.com/diewo77/go-proposals/internal/rewrite"
	"github.com/diewo77/go-proposals/internal/services"
	"go.uber.org/zap"
)

// App is the main application handler that sets up all routes.
type App struct {
	mux     *http.ServeMux
	handler http.Handler
	ctl     *services.Controller
	pinger  handlers.Pinger
	cfg     *config.Config
	log     *zap.Logger
}

// NewApp creates a new application with all routes configured.
func NewApp(cfg *config.Config, ctl *services.Controller, pinger handlers.Pinger, log *zap.Logger) *App {
	app := &App{
		mux:    http.NewServeMux(),
		ctl:    ctl,
		pinger: pinger,
		cfg:    cfg,
		log:    log,
	}
	app.setupRoutes()
	// Prefs must run before Recover so error pages know the language.
	app.handler = middleware.Prefs(middleware.Recover(log)(middleware.Logging(log.Named("http"))(app.mux)))
	return app
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

func (a *App) setupRoutes() {
	a.mux.Handle("GET /healthz", handlers.Healthz(a.pinger))
	a.mux.Handle("GET /metrics", metrics.Handler())

	ph := handlers.NewProposalHandler(a.ctl, a.cfg.Company, a.log.Named("proposals"))
	ph.Register(a.mux)
}

// newController builds the workflow controller over repo and loads the
// stored proposals. A missing or broken rewrite key disables rewrites
// instead of failing startup.
func newController(ctx context.Context, cfg *config.Config, repo *repository.ProposalRepository, log *zap.Logger) *services.Controller {
	var backend rewrite.Backend
	if cfg.Rewrite.APIKey != "" {
		b, err := rewrite.NewGenAIBackend(ctx, cfg.Rewrite.APIKey, cfg.Rewrite.Model)
		if err != nil {
			log.Warn("rewrite backend unavailable, descriptions will be kept as typed", zap.Error(err))
		} else {
			backend = b
			log.Info("rewrite backend ready", zap.String("model", b.Name()))
		}
	} else {
		log.Info("no rewrite API key configured, rewrites disabled")
	}

	var sink render.Sink
	if cfg.App.ExportDir != "" {
		sink = render.FileSink{Dir: cfg.App.ExportDir}
	}

	ctl := services.NewController(repo, services.Options{
		Defaults:  cfg.App.Defaults(),
		NoticeTTL: cfg.App.NoticeTTL,
		Log:       log.Named("controller"),
		Rewriter:  rewrite.New(backend, cfg.Company.Name, log.Named("rewrite")),
		Documents: render.NewPDFRenderer(cfg.Company),
		Sink:      sink,
	})
	ctl.Load(ctx)
	return ctl
}
