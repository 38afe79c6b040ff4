package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"

	"github.com/agpsystems/agp/internal/config"
	"github.com/agpsystems/agp/internal/controllers"
	"github.com/agpsystems/agp/internal/crypto"
	"github.com/agpsystems/agp/internal/middleware"
	"github.com/agpsystems/agp/internal/models"
	"github.com/agpsystems/agp/internal/services"
	"github.com/agpsystems/agp/internal/views"
	"github.com/agpsystems/agp/templates"
)

// app holds everything the router needs.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	journal  models.Journal
	analyzer *services.Analyzer
	recorder *controllers.Recorder
	limiter  *middleware.RateLimiter
	home     *views.Template
}

func journalConfig(cfg *config.Config) models.JournalConfig {
	return models.JournalConfig{
		Driver:      cfg.Journal.Driver,
		DatabaseURL: cfg.Journal.DatabaseURL,
		SQLitePath:  cfg.Journal.SQLitePath,
		MaxEntries:  cfg.Journal.MaxEntries,
	}
}

// newApp wires the services. The caller owns journal and must close it.
func newApp(cfg *config.Config, log *logrus.Logger, journal models.Journal) (*app, error) {
	sealer, err := crypto.NewEncryptorFromBase64(cfg.Journal.SealKey)
	if err != nil {
		return nil, fmt.Errorf("journal seal key: %w", err)
	}

	home, err := views.ParseFS(templates.FS, "pages/home.gohtml")
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		log:      log,
		journal:  journal,
		analyzer: services.NewAnalyzer(cfg.API.Version),
		recorder: controllers.NewRecorder(journal, sealer),
		limiter:  middleware.NewRateLimiter(cfg.Limits.RateLimitRPS, cfg.Limits.RateLimitBurst),
		home:     home,
	}, nil
}

func (a *app) close() {
	a.limiter.Stop()
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if cfg.Security.CSRFKeyGenerated {
		log.Warn("CSRF_KEY not set, using a random per-process key (forms break across restarts)")
	}
	if cfg.IsProduction() && !cfg.Security.SecureCookies {
		log.Warn("CSRF_SECURE is off in production, the CSRF cookie will be sent over plain HTTP")
	}

	// Setup the journal ---------------
	log.WithField("driver", cfg.Journal.Driver).Info("Opening journal...")
	journal, err := models.OpenJournal(ctx, journalConfig(cfg))
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer journal.Close()

	a, err := newApp(cfg, log, journal)
	if err != nil {
		return err
	}
	defer a.close()

	pruner := services.NewPruner(ctx, journal, cfg.Journal.Retention, cfg.Journal.PruneSchedule, log)
	if err := pruner.Start(); err != nil {
		return fmt.Errorf("start pruner: %w", err)
	}
	defer pruner.Stop()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"address": cfg.Server.Address,
			"env":     cfg.Environment,
			"prefix":  apiPrefix(cfg.API.Prefix),
		}).Info("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("Server stopped")
	return nil
}

// apiPrefix normalizes API_PREFIX; "/" mounts the API at the root.
func apiPrefix(prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	return prefix
}

func (a *app) routes() http.Handler {
	analyzeCtrl := controllers.NewAnalyzeController(a.analyzer, a.recorder, a.cfg.Limits.MaxBodyBytes)
	historyCtrl := controllers.NewHistoryController(a.journal)
	staticCtrl := controllers.NewStaticController(
		controllers.StaticTemplates{Home: a.home},
		a.analyzer,
		a.recorder,
		a.journal,
		a.cfg.IsDevelopment(),
	)
	a.limiter.Rejected = http.HandlerFunc(analyzeCtrl.TooManyRequests)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(a.log))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", controllers.HealthCheck(a.journal))

	// ---- Pages ----
	r.Group(func(r chi.Router) {
		r.Use(a.csrfProtect())

		r.Get("/", staticCtrl.GetHome)
		r.Post("/try", staticCtrl.PostTry)
	})

	// ---- API ----
	api := func(r chi.Router) {
		r.Use(a.limiter.Limit)

		r.Post("/analyze", analyzeCtrl.PostAnalyze)
		r.Post("/intervene", analyzeCtrl.PostIntervene)
		r.Get("/history", historyCtrl.GetRecent)
		r.Get("/stats", historyCtrl.GetStats)
	}
	if prefix := apiPrefix(a.cfg.API.Prefix); prefix != "" {
		r.Route(prefix, api)
	} else {
		r.Group(api)
	}

	return r
}

func (a *app) csrfProtect() func(http.Handler) http.Handler {
	protect := csrf.Protect(
		[]byte(a.cfg.Security.CSRFKey),
		csrf.Secure(a.cfg.Security.SecureCookies),
		csrf.Path("/"),
		csrf.TrustedOrigins(a.cfg.Security.CSRFTrustedOrigins),
	)
	if a.cfg.Security.SecureCookies {
		return protect
	}

	// plain HTTP skips the TLS-only Referer check
	return func(next http.Handler) http.Handler {
		protected := protect(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
