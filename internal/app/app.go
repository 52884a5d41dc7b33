// Package app assembles the portal from configuration. Both the HTTP server
// and the admin CLI start from here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/p-n-ai/diplomado/internal/activity"
	"github.com/p-n-ai/diplomado/internal/ai"
	"github.com/p-n-ai/diplomado/internal/auth"
	"github.com/p-n-ai/diplomado/internal/content"
	"github.com/p-n-ai/diplomado/internal/curriculum"
	"github.com/p-n-ai/diplomado/internal/evaluation"
	"github.com/p-n-ai/diplomado/internal/httpapi"
	"github.com/p-n-ai/diplomado/internal/platform/cache"
	"github.com/p-n-ai/diplomado/internal/platform/config"
	"github.com/p-n-ai/diplomado/internal/platform/database"
	"github.com/p-n-ai/diplomado/internal/platform/sqlite"
	"github.com/p-n-ai/diplomado/internal/portal"
	"github.com/p-n-ai/diplomado/internal/progress"
)

// SystemPrincipal is the administrator identity used by operator tooling.
var SystemPrincipal = auth.Principal{ID: "system", Username: "diplomadoctl", Role: auth.RoleAdministrator}

// App holds the wired services.
type App struct {
	Config   *config.Config
	Content  *content.Resolver
	Progress *progress.Tracker
	Auth     *auth.Service
	Hub      *activity.Hub
	Portal   *portal.Portal

	readiness map[string]httpapi.ReadinessCheck
	closers   []func()
}

type storage struct {
	users    auth.UserRepository
	progress progress.Store
	events   activity.EventLogger
}

// New connects storage and builds every service named by cfg.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, readiness: map[string]httpapi.ReadinessCheck{}}
	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config

	st, err := a.openStorage(ctx)
	if err != nil {
		return err
	}

	var c *cache.Cache
	if cfg.Session.Driver == "redis" {
		c, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return fmt.Errorf("connecting to cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		a.readiness["cache"] = c.HealthCheck
	}

	outline := curriculum.Default()
	if cfg.Content.OutlinePath != "" {
		if outline, err = curriculum.Load(cfg.Content.OutlinePath); err != nil {
			return err
		}
	}
	a.Content, err = content.NewResolver(os.DirFS(cfg.Content.RootDir))
	if err != nil {
		return fmt.Errorf("loading content: %w", err)
	}

	var sessions auth.SessionStore = auth.NewMemorySessionStore()
	if c != nil {
		sessions = auth.NewRedisSessionStore(c)
	}
	a.Auth = auth.NewService(auth.ServiceConfig{
		Users:      st.users,
		Sessions:   sessions,
		Tokens:     auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Session.TTL),
		SessionTTL: cfg.Session.TTL,
		LoginDelay: cfg.Auth.LoginDelay,
	})
	if cfg.Auth.SeedAdmin {
		if _, err := a.Auth.EnsureDefaultAdmin(ctx, cfg.Auth.SeedAdminUsername, cfg.Auth.SeedAdminPassword); err != nil {
			return err
		}
	}

	a.Progress = progress.NewTracker(st.progress)
	a.Hub = activity.NewHub(st.events)

	a.Portal, err = portal.New(portal.Config{
		Outline:    outline,
		Content:    a.Content,
		Progress:   a.Progress,
		Auth:       a.Auth,
		Evaluation: newEvaluation(cfg, c),
		Events:     a.Hub,
	})
	return err
}

func (a *App) openStorage(ctx context.Context) (storage, error) {
	cfg := a.Config
	switch cfg.Storage.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return storage{}, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.readiness["storage"] = pingSQL(db)
		slog.Info("storage ready", "driver", "sqlite", "path", cfg.Storage.SQLitePath)
		return storage{
			users:    auth.NewSQLiteUserRepository(db),
			progress: progress.NewSQLiteStore(db),
			events:   activity.NewSQLiteEventLogger(db),
		}, nil

	case "postgres":
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return storage{}, err
		}
		a.closers = append(a.closers, db.Close)
		a.readiness["storage"] = db.HealthCheck
		if err := db.Migrate(ctx); err != nil {
			return storage{}, err
		}
		users, err := auth.NewPostgresUserRepository(db.Pool)
		if err != nil {
			return storage{}, err
		}
		store, err := progress.NewPostgresStore(db.Pool)
		if err != nil {
			return storage{}, err
		}
		slog.Info("storage ready", "driver", "postgres")
		return storage{users: users, progress: store, events: activity.NewPostgresEventLogger(db.Pool)}, nil

	case "memory":
		slog.Warn("using in-memory storage, data is lost on exit")
		return storage{
			users:    auth.NewMemoryUserRepository(),
			progress: progress.NewMemoryStore(),
			events:   activity.NopEventLogger{},
		}, nil

	default:
		return storage{}, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func newEvaluation(cfg *config.Config, c *cache.Cache) *evaluation.Service {
	router := ai.NewRouter()
	if cfg.AI.Google.APIKey != "" {
		router.Register("google", ai.NewGoogleProvider(cfg.AI.Google.APIKey,
			ai.WithGoogleModel(cfg.AI.Google.Model),
			ai.WithGoogleBaseURL(cfg.AI.Google.BaseURL),
			ai.WithGoogleHTTPClient(&http.Client{Timeout: cfg.AI.Google.Timeout}),
		))
		slog.Info("AI provider configured", "provider", "google", "model", cfg.AI.Google.Model)
	}
	if cfg.AI.OpenAI.APIKey != "" {
		router.Register("openai", ai.NewOpenAIProvider(cfg.AI.OpenAI.APIKey,
			ai.WithOpenAIModel(cfg.AI.OpenAI.Model),
			ai.WithOpenAIBaseURL(cfg.AI.OpenAI.BaseURL),
			ai.WithOpenAIHTTPClient(&http.Client{Timeout: cfg.AI.OpenAI.Timeout}),
		))
		slog.Info("AI provider configured", "provider", "openai", "model", cfg.AI.OpenAI.Model)
	}
	if !cfg.HasAIProvider() {
		slog.Warn("no AI provider configured, final evaluation is unavailable")
	}

	var budget ai.BudgetChecker = ai.UnlimitedBudget{}
	switch {
	case cfg.AI.UserTokenBudget > 0 && c != nil:
		budget = ai.NewRedisBudget(c.Client, cfg.AI.UserTokenBudget)
	case cfg.AI.UserTokenBudget > 0:
		budget = ai.NewInMemoryBudget(cfg.AI.UserTokenBudget)
	}

	return evaluation.NewService(evaluation.ServiceConfig{AIRouter: router, Budget: budget})
}

func pingSQL(db *sql.DB) httpapi.ReadinessCheck {
	return func(ctx context.Context) error { return db.PingContext(ctx) }
}

// Handler returns the HTTP API for the app.
func (a *App) Handler() (http.Handler, error) {
	srv, err := httpapi.New(httpapi.Config{
		Portal:         a.Portal,
		Assets:         a.Content,
		Feed:           a.Hub,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		Readiness:      a.readiness,
	})
	if err != nil {
		return nil, err
	}
	return srv.Handler(), nil
}

// Close releases storage and cache connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
