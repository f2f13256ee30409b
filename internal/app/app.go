package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vk/datajob/internal/config"
	"github.com/vk/datajob/internal/ctxlog"
	hclconf "github.com/vk/datajob/internal/hcl"
	"github.com/vk/datajob/internal/registry"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	ctx        context.Context
	config     *Config
	registry   *registry.Registry
	loader     config.Loader
	metrics    *metrics
	httpServer *http.Server
	now        func() time.Time
}

// NewApp is the constructor for the main application. Artifacts are written
// to outW and logs to logW. It returns a fully initialized App instance,
// including its own isolated logger and registry.
func NewApp(outW, logW io.Writer, cfg *Config, modules ...registry.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All Go modules registered.", "count", len(modules), "kinds", reg.Kinds())

	if err := reg.ValidateRegistry(ctx); err != nil {
		// A module with a broken input struct is a programmer error.
		panic(err)
	}

	loader := hclconf.NewLoader(
		hclconf.WithStackDefaults(config.Stack{Stage: cfg.Stage, Region: cfg.Region, Account: cfg.Account}),
		hclconf.WithEnv(cfg.Env),
	)

	return &App{
		outW:     outW,
		logger:   logger,
		ctx:      ctx,
		config:   cfg,
		registry: reg,
		loader:   loader,
		metrics:  newMetrics(),
		now:      time.Now,
	}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// withLogger makes sure ctx carries the app's logger.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
