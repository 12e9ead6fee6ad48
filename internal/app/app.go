// Package app wires the reference scene, the data sources, the journal and
// the viewer facade into one application object shared by the front-ends.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/philipparndt/gomol/internal/config"
	"github.com/philipparndt/gomol/internal/journal"
	"github.com/philipparndt/gomol/internal/notify"
	"github.com/philipparndt/gomol/internal/rcsb"
	"github.com/philipparndt/gomol/internal/scene"
	"github.com/philipparndt/gomol/internal/source"
	"github.com/philipparndt/gomol/internal/viewer"
)

// App holds the running components
type App struct {
	Config        config.Config
	Logger        *slog.Logger
	Scene         *scene.Engine
	Notifications *notify.Hub
	Viewer        *viewer.Viewer
	Journal       *journal.Store // nil when no journal path is configured
}

// Options tune New
type Options struct {
	// Offline disables the metadata lookup
	Offline bool
}

// New builds an application from cfg
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	app := &App{
		Config:        cfg,
		Logger:        logger,
		Scene:         scene.New(logger.With("component", "scene")),
		Notifications: notify.NewHub(logger.With("component", "notify")),
	}

	deps := viewer.Deps{
		Engine: app.Scene,
		Data: source.New(source.Options{
			S3: source.S3Config{
				Region:    cfg.S3.Region,
				Endpoint:  cfg.S3.Endpoint,
				PathStyle: cfg.S3.PathStyle,
			},
			Logger: logger.With("component", "source"),
		}),
		Notifier: app.Notifications,
		Logger:   logger,
		Config:   cfg,
	}
	if !opts.Offline {
		deps.Metadata = rcsb.NewClient(nil, cfg.MetadataURLTemplate, logger.With("component", "rcsb"))
	}
	if cfg.JournalPath != "" {
		store, err := journal.Open(cfg.JournalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		app.Journal = store
		deps.Journal = store
	}

	v, err := viewer.New(ctx, deps)
	if err != nil {
		if app.Journal != nil {
			_ = app.Journal.Close()
		}
		return nil, err
	}
	app.Viewer = v
	return app, nil
}

// Close shuts the viewer down and closes the journal
func (a *App) Close() error {
	var errs []error
	errs = append(errs, a.Viewer.Close())
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	return errors.Join(errs...)
}
