package CommitView

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nickyhof/CommitView/config"
	"github.com/nickyhof/CommitView/core"
	"github.com/nickyhof/CommitView/db"
	"github.com/nickyhof/CommitView/memdb"
	"github.com/nickyhof/CommitView/plugin"
	"github.com/nickyhof/CommitView/ps"
	"github.com/nickyhof/CommitView/viewer"
)

// Instance wires an engine, the plugin registry, a shared render document
// and the layout store for the viewers it creates.
type Instance struct {
	Engine   core.Engine
	Layouts  *ps.Persistence
	Registry *plugin.Registry
	Document *viewer.Document
	Identity core.Identity
	Logger   *zap.Logger
	S3       *db.S3Config

	throttle time.Duration
	closers  []io.Closer
}

// Open creates an instance over engine. A nil layouts store is replaced by
// an in-memory one.
func Open(engine core.Engine, layouts *ps.Persistence) *Instance {
	if layouts == nil {
		layouts, _ = ps.NewMemoryPersistence()
	}
	return &Instance{
		Engine:   engine,
		Layouts:  layouts,
		Registry: plugin.NewDefaultRegistry(),
		Document: viewer.NewDocument(),
		Identity: core.DefaultIdentity,
		Logger:   core.DefaultLogger(),
	}
}

// OpenConfig builds the engine, layout store and logger described by cfg.
func OpenConfig(cfg config.Config) (*Instance, error) {
	logger, err := core.NewLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}
	core.SetDefaultLogger(logger)

	var (
		engine  core.Engine
		closers []io.Closer
	)
	switch strings.ToLower(cfg.Engine.Kind) {
	case config.EngineDuckDB:
		duck, err := db.Open(cfg.Engine.DSN)
		if err != nil {
			return nil, err
		}
		engine = duck
		closers = append(closers, duck)
	default:
		engine = memdb.New()
	}

	var layouts *ps.Persistence
	if cfg.Layouts.Dir != "" {
		var gitURL *string
		if cfg.Layouts.GitURL != "" {
			gitURL = &cfg.Layouts.GitURL
		}
		layouts, err = ps.NewFilePersistence(cfg.Layouts.Dir, gitURL)
	} else {
		layouts, err = ps.NewMemoryPersistence()
	}
	if err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to open layout store: %w", err), closeAll(closers))
	}

	instance := Open(engine, layouts)
	instance.Logger = logger
	instance.S3 = &cfg.S3
	instance.throttle = cfg.Viewer.ThrottleInterval
	instance.closers = closers
	return instance, nil
}

// NewViewer creates a viewer bound to the instance. opts are applied after
// the instance defaults.
func (instance *Instance) NewViewer(opts ...viewer.Option) *viewer.Viewer {
	base := []viewer.Option{
		viewer.WithRegistry(instance.Registry),
		viewer.WithDocument(instance.Document),
		viewer.WithLogger(instance.Logger),
	}
	if instance.throttle > 0 {
		base = append(base, viewer.WithThrottleInterval(instance.throttle))
	}
	return viewer.New(instance.Engine, append(base, opts...)...)
}

// LoadData reads a dataset from a local path or URL.
func (instance *Instance) LoadData(ctx context.Context, path string) (*core.Data, error) {
	return db.LoadData(ctx, path, instance.S3, nil)
}

// SaveLayout commits the attributes of v under name.
func (instance *Instance) SaveLayout(v *viewer.Viewer, name string) (ps.Transaction, error) {
	return instance.Layouts.SaveLayout(name, v.Save(), instance.Identity)
}

// RestoreLayout applies a saved layout to v and renders it. rev selects an
// earlier transaction or snapshot tag; empty means the latest.
func (instance *Instance) RestoreLayout(ctx context.Context, v *viewer.Viewer, name, rev string) error {
	saved, err := instance.Layouts.GetLayoutAsOf(name, rev)
	if err != nil {
		return err
	}
	v.Restore(saved)
	return v.Render(ctx)
}

// Close releases the engine.
func (instance *Instance) Close() error {
	err := closeAll(instance.closers)
	instance.closers = nil
	return err
}

func closeAll(closers []io.Closer) error {
	var errs error
	for _, c := range closers {
		errs = multierr.Append(errs, c.Close())
	}
	return errs
}
