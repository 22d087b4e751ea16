package app

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dshills/stepcov/internal/config"
	"github.com/dshills/stepcov/internal/logging"
	"github.com/dshills/stepcov/internal/watch"
)

// Watch runs script once, then again every time a covered source or the
// script itself changes, until ctx is done. Each result goes to notify.
func Watch(ctx context.Context, cfg config.Config, script string, notify func(*Result, error)) error {
	log := logging.WithComponent(logging.Get(), "watch")
	w, err := watch.New(
		watch.WithDelay(cfg.Debounce()),
		watch.WithExtensions(filepath.Ext(script), ".lua", ".js"),
		watch.WithLogger(log),
	)
	if err != nil {
		return &OperationError{Op: "start watcher", Err: err}
	}
	defer w.Close()

	run := func(ctx context.Context) error {
		res, err := Run(ctx, cfg, script)
		notify(res, err)
		if err != nil {
			return err
		}
		return w.Add(append([]string{script}, res.Files...)...)
	}

	if err := run(ctx); err != nil {
		return err
	}
	for _, dir := range cfg.SearchPath {
		if err := w.Add(dir); err != nil {
			log.Warn("cannot watch search path", zap.String("dir", dir), zap.Error(err))
		}
	}

	return w.Run(ctx, func(ctx context.Context, changes []watch.Change) error {
		for _, c := range changes {
			log.Debug("changed", zap.String("file", c.Path), zap.Stringer("op", c.Op))
		}
		return run(ctx)
	})
}
