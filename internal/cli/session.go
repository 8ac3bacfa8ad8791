package cli

import (
	"context"

	"github.com/roach88/yankhist/internal/config"
	"github.com/roach88/yankhist/internal/controller"
	"github.com/roach88/yankhist/internal/history"
)

// session is the store and controller of one CLI process.
type session struct {
	store      *history.Store
	ctrl       *controller.Controller
	configPath string
}

// configLoader resolves --config. An explicit file must exist; the default
// location is optional.
func (o *RootOptions) configLoader() (*config.Loader, error) {
	path, required := o.Config, o.Config != ""
	if !required {
		if p, err := config.DefaultPath(); err == nil {
			path = p
		}
	}
	l, err := config.NewLoader(path, required)
	if err != nil {
		return nil, &configError{err: err}
	}
	return l, nil
}

// openSession loads the configuration and the history file.
func openSession(ctx context.Context, o *RootOptions) (*session, error) {
	loader, err := o.configLoader()
	if err != nil {
		return nil, err
	}
	store := history.New(history.WithLogger(o.logger), history.WithClock(o.Clock))
	ctrl := controller.New(store, loader, o.logger)
	if err := ctrl.Start(ctx); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}
	return &session{store: store, ctrl: ctrl, configPath: loader.Path()}, nil
}

// describe reports the files the session reads when --verbose is set.
func (s *session) describe(out *OutputFormatter) {
	cfg := s.configPath
	if cfg == "" {
		cfg = "(environment only)"
	}
	out.VerboseLog("Config: %s", cfg)
	path := s.store.Options().Path
	if path == "" {
		path = "(memory only)"
	}
	out.VerboseLog("History: %s", path)
}

// close flushes pending changes to the history file.
func (s *session) close(ctx context.Context) error {
	return s.store.Close(ctx)
}
