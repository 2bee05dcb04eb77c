package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/stefanpenner/wellspring/pkg/config"
	"github.com/stefanpenner/wellspring/pkg/goals"
	"github.com/stefanpenner/wellspring/pkg/metrics"
	"github.com/stefanpenner/wellspring/pkg/store"
)

// app holds what a command needs once config is resolved.
type app struct {
	v *viper.Viper

	cfg     *config.Config
	log     *logrus.Logger
	store   *goals.Store
	files   *store.FileStore // nil unless the files backend is in use
	metrics *metrics.Recorder
	closeFn func() error
}

// open resolves config and opens the goal store. Logs go to logOut.
func (a *app) open(ctx context.Context, logOut io.Writer) error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.log = cfg.Logger()
	a.log.SetOutput(logOut)

	var p goals.Persistence
	switch cfg.Backend {
	case config.BackendSQLite:
		db, err := store.OpenSQLite(cfg.DBPath())
		if err != nil {
			return err
		}
		p, a.closeFn = db, db.Close
	default:
		fs, err := store.NewFileStore(cfg.Dir)
		if err != nil {
			return err
		}
		p, a.files = fs, fs
	}

	s, err := goals.Open(ctx, p, goals.WithLogger(a.log.WithField("backend", cfg.Backend)))
	if err != nil {
		a.close()
		return err
	}
	a.store = s
	a.metrics = metrics.NewRecorder()
	s.Subscribe(a.metrics.Observer())
	return nil
}

func (a *app) close() {
	if a.closeFn != nil {
		if err := a.closeFn(); err != nil && a.log != nil {
			a.log.WithError(err).Warn("closing store")
		}
		a.closeFn = nil
	}
}

// fail records a rejected operation and returns err unchanged.
func (a *app) fail(op string, err error) error {
	if err != nil && a.metrics != nil {
		a.metrics.RecordRejection(op, err)
	}
	return err
}

// resolveGoal finds a goal by id, unique id prefix or exact title.
func (a *app) resolveGoal(ref string) (goals.Goal, error) {
	ref = strings.TrimSpace(ref)
	if g, err := a.store.Goal(ref); err == nil {
		return g, nil
	}

	var byPrefix, byTitle []goals.Goal
	for _, g := range a.store.Goals() {
		if strings.HasPrefix(g.ID, ref) {
			byPrefix = append(byPrefix, g)
		}
		if strings.EqualFold(g.Title, ref) {
			byTitle = append(byTitle, g)
		}
	}
	switch {
	case len(byPrefix) == 1:
		return byPrefix[0], nil
	case len(byPrefix) > 1:
		return goals.Goal{}, fmt.Errorf("%w: %q matches %d goals", goals.ErrValidation, ref, len(byPrefix))
	case len(byTitle) == 1:
		return byTitle[0], nil
	case len(byTitle) > 1:
		return goals.Goal{}, fmt.Errorf("%w: %d goals are titled %q, use an id", goals.ErrValidation, len(byTitle), ref)
	}
	return goals.Goal{}, fmt.Errorf("%w: %s", goals.ErrNotFound, ref)
}

// serveMetrics exposes the recorder on addr until the returned func is called.
func serveMetrics(addr string, rec *metrics.Recorder, log logrus.FieldLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).WithField("addr", addr).Error("metrics server failed")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
