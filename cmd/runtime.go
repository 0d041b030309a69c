package cmd

import (
	"github.com/grovetools/phlux/config"
	"github.com/grovetools/phlux/internal/counter"
	"github.com/grovetools/phlux/pkg/persist"
	"github.com/grovetools/phlux/pkg/phlux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// runtime is everything a command needs to host counter scopes.
type runtime struct {
	store    *phlux.Store
	codec    *phlux.Codec
	repo     persist.Repository
	registry *prometheus.Registry
}

func newRuntime(cfg *config.Config, logger *logrus.Entry) (*runtime, error) {
	format, err := phlux.ParseFormat(cfg.Persistence.Format)
	if err != nil {
		return nil, err
	}
	repo, err := persist.Open(cfg.Persistence.Backend, cfg.Persistence.Dir)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		codec: counter.Register(phlux.NewCodec(format)),
		repo:  repo,
	}

	opts := []phlux.Option{phlux.WithLogger(logger)}
	if cfg.Store.Runner == config.RunnerGoroutine {
		opts = append(opts, phlux.WithRunner(phlux.GoRunner))
	}
	if cfg.MetricsEnabled() {
		rt.registry = prometheus.NewRegistry()
		opts = append(opts, phlux.WithMetrics(phlux.NewMetrics(rt.registry)))
	}
	rt.store = phlux.NewStore(opts...)

	logger.WithFields(logrus.Fields{
		"backend": cfg.Persistence.Backend,
		"dir":     cfg.Persistence.Dir,
		"format":  format,
		"runner":  cfg.Store.Runner,
	}).Debug("Runtime ready")
	return rt, nil
}

func (rt *runtime) Close() error {
	return rt.repo.Close()
}
