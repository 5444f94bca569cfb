package pipeline

import "github.com/kailas-cloud/queryfuse/internal/domain/strategy"

// Options are per-request overrides. Zero values fall back to the
// service defaults.
type Options struct {
	Strategy  strategy.Strategy
	TopK      int
	Diversity bool
}

const defaultTopK = 10

func (s *Service) applyDefaults(opts Options) Options {
	if opts.Strategy == "" {
		opts.Strategy = s.cfg.DefaultStrategy
	}
	if opts.TopK <= 0 {
		opts.TopK = s.cfg.DefaultTopK
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	return opts
}
