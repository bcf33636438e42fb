package vi

import (
	"io"
	"log"
)

// Sweep describes one completed Bellman sweep.
type Sweep struct {
	Index int
	Delta float64
}

type settings struct {
	maxSweeps int
	logger    *log.Logger
	observer  func(Sweep)
}

type Option func(*settings)

// WithMaxSweeps caps the number of sweeps; zero or less means no cap.
func WithMaxSweeps(n int) Option {
	return func(s *settings) {
		s.maxSweeps = n
	}
}

// WithLogger sets the logger used for solver progress. Nil discards.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithObserver registers a callback invoked after every sweep.
func WithObserver(f func(Sweep)) Option {
	return func(s *settings) {
		s.observer = f
	}
}

func newSettings(opts []Option) settings {
	cfg := settings{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = log.New(io.Discard, "", 0)
	}
	return cfg
}
