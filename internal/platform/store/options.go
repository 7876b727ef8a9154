package store

import (
	"github.com/linuxautomates/gitsei-sub026/internal/platform/logger"
	"github.com/linuxautomates/gitsei-sub026/internal/platform/store/pg"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger used by subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithTracer adds a statement tracer (metrics, audit) applied to every backend
func WithTracer(t pg.QueryTracer) Option {
	return func(s *Store) error {
		if t != nil {
			s.Tracers = append(s.Tracers, t)
		}
		return nil
	}
}
