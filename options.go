package swaggerserver

import (
	"log/slog"
	"time"

	"github.com/mark3labs/swaggerserver/internal/spec"
)

// Option configures Build.
type Option func(*settings)

type settings struct {
	logger   *slog.Logger
	loadOpts []spec.Option
}

func newSettings(opts []Option) *settings {
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// WithLogger sets the logger used while building and serving routes.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithHTTPTimeout bounds each request made when the document is fetched
// from a URL.
func WithHTTPTimeout(d time.Duration) Option {
	return func(s *settings) { s.loadOpts = append(s.loadOpts, spec.WithHTTPTimeout(d)) }
}

// WithMaxRetries sets how many times a document fetch is attempted on
// transient failures.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.loadOpts = append(s.loadOpts, spec.WithMaxRetries(n)) }
}
