package canvas

import (
	"log/slog"

	"github.com/dukex/flowcanvas/pkg/catalog"
	"github.com/dukex/flowcanvas/pkg/graph"
	"github.com/dukex/flowcanvas/pkg/models"
)

type Option func(*Session)

// WithCatalog restricts placement to known templates and resolves node kinds from it.
func WithCatalog(templates catalog.Resolver) Option {
	return func(s *Session) {
		s.templates = templates
	}
}

func WithStore(store Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithGraphOptions configures every graph the session creates, including the ones
// built when a document is loaded.
func WithGraphOptions(opts ...graph.Option) Option {
	return func(s *Session) {
		s.graphOptions = append(s.graphOptions, opts...)
	}
}

// WithNodeRadius sets the logical radius used for hit-testing node bodies.
func WithNodeRadius(radius float64) Option {
	return func(s *Session) {
		if radius > 0 {
			s.nodeRadius = radius
		}
	}
}

// WithViewportSize sets the visible area, in screen pixels, used to anchor keyboard zoom.
func WithViewportSize(width, height float64) Option {
	return func(s *Session) {
		s.size = models.Point{X: width, Y: height}
	}
}
