// Package cmd wires the infrastructure shared by the binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowcanvas/pkg/persistence"
	"github.com/dukex/flowcanvas/pkg/persistence/file"
	"github.com/dukex/flowcanvas/pkg/persistence/postgresql"
	"github.com/dukex/flowcanvas/pkg/persistence/redis"
)

// NewPersistence opens the workflow store named by databaseURL's scheme: file://,
// postgres:// (or postgresql://), redis:// (or rediss://).
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider := parsePersistenceProvider(databaseURL)

	switch provider {
	case "file":
		return file.NewPersistence(databaseURL), nil
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger.With("persistence", "postgresql"), databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger.With("persistence", "redis"), databaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", persistence.ErrUnsupportedScheme, provider)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return ""
	}

	return strings.ToLower(provider)
}
