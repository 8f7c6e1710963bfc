// Package cmd provides shared construction helpers for the dealdesk binaries.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/dealdesk/dealdesk/pkg/persistence"
	"github.com/dealdesk/dealdesk/pkg/persistence/file"
	"github.com/dealdesk/dealdesk/pkg/persistence/postgresql"
)

// NewPersistence selects the persistence provider from the database URL
// scheme. Anything that is not postgres falls back to the file provider.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize PostgreSQL persistence", "error", err)
			panic(err)
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)

	return parts[0]
}
