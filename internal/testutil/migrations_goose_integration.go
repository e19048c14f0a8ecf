//go:build integration

package testutil

import (
	"context"
	"fmt"

	"github.com/Gunvolt24/kafka_transformer/internal/repo/postgres"
)

// ApplyMigrationsGoose применяет вшитые миграции из <repo_root>/migrations.
func ApplyMigrationsGoose(dsn string) error {
	if err := postgres.Migrate(context.Background(), dsn); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
