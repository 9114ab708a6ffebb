package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
)

// ResetDB drops the whole kiosk database. The service recreates its indexes
// on the next start.
func ResetDB(ctx context.Context, config *core.Config, logger core.Logger) error {
	logger.Warn("Dropping the kiosk database, this cannot be undone")

	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	if err := db.Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", db.Name(), err)
	}

	logger.Info("Database dropped", "database", db.Name())
	return nil
}
