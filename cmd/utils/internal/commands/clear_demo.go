package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kiosk/cmd/utils/internal/seeding"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"go.mongodb.org/mongo-driver/bson"
)

// ClearDemo removes the demo catalog and its seed marker. Orders placed
// against the demo kiosk are left alone.
func ClearDemo(ctx context.Context, config *core.Config, logger core.Logger) error {
	logger.Info("Starting demo data cleanup...")

	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	for collection, ids := range seeding.IDs() {
		result, err := db.Collection(collection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return fmt.Errorf("delete demo %s: %w", collection, err)
		}
		logger.Info("Deleted demo records", "collection", collection, "count", result.DeletedCount)
	}

	result, err := db.Collection("_seeds").DeleteOne(ctx, bson.M{"_id": seeding.Marker})
	if err != nil {
		return fmt.Errorf("delete seed marker: %w", err)
	}
	logger.Info("Cleared seed marker", "deleted", result.DeletedCount)

	return nil
}
