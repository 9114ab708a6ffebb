package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/kiosk/cmd/utils/internal/seeding"
	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"go.mongodb.org/mongo-driver/bson"
)

// SeedDemo writes the demo catalog once. A second run is a no-op while the
// marker stays in _seeds.
func SeedDemo(ctx context.Context, config *core.Config, logger core.Logger, creds seeding.Credentials) error {
	logger.Info("Starting demo seeding process...")

	set, err := seeding.Demo(creds, time.Now().UTC())
	if err != nil {
		return err
	}

	client, db, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	seeds := db.Collection("_seeds")
	count, err := seeds.CountDocuments(ctx, bson.M{"_id": seeding.Marker})
	if err != nil {
		return fmt.Errorf("check seed status: %w", err)
	}
	if count > 0 {
		logger.Info("Demo seeds already applied, skipping")
		return nil
	}

	for collection, docs := range set {
		batch := make([]interface{}, 0, len(docs))
		for _, doc := range docs {
			batch = append(batch, doc)
		}
		if _, err := db.Collection(collection).InsertMany(ctx, batch); err != nil {
			return fmt.Errorf("seed %s: %w", collection, err)
		}
		logger.Info("Seeded collection", "collection", collection, "count", len(docs))
	}

	_, err = seeds.InsertOne(ctx, bson.M{
		"_id":         seeding.Marker,
		"description": "Demo activity, room, products, admin and kiosk",
		"applied_at":  time.Now().UTC(),
	})
	if err != nil {
		logger.Warn("Failed to mark seed as applied", "error", err)
	}

	return nil
}
