package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// connect opens the kiosk database named by db.mongo.name. The caller
// disconnects the returned client.
func connect(ctx context.Context, config *core.Config, logger core.Logger) (*mongo.Client, *mongo.Database, error) {
	url := config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")
	name := config.GetStringOrDef("db.mongo.name", "kiosk")

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("ping mongodb: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", name)
	return client, client.Database(name), nil
}
