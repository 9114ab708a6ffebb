package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var indexes = map[string][]mongo.IndexModel{
	Orders: {
		{
			Keys:    bson.D{{Key: "payment.client_transaction_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{Keys: bson.D{{Key: "payment.id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "payment.status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "kiosk_id", Value: 1}}},
	},
	Kiosks: {
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	Admins: {
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	Sessions: {
		{Keys: bson.D{{Key: "expires", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	},
}

// EnsureIndexes creates the indexes every collection relies on. Creating an
// existing index is a no-op.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("cannot create %s indexes: %w", name, err)
		}
	}
	return nil
}
