// Package mongo persists the kiosk data in MongoDB: the entity backends,
// the session collection and its change stream, and the stats aggregations.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/kiosk/pkg/lib/core"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names.
const (
	Orders     = "orders"
	Sessions   = "sessions"
	Activities = "activities"
	Rooms      = "rooms"
	Products   = "products"
	Kiosks     = "kiosks"
	Admins     = "admins"
)

var errNotConnected = errors.New("mongo: not connected")

// Client owns the connection shared by every repo. Repos resolve their
// collection on each call so they can be built before Start.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger core.Logger
	config *core.Config
}

func NewClient(config *core.Config, logger core.Logger) *Client {
	if logger == nil {
		logger = core.NewNoopLogger()
	}
	return &Client{
		logger: logger.With("component", "MongoClient"),
		config: config,
	}
}

func (c *Client) Start(ctx context.Context) error {
	mongoURL := c.config.GetStringOrDef("db.mongo.url", "mongodb://localhost:27017")
	dbName := c.config.GetStringOrDef("db.mongo.name", "kiosk")

	clientOptions := options.Client().ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("cannot connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("cannot ping MongoDB: %w", err)
	}

	c.client = client
	c.db = client.Database(dbName)

	if err := EnsureIndexes(ctx, c.db); err != nil {
		return err
	}

	c.logger.Info("connected to MongoDB", "database", dbName)
	return nil
}

func (c *Client) Stop(ctx context.Context) error {
	if c.client != nil {
		if err := c.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("cannot disconnect from MongoDB: %w", err)
		}
		c.logger.Info("disconnected from MongoDB")
	}
	return nil
}

func (c *Client) Database() *mongo.Database {
	return c.db
}

func (c *Client) collection(name string) (*mongo.Collection, error) {
	if c.db == nil {
		return nil, errNotConnected
	}
	return c.db.Collection(name), nil
}
