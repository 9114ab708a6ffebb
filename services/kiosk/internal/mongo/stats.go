package mongo

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kiosk/services/kiosk/internal/stats"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// StatsCounter aggregates order counts on the server.
type StatsCounter struct {
	client *Client
}

func NewStatsCounter(client *Client) *StatsCounter {
	return &StatsCounter{client: client}
}

func (c *StatsCounter) Count(ctx context.Context, q stats.Query) (int64, error) {
	coll, err := c.client.collection(Orders)
	if err != nil {
		return 0, err
	}
	n, err := coll.CountDocuments(ctx, match(q))
	if err != nil {
		return 0, fmt.Errorf("cannot count orders: %w", err)
	}
	return n, nil
}

func (c *StatsCounter) CountByActivity(ctx context.Context, q stats.Query) ([]stats.ActivityCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match(q)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$activity_name"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
	var rows []struct {
		Name  string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := c.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}
	out := make([]stats.ActivityCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, stats.ActivityCount{ActivityName: r.Name, Count: r.Count})
	}
	return out, nil
}

func (c *StatsCounter) CountByDay(ctx context.Context, q stats.Query) ([]stats.DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match(q)}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: bson.D{{Key: "$dateToString", Value: bson.D{
				{Key: "format", Value: "%Y-%m-%d"},
				{Key: "date", Value: "$created_at"},
				{Key: "timezone", Value: "UTC"},
			}}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	var rows []struct {
		Day   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := c.aggregate(ctx, pipeline, &rows); err != nil {
		return nil, err
	}
	out := make([]stats.DayCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, stats.DayCount{Day: r.Day, Count: r.Count})
	}
	return out, nil
}

func (c *StatsCounter) aggregate(ctx context.Context, pipeline mongo.Pipeline, out interface{}) error {
	coll, err := c.client.collection(Orders)
	if err != nil {
		return err
	}
	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("cannot aggregate orders: %w", err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("cannot decode order aggregation: %w", err)
	}
	return nil
}

func match(q stats.Query) bson.M {
	m := bson.M{"payment.status": bson.M{"$in": q.Statuses}}
	created := bson.M{}
	if !q.From.IsZero() {
		created["$gte"] = q.From
	}
	if !q.To.IsZero() {
		created["$lt"] = q.To
	}
	if len(created) > 0 {
		m["created_at"] = created
	}
	return m
}
