package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/kiosk/services/kiosk/internal/entity"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Backend stores one entity type in one collection.
type Backend[E any] struct {
	client *Client
	name   string
}

func NewBackend[E any](client *Client, collection string) *Backend[E] {
	return &Backend[E]{client: client, name: collection}
}

func (b *Backend[E]) Insert(ctx context.Context, e *E) error {
	coll, err := b.client.collection(b.name)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", entity.ErrDuplicate, err)
		}
		return err
	}
	return nil
}

func (b *Backend[E]) Find(ctx context.Context, id uuid.UUID) (*E, error) {
	return b.FindOne(ctx, entity.Fields{"_id": id})
}

func (b *Backend[E]) FindOne(ctx context.Context, filter entity.Fields) (*E, error) {
	coll, err := b.client.collection(b.name)
	if err != nil {
		return nil, err
	}
	e := new(E)
	if err := coll.FindOne(ctx, Filter(filter)).Decode(e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (b *Backend[E]) List(ctx context.Context, filter entity.Fields) ([]*E, error) {
	coll, err := b.client.collection(b.name)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, Filter(filter), options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	list := make([]*E, 0)
	for cursor.Next(ctx) {
		e := new(E)
		if err := cursor.Decode(e); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, cursor.Err()
}

func (b *Backend[E]) Replace(ctx context.Context, id uuid.UUID, e *E) error {
	coll, err := b.client.collection(b.name)
	if err != nil {
		return err
	}
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, e)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", entity.ErrDuplicate, err)
		}
		return err
	}
	if res.MatchedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (b *Backend[E]) Remove(ctx context.Context, id uuid.UUID) error {
	coll, err := b.client.collection(b.name)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// UpdateWhere is a single atomic findAndModify; the precondition and the
// write cannot interleave with another writer.
func (b *Backend[E]) UpdateWhere(ctx context.Context, id uuid.UUID, where, set entity.Fields) (*E, error) {
	coll, err := b.client.collection(b.name)
	if err != nil {
		return nil, err
	}
	filter := Filter(where)
	filter["_id"] = id

	e := new(E)
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := coll.FindOneAndUpdate(ctx, filter, bson.M{"$set": bson.M(set)}, opts).Decode(e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func (b *Backend[E]) UpdateMany(ctx context.Context, filter, set entity.Fields) (int64, error) {
	coll, err := b.client.collection(b.name)
	if err != nil {
		return 0, err
	}
	res, err := coll.UpdateMany(ctx, Filter(filter), bson.M{"$set": bson.M(set)})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (b *Backend[E]) DeleteMany(ctx context.Context, filter entity.Fields) (int64, error) {
	coll, err := b.client.collection(b.name)
	if err != nil {
		return 0, err
	}
	res, err := coll.DeleteMany(ctx, Filter(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Filter translates entity filter fields into a query document.
func Filter(f entity.Fields) bson.M {
	out := bson.M{}
	for k, v := range f {
		if c, ok := v.(entity.Cond); ok {
			out[k] = bson.M{c.Op: c.Value}
			continue
		}
		out[k] = v
	}
	return out
}
