package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/appetiteclub/kiosk/services/kiosk/internal/changestream"
	"github.com/appetiteclub/kiosk/services/kiosk/internal/session"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionStore writes sessions straight to their collection. Nothing here
// notifies clients; the change stream over the same collection does.
type SessionStore struct {
	client *Client
}

func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*session.Record, error) {
	coll, err := s.client.collection(Sessions)
	if err != nil {
		return nil, err
	}
	var r session.Record
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot get session: %w", err)
	}
	return &r, nil
}

func (s *SessionStore) Put(ctx context.Context, r *session.Record) error {
	coll, err := s.client.collection(Sessions)
	if err != nil {
		return err
	}
	_, err = coll.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot store session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	coll, err := s.client.collection(Sessions)
	if err != nil {
		return err
	}
	if _, err := coll.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("cannot delete session: %w", err)
	}
	return nil
}

func (s *SessionStore) List(ctx context.Context) ([]*session.Record, error) {
	coll, err := s.client.collection(Sessions)
	if err != nil {
		return nil, err
	}
	cursor, err := coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("cannot list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	list := make([]*session.Record, 0)
	for cursor.Next(ctx) {
		var r session.Record
		if err := cursor.Decode(&r); err != nil {
			return nil, fmt.Errorf("cannot decode session: %w", err)
		}
		list = append(list, &r)
	}
	return list, cursor.Err()
}

// Open watches the sessions collection. Updates carry the post-change
// document; pre-images are requested when the collection has them enabled.
func (s *SessionStore) Open(ctx context.Context) (changestream.Stream[session.Record], error) {
	coll, err := s.client.collection(Sessions)
	if err != nil {
		return nil, err
	}
	opts := options.ChangeStream().
		SetFullDocument(options.UpdateLookup).
		SetFullDocumentBeforeChange(options.WhenAvailable)
	cs, err := coll.Watch(ctx, mongo.Pipeline{}, opts)
	if err != nil {
		return nil, err
	}
	return &changeStream[session.Record]{cs: cs}, nil
}

type changeEvent[E any] struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID interface{} `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *E `bson:"fullDocument"`
}

// changeStream adapts a driver change stream to changestream.Stream.
type changeStream[E any] struct {
	cs      *mongo.ChangeStream
	current changestream.Change[E]
	err     error
}

func (s *changeStream[E]) Next(ctx context.Context) bool {
	for s.cs.Next(ctx) {
		var ev changeEvent[E]
		if err := s.cs.Decode(&ev); err != nil {
			s.err = fmt.Errorf("cannot decode change event: %w", err)
			return false
		}
		op := changestream.Operation(ev.OperationType)
		switch op {
		case changestream.OpInsert, changestream.OpUpdate, changestream.OpReplace, changestream.OpDelete:
		default:
			// drop, rename and invalidate end the stream on the server side
			continue
		}
		s.current = changestream.Change[E]{
			Operation: op,
			Key:       fmt.Sprint(ev.DocumentKey.ID),
			Document:  ev.FullDocument,
		}
		return true
	}
	return false
}

func (s *changeStream[E]) Change() changestream.Change[E] {
	return s.current
}

func (s *changeStream[E]) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.cs.Err()
}

func (s *changeStream[E]) Close(ctx context.Context) error {
	return s.cs.Close(ctx)
}
