package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/domain"
)

type MongoMessageStore struct {
	coll *mongo.Collection
}

func NewMongoMessageStore(db *mongo.Database) *MongoMessageStore {
	coll := db.Collection("messages")
	// Compound index matches the pagination sort exactly, id included for
	// the tie-break.
	_, _ = coll.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{
			{Key: "conversation_id", Value: 1},
			{Key: "created_at", Value: -1},
			{Key: "_id", Value: -1},
		},
		Options: options.Index().SetName("conversation_history_idx"),
	})
	return &MongoMessageStore{coll: coll}
}

func (s *MongoMessageStore) Insert(ctx context.Context, m *domain.Message) error {
	normalize(m)
	return withRetry(ctx, func(ctx context.Context) error {
		// Upsert keyed on _id so the one permitted retry cannot insert twice.
		_, err := s.coll.UpdateOne(ctx,
			bson.M{"_id": m.ID},
			bson.M{"$setOnInsert": m},
			options.Update().SetUpsert(true),
		)
		return err
	})
}

func (s *MongoMessageStore) Get(ctx context.Context, id string) (*domain.Message, error) {
	var m domain.Message
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	normalize(&m)
	return &m, nil
}

func (s *MongoMessageStore) Replace(ctx context.Context, m *domain.Message) error {
	normalize(m)
	return withRetry(ctx, func(ctx context.Context) error {
		res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": m.ID}, m)
		if err != nil {
			return err
		}
		if res.MatchedCount == 0 {
			return apperr.ErrNotFound
		}
		return nil
	})
}

func (s *MongoMessageStore) ListPage(ctx context.Context, conversationID, viewerID string, before *Cursor, limit int64) ([]*domain.Message, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"deleted_for":     bson.M{"$ne": viewerID},
	}
	if before != nil {
		// Strictly before the cursor position; equal timestamps fall back to
		// the id ordering so a boundary message is returned exactly once.
		filter["$or"] = []bson.M{
			{"created_at": bson.M{"$lt": before.Before}},
			{"created_at": before.Before, "_id": bson.M{"$lt": before.ID}},
		}
	}

	out := []*domain.Message{}
	err := withRetry(ctx, func(ctx context.Context) error {
		opts := options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(limit)
		cur, err := s.coll.Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		out = out[:0]
		for cur.Next(ctx) {
			var m domain.Message
			if err := cur.Decode(&m); err != nil {
				return err
			}
			normalize(&m)
			out = append(out, &m)
		}
		return cur.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MongoMessageStore) CountUnread(ctx context.Context, conversationID, viewerID string) (int64, error) {
	var n int64
	err := withRetry(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.coll.CountDocuments(ctx, bson.M{
			"conversation_id":         conversationID,
			"sender_id":               bson.M{"$ne": viewerID},
			"read_by.user_id":         bson.M{"$ne": viewerID},
			"deleted_for":             bson.M{"$ne": viewerID},
			"is_deleted_for_everyone": false,
		})
		return err
	})
	return n, err
}

// normalize keeps the set-valued fields non-nil so $addToSet-era documents
// and freshly decoded ones behave alike.
func normalize(m *domain.Message) {
	if m.DeliveredTo == nil {
		m.DeliveredTo = []string{}
	}
	if m.ReadBy == nil {
		m.ReadBy = []domain.ReadReceipt{}
	}
	if m.DeletedFor == nil {
		m.DeletedFor = []string{}
	}
	if m.Reactions == nil {
		m.Reactions = []domain.Reaction{}
	}
}
