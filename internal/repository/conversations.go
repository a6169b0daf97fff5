package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/fathima-sithara/messaging-service/internal/apperr"
	"github.com/fathima-sithara/messaging-service/internal/domain"
)

type MongoConversationStore struct {
	coll *mongo.Collection
}

func NewMongoConversationStore(db *mongo.Database) *MongoConversationStore {
	coll := db.Collection("conversations")
	// Unique index over the sorted participant pair backs idempotent
	// conversation creation; updated_at index serves the list endpoint.
	_, _ = coll.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participants", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("participants_pair_idx"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("updated_at_idx"),
		},
	})
	return &MongoConversationStore{coll: coll}
}

func (s *MongoConversationStore) CreateOrGet(ctx context.Context, a, b string) (*domain.Conversation, error) {
	first, second := domain.NormalizePair(a, b)
	now := time.Now().UTC()

	var conv domain.Conversation
	err := withRetry(ctx, func(ctx context.Context) error {
		res := s.coll.FindOneAndUpdate(
			ctx,
			bson.M{"participants": []string{first, second}},
			bson.M{"$setOnInsert": bson.M{
				"_id":          uuid.NewString(),
				"participants": []string{first, second},
				"created_at":   now,
				"updated_at":   now,
			}},
			options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
		)
		if err := res.Decode(&conv); err != nil {
			// Duplicate-key means another caller won the upsert race;
			// the document exists now, so read it back.
			if mongo.IsDuplicateKeyError(err) {
				return s.coll.FindOne(ctx, bson.M{"participants": []string{first, second}}).Decode(&conv)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *MongoConversationStore) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&conv)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

func (s *MongoConversationStore) SetLastMessage(ctx context.Context, conversationID, messageID string, at time.Time) error {
	return withRetry(ctx, func(ctx context.Context) error {
		_, err := s.coll.UpdateByID(ctx, conversationID, bson.M{"$set": bson.M{
			"last_message_id": messageID,
			"updated_at":      at,
		}})
		return err
	})
}

func (s *MongoConversationStore) ListForUser(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	out := []*domain.Conversation{}
	err := withRetry(ctx, func(ctx context.Context) error {
		opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
		cur, err := s.coll.Find(ctx, bson.M{"participants": userID}, opts)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)

		out = out[:0]
		for cur.Next(ctx) {
			var c domain.Conversation
			if err := cur.Decode(&c); err != nil {
				return err
			}
			out = append(out, &c)
		}
		return cur.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
