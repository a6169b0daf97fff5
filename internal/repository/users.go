package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/fathima-sithara/messaging-service/internal/domain"
)

// MongoUserDirectory reads display fields from the users collection owned by
// the external user service. Missing profiles degrade to an id-only summary
// rather than failing the message path.
type MongoUserDirectory struct {
	coll *mongo.Collection
}

func NewMongoUserDirectory(db *mongo.Database) *MongoUserDirectory {
	return &MongoUserDirectory{coll: db.Collection("users")}
}

func (d *MongoUserDirectory) Summary(ctx context.Context, userID string) (*domain.UserSummary, error) {
	var u domain.UserSummary
	err := withRetry(ctx, func(ctx context.Context) error {
		return d.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&u)
	})
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return &domain.UserSummary{ID: userID}, nil
		}
		return nil, err
	}
	return &u, nil
}
