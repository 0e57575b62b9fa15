package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/vidtube-backend/internal/domain"
	"github.com/vidtube/vidtube-backend/internal/observability"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, subscriber, channel primitive.ObjectID) (*domain.Subscription, error)
	Delete(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error)
	Exists(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error)
}

type mongoSubscriptionRepository struct {
	collection *mongo.Collection
}

// NewSubscriptionRepository builds the repository and ensures the unique
// compound index on (subscriber, channel), so the same edge cannot be stored
// twice and subscriber counts cannot double-count.
func NewSubscriptionRepository(ctx context.Context, db *mongo.Database) (SubscriptionRepository, error) {
	collection := db.Collection(subscriptionsCollection)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "subscriber", Value: 1}, {Key: "channel", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	return &mongoSubscriptionRepository{collection: collection}, nil
}

func (r *mongoSubscriptionRepository) Create(ctx context.Context, subscriber, channel primitive.ObjectID) (*domain.Subscription, error) {
	sub := &domain.Subscription{
		ID:         primitive.NewObjectID(),
		Subscriber: subscriber,
		Channel:    channel,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := r.collection.InsertOne(ctx, sub)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			observability.RecordRepositoryOperation(ctx, "subscription", "create", "duplicate")
			return nil, ErrDuplicate
		}
		observability.RecordRepositoryOperation(ctx, "subscription", "create", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "subscription", "create", "success")
	return sub, nil
}

func (r *mongoSubscriptionRepository) Delete(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	res, err := r.collection.DeleteOne(ctx, bson.M{"subscriber": subscriber, "channel": channel})
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "subscription", "delete", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, "subscription", "delete", "success")
	return res.DeletedCount > 0, nil
}

func (r *mongoSubscriptionRepository) Exists(ctx context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx,
		bson.M{"subscriber": subscriber, "channel": channel},
		options.Count().SetLimit(1),
	)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "subscription", "exists", "error")
		return false, err
	}
	observability.RecordRepositoryOperation(ctx, "subscription", "exists", "success")
	return count > 0, nil
}
