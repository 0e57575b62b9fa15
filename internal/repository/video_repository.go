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

type VideoRepository interface {
	Create(ctx context.Context, video *domain.Video) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Video, error)
	ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]*domain.Video, error)
}

type mongoVideoRepository struct {
	collection *mongo.Collection
}

func NewVideoRepository(db *mongo.Database) VideoRepository {
	return &mongoVideoRepository{collection: db.Collection(videosCollection)}
}

func (r *mongoVideoRepository) Create(ctx context.Context, video *domain.Video) error {
	video.ID = primitive.NewObjectID()
	video.CreatedAt = time.Now().UTC()
	video.UpdatedAt = video.CreatedAt

	_, err := r.collection.InsertOne(ctx, video)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "video", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "video", "create", "success")
	return nil
}

func (r *mongoVideoRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*domain.Video, error) {
	var video domain.Video
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&video)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			observability.RecordRepositoryOperation(ctx, "video", "find_by_id", "not_found")
			return nil, ErrNotFound
		}
		observability.RecordRepositoryOperation(ctx, "video", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "video", "find_by_id", "success")
	return &video, nil
}

func (r *mongoVideoRepository) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]*domain.Video, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "video", "list_by_owner", "error")
		return nil, err
	}
	defer cursor.Close(ctx)

	var videos []*domain.Video
	if err := cursor.All(ctx, &videos); err != nil {
		observability.RecordRepositoryOperation(ctx, "video", "list_by_owner", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "video", "list_by_owner", "success")
	return videos, nil
}
