package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vidtube/vidtube-backend/internal/domain"
	"github.com/vidtube/vidtube-backend/internal/observability"
)

// ProfileRepository serves the derived read views. Each operation is a single
// aggregation pass; per-row point lookups would grow unbounded with
// subscriber count or history length.
type ProfileRepository interface {
	ChannelProfile(ctx context.Context, username string, viewer *primitive.ObjectID) (*domain.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID primitive.ObjectID) ([]domain.WatchHistoryEntry, error)
}

type mongoProfileRepository struct {
	users *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) ProfileRepository {
	return &mongoProfileRepository{users: db.Collection(usersCollection)}
}

// ChannelProfile joins the target user against the subscription edges in both
// directions and projects the counts. isSubscribed is computed inside the
// pipeline against the viewer id; an anonymous viewer yields a literal false.
func (r *mongoProfileRepository) ChannelProfile(ctx context.Context, username string, viewer *primitive.ObjectID) (*domain.ChannelProfile, error) {
	isSubscribed := any(false)
	if viewer != nil {
		isSubscribed = bson.M{"$in": bson.A{*viewer, "$subscribers.subscriber"}}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"username": username}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "channel",
			"as":           "subscribers",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         subscriptionsCollection,
			"localField":   "_id",
			"foreignField": "subscriber",
			"as":           "subscribed_to",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"subscribers_count":   bson.M{"$size": "$subscribers"},
			"subscribed_to_count": bson.M{"$size": "$subscribed_to"},
			"is_subscribed":       isSubscribed,
		}}},
		{{Key: "$project", Value: bson.M{
			"fullname":            1,
			"username":            1,
			"avatar":              1,
			"cover_image":         1,
			"subscribers_count":   1,
			"subscribed_to_count": 1,
			"is_subscribed":       1,
		}}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "profile", "channel_profile", "error")
		return nil, err
	}
	defer cursor.Close(ctx)

	var profiles []domain.ChannelProfile
	if err := cursor.All(ctx, &profiles); err != nil {
		observability.RecordRepositoryOperation(ctx, "profile", "channel_profile", "error")
		return nil, err
	}
	if len(profiles) == 0 {
		observability.RecordRepositoryOperation(ctx, "profile", "channel_profile", "not_found")
		return nil, ErrNotFound
	}
	observability.RecordRepositoryOperation(ctx, "profile", "channel_profile", "success")
	return &profiles[0], nil
}

// watchHistoryRow is the single aggregation result: the raw ordered id list
// plus the joined video documents.
type watchHistoryRow struct {
	WatchHistory []primitive.ObjectID       `bson:"watch_history"`
	Videos       []domain.WatchHistoryEntry `bson:"videos"`
}

// WatchHistory resolves the user's history ids to enriched video records in
// one pipeline. $lookup does not preserve the order of the local id array, so
// the rows are re-sequenced in memory against the stored history order;
// duplicate ids re-emit the same entry.
func (r *mongoProfileRepository) WatchHistory(ctx context.Context, userID primitive.ObjectID) ([]domain.WatchHistoryEntry, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$project", Value: bson.M{"watch_history": 1}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         videosCollection,
			"localField":   "watch_history",
			"foreignField": "_id",
			"as":           "videos",
			"pipeline": bson.A{
				bson.M{"$lookup": bson.M{
					"from":         usersCollection,
					"localField":   "owner",
					"foreignField": "_id",
					"as":           "owner_info",
					"pipeline": bson.A{
						bson.M{"$project": bson.M{"fullname": 1, "username": 1, "avatar": 1}},
					},
				}},
				bson.M{"$addFields": bson.M{"owner_info": bson.M{"$first": "$owner_info"}}},
			},
		}}},
	}

	cursor, err := r.users.Aggregate(ctx, pipeline)
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "profile", "watch_history", "error")
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []watchHistoryRow
	if err := cursor.All(ctx, &rows); err != nil {
		observability.RecordRepositoryOperation(ctx, "profile", "watch_history", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "profile", "watch_history", "success")

	// Unknown user or empty history both come back as no rows to return.
	if len(rows) == 0 || len(rows[0].WatchHistory) == 0 {
		return []domain.WatchHistoryEntry{}, nil
	}
	return orderHistory(rows[0].WatchHistory, rows[0].Videos), nil
}

// orderHistory re-sequences joined video entries to the stored id order.
// Duplicate ids re-emit the same entry; ids whose video no longer exists are
// skipped.
func orderHistory(ids []primitive.ObjectID, entries []domain.WatchHistoryEntry) []domain.WatchHistoryEntry {
	byID := make(map[primitive.ObjectID]domain.WatchHistoryEntry, len(entries))
	for _, entry := range entries {
		byID[entry.Video.ID] = entry
	}
	ordered := make([]domain.WatchHistoryEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := byID[id]; ok {
			ordered = append(ordered, entry)
		}
	}
	return ordered
}
