package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Video struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Owner        primitive.ObjectID `bson:"owner" json:"owner"`
	VideoFileURL string             `bson:"video_file" json:"video_file"`
	ThumbnailURL string             `bson:"thumbnail" json:"thumbnail"`
	Title        string             `bson:"title" json:"title"`
	Description  string             `bson:"description" json:"description"`
	Duration     float64            `bson:"duration" json:"duration"`
	Views        int64              `bson:"views" json:"views"`
	IsPublished  bool               `bson:"is_published" json:"is_published"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// VideoOwner is the projected subset of the owner's profile attached to
// enriched video views. Nothing else about the owner is exposed.
type VideoOwner struct {
	Fullname  string `bson:"fullname" json:"fullname"`
	Username  string `bson:"username" json:"username"`
	AvatarURL string `bson:"avatar" json:"avatar"`
}

// WatchHistoryEntry is a video enriched with its owner's public profile,
// in the order the viewer watched it.
type WatchHistoryEntry struct {
	Video `bson:",inline"`
	Owner VideoOwner `bson:"owner_info" json:"owner"`
}

// ChannelProfile is the derived channel view: public profile fields plus
// subscriber-graph aggregates relative to an optional viewer.
type ChannelProfile struct {
	Fullname          string `bson:"fullname" json:"fullname"`
	Username          string `bson:"username" json:"username"`
	AvatarURL         string `bson:"avatar" json:"avatar"`
	CoverImageURL     string `bson:"cover_image,omitempty" json:"cover_image,omitempty"`
	SubscribersCount  int64  `bson:"subscribers_count" json:"subscribers_count"`
	SubscribedToCount int64  `bson:"subscribed_to_count" json:"subscribed_to_count"`
	IsSubscribed      bool   `bson:"is_subscribed" json:"is_subscribed"`
}
