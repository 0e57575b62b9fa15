package repository

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/vidtube/vidtube-backend/internal/domain"
)

func historyEntry(id primitive.ObjectID, title string) domain.WatchHistoryEntry {
	entry := domain.WatchHistoryEntry{}
	entry.ID = id
	entry.Title = title
	return entry
}

func TestOrderHistoryPreservesStoredOrder(t *testing.T) {
	first := primitive.NewObjectID()
	second := primitive.NewObjectID()
	third := primitive.NewObjectID()

	// The join hands entries back in arbitrary order.
	entries := []domain.WatchHistoryEntry{
		historyEntry(third, "third"),
		historyEntry(first, "first"),
		historyEntry(second, "second"),
	}

	got := orderHistory([]primitive.ObjectID{first, second, third}, entries)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Title != want {
			t.Fatalf("position %d: expected %q, got %q", i, want, got[i].Title)
		}
	}
}

func TestOrderHistoryRepeatsDuplicateIDs(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	entries := []domain.WatchHistoryEntry{
		historyEntry(a, "a"),
		historyEntry(b, "b"),
	}

	got := orderHistory([]primitive.ObjectID{a, b, a}, entries)
	if len(got) != 3 {
		t.Fatalf("expected the duplicate id to re-emit its entry, got %d entries", len(got))
	}
	if got[0].Title != "a" || got[1].Title != "b" || got[2].Title != "a" {
		t.Fatalf("unexpected order: %q, %q, %q", got[0].Title, got[1].Title, got[2].Title)
	}
}

func TestOrderHistorySkipsDeletedVideos(t *testing.T) {
	kept := primitive.NewObjectID()
	deleted := primitive.NewObjectID()
	entries := []domain.WatchHistoryEntry{historyEntry(kept, "kept")}

	got := orderHistory([]primitive.ObjectID{deleted, kept, deleted}, entries)
	if len(got) != 1 {
		t.Fatalf("expected ids without a joined video to be dropped, got %d entries", len(got))
	}
	if got[0].Title != "kept" {
		t.Fatalf("unexpected entry %q", got[0].Title)
	}

	if got := orderHistory(nil, entries); len(got) != 0 {
		t.Fatalf("expected no entries for an empty id list, got %d", len(got))
	}
}

func TestChannelProfileAggregation(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes counts and subscription flag", func(mt *mtest.T) {
		doc := bson.D{
			{Key: "fullname", Value: "Chai Aur Code"},
			{Key: "username", Value: "chaiaurcode"},
			{Key: "avatar", Value: "https://cdn.test/avatar.png"},
			{Key: "cover_image", Value: "https://cdn.test/cover.png"},
			{Key: "subscribers_count", Value: int64(3)},
			{Key: "subscribed_to_count", Value: int64(1)},
			{Key: "is_subscribed", Value: true},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".users", mtest.FirstBatch, doc))

		repo := NewProfileRepository(mt.DB)
		viewer := primitive.NewObjectID()
		profile, err := repo.ChannelProfile(context.Background(), "chaiaurcode", &viewer)
		if err != nil {
			t.Fatalf("channel profile: %v", err)
		}
		if profile.Username != "chaiaurcode" || profile.Fullname != "Chai Aur Code" {
			t.Fatalf("unexpected identity fields: %+v", profile)
		}
		if profile.SubscribersCount != 3 || profile.SubscribedToCount != 1 {
			t.Fatalf("unexpected counts: %d subscribers, %d subscribed to", profile.SubscribersCount, profile.SubscribedToCount)
		}
		if !profile.IsSubscribed {
			t.Fatal("expected is_subscribed to decode as true")
		}

		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "aggregate" {
			t.Fatalf("expected a single aggregate command, got %+v", evt)
		}
		cmd := evt.Command.String()
		if !strings.Contains(cmd, subscriptionsCollection) {
			t.Fatalf("expected the pipeline to join %s, got %s", subscriptionsCollection, cmd)
		}
		if !strings.Contains(cmd, "$in") {
			t.Fatalf("expected the viewer membership test in the pipeline, got %s", cmd)
		}
	})

	mt.Run("anonymous viewer short-circuits membership", func(mt *mtest.T) {
		doc := bson.D{
			{Key: "fullname", Value: "Chai Aur Code"},
			{Key: "username", Value: "chaiaurcode"},
			{Key: "avatar", Value: "https://cdn.test/avatar.png"},
			{Key: "subscribers_count", Value: int64(3)},
			{Key: "subscribed_to_count", Value: int64(1)},
			{Key: "is_subscribed", Value: false},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".users", mtest.FirstBatch, doc))

		repo := NewProfileRepository(mt.DB)
		profile, err := repo.ChannelProfile(context.Background(), "chaiaurcode", nil)
		if err != nil {
			t.Fatalf("channel profile: %v", err)
		}
		if profile.IsSubscribed {
			t.Fatal("anonymous viewer must never be subscribed")
		}

		evt := mt.GetStartedEvent()
		if evt == nil {
			t.Fatal("expected an aggregate command")
		}
		if strings.Contains(evt.Command.String(), "$in") {
			t.Fatal("anonymous viewer must not run a membership test in the pipeline")
		}
	})

	mt.Run("unknown username", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".users", mtest.FirstBatch))

		repo := NewProfileRepository(mt.DB)
		if _, err := repo.ChannelProfile(context.Background(), "nobody", nil); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestWatchHistoryAggregation(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("re-sequences joined videos to stored order", func(mt *mtest.T) {
		userID := primitive.NewObjectID()
		ownerID := primitive.NewObjectID()
		v1 := primitive.NewObjectID()
		v2 := primitive.NewObjectID()

		video := func(id primitive.ObjectID, title string) bson.D {
			return bson.D{
				{Key: "_id", Value: id},
				{Key: "owner", Value: ownerID},
				{Key: "title", Value: title},
				{Key: "video_file", Value: "https://cdn.test/" + title + ".mp4"},
				{Key: "owner_info", Value: bson.D{
					{Key: "fullname", Value: "Owner"},
					{Key: "username", Value: "owner"},
					{Key: "avatar", Value: "https://cdn.test/owner.png"},
				}},
			}
		}
		row := bson.D{
			{Key: "_id", Value: userID},
			{Key: "watch_history", Value: bson.A{v1, v2, v1}},
			// The join returns the videos in its own order.
			{Key: "videos", Value: bson.A{video(v2, "second"), video(v1, "first")}},
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".users", mtest.FirstBatch, row))

		repo := NewProfileRepository(mt.DB)
		history, err := repo.WatchHistory(context.Background(), userID)
		if err != nil {
			t.Fatalf("watch history: %v", err)
		}
		if len(history) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(history))
		}
		for i, want := range []string{"first", "second", "first"} {
			if history[i].Title != want {
				t.Fatalf("position %d: expected %q, got %q", i, want, history[i].Title)
			}
		}
		if history[0].Owner.Username != "owner" || history[0].Owner.AvatarURL != "https://cdn.test/owner.png" {
			t.Fatalf("expected the owner projection to decode, got %+v", history[0].Owner)
		}
	})

	mt.Run("unknown user yields an empty history", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".users", mtest.FirstBatch))

		repo := NewProfileRepository(mt.DB)
		history, err := repo.WatchHistory(context.Background(), primitive.NewObjectID())
		if err != nil {
			t.Fatalf("watch history: %v", err)
		}
		if history == nil || len(history) != 0 {
			t.Fatalf("expected an empty, non-nil history, got %#v", history)
		}
	})
}
