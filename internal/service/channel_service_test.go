package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/vidtube-backend/internal/domain"
	"github.com/vidtube/vidtube-backend/internal/repository"
)

type fakeProfileRepo struct {
	mu           sync.Mutex
	profiles     map[string]*domain.ChannelProfile
	history      map[primitive.ObjectID][]domain.WatchHistoryEntry
	profileCalls int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{
		profiles: map[string]*domain.ChannelProfile{},
		history:  map[primitive.ObjectID][]domain.WatchHistoryEntry{},
	}
}

func (r *fakeProfileRepo) ChannelProfile(_ context.Context, username string, _ *primitive.ObjectID) (*domain.ChannelProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profileCalls++
	p, ok := r.profiles[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProfileRepo) WatchHistory(_ context.Context, userID primitive.ObjectID) ([]domain.WatchHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.WatchHistoryEntry(nil), r.history[userID]...), nil
}

type subscriptionEdge struct {
	subscriber primitive.ObjectID
	channel    primitive.ObjectID
}

type fakeSubscriptionRepo struct {
	mu              sync.Mutex
	edges           map[subscriptionEdge]bool
	duplicateCreate bool
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{edges: map[subscriptionEdge]bool{}}
}

func (r *fakeSubscriptionRepo) Create(_ context.Context, subscriber, channel primitive.ObjectID) (*domain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	edge := subscriptionEdge{subscriber, channel}
	if r.edges[edge] || r.duplicateCreate {
		return nil, repository.ErrDuplicate
	}
	r.edges[edge] = true
	return &domain.Subscription{ID: primitive.NewObjectID(), Subscriber: subscriber, Channel: channel, CreatedAt: time.Now().UTC()}, nil
}

func (r *fakeSubscriptionRepo) Delete(_ context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	edge := subscriptionEdge{subscriber, channel}
	if !r.edges[edge] {
		return false, nil
	}
	delete(r.edges, edge)
	return true, nil
}

func (r *fakeSubscriptionRepo) Exists(_ context.Context, subscriber, channel primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edges[subscriptionEdge{subscriber, channel}], nil
}

type fakeVideoRepo struct {
	mu     sync.Mutex
	videos map[primitive.ObjectID]*domain.Video
}

func newFakeVideoRepo() *fakeVideoRepo {
	return &fakeVideoRepo{videos: map[primitive.ObjectID]*domain.Video{}}
}

func (r *fakeVideoRepo) Create(_ context.Context, video *domain.Video) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	video.ID = primitive.NewObjectID()
	video.CreatedAt = time.Now().UTC()
	video.UpdatedAt = video.CreatedAt
	cp := *video
	r.videos[video.ID] = &cp
	return nil
}

func (r *fakeVideoRepo) FindByID(_ context.Context, id primitive.ObjectID) (*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.videos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVideoRepo) ListByOwner(_ context.Context, owner primitive.ObjectID) ([]*domain.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Video
	for _, v := range r.videos {
		if v.Owner == owner {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

type failingNegativeCache struct{}

func (failingNegativeCache) Get(context.Context, string, string) (bool, error) {
	return false, errors.New("cache unavailable")
}

func (failingNegativeCache) Set(context.Context, string, string, time.Duration) error {
	return errors.New("cache unavailable")
}

func (failingNegativeCache) InvalidateNamespace(context.Context, string) error {
	return errors.New("cache unavailable")
}

type channelFixture struct {
	svc      *ChannelService
	profiles *fakeProfileRepo
	users    *inMemoryUserRepo
	subs     *fakeSubscriptionRepo
	videos   *fakeVideoRepo
}

func newChannelFixture(cache NegativeLookupCacheStore) *channelFixture {
	profiles := newFakeProfileRepo()
	users := newInMemoryUserRepo()
	subs := newFakeSubscriptionRepo()
	videos := newFakeVideoRepo()
	svc := NewChannelService(profiles, users, subs, videos, cache, time.Minute, testLogger())
	return &channelFixture{svc: svc, profiles: profiles, users: users, subs: subs, videos: videos}
}

func (f *channelFixture) addUser(t *testing.T, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		Fullname:     "User " + username,
		Email:        username + "@example.com",
		Username:     username,
		PasswordHash: "x",
	}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return user
}

func TestGetChannelProfileRequiresUsername(t *testing.T) {
	f := newChannelFixture(nil)
	if _, err := f.svc.GetChannelProfile(context.Background(), "   ", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestGetChannelProfileNormalizesUsername(t *testing.T) {
	f := newChannelFixture(nil)
	f.profiles.profiles["nina"] = &domain.ChannelProfile{
		Username:          "nina",
		Fullname:          "Nina",
		SubscribersCount:  3,
		SubscribedToCount: 1,
	}

	profile, err := f.svc.GetChannelProfile(context.Background(), "  NINA ", nil)
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.SubscribersCount != 3 || profile.SubscribedToCount != 1 {
		t.Fatalf("unexpected counts %d/%d", profile.SubscribersCount, profile.SubscribedToCount)
	}
}

func TestGetChannelProfileCachesUnknownUsernames(t *testing.T) {
	cache := NewInMemoryNegativeLookupCacheStore()
	f := newChannelFixture(cache)
	ctx := context.Background()

	if _, err := f.svc.GetChannelProfile(ctx, "ghost", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.svc.GetChannelProfile(ctx, "ghost", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second probe, got %v", err)
	}
	if f.profiles.profileCalls != 1 {
		t.Fatalf("expected a single store lookup, got %d", f.profiles.profileCalls)
	}
}

func TestGetChannelProfileFailsOpenWhenCacheIsDown(t *testing.T) {
	f := newChannelFixture(failingNegativeCache{})
	f.profiles.profiles["olga"] = &domain.ChannelProfile{Username: "olga"}

	profile, err := f.svc.GetChannelProfile(context.Background(), "olga", nil)
	if err != nil {
		t.Fatalf("expected the lookup to fall through to the store, got %v", err)
	}
	if profile.Username != "olga" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestToggleSubscription(t *testing.T) {
	f := newChannelFixture(nil)
	ctx := context.Background()
	viewer := f.addUser(t, "viewer")
	channel := f.addUser(t, "channel")

	subscribed, err := f.svc.ToggleSubscription(ctx, viewer.ID, "channel")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if !subscribed {
		t.Fatal("expected first toggle to subscribe")
	}
	exists, err := f.subs.Exists(ctx, viewer.ID, channel.ID)
	if err != nil || !exists {
		t.Fatalf("expected edge to exist, got %v %v", exists, err)
	}

	subscribed, err = f.svc.ToggleSubscription(ctx, viewer.ID, "channel")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if subscribed {
		t.Fatal("expected second toggle to unsubscribe")
	}
	exists, _ = f.subs.Exists(ctx, viewer.ID, channel.ID)
	if exists {
		t.Fatal("expected edge to be removed")
	}
}

func TestToggleSubscriptionRejectsSelf(t *testing.T) {
	f := newChannelFixture(nil)
	user := f.addUser(t, "selfie")

	if _, err := f.svc.ToggleSubscription(context.Background(), user.ID, "selfie"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestToggleSubscriptionUnknownChannel(t *testing.T) {
	f := newChannelFixture(nil)
	user := f.addUser(t, "pat")

	if _, err := f.svc.ToggleSubscription(context.Background(), user.ID, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestToggleSubscriptionConcurrentCreateMeansSubscribed(t *testing.T) {
	f := newChannelFixture(nil)
	viewer := f.addUser(t, "racer")
	f.addUser(t, "target")
	f.subs.duplicateCreate = true

	subscribed, err := f.svc.ToggleSubscription(context.Background(), viewer.ID, "target")
	if err != nil {
		t.Fatalf("toggle with racing create: %v", err)
	}
	if !subscribed {
		t.Fatal("a lost create race still means subscribed")
	}
}

func TestRecordView(t *testing.T) {
	f := newChannelFixture(nil)
	ctx := context.Background()
	user := f.addUser(t, "quinn")
	owner := f.addUser(t, "owner")

	video := &domain.Video{Owner: owner.ID, Title: "clip"}
	if err := f.videos.Create(ctx, video); err != nil {
		t.Fatalf("seed video: %v", err)
	}

	if err := f.svc.RecordView(ctx, user.ID, primitive.NewObjectID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown video, got %v", err)
	}

	if err := f.svc.RecordView(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("record view: %v", err)
	}
	if err := f.svc.RecordView(ctx, user.ID, video.ID); err != nil {
		t.Fatalf("record duplicate view: %v", err)
	}

	stored, err := f.users.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if len(stored.WatchHistory) != 2 || stored.WatchHistory[0] != video.ID || stored.WatchHistory[1] != video.ID {
		t.Fatalf("expected duplicate history entries, got %v", stored.WatchHistory)
	}
}

func TestGetWatchHistoryPreservesOrder(t *testing.T) {
	f := newChannelFixture(nil)
	ctx := context.Background()
	user := f.addUser(t, "rita")

	first := domain.WatchHistoryEntry{Video: domain.Video{ID: primitive.NewObjectID(), Title: "first"}}
	second := domain.WatchHistoryEntry{Video: domain.Video{ID: primitive.NewObjectID(), Title: "second"}}
	f.profiles.history[user.ID] = []domain.WatchHistoryEntry{first, second}

	entries, err := f.svc.GetWatchHistory(ctx, user.ID)
	if err != nil {
		t.Fatalf("get watch history: %v", err)
	}
	if len(entries) != 2 || entries[0].Title != "first" || entries[1].Title != "second" {
		t.Fatalf("unexpected history %v", entries)
	}

	empty, err := f.svc.GetWatchHistory(ctx, primitive.NewObjectID())
	if err != nil {
		t.Fatalf("history for unknown user: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty history, got %v", empty)
	}
}
