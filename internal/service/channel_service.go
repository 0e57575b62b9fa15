package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/vidtube-backend/internal/domain"
	"github.com/vidtube/vidtube-backend/internal/repository"
)

const channelProfileNamespace = "channel.profile"

// ChannelService serves the derived relationship views and the subscription
// edge mutations. Reads are side-effect free apart from the negative-lookup
// cache.
type ChannelService struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
	subs     repository.SubscriptionRepository
	videos   repository.VideoRepository
	negCache NegativeLookupCacheStore
	negTTL   time.Duration
	logger   *slog.Logger
}

func NewChannelService(profiles repository.ProfileRepository, users repository.UserRepository, subs repository.SubscriptionRepository, videos repository.VideoRepository, negCache NegativeLookupCacheStore, negTTL time.Duration, logger *slog.Logger) *ChannelService {
	if negCache == nil {
		negCache = NewNoopNegativeLookupCacheStore()
	}
	return &ChannelService{
		profiles: profiles,
		users:    users,
		subs:     subs,
		videos:   videos,
		negCache: negCache,
		negTTL:   negTTL,
		logger:   logger,
	}
}

// GetChannelProfile returns the channel view for username, with isSubscribed
// computed against the viewer when one is present. Unknown usernames are
// remembered in the negative-lookup cache so repeated probes skip the store;
// cache failures degrade to a store hit.
func (s *ChannelService) GetChannelProfile(ctx context.Context, username string, viewer *primitive.ObjectID) (*domain.ChannelProfile, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}

	if hit, err := s.negCache.Get(ctx, channelProfileNamespace, username); err != nil {
		s.logger.WarnContext(ctx, "negative cache get failed", "error", err)
	} else if hit {
		return nil, ErrNotFound
	}

	profile, err := s.profiles.ChannelProfile(ctx, username, viewer)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if err := s.negCache.Set(ctx, channelProfileNamespace, username, s.negTTL); err != nil {
				s.logger.WarnContext(ctx, "negative cache set failed", "error", err)
			}
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("aggregate channel profile: %w", err)
	}
	return profile, nil
}

// GetWatchHistory returns the user's enriched history in viewing order. A
// user with no history, or no user at all, yields an empty slice rather than
// an error.
func (s *ChannelService) GetWatchHistory(ctx context.Context, userID primitive.ObjectID) ([]domain.WatchHistoryEntry, error) {
	entries, err := s.profiles.WatchHistory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate watch history: %w", err)
	}
	return entries, nil
}

// ToggleSubscription subscribes when no edge exists and unsubscribes when one
// does, returning the resulting subscribed state.
func (s *ChannelService) ToggleSubscription(ctx context.Context, subscriber primitive.ObjectID, channelUsername string) (bool, error) {
	channelUsername = strings.ToLower(strings.TrimSpace(channelUsername))
	if channelUsername == "" {
		return false, fmt.Errorf("%w: channel username is required", ErrValidation)
	}
	channel, err := s.users.FindByUsername(ctx, channelUsername)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("find channel: %w", err)
	}
	if channel.ID == subscriber {
		return false, fmt.Errorf("%w: cannot subscribe to your own channel", ErrValidation)
	}

	deleted, err := s.subs.Delete(ctx, subscriber, channel.ID)
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	if deleted {
		return false, nil
	}
	if _, err := s.subs.Create(ctx, subscriber, channel.ID); err != nil {
		// A concurrent toggle may have created the edge first; that still
		// means subscribed.
		if errors.Is(err, repository.ErrDuplicate) {
			return true, nil
		}
		return false, fmt.Errorf("create subscription: %w", err)
	}
	return true, nil
}

// RecordView appends the video to the user's watch history, preserving
// duplicates.
func (s *ChannelService) RecordView(ctx context.Context, userID, videoID primitive.ObjectID) error {
	if _, err := s.videos.FindByID(ctx, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find video: %w", err)
	}
	if err := s.users.AppendWatchHistory(ctx, userID, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("append watch history: %w", err)
	}
	return nil
}
