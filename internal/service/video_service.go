package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/vidtube-backend/internal/domain"
	"github.com/vidtube/vidtube-backend/internal/repository"
	"github.com/vidtube/vidtube-backend/internal/storage"
)

// VideoService is thin record management for videos; transcoding is out of
// scope and the uploaded file is stored as-is.
type VideoService struct {
	videos   repository.VideoRepository
	uploader storage.Uploader
	logger   *slog.Logger
}

func NewVideoService(videos repository.VideoRepository, uploader storage.Uploader, logger *slog.Logger) *VideoService {
	return &VideoService{videos: videos, uploader: uploader, logger: logger}
}

type PublishInput struct {
	Title         string
	Description   string
	VideoPath     string
	ThumbnailPath string
	Duration      float64
}

func (s *VideoService) Publish(ctx context.Context, owner primitive.ObjectID, in PublishInput) (*domain.Video, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if in.VideoPath == "" || in.ThumbnailPath == "" {
		return nil, fmt.Errorf("%w: video and thumbnail files are required", ErrValidation)
	}

	videoURL, err := s.uploader.Upload(ctx, in.VideoPath)
	if err != nil {
		return nil, fmt.Errorf("%w: video: %v", ErrUpload, err)
	}
	thumbURL, err := s.uploader.Upload(ctx, in.ThumbnailPath)
	if err != nil {
		return nil, fmt.Errorf("%w: thumbnail: %v", ErrUpload, err)
	}

	video := &domain.Video{
		Owner:        owner,
		VideoFileURL: videoURL,
		ThumbnailURL: thumbURL,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		Duration:     in.Duration,
		IsPublished:  true,
	}
	if err := s.videos.Create(ctx, video); err != nil {
		s.logger.ErrorContext(ctx, "video create failed after upload", "owner", owner.Hex(), "video_url", videoURL, "error", err)
		return nil, fmt.Errorf("create video: %w", err)
	}
	s.logger.InfoContext(ctx, "video published", "video_id", video.ID.Hex(), "owner", owner.Hex())
	return video, nil
}

func (s *VideoService) Get(ctx context.Context, id primitive.ObjectID) (*domain.Video, error) {
	video, err := s.videos.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return video, nil
}

func (s *VideoService) ListByOwner(ctx context.Context, owner primitive.ObjectID) ([]*domain.Video, error) {
	return s.videos.ListByOwner(ctx, owner)
}
