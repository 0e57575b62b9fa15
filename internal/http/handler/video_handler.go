package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/vidtube-backend/internal/http/middleware"
	"github.com/vidtube/vidtube-backend/internal/http/response"
	"github.com/vidtube/vidtube-backend/internal/service"
)

type VideoHandler struct {
	videos *service.VideoService
}

func NewVideoHandler(videos *service.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

func (h *VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	videoPath, cleanupVideo, err := saveUploadedFile(r, "videoFile")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed upload", nil)
		return
	}
	defer cleanupVideo()
	thumbPath, cleanupThumb, err := saveUploadedFile(r, "thumbnail")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed upload", nil)
		return
	}
	defer cleanupThumb()

	duration, _ := strconv.ParseFloat(r.FormValue("duration"), 64)
	video, err := h.videos.Publish(r.Context(), userID, service.PublishInput{
		Title:         r.FormValue("title"),
		Description:   r.FormValue("description"),
		VideoPath:     videoPath,
		ThumbnailPath: thumbPath,
		Duration:      duration,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusCreated, video)
}

func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "videoID"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid video id", nil)
		return
	}
	video, err := h.videos.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, video)
}

func (h *VideoHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	videos, err := h.videos.ListByOwner(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, videos)
}
