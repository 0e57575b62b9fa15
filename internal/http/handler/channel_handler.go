package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/vidtube-backend/internal/http/middleware"
	"github.com/vidtube/vidtube-backend/internal/http/response"
	"github.com/vidtube/vidtube-backend/internal/observability"
	"github.com/vidtube/vidtube-backend/internal/service"
)

type ChannelHandler struct {
	channels *service.ChannelService
}

func NewChannelHandler(channels *service.ChannelService) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

// GetProfile serves the channel view. The viewer is whoever the optional
// auth middleware resolved; anonymous viewers get isSubscribed=false.
func (h *ChannelHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var viewer *primitive.ObjectID
	if id, ok := middleware.UserIDFromContext(r.Context()); ok {
		viewer = &id
	}

	profile, err := h.channels.GetChannelProfile(r.Context(), username, viewer)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, profile)
}

func (h *ChannelHandler) GetWatchHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	entries, err := h.channels.GetWatchHistory(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, entries)
}

func (h *ChannelHandler) ToggleSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	username := chi.URLParam(r, "username")

	subscribed, err := h.channels.ToggleSubscription(r.Context(), userID, username)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "subscription.toggled", "user_id", userID.Hex(), "channel", username, "subscribed", subscribed)
	response.JSON(w, r, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

func (h *ChannelHandler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	videoID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "videoID"))
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid video id", nil)
		return
	}
	if err := h.channels.RecordView(r.Context(), userID, videoID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "recorded"})
}
