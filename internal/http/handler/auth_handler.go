package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vidtube/vidtube-backend/internal/domain"
	"github.com/vidtube/vidtube-backend/internal/http/middleware"
	"github.com/vidtube/vidtube-backend/internal/http/response"
	"github.com/vidtube/vidtube-backend/internal/observability"
	"github.com/vidtube/vidtube-backend/internal/security"
	"github.com/vidtube/vidtube-backend/internal/service"
)

type AuthHandler struct {
	auth     *service.AuthService
	tokens   *security.TokenManager
	validate *validator.Validate
}

func NewAuthHandler(auth *service.AuthService, tokens *security.TokenManager) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens, validate: validator.New()}
}

// Register handles the multipart registration form: text fields plus an
// avatar file (required) and a cover image (optional).
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	avatarPath, cleanupAvatar, err := saveUploadedFile(r, "avatar")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed upload", nil)
		return
	}
	defer cleanupAvatar()
	coverPath, cleanupCover, err := saveUploadedFile(r, "coverImage")
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed upload", nil)
		return
	}
	defer cleanupCover()

	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		Fullname:   r.FormValue("fullname"),
		Email:      r.FormValue("email"),
		Username:   r.FormValue("username"),
		Password:   r.FormValue("password"),
		AvatarPath: avatarPath,
		CoverPath:  coverPath,
	})
	if err != nil {
		observability.RecordAuthRegister(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}

	observability.RecordAuthRegister(r.Context(), "success")
	observability.Audit(r, "user.registered", "user_id", user.ID.Hex())
	response.JSON(w, r, http.StatusCreated, user)
}

type loginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "email or username and password are required", nil)
		return
	}
	identifier := req.Username
	if identifier == "" {
		identifier = req.Email
	}

	user, pair, err := h.auth.Login(r.Context(), identifier, req.Password)
	if err != nil {
		observability.RecordAuthLogin(r.Context(), "failure")
		// A missing account and a wrong password answer identically so the
		// status code does not leak which identifiers exist.
		if err == service.ErrNotFound || err == service.ErrInvalidCredentials {
			response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	observability.RecordAuthLogin(r.Context(), "success")
	observability.Audit(r, "user.login", "user_id", user.ID.Hex())
	security.SetAuthCookies(w, pair, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":         user,
		"accessToken":  pair.AccessToken,
		"refreshToken": pair.RefreshToken,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	if err := h.auth.Logout(r.Context(), userID); err != nil {
		observability.RecordAuthLogout(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.RecordAuthLogout(r.Context(), "success")
	observability.Audit(r, "user.logout", "user_id", userID.Hex())
	security.ClearAuthCookies(w)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged out"})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh rotates the session. The token arrives in the refresh cookie, or
// in the body as a fallback transport when cookies are unavailable.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	presented := security.GetCookie(r, security.RefreshTokenCookie)
	if presented == "" && r.Body != nil {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			presented = req.RefreshToken
		}
	}

	pair, err := h.auth.Refresh(r.Context(), presented)
	if err != nil {
		observability.RecordAuthRefresh(r.Context(), "failure")
		writeServiceError(w, r, err)
		return
	}

	observability.RecordAuthRefresh(r.Context(), "success")
	security.SetAuthCookies(w, pair, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	response.JSON(w, r, http.StatusOK, pair)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "old and new passwords are required", nil)
		return
	}
	if err := h.auth.ChangePassword(r.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "user.password_changed", "user_id", userID.Hex())
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "password changed"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

type updateAccountRequest struct {
	Fullname string `json:"fullname" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	var req updateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body", nil)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "fullname and a valid email are required", nil)
		return
	}
	user, err := h.auth.UpdateAccount(r.Context(), userID, req.Fullname, req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *AuthHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "avatar", h.auth.UpdateAvatar)
}

func (h *AuthHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.updateImage(w, r, "coverImage", h.auth.UpdateCoverImage)
}

func (h *AuthHandler) updateImage(w http.ResponseWriter, r *http.Request, field string, update func(context.Context, primitive.ObjectID, string) (*domain.User, error)) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
		return
	}
	path, cleanup, err := saveUploadedFile(r, field)
	if err != nil {
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "malformed upload", nil)
		return
	}
	defer cleanup()

	user, err := update(r.Context(), userID, path)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}
