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
	"github.com/vidtube/vidtube-backend/internal/security"
	"github.com/vidtube/vidtube-backend/internal/storage"
)

// AuthService owns the session lifecycle: registration, login, logout,
// refresh-token rotation and password changes. The single-valid-refresh-token
// invariant lives here, enforced through the credential store's
// compare-and-swap update.
type AuthService struct {
	users    repository.UserRepository
	tokens   *security.TokenManager
	uploader storage.Uploader
	negCache NegativeLookupCacheStore
	logger   *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *security.TokenManager, uploader storage.Uploader, negCache NegativeLookupCacheStore, logger *slog.Logger) *AuthService {
	if negCache == nil {
		negCache = NewNoopNegativeLookupCacheStore()
	}
	return &AuthService{users: users, tokens: tokens, uploader: uploader, negCache: negCache, logger: logger}
}

// RegisterInput carries the registration fields. CoverPath is the one
// optional field; empty means no cover image was provided.
type RegisterInput struct {
	Fullname   string
	Email      string
	Username   string
	Password   string
	AvatarPath string
	CoverPath  string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	fullname := strings.TrimSpace(in.Fullname)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	username := strings.ToLower(strings.TrimSpace(in.Username))
	password := strings.TrimSpace(in.Password)
	if fullname == "" || email == "" || username == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields are required", ErrValidation)
	}
	if in.AvatarPath == "" {
		return nil, fmt.Errorf("%w: avatar image is required", ErrValidation)
	}

	// Advisory pre-check; the unique index on create is the source of truth.
	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return nil, ErrConflict
	}

	avatarURL, err := s.uploader.Upload(ctx, in.AvatarPath)
	if err != nil {
		return nil, fmt.Errorf("%w: avatar: %v", ErrUpload, err)
	}
	coverURL := ""
	if in.CoverPath != "" {
		coverURL, err = s.uploader.Upload(ctx, in.CoverPath)
		if err != nil {
			// Cover image is optional; degrade instead of failing the whole
			// registration.
			s.logger.WarnContext(ctx, "cover image upload failed", "username", username, "error", err)
			coverURL = ""
		}
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Fullname:      fullname,
		Email:         email,
		Username:      username,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrConflict
		}
		// The avatar already landed in object storage; the orphan is accepted
		// and logged, never retried here.
		s.logger.ErrorContext(ctx, "user create failed after upload", "username", username, "avatar_url", avatarURL, "error", err)
		return nil, fmt.Errorf("create user: %w", err)
	}

	// A profile lookup for this username may be cached as a miss.
	if err := s.negCache.InvalidateNamespace(ctx, channelProfileNamespace); err != nil {
		s.logger.WarnContext(ctx, "negative cache invalidation failed", "error", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.Hex(), "username", username)
	return user.Sanitized(), nil
}

// Login verifies the credentials and starts a session. Persisting the fresh
// refresh token overwrites whatever token a previous session stored, which is
// what invalidates it.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, domain.TokenPair, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: email or username and password are required", ErrValidation)
	}

	user, err := s.users.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.TokenPair{}, ErrNotFound
		}
		return nil, domain.TokenPair{}, fmt.Errorf("find user: %w", err)
	}

	ok, err := security.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domain.TokenPair{}, ErrInvalidCredentials
	}

	pair, err := s.mintPair(user.ID)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	if err := s.users.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.Hex())
	return user.Sanitized(), pair, nil
}

// Logout clears the stored refresh token unconditionally. Logging out twice
// is not an error.
func (s *AuthService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	if err := s.users.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	s.logger.InfoContext(ctx, "user logged out", "user_id", userID.Hex())
	return nil
}

// Refresh rotates the session: the presented token must verify, must belong
// to an existing user, and must equal the currently stored token. The swap is
// a compare-and-swap, so of two racing refreshes on the same token at most
// one wins; the loser observes a stale token.
func (s *AuthService) Refresh(ctx context.Context, presented string) (domain.TokenPair, error) {
	presented = strings.TrimSpace(presented)
	if presented == "" {
		return domain.TokenPair{}, fmt.Errorf("%w: no refresh token presented", ErrUnauthorized)
	}

	claims, err := s.tokens.ParseRefreshToken(presented)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("%w: bad subject", ErrUnauthorized)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, ErrNotFound
		}
		return domain.TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	if user.RefreshToken != presented {
		return domain.TokenPair{}, ErrStaleToken
	}

	pair, err := s.mintPair(userID)
	if err != nil {
		return domain.TokenPair{}, err
	}
	swapped, err := s.users.SwapRefreshToken(ctx, userID, presented, pair.RefreshToken)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("rotate refresh token: %w", err)
	}
	if !swapped {
		return domain.TokenPair{}, ErrStaleToken
	}

	s.logger.InfoContext(ctx, "refresh token rotated", "user_id", userID.Hex())
	return pair, nil
}

// ChangePassword re-hashes and stores the new password. The current refresh
// token is deliberately left valid; revoking sessions on password change
// would change observable behavior.
func (s *AuthService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}
	ok, err := security.CheckPassword(user.PasswordHash, oldPassword)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.SetPasswordHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	s.logger.InfoContext(ctx, "password changed", "user_id", userID.Hex())
	return nil
}

func (s *AuthService) CurrentUser(ctx context.Context, userID primitive.ObjectID) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user.Sanitized(), nil
}

func (s *AuthService) UpdateAccount(ctx context.Context, userID primitive.ObjectID, fullname, email string) (*domain.User, error) {
	fullname = strings.TrimSpace(fullname)
	email = strings.ToLower(strings.TrimSpace(email))
	if fullname == "" || email == "" {
		return nil, fmt.Errorf("%w: fullname and email are required", ErrValidation)
	}
	user, err := s.users.UpdateProfile(ctx, userID, fullname, email)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user.Sanitized(), nil
}

func (s *AuthService) UpdateAvatar(ctx context.Context, userID primitive.ObjectID, localPath string) (*domain.User, error) {
	return s.updateImage(ctx, userID, localPath, "avatar", s.users.SetAvatar)
}

func (s *AuthService) UpdateCoverImage(ctx context.Context, userID primitive.ObjectID, localPath string) (*domain.User, error) {
	return s.updateImage(ctx, userID, localPath, "cover image", s.users.SetCoverImage)
}

func (s *AuthService) updateImage(ctx context.Context, userID primitive.ObjectID, localPath, kind string, set func(context.Context, primitive.ObjectID, string) (*domain.User, error)) (*domain.User, error) {
	if localPath == "" {
		return nil, fmt.Errorf("%w: %s file is required", ErrValidation, kind)
	}
	url, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpload, kind, err)
	}
	user, err := set(ctx, userID, url)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store %s url: %w", kind, err)
	}
	return user.Sanitized(), nil
}

func (s *AuthService) mintPair(userID primitive.ObjectID) (domain.TokenPair, error) {
	access, err := s.tokens.SignAccessToken(userID.Hex())
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.tokens.SignRefreshToken(userID.Hex())
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
