package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the account document. PasswordHash and RefreshToken never leave the
// service layer; Sanitized strips them before a user is handed to a caller.
type User struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Fullname      string               `bson:"fullname" json:"fullname"`
	Email         string               `bson:"email" json:"email"`
	Username      string               `bson:"username" json:"username"`
	PasswordHash  string               `bson:"password" json:"-"`
	RefreshToken  string               `bson:"refresh_token,omitempty" json:"-"`
	AvatarURL     string               `bson:"avatar" json:"avatar"`
	CoverImageURL string               `bson:"cover_image,omitempty" json:"cover_image,omitempty"`
	WatchHistory  []primitive.ObjectID `bson:"watch_history,omitempty" json:"-"`
	CreatedAt     time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time            `bson:"updated_at" json:"updated_at"`
}

// Sanitized returns a copy safe to serialize in a response.
func (u *User) Sanitized() *User {
	cp := *u
	cp.PasswordHash = ""
	cp.RefreshToken = ""
	cp.WatchHistory = nil
	return &cp
}

// TokenPair is the access/refresh pair minted at login and at every rotation.
// Neither token is persisted; only the refresh token's value is mirrored into
// User.RefreshToken, which is what makes it the single valid one.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
