package service

import "errors"

// Error taxonomy surfaced by the services. Handlers map these onto HTTP
// status/code pairs; anything unrecognized is an internal fault that gets
// logged in full and reported generically.
var (
	ErrValidation         = errors.New("invalid input")
	ErrConflict           = errors.New("user with this email or username already exists")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrStaleToken         = errors.New("refresh token is expired or already used")
	ErrUpload             = errors.New("file upload failed")
)
