package security

import (
	"net/http"
	"time"

	"github.com/vidtube/vidtube-backend/internal/domain"
)

// Cookie names the session tokens travel under.
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// SetAuthCookies writes the token pair as http-only secure cookies.
func SetAuthCookies(w http.ResponseWriter, pair domain.TokenPair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, authCookie(AccessTokenCookie, pair.AccessToken, accessTTL))
	http.SetCookie(w, authCookie(RefreshTokenCookie, pair.RefreshToken, refreshTTL))
}

func ClearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, authCookie(AccessTokenCookie, "", -time.Second))
	http.SetCookie(w, authCookie(RefreshTokenCookie, "", -time.Second))
}

func authCookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}
