package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vidtube/vidtube-backend/internal/domain"
)

func TestSetAuthCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetAuthCookies(rec, domain.TokenPair{AccessToken: "acc", RefreshToken: "ref"}, time.Hour, 24*time.Hour)

	cookies := rec.Result().Cookies()
	if len(cookies) != 2 {
		t.Fatalf("expected 2 cookies, got %d", len(cookies))
	}
	byName := map[string]*http.Cookie{}
	for _, c := range cookies {
		byName[c.Name] = c
	}

	access := byName[AccessTokenCookie]
	if access == nil || access.Value != "acc" {
		t.Fatalf("missing or wrong access cookie: %+v", access)
	}
	refresh := byName[RefreshTokenCookie]
	if refresh == nil || refresh.Value != "ref" {
		t.Fatalf("missing or wrong refresh cookie: %+v", refresh)
	}
	for _, c := range cookies {
		if !c.HttpOnly || !c.Secure {
			t.Fatalf("cookie %s must be http-only and secure", c.Name)
		}
		if c.SameSite != http.SameSiteStrictMode {
			t.Fatalf("cookie %s must be SameSite=Strict", c.Name)
		}
	}
	if access.MaxAge != 3600 || refresh.MaxAge != 86400 {
		t.Fatalf("unexpected max-ages %d %d", access.MaxAge, refresh.MaxAge)
	}
}

func TestClearAuthCookiesExpiresBoth(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearAuthCookies(rec)

	for _, c := range rec.Result().Cookies() {
		if c.Value != "" || c.MaxAge >= 0 {
			t.Fatalf("cookie %s not cleared: value=%q maxage=%d", c.Name, c.Value, c.MaxAge)
		}
	}
}

func TestGetCookieMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetCookie(req, AccessTokenCookie); got != "" {
		t.Fatalf("expected empty value, got %q", got)
	}
}
