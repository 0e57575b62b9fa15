package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/vidtube/vidtube-backend/internal/http/handler"
	"github.com/vidtube/vidtube-backend/internal/http/middleware"
	"github.com/vidtube/vidtube-backend/internal/http/response"
	"github.com/vidtube/vidtube-backend/internal/security"
)

type Dependencies struct {
	AuthHandler      *handler.AuthHandler
	ChannelHandler   *handler.ChannelHandler
	VideoHandler     *handler.VideoHandler
	TokenManager     *security.TokenManager
	APIRateLimitRPM  int
	AuthRateLimitRPM int
	BodyLimitBytes   int64
	RequestTimeout   time.Duration
	EnableOTelHTTP   bool
}

func New(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	if dep.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(dep.RequestTimeout))
	}
	if dep.BodyLimitBytes > 0 {
		r.Use(bodyLimit(dep.BodyLimitBytes))
	}
	r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute).Middleware())

	authLimiter := middleware.NewRateLimiter(dep.AuthRateLimitRPM, time.Minute).Middleware()
	requireAuth := middleware.AuthMiddleware(dep.TokenManager)
	optionalAuth := middleware.OptionalAuth(dep.TokenManager)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(authLimiter).Post("/register", dep.AuthHandler.Register)
			r.With(authLimiter).Post("/login", dep.AuthHandler.Login)
			r.With(authLimiter).Post("/refresh-token", dep.AuthHandler.Refresh)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", dep.AuthHandler.Logout)
				r.With(authLimiter).Post("/change-password", dep.AuthHandler.ChangePassword)
				r.Get("/me", dep.AuthHandler.Me)
				r.Patch("/me", dep.AuthHandler.UpdateAccount)
				r.Patch("/me/avatar", dep.AuthHandler.UpdateAvatar)
				r.Patch("/me/cover-image", dep.AuthHandler.UpdateCoverImage)
				r.Get("/history", dep.ChannelHandler.GetWatchHistory)
				r.Post("/history/{videoID}", dep.ChannelHandler.RecordView)
			})
		})

		r.With(optionalAuth).Get("/channels/{username}", dep.ChannelHandler.GetProfile)
		r.With(requireAuth).Post("/subscriptions/{username}", dep.ChannelHandler.ToggleSubscription)

		r.Route("/videos", func(r chi.Router) {
			r.Get("/{videoID}", dep.VideoHandler.Get)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", dep.VideoHandler.Publish)
				r.Get("/mine", dep.VideoHandler.ListMine)
			})
		})
	})

	if dep.EnableOTelHTTP {
		return otelhttp.NewHandler(r, "http.server")
	}
	return r
}

func bodyLimit(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next.ServeHTTP(w, r)
		})
	}
}
