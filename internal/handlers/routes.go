package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sumo/backend/internal/middleware"
	"github.com/sumo/backend/internal/models"
	"github.com/sumo/backend/internal/services"
)

type RouterDeps struct {
	Verifier     middleware.TokenVerifier
	Permissions  middleware.PermissionChecker
	Moderation   *services.ModerationService
	Contributors *services.ContributorService
	Shortener    services.URLShortener
}

// NewRouter wires the API routes. Global middleware is left to the caller.
func NewRouter(d RouterDeps) chi.Router {
	moderationHandler := NewModerationHandler(d.Moderation)
	contributorHandler := NewContributorHandler(d.Contributors)
	shortURLHandler := NewShortURLHandler(d.Shortener)

	can := func(codename string) func(http.Handler) http.Handler {
		return middleware.RequirePermission(d.Permissions, codename)
	}

	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(d.Verifier))

			r.Route("/customercare", func(r chi.Router) {
				r.With(can(models.PermBanAccount)).Get("/banned", moderationHandler.ListBanned)
				r.With(can(models.PermBanAccount)).Post("/ban", moderationHandler.Ban)
				r.With(can(models.PermBanAccount)).Post("/unban", moderationHandler.Unban)

				r.With(can(models.PermIgnoreAccount)).Get("/ignored", moderationHandler.ListIgnored)
				// ignore answers every method and rejects non-POST itself
				r.With(
					middleware.RequireMethod(http.MethodPost, MsgNotPostRequest),
					can(models.PermIgnoreAccount),
				).HandleFunc("/ignore", moderationHandler.Ignore)
				r.With(can(models.PermIgnoreAccount)).Post("/unignore", moderationHandler.Unignore)
			})

			r.With(can(models.PermViewDashboard)).Get("/kb/contributors", contributorHandler.ActiveContributors)
			r.Post("/shorturl", shortURLHandler.Shorten)
		})
	})

	return r
}
