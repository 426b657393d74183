package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hearth-club/levelbot/internal/auth"
)

func RegisterRoutes(r *chi.Mux, authHandler *auth.AuthHandler, progressionHandler *ProgressionHandler, apiKeyHandler *APIKeyHandler) {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Auth routes
	r.Get("/auth/discord/login", authHandler.HandleLogin)
	r.Get("/auth/discord/callback", authHandler.HandleCallback)

	// Protected routes. The huma adapter is bound to the group's router,
	// not the root mux, so every registered operation passes through the
	// auth middleware.
	r.Group(func(r chi.Router) {
		r.Use(authHandler.AuthMiddleware)

		config := huma.DefaultConfig("Levelbot Control Plane", "1.0.0")
		config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
			"cookieAuth": {
				Type: "apiKey",
				In:   "cookie",
				Name: "auth_token",
			},
			"apiKeyAuth": {
				Type: "apiKey",
				In:   "header",
				Name: "X-API-KEY",
			},
		}
		api := humachi.New(r, config)

		secured := func(o *huma.Operation) {
			o.Security = []map[string][]string{{"cookieAuth": {}}, {"apiKeyAuth": {}}}
		}

		huma.Get(api, "/me", progressionHandler.HandleMe, secured)

		huma.Post(api, "/guilds/{guild_id}/checkin", progressionHandler.HandleCheckIn, secured)
		huma.Get(api, "/guilds/{guild_id}/leaderboard", progressionHandler.HandleLeaderboard, secured)
		huma.Get(api, "/guilds/{guild_id}/members/{user_id}", progressionHandler.HandleProfile, secured)
		huma.Put(api, "/guilds/{guild_id}/members/{user_id}/level", progressionHandler.HandleSetLevel, secured)
		huma.Post(api, "/guilds/{guild_id}/members/{user_id}/xp", progressionHandler.HandleAdjustXP, secured)
		huma.Post(api, "/guilds/{guild_id}/members/{user_id}/reset", progressionHandler.HandleReset, secured)

		huma.Post(api, "/api-keys", apiKeyHandler.HandleCreate, secured)
		huma.Get(api, "/api-keys", apiKeyHandler.HandleList, secured)
		huma.Delete(api, "/api-keys/{id}", apiKeyHandler.HandleDelete, secured)
	})
}
