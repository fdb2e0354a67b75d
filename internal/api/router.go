package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/conversations", func(r chi.Router) {
		r.Get("/", h.ListConversations)
		r.Post("/", h.CreateConversation)
		r.Get("/{id}", h.GetConversation)
		r.Delete("/{id}", h.DeleteConversation)
		r.Post("/{id}/messages", h.AppendMessage)
		r.Post("/{id}/rename", h.RenameConversation)
	})

	r.Route("/triggers", func(r chi.Router) {
		r.Get("/", h.ListTriggers)
		r.Post("/", h.CreateTrigger)
		r.Get("/{id}", h.GetTrigger)
		r.Delete("/{id}", h.DeleteTrigger)
		r.Post("/{id}/toggle", h.ToggleTrigger)
		r.Post("/{id}/rename", h.RenameTrigger)
	})

	r.Route("/riffs", func(r chi.Router) {
		r.Get("/", h.ListRiffs)
		r.Post("/", h.CreateRiff)
		r.Get("/{id}", h.GetRiff)
		r.Delete("/{id}", h.DeleteRiff)
		r.Put("/{id}/body", h.UpdateRiffBody)
		r.Post("/{id}/rename", h.RenameRiff)
		r.Post("/{id}/comments", h.AddRiffComment)
		r.Post("/{id}/integrate", h.IntegrateRiff)
	})

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
