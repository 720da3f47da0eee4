package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(h *Handler, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Editor documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents/save/*", h.SaveDocument)
	r.Get("/documents/*", h.GetDocument)
	r.Post("/documents/*", h.OpenDocument)
	r.Put("/documents/*", h.EditDocument)
	r.Delete("/documents/*", h.CloseDocument)

	// Commands.
	r.Post("/commands/show-preview", h.ShowPreview)
	r.Post("/commands/refresh-preview", h.RefreshPreview)
	r.Post("/commands/convert-relative-dates", h.ConvertRelativeDates)

	// Preview panel.
	r.Get("/panel", h.PanelState)
	r.Get("/panel/content", h.PanelContent)
	r.Post("/panel/close", h.ClosePanel)
	r.Post("/panel/message", h.PostPanelMessage)

	// Workspace.
	r.Get("/files", h.ListFiles)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
