package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sitedog/preview/internal/apperr"
	"github.com/sitedog/preview/internal/editor"
	"github.com/sitedog/preview/internal/panel"
	"github.com/sitedog/preview/internal/session"
)

// FileFinder lists workspace files with a given base name.
type FileFinder interface {
	Find(name string) ([]string, error)
}

// Handler holds API route handlers.
type Handler struct {
	sess  *session.Session
	files FileFinder
	hub   *panel.Hub
}

// NewHandler creates a new Handler.
func NewHandler(sess *session.Session, files FileFinder, hub *panel.Hub) *Handler {
	return &Handler{sess: sess, files: files, hub: hub}
}

// docPath extracts the document path from the URL (everything after the
// route prefix). Supports encoded slashes (e.g. app%2Fsitedog.yml).
func docPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// writeError maps domain errors to HTTP responses.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNoActiveEditor), errors.Is(err, apperr.ErrWrongFileName):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(h.sess.UserMessage(err)))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrNoPanel):
		writeJSON(w, http.StatusConflict, errorBody("no preview panel is open"))
	case errors.Is(err, apperr.ErrStaleDocument):
		writeJSON(w, http.StatusConflict, errorBody("document changed while confirming, run the command again"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List open documents
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	paths, err := h.sess.Documents(r.Context())
	if err != nil {
		h.writeError(w, "list documents", err)
		return
	}
	resp := DocumentListResponse{Documents: paths}
	if active, err := h.sess.Document(r.Context(), ""); err == nil {
		resp.Active = active.Path
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDocument handles GET /api/documents/*. An empty path returns the
// active document.
//
//	@Summary		Get an open document
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	editor.Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.sess.Document(r.Context(), docPath(r))
	if err != nil {
		h.writeError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// OpenDocument handles POST /api/documents/*: opens the file and makes it
// the active document.
//
//	@Summary		Open a document and make it active
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	editor.Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [post]
func (h *Handler) OpenDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.sess.OpenDocument(r.Context(), path)
	if err != nil {
		h.writeError(w, "open document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// EditDocument handles PUT /api/documents/*: a live edit of the in-memory
// text.
//
//	@Summary		Replace the unsaved text of a document
//	@Tags			documents
//	@Accept			json
//	@Produce		json
//	@Param			path	path		string				true	"Document path"
//	@Param			body	body		EditDocumentRequest	true	"New text"
//	@Success		200		{object}	editor.Document
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [put]
func (h *Handler) EditDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req EditDocumentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	doc, err := h.sess.EditDocument(r.Context(), path, req.Text)
	if err != nil {
		h.writeError(w, "edit document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// SaveDocument handles POST /api/documents/save/*.
//
//	@Summary		Write a document's text to disk
//	@Tags			documents
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	editor.Document
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/save/{path} [post]
func (h *Handler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.sess.SaveDocument(r.Context(), path)
	if err != nil {
		h.writeError(w, "save document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// CloseDocument handles DELETE /api/documents/*.
//
//	@Summary		Close a document, dropping unsaved changes
//	@Tags			documents
//	@Param			path	path	string	true	"Document path"
//	@Success		204		"Document closed"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{path} [delete]
func (h *Handler) CloseDocument(w http.ResponseWriter, r *http.Request) {
	path := docPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.sess.CloseDocument(r.Context(), path); err != nil {
		h.writeError(w, "close document", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ShowPreview handles POST /api/commands/show-preview.
//
//	@Summary		Show the preview panel for a document
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CommandRequest	false	"Target document, defaults to the active one"
//	@Success		200		{object}	preview.State
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/show-preview [post]
func (h *Handler) ShowPreview(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	st, err := h.sess.ShowPreview(r.Context(), req.Path)
	if err != nil {
		h.writeError(w, "show preview", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// RefreshPreview handles POST /api/commands/refresh-preview.
//
//	@Summary		Reload the preview from the active document on disk
//	@Tags			commands
//	@Produce		json
//	@Success		200	{object}	preview.State
//	@Security		BearerAuth
//	@Router			/commands/refresh-preview [post]
func (h *Handler) RefreshPreview(w http.ResponseWriter, r *http.Request) {
	st, err := h.sess.RefreshPreview(r.Context())
	if err != nil {
		h.writeError(w, "refresh preview", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ConvertRelativeDates handles POST /api/commands/convert-relative-dates.
// The caller's confirm flag answers the confirmation prompt; without it the
// command reports what it found and changes nothing.
//
//	@Summary		Convert relative expiry dates to absolute dates
//	@Tags			commands
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ConvertRequest	false	"Target document and answer"
//	@Success		200		{object}	session.ConvertResult
//	@Failure		409		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/commands/convert-relative-dates [post]
func (h *Handler) ConvertRelativeDates(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.sess.ConvertRelativeDates(r.Context(), req.Path, editor.Answer(req.Confirm), req.Save)
	if err != nil {
		h.writeError(w, "convert relative dates", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PanelState handles GET /api/panel.
//
//	@Summary		Get the preview panel state
//	@Tags			panel
//	@Produce		json
//	@Success		200	{object}	preview.State
//	@Security		BearerAuth
//	@Router			/panel [get]
func (h *Handler) PanelState(w http.ResponseWriter, r *http.Request) {
	st, err := h.sess.PanelState(r.Context())
	if err != nil {
		h.writeError(w, "panel state", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// PanelContent handles GET /api/panel/content: the panel's current HTML.
//
//	@Summary		Get the HTML shown in the preview panel
//	@Tags			panel
//	@Produce		html
//	@Success		200	{string}	string	"Panel document"
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panel/content [get]
func (h *Handler) PanelContent(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.hub.Current()
	if !ok {
		h.writeError(w, "panel content", apperr.ErrNoPanel)
		return
	}
	etag := `"` + snap.Revision + `"`
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("ETag", etag)
	_, _ = w.Write([]byte(snap.HTML))
}

// ClosePanel handles POST /api/panel/close.
//
//	@Summary		Close the preview panel
//	@Tags			panel
//	@Accept			json
//	@Param			body	body	ClosePanelRequest	false	"Panel id, defaults to the live panel"
//	@Success		204		"Panel closed"
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panel/close [post]
func (h *Handler) ClosePanel(w http.ResponseWriter, r *http.Request) {
	var req ClosePanelRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if !h.hub.RequestClose(req.ID) {
		h.writeError(w, "close panel", apperr.ErrNoPanel)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostPanelMessage handles POST /api/panel/message: sends the update
// message so the panel re-renders from the given YAML without a reload.
//
//	@Summary		Send an update message to the preview panel
//	@Tags			panel
//	@Accept			json
//	@Param			body	body	PanelMessageRequest	true	"YAML to render"
//	@Success		202		"Message sent"
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/panel/message [post]
func (h *Handler) PostPanelMessage(w http.ResponseWriter, r *http.Request) {
	var req PanelMessageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.sess.PostPanelUpdate(r.Context(), req.YAML); err != nil {
		h.writeError(w, "post panel message", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// ListFiles handles GET /api/files: every configuration file in the
// workspace.
//
//	@Summary		List configuration files in the workspace
//	@Tags			files
//	@Produce		json
//	@Success		200	{object}	FileListResponse
//	@Security		BearerAuth
//	@Router			/files [get]
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.files.Find(h.sess.FileName())
	if err != nil {
		h.writeError(w, "list files", err)
		return
	}
	writeJSON(w, http.StatusOK, FileListResponse{Files: files})
}
