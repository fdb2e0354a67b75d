package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quillhq/vellum/internal/apperr"
	"github.com/quillhq/vellum/internal/index"
	"github.com/quillhq/vellum/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func entityID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func pageParams(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit, _ = strconv.Atoi(q.Get("limit"))
	offset, _ = strconv.Atoi(q.Get("offset"))
	return limit, offset
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListConversations handles GET /api/conversations.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	rows, total, err := h.svc.ListConversations(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list conversations", err)
		return
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Items: toListItems(rows), Total: total})
}

// GetConversation handles GET /api/conversations/{id}.
func (h *Handler) GetConversation(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetConversation(r.Context(), entityID(r))
	if err != nil {
		writeError(w, "get conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// CreateConversation handles POST /api/conversations.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req CreateConversationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Model == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("model is required"))
		return
	}
	c, err := h.svc.CreateConversation(r.Context(), req.Model, req.Title, req.Messages)
	if err != nil {
		writeError(w, "create conversation", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// AppendMessage handles POST /api/conversations/{id}/messages.
func (h *Handler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	var msg models.Message
	if !decodeBody(w, r, &msg) {
		return
	}
	if msg.Role == "" || msg.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("role and content are required"))
		return
	}
	c, err := h.svc.AppendMessage(r.Context(), entityID(r), msg)
	if err != nil {
		writeError(w, "append message", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// RenameConversation handles POST /api/conversations/{id}/rename.
func (h *Handler) RenameConversation(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	c, err := h.svc.RenameConversation(r.Context(), entityID(r), req.Title)
	if err != nil {
		writeError(w, "rename conversation", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// DeleteConversation handles DELETE /api/conversations/{id}.
func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteConversation(r.Context(), entityID(r)); err != nil {
		writeError(w, "delete conversation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTriggers handles GET /api/triggers.
func (h *Handler) ListTriggers(w http.ResponseWriter, r *http.Request) {
	triggers, err := h.svc.ListTriggers(r.Context())
	if err != nil {
		writeError(w, "list triggers", err)
		return
	}
	if triggers == nil {
		triggers = []*models.Trigger{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"triggers": triggers})
}

// GetTrigger handles GET /api/triggers/{id}.
func (h *Handler) GetTrigger(w http.ResponseWriter, r *http.Request) {
	tr, err := h.svc.GetTrigger(r.Context(), entityID(r))
	if err != nil {
		writeError(w, "get trigger", err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// CreateTrigger handles POST /api/triggers.
func (h *Handler) CreateTrigger(w http.ResponseWriter, r *http.Request) {
	var req CreateTriggerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" || req.TriggerPrompt == "" || req.IntervalMinutes <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("title, trigger_prompt and a positive interval_minutes are required"))
		return
	}
	tr, err := h.svc.CreateTrigger(r.Context(), req.Title, req.Model, req.TriggerPrompt, req.IntervalMinutes, req.Enabled)
	if err != nil {
		writeError(w, "create trigger", err)
		return
	}
	writeJSON(w, http.StatusCreated, tr)
}

// ToggleTrigger handles POST /api/triggers/{id}/toggle.
func (h *Handler) ToggleTrigger(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	tr, err := h.svc.SetTriggerEnabled(r.Context(), entityID(r), req.Enabled)
	if err != nil {
		writeError(w, "toggle trigger", err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// RenameTrigger handles POST /api/triggers/{id}/rename.
func (h *Handler) RenameTrigger(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	tr, err := h.svc.RenameTrigger(r.Context(), entityID(r), req.Title)
	if err != nil {
		writeError(w, "rename trigger", err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

// DeleteTrigger handles DELETE /api/triggers/{id}.
func (h *Handler) DeleteTrigger(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteTrigger(r.Context(), entityID(r)); err != nil {
		writeError(w, "delete trigger", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRiffs handles GET /api/riffs.
func (h *Handler) ListRiffs(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	rows, total, err := h.svc.ListRiffs(r.Context(), limit, offset)
	if err != nil {
		writeError(w, "list riffs", err)
		return
	}
	writeJSON(w, http.StatusOK, EntityListResponse{Items: toListItems(rows), Total: total})
}

// GetRiff handles GET /api/riffs/{id}.
func (h *Handler) GetRiff(w http.ResponseWriter, r *http.Request) {
	riff, err := h.svc.GetRiff(r.Context(), entityID(r))
	if err != nil {
		writeError(w, "get riff", err)
		return
	}
	writeJSON(w, http.StatusOK, riff)
}

// CreateRiff handles POST /api/riffs.
func (h *Handler) CreateRiff(w http.ResponseWriter, r *http.Request) {
	var req CreateRiffRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ArtifactType == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("artifact_type is required"))
		return
	}
	riff, err := h.svc.CreateRiff(r.Context(), req.ArtifactType, req.Body)
	if err != nil {
		writeError(w, "create riff", err)
		return
	}
	writeJSON(w, http.StatusCreated, riff)
}

// UpdateRiffBody handles PUT /api/riffs/{id}/body.
func (h *Handler) UpdateRiffBody(w http.ResponseWriter, r *http.Request) {
	var req UpdateRiffBodyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	riff, err := h.svc.UpdateRiffBody(r.Context(), entityID(r), req.Body, req.Change)
	if err != nil {
		writeError(w, "update riff body", err)
		return
	}
	writeJSON(w, http.StatusOK, riff)
}

// RenameRiff handles POST /api/riffs/{id}/rename.
func (h *Handler) RenameRiff(w http.ResponseWriter, r *http.Request) {
	var req RenameRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}
	riff, err := h.svc.RenameRiff(r.Context(), entityID(r), req.Title)
	if err != nil {
		writeError(w, "rename riff", err)
		return
	}
	writeJSON(w, http.StatusOK, riff)
}

// AddRiffComment handles POST /api/riffs/{id}/comments.
func (h *Handler) AddRiffComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("content is required"))
		return
	}
	c, err := h.svc.AddRiffComment(r.Context(), entityID(r), req.ParagraphIndex, req.Content)
	if err != nil {
		writeError(w, "add riff comment", err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// IntegrateRiff handles POST /api/riffs/{id}/integrate.
func (h *Handler) IntegrateRiff(w http.ResponseWriter, r *http.Request) {
	var req IntegrateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name, err := h.svc.IntegrateRiff(r.Context(), entityID(r), req.NoteName)
	if err != nil {
		writeError(w, "integrate riff", err)
		return
	}
	writeJSON(w, http.StatusOK, IntegrateResponse{NoteName: name})
}

// DeleteRiff handles DELETE /api/riffs/{id}.
func (h *Handler) DeleteRiff(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRiff(r.Context(), entityID(r)); err != nil {
		writeError(w, "delete riff", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	kind := models.Kind(r.URL.Query().Get("kind"))

	results, err := h.svc.Search(r.Context(), q, kind, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
