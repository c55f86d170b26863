package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"newsdeck/internal/ingest"
	"newsdeck/internal/server/params"
	"newsdeck/internal/store"
)

const defaultLimit = 50

// Handler holds dependencies for the API endpoints.
type Handler struct {
	store      *store.Store
	runner     *ingest.Runner
	cronSecret string
}

// NewHandler creates a handler instance.
func NewHandler(st *store.Store, runner *ingest.Runner, cronSecret string) *Handler {
	return &Handler{
		store:      st,
		runner:     runner,
		cronSecret: cronSecret,
	}
}

type itemsResponse struct {
	Success bool `json:"success"`
	Items   any  `json:"items"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Total   int  `json:"total"`
}

type mutationResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// GetFeed lists items, newest first, optionally filtered by type.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := params.Page(r.URL.Query(), defaultLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	items, err := h.store.ListItems(r.Context(), limit, offset, r.URL.Query().Get("type"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, itemsResponse{
		Success: true,
		Items:   items,
		Limit:   limit,
		Offset:  offset,
		Total:   len(items),
	})
}

// GetBookmarks lists bookmarked items, most recently bookmarked first.
func (h *Handler) GetBookmarks(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := params.Page(r.URL.Query(), defaultLimit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	items, err := h.store.ListBookmarks(r.Context(), limit, offset)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, itemsResponse{
		Success: true,
		Items:   items,
		Limit:   limit,
		Offset:  offset,
		Total:   len(items),
	})
}

// GetBookmarkStatus reports whether one item is bookmarked.
func (h *Handler) GetBookmarkStatus(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	bookmarked, err := h.store.IsBookmarked(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, struct {
		Success    bool `json:"success"`
		Bookmarked bool `json:"bookmarked"`
	}{true, bookmarked})
}

// AddBookmark bookmarks an item.
func (h *Handler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := h.store.AddBookmark(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, mutationResponse{Success: true, Message: "Bookmark added", ID: id})
}

// RemoveBookmark removes an item's bookmark.
func (h *Handler) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := h.store.RemoveBookmark(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, mutationResponse{Success: true, Message: "Bookmark removed", ID: id})
}

// BatchBookmarks resolves bookmark status for a set of ids at once.
func (h *Handler) BatchBookmarks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []int64 `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if len(body.IDs) == 0 {
		writeError(w, r, http.StatusBadRequest, errors.New("invalid or empty ids array"))
		return
	}

	bookmarks, err := h.store.BatchIsBookmarked(r.Context(), body.IDs)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, struct {
		Success   bool           `json:"success"`
		Bookmarks map[int64]bool `json:"bookmarks"`
	}{true, bookmarks})
}

// MarkSeen marks an item as seen; repeat calls succeed.
func (h *Handler) MarkSeen(w http.ResponseWriter, r *http.Request) {
	id, err := params.ID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	if err := h.store.MarkSeen(r.Context(), id); err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, mutationResponse{Success: true, Message: "Item marked as seen", ID: id})
}

// RunIngestion triggers a full ingestion pass. The route is meant for
// an external scheduler and authenticates with a bearer token instead
// of the API key.
func (h *Handler) RunIngestion(w http.ResponseWriter, r *http.Request) {
	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if h.cronSecret == "" || len(auth) <= len(prefix) || auth[:len(prefix)] != prefix || auth[len(prefix):] != h.cronSecret {
		writeError(w, r, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}

	result, err := h.runner.Run(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// writeStoreError is the single mapping boundary from the store/feed
// error taxonomy onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidQuery):
		writeError(w, r, http.StatusBadRequest, err)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err)
	default:
		writeError(w, r, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	log := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	} else {
		log.Warn().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, r, status, errorResponse{Success: false, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(jsonBytes); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error writing JSON response body")
	}
}
