package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/MikhailRaia/bookmark-manager/internal/auth"
	"github.com/MikhailRaia/bookmark-manager/internal/model"
	"github.com/MikhailRaia/bookmark-manager/internal/viewmodel"
	"github.com/go-chi/chi/v5"
)

type AddBookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type BookmarksResponse struct {
	State     string           `json:"state"`
	Bookmarks []model.Bookmark `json:"bookmarks"`
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())
	writeJSON(w, http.StatusOK, identity)
}

// handleListJSON is the API form of a page mount: the view model is replaced
// and reloaded.
func (h *Handler) handleListJSON(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	vm, err := h.bookmarks.Mount(r.Context(), identity)
	if err != nil {
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	snap := vm.Snapshot()
	bookmarks := snap.Bookmarks
	if bookmarks == nil {
		bookmarks = []model.Bookmark{}
	}

	writeJSON(w, http.StatusOK, BookmarksResponse{
		State:     snap.State.String(),
		Bookmarks: bookmarks,
	})
}

func (h *Handler) handleAddJSON(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	contentType := r.Header.Get("Content-Type")
	if contentType != "" && !strings.Contains(contentType, "application/json") {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var request AddBookmarkRequest
	if err := json.Unmarshal(body, &request); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	_, created, err := h.bookmarks.Add(r.Context(), identity, request.Title, request.URL)
	if err != nil {
		if errors.Is(err, viewmodel.ErrIncomplete) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleDeleteJSON(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if _, err := h.bookmarks.Remove(r.Context(), identity, id); err != nil {
		w.WriteHeader(http.StatusBadGateway)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(responseJSON)
}
