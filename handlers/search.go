package handlers

import (
	"fmt"
	"net/http"

	"bookarr/services"
)

// Search proxies a metadata search to the requested provider so the SPA
// never talks to Google Books or Open Library directly.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, fmt.Errorf("%w: missing q parameter", services.ErrValidation))
		return
	}

	provider, err := h.providers.Lookup(r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, err)
		return
	}

	results, err := provider.Search(r.Context(), query)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", services.ErrExternal, err))
		return
	}
	if results == nil {
		results = []services.BookSummary{}
	}
	writeJSON(w, http.StatusOK, results)
}

// BookDetail fetches full metadata for one provider-scoped book id.
func (h *Handler) BookDetail(w http.ResponseWriter, r *http.Request) {
	bookID := r.URL.Query().Get("id")
	if bookID == "" {
		writeError(w, fmt.Errorf("%w: missing id parameter", services.ErrValidation))
		return
	}

	provider, err := h.providers.Lookup(r.URL.Query().Get("source"))
	if err != nil {
		writeError(w, err)
		return
	}

	detail, err := provider.GetDetail(r.Context(), bookID)
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", services.ErrExternal, err))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}
