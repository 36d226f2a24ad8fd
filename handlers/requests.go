package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"bookarr/middleware"
	"bookarr/models"
	"bookarr/services"
)

func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)

	filter := models.RequestFilter{
		Status: models.RequestStatus(r.URL.Query().Get("status")),
	}
	// Non-admins only see their own requests
	if !user.IsAdmin {
		filter.UserID = user.ID
	}

	requests, err := h.requests.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if requests == nil {
		requests = []models.Request{}
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	user := middleware.UserFrom(r)

	var in services.CreateRequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", services.ErrValidation))
		return
	}

	created, err := h.requests.Create(r.Context(), user.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.requestAction(w, r, h.requests.Approve)
}

func (h *Handler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	h.requestAction(w, r, h.requests.Deny)
}

func (h *Handler) MarkRequestAvailable(w http.ResponseWriter, r *http.Request) {
	h.requestAction(w, r, h.requests.MarkAvailable)
}

func (h *Handler) requestAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, id int64) (models.Request, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := ParseIDFromQuery(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := action(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) UpdateRequestTags(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id, err := ParseIDFromQuery(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	existing, err := h.requests.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	// Only the requester or an admin may edit tags
	user := middleware.UserFrom(r)
	if !user.IsAdmin && existing.UserID != user.ID {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	var body struct {
		Tags []string `json:"tags"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", services.ErrValidation))
		return
	}

	updated, err := h.requests.UpdateTags(r.Context(), id, body.Tags)
	if err != nil {
		// The local update commits even when Readarr sync fails; report the
		// request along with the sync warning instead of a bare error.
		if errors.Is(err, services.ErrExternal) {
			writeJSON(w, http.StatusOK, map[string]any{
				"request":    updated,
				"sync_error": err.Error(),
			})
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": updated})
}

func (h *Handler) RunStatusCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, err := h.reconciler.RunOnce(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
