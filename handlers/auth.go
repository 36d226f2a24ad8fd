package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"bookarr/middleware"
	"bookarr/services"
)

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", services.ErrValidation))
		return
	}

	user, err := h.auth.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sessions.Get(r)
	if err != nil {
		writeError(w, err)
		return
	}
	session.Values["user_id"] = user.ID
	if err := h.sessions.Save(w, r, session); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", services.ErrValidation))
		return
	}

	user, err := h.auth.Register(r.Context(), creds.Username, creds.Email, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := h.sessions.Get(r)
	if err != nil {
		writeError(w, err)
		return
	}
	session.Values["user_id"] = user.ID
	if err := h.sessions.Save(w, r, session); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r)
	if err == nil {
		session.Options.MaxAge = -1
		h.sessions.Save(w, r, session)
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r)
	if user == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
