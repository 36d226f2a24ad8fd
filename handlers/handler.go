package handlers

import (
	"bookarr/services"
)

// Handler bundles the services the HTTP layer needs. Everything is injected
// so tests can wire in-memory stores and stub backends.
type Handler struct {
	sessions   *services.SessionStore
	auth       *services.AuthService
	requests   *services.RequestService
	reconciler *services.Reconciler
	providers  *services.ProviderSet
}

func New(
	sessions *services.SessionStore,
	auth *services.AuthService,
	requests *services.RequestService,
	reconciler *services.Reconciler,
	providers *services.ProviderSet,
) *Handler {
	return &Handler{
		sessions:   sessions,
		auth:       auth,
		requests:   requests,
		reconciler: reconciler,
		providers:  providers,
	}
}
