package services

import (
	"net/http"

	"github.com/gorilla/sessions"

	"bookarr/config"
)

const sessionName = "bookarr-session"

type SessionStore struct {
	store *sessions.CookieStore
}

func NewSessionStore(cfg *config.Config) *SessionStore {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))

	secure := false
	if cfg.Environment == "production" {
		secure = true
	}

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}

	return &SessionStore{store: store}
}

func (s *SessionStore) Get(r *http.Request) (*sessions.Session, error) {
	return s.store.Get(r, sessionName)
}

func (s *SessionStore) Save(w http.ResponseWriter, r *http.Request, session *sessions.Session) error {
	return session.Save(r, w)
}
