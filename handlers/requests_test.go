package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"bookarr/config"
	"bookarr/database"
	"bookarr/handlers"
	"bookarr/middleware"
	"bookarr/models"
	"bookarr/services"
)

// fakeBackend satisfies the acquisition boundary with canned successes so the
// HTTP tests exercise routing and authorization, not Readarr behavior.
type fakeBackend struct {
	tagsErr    error
	downloaded bool
}

func (f *fakeBackend) FindAuthor(context.Context, string) (*services.AuthorRef, error) {
	return nil, nil
}

func (f *fakeBackend) AddAuthor(_ context.Context, name string) (*services.AuthorRef, error) {
	return &services.AuthorRef{ID: 11, Name: name}, nil
}

func (f *fakeBackend) FindBook(context.Context, *services.AuthorRef, string) (*services.BookRef, error) {
	return nil, nil
}

func (f *fakeBackend) AddBook(_ context.Context, _ *services.AuthorRef, title, _ string) (*services.BookRef, error) {
	return &services.BookRef{ID: 42, Title: title}, nil
}

func (f *fakeBackend) TriggerSearch(context.Context, *services.BookRef) error { return nil }

func (f *fakeBackend) GetDownloadStatus(context.Context, *services.BookRef) (services.DownloadStatus, error) {
	return services.DownloadStatus{Downloaded: f.downloaded}, nil
}

func (f *fakeBackend) UpdateTags(context.Context, *services.BookRef, []string) error {
	return f.tagsErr
}

type testServer struct {
	ts      *httptest.Server
	backend *fakeBackend
	users   *database.MemoryUserStore
}

// newTestServer wires the full stack with in-memory stores, mirroring the
// route table in main.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	users := database.NewMemoryUserStore()
	sessions := services.NewSessionStore(cfg)
	auth := services.NewAuthService(users)
	backend := &fakeBackend{}
	svc := services.NewRequestService(database.NewMemoryRequestStore(), backend)
	reconciler := services.NewReconciler(svc, 0)
	providers := services.NewProviderSet(cfg)

	h := handlers.New(sessions, auth, svc, reconciler, providers)
	requireAuth := middleware.RequireAuth(sessions, auth)
	admin := func(fn http.HandlerFunc) http.Handler {
		return requireAuth(middleware.RequireAdmin(fn))
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", h.Login)
	mux.HandleFunc("/api/register", h.Register)
	mux.HandleFunc("/api/logout", h.Logout)
	mux.Handle("/api/me", requireAuth(http.HandlerFunc(h.Me)))
	mux.Handle("/api/requests", requireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.CreateRequest(w, r)
			return
		}
		h.ListRequests(w, r)
	})))
	mux.Handle("/api/requests/tags", requireAuth(http.HandlerFunc(h.UpdateRequestTags)))
	mux.Handle("/api/requests/approve", admin(h.ApproveRequest))
	mux.Handle("/api/requests/deny", admin(h.DenyRequest))
	mux.Handle("/api/requests/available", admin(h.MarkRequestAvailable))
	mux.Handle("/api/requests/check", admin(h.RunStatusCheck))

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return &testServer{ts: ts, backend: backend, users: users}
}

// client returns an http client with its own cookie jar, i.e. one browser.
func (s *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func (s *testServer) do(t *testing.T, c *http.Client, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.ts.URL+path, &buf)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

// register signs up a fresh user and returns a logged-in client.
func (s *testServer) register(t *testing.T, username string) *http.Client {
	t.Helper()
	c := s.client(t)
	resp := s.do(t, c, http.MethodPost, "/api/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	return c
}

// loginAdmin seeds an admin account directly in the store and logs in.
func (s *testServer) loginAdmin(t *testing.T) *http.Client {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("adminpass"), bcrypt.DefaultCost)
	require.NoError(t, err)
	_, err = s.users.Create(context.Background(), models.User{
		Username:     "admin",
		Email:        "admin@example.com",
		PasswordHash: string(hash),
		IsAdmin:      true,
	})
	require.NoError(t, err)

	c := s.client(t)
	resp := s.do(t, c, http.MethodPost, "/api/login", map[string]string{
		"username": "admin",
		"password": "adminpass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	return c
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	// No session yet
	anon := s.client(t)
	resp := s.do(t, anon, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	c := s.register(t, "alice")
	me := decode[models.User](t, s.do(t, c, http.MethodGet, "/api/me", nil))
	assert.Equal(t, "alice", me.Username)
	assert.False(t, me.IsAdmin)

	// Logout invalidates the session
	resp = s.do(t, c, http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	resp = s.do(t, c, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestLoginBadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.register(t, "alice")

	c := s.client(t)
	resp := s.do(t, c, http.MethodPost, "/api/login", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func duneBody() map[string]string {
	return map[string]string{
		"book_id": "gb-123",
		"title":   "Dune",
		"author":  "Frank Herbert",
		"source":  "google",
	}
}

func TestCreateRequestValidation(t *testing.T) {
	s := newTestServer(t)
	c := s.register(t, "alice")

	resp := s.do(t, c, http.MethodPost, "/api/requests", map[string]string{"author": "Frank Herbert"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = s.do(t, c, http.MethodPost, "/api/requests", duneBody())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Duplicate active request for the same book
	resp = s.do(t, c, http.MethodPost, "/api/requests", duneBody())
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestListFiltersToOwnRequests(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	admin := s.loginAdmin(t)

	resp := s.do(t, alice, http.MethodPost, "/api/requests", duneBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	bobReqs := decode[[]models.Request](t, s.do(t, bob, http.MethodGet, "/api/requests", nil))
	assert.Empty(t, bobReqs)

	aliceReqs := decode[[]models.Request](t, s.do(t, alice, http.MethodGet, "/api/requests", nil))
	require.Len(t, aliceReqs, 1)
	assert.Equal(t, "Dune", aliceReqs[0].Title)

	// Admins see everything
	adminReqs := decode[[]models.Request](t, s.do(t, admin, http.MethodGet, "/api/requests", nil))
	assert.Len(t, adminReqs, 1)
}

func TestAdminLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	admin := s.loginAdmin(t)

	created := decode[models.Request](t, s.do(t, alice, http.MethodPost, "/api/requests", duneBody()))
	approvePath := fmt.Sprintf("/api/requests/approve?id=%d", created.ID)

	// Non-admins cannot approve
	resp := s.do(t, alice, http.MethodPost, approvePath, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	approved := decode[models.Request](t, s.do(t, admin, http.MethodPost, approvePath, nil))
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, models.AcquisitionAdded, approved.AcquisitionStatus)

	// Status check pass reports the inspected candidate
	s.backend.downloaded = true
	check := decode[services.StatusCheckResult](t, s.do(t, admin, http.MethodPost, "/api/requests/check", nil))
	assert.Equal(t, 1, check.UpdatedCount)
	assert.Equal(t, 1, check.MetadataStats.Updated)

	available := decode[models.Request](t, s.do(t, admin, http.MethodPost,
		fmt.Sprintf("/api/requests/available?id=%d", created.ID), nil))
	assert.Equal(t, models.StatusAvailable, available.Status)

	// Unknown id maps to 404
	resp = s.do(t, admin, http.MethodPost, "/api/requests/approve?id=9999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// Bad id maps to 400
	resp = s.do(t, admin, http.MethodPost, "/api/requests/approve?id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestDenyOverHTTP(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	admin := s.loginAdmin(t)

	created := decode[models.Request](t, s.do(t, alice, http.MethodPost, "/api/requests", duneBody()))

	denied := decode[models.Request](t, s.do(t, admin, http.MethodPost,
		fmt.Sprintf("/api/requests/deny?id=%d", created.ID), nil))
	assert.Equal(t, models.StatusDenied, denied.Status)

	// Denied is terminal: approving now is a validation error
	resp := s.do(t, admin, http.MethodPost, fmt.Sprintf("/api/requests/approve?id=%d", created.ID), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateTagsOwnership(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	bob := s.register(t, "bob")
	admin := s.loginAdmin(t)

	created := decode[models.Request](t, s.do(t, alice, http.MethodPost, "/api/requests", duneBody()))
	tagsPath := fmt.Sprintf("/api/requests/tags?id=%d", created.ID)
	tagsBody := map[string]any{"tags": []string{"sci-fi"}}

	// Another user cannot touch alice's tags
	resp := s.do(t, bob, http.MethodPost, tagsPath, tagsBody)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	// The owner can
	resp = s.do(t, alice, http.MethodPost, tagsPath, tagsBody)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// So can an admin
	resp = s.do(t, admin, http.MethodPost, tagsPath, map[string]any{"tags": []string{"classic"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestUpdateTagsReportsSyncError(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice")
	admin := s.loginAdmin(t)

	created := decode[models.Request](t, s.do(t, alice, http.MethodPost, "/api/requests", duneBody()))
	resp := s.do(t, admin, http.MethodPost, fmt.Sprintf("/api/requests/approve?id=%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	s.backend.tagsErr = errors.New("readarr unreachable")

	body := decode[map[string]json.RawMessage](t, s.do(t, alice, http.MethodPost,
		fmt.Sprintf("/api/requests/tags?id=%d", created.ID), map[string]any{"tags": []string{"sci-fi"}}))

	// Local commit succeeded, so the response is a 200 with the updated
	// request plus the sync warning.
	require.Contains(t, body, "request")
	require.Contains(t, body, "sync_error")

	var updated models.Request
	require.NoError(t, json.Unmarshal(body["request"], &updated))
	assert.Equal(t, []string{"sci-fi"}, updated.Tags)
}
