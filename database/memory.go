package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bookarr/models"
	"bookarr/services"
)

// In-memory store implementations mirroring the Postgres ones. Used by the
// test suites; they keep the same not-found and filter semantics.

type MemoryRequestStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.Request
}

func NewMemoryRequestStore() *MemoryRequestStore {
	return &MemoryRequestStore{byID: make(map[int64]models.Request)}
}

func (s *MemoryRequestStore) Create(_ context.Context, r models.Request) (models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	r.ID = s.nextID
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	s.byID[r.ID] = copyRequest(r)
	return copyRequest(r), nil
}

func (s *MemoryRequestStore) GetByID(_ context.Context, id int64) (models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return models.Request{}, fmt.Errorf("%w: request %d", services.ErrNotFound, id)
	}
	return copyRequest(r), nil
}

func (s *MemoryRequestStore) List(_ context.Context, f models.RequestFilter) ([]models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Request
	for _, r := range s.byID {
		if f.UserID != 0 && r.UserID != f.UserID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.AcquisitionStatus != "" && r.AcquisitionStatus != f.AcquisitionStatus {
			continue
		}
		out = append(out, copyRequest(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryRequestStore) Update(_ context.Context, r models.Request) (models.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[r.ID]; !ok {
		return models.Request{}, fmt.Errorf("%w: request %d", services.ErrNotFound, r.ID)
	}
	r.UpdatedAt = time.Now()
	s.byID[r.ID] = copyRequest(r)
	return copyRequest(r), nil
}

func (s *MemoryRequestStore) FindActive(_ context.Context, userID int64, bookID string) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.byID {
		if r.UserID == userID && r.BookID == bookID && r.Status != models.StatusDenied {
			out := copyRequest(r)
			return &out, nil
		}
	}
	return nil, nil
}

func copyRequest(r models.Request) models.Request {
	r.Tags = append([]string(nil), r.Tags...)
	return r
}

type MemoryUserStore struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.User
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byID: make(map[int64]models.User)}
}

func (s *MemoryUserStore) Create(_ context.Context, u models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byID {
		if existing.Username == u.Username {
			return models.User{}, fmt.Errorf("%w: username taken", services.ErrConflict)
		}
	}
	s.nextID++
	u.ID = s.nextID
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.byID[u.ID] = u
	return u, nil
}

func (s *MemoryUserStore) GetByID(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return models.User{}, fmt.Errorf("%w: user", services.ErrNotFound)
	}
	return u, nil
}

func (s *MemoryUserStore) GetByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%w: user", services.ErrNotFound)
}
