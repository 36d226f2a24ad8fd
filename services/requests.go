package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bookarr/models"
)

// RequestStore is the persistence boundary for requests. The Postgres
// implementation lives in the database package; tests use the in-memory one.
type RequestStore interface {
	Create(ctx context.Context, r models.Request) (models.Request, error)
	GetByID(ctx context.Context, id int64) (models.Request, error)
	List(ctx context.Context, f models.RequestFilter) ([]models.Request, error)
	Update(ctx context.Context, r models.Request) (models.Request, error)
	// FindActive returns a non-denied request for the same user+book pair,
	// or nil when there is none. Used by the duplicate policy.
	FindActive(ctx context.Context, userID int64, bookID string) (*models.Request, error)
}

type CreateRequestInput struct {
	BookID string `json:"book_id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Cover  string `json:"cover"`
	ISBN   string `json:"isbn"`
	Source string `json:"source"`
}

type MetadataStats struct {
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type StatusCheckResult struct {
	UpdatedCount  int           `json:"updatedCount"`
	MetadataStats MetadataStats `json:"metadataStats"`
}

// RequestService owns the request lifecycle: creation, the approval workflow
// against Readarr, denial, tag sync, and the status-check pass. All external
// failures during approval or polling are recorded on the request rather
// than returned, so one Readarr outage never blocks the admin workflow.
type RequestService struct {
	store   RequestStore
	backend AcquisitionBackend

	// AllowDuplicates permits several non-denied requests for the same
	// user+book pair.
	AllowDuplicates bool

	// StatusTimeout bounds each per-request Readarr call during a
	// status-check pass, so one stuck call cannot hang the batch.
	StatusTimeout time.Duration
}

func NewRequestService(store RequestStore, backend AcquisitionBackend) *RequestService {
	return &RequestService{
		store:         store,
		backend:       backend,
		StatusTimeout: 15 * time.Second,
	}
}

// Create records a new pending request. No Readarr calls happen here;
// acquisition is deferred until an admin approves.
func (s *RequestService) Create(ctx context.Context, userID int64, in CreateRequestInput) (models.Request, error) {
	if strings.TrimSpace(in.Title) == "" {
		return models.Request{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if strings.TrimSpace(in.Author) == "" {
		return models.Request{}, fmt.Errorf("%w: author is required", ErrValidation)
	}
	if in.Source != "" && in.Source != models.SourceGoogle && in.Source != models.SourceOpenLibrary {
		return models.Request{}, fmt.Errorf("%w: unknown source %q", ErrValidation, in.Source)
	}

	if !s.AllowDuplicates && in.BookID != "" {
		existing, err := s.store.FindActive(ctx, userID, in.BookID)
		if err != nil {
			return models.Request{}, err
		}
		if existing != nil {
			return models.Request{}, fmt.Errorf("%w: book already requested (status: %s)", ErrConflict, existing.Status)
		}
	}

	req := models.Request{
		UserID:            userID,
		Title:             strings.TrimSpace(in.Title),
		Author:            strings.TrimSpace(in.Author),
		Cover:             in.Cover,
		ISBN:              in.ISBN,
		BookID:            in.BookID,
		Source:            in.Source,
		Status:            models.StatusPending,
		AcquisitionStatus: models.AcquisitionPending,
	}

	created, err := s.store.Create(ctx, req)
	if err != nil {
		return models.Request{}, err
	}
	slog.Info("Request created", "request_id", created.ID, "user_id", userID, "title", created.Title)
	return created, nil
}

func (s *RequestService) Get(ctx context.Context, id int64) (models.Request, error) {
	return s.store.GetByID(ctx, id)
}

func (s *RequestService) List(ctx context.Context, f models.RequestFilter) ([]models.Request, error) {
	return s.store.List(ctx, f)
}

// Approve transitions a pending request to approved and runs the acquisition
// flow against Readarr. The status flip is persisted before any external
// call, so the admin's intent is visible even when acquisition fails.
// Re-invoking Approve on an approved request retries acquisition; existence
// is re-checked before every add, so a retry never creates duplicate Readarr
// entries.
func (s *RequestService) Approve(ctx context.Context, id int64) (models.Request, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Request{}, err
	}
	if !models.ValidTransition(req.Status, models.StatusApproved) {
		return models.Request{}, fmt.Errorf("%w: cannot approve request in status %q", ErrValidation, req.Status)
	}

	if req.Status != models.StatusApproved {
		req.Status = models.StatusApproved
		req, err = s.store.Update(ctx, req)
		if err != nil {
			return models.Request{}, err
		}
	}

	s.acquire(ctx, &req)
	return s.store.Update(ctx, req)
}

// acquire runs the author/book reconciliation against Readarr and records
// the outcome on the request. Errors are absorbed into the acquisition
// fields, never returned.
func (s *RequestService) acquire(ctx context.Context, req *models.Request) {
	fail := func(stage string, err error) {
		req.AcquisitionStatus = models.AcquisitionError
		req.AcquisitionMessage = fmt.Sprintf("%s: %v", stage, err)
		slog.Error("Acquisition failed", "request_id", req.ID, "stage", stage, "error", err)
	}

	author, err := s.backend.FindAuthor(ctx, req.Author)
	if err != nil {
		fail("author lookup", err)
		return
	}
	if author == nil {
		author, err = s.backend.AddAuthor(ctx, req.Author)
		if err != nil {
			fail("add author", err)
			return
		}
		slog.Info("Added author to Readarr", "request_id", req.ID, "author", req.Author)
	}

	book, err := s.backend.FindBook(ctx, author, req.Title)
	if err != nil {
		fail("book lookup", err)
		return
	}
	if book == nil {
		book, err = s.backend.AddBook(ctx, author, req.Title, req.ISBN)
		if err != nil {
			fail("add book", err)
			return
		}
		slog.Info("Added book to Readarr", "request_id", req.ID, "title", req.Title, "book_id", book.ID)
	}

	if err := s.backend.TriggerSearch(ctx, book); err != nil {
		fail("trigger search", err)
		return
	}

	req.AcquisitionStatus = models.AcquisitionAdded
	req.AcquisitionID = book.ID
	req.AcquisitionMessage = ""
	slog.Info("Acquisition triggered", "request_id", req.ID, "readarr_book_id", book.ID)
}

// Deny is a pure local state change; Readarr is never contacted.
func (s *RequestService) Deny(ctx context.Context, id int64) (models.Request, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Request{}, err
	}
	if !models.ValidTransition(req.Status, models.StatusDenied) {
		return models.Request{}, fmt.Errorf("%w: cannot deny request in status %q", ErrValidation, req.Status)
	}
	req.Status = models.StatusDenied
	return s.store.Update(ctx, req)
}

// MarkAvailable is an explicit admin action; a downloaded acquisition never
// promotes a request automatically, since making the book visible to the
// requester may need a library refresh outside this system.
func (s *RequestService) MarkAvailable(ctx context.Context, id int64) (models.Request, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Request{}, err
	}
	if req.Status == models.StatusAvailable {
		return req, nil
	}
	if !models.ValidTransition(req.Status, models.StatusAvailable) {
		return models.Request{}, fmt.Errorf("%w: cannot mark request in status %q available", ErrValidation, req.Status)
	}
	req.Status = models.StatusAvailable
	return s.store.Update(ctx, req)
}

// UpdateTags replaces the request's tags and propagates them to Readarr
// best-effort. The local update commits regardless; a propagation failure is
// reported wrapped in ErrExternal alongside the updated request.
func (s *RequestService) UpdateTags(ctx context.Context, id int64, tags []string) (models.Request, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		return models.Request{}, err
	}

	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	req.Tags = cleaned

	req, err = s.store.Update(ctx, req)
	if err != nil {
		return models.Request{}, err
	}

	if req.AcquisitionID != 0 {
		if err := s.backend.UpdateTags(ctx, &BookRef{ID: req.AcquisitionID}, cleaned); err != nil {
			slog.Warn("Tag propagation to Readarr failed", "request_id", req.ID, "error", err)
			return req, fmt.Errorf("%w: tag sync: %v", ErrExternal, err)
		}
	}
	return req, nil
}

// RunStatusCheck inspects every approved request whose acquisition is in
// "added" and asks Readarr whether the book has been downloaded. A failure
// on one candidate is counted and skipped; it never aborts the batch or
// touches that candidate's stored state. Running the pass twice with no
// external change is a no-op the second time.
func (s *RequestService) RunStatusCheck(ctx context.Context) (StatusCheckResult, error) {
	var res StatusCheckResult

	candidates, err := s.store.List(ctx, models.RequestFilter{
		Status:            models.StatusApproved,
		AcquisitionStatus: models.AcquisitionAdded,
	})
	if err != nil {
		return res, err
	}

	for _, req := range candidates {
		res.UpdatedCount++

		cctx, cancel := context.WithTimeout(ctx, s.StatusTimeout)
		status, err := s.backend.GetDownloadStatus(cctx, &BookRef{ID: req.AcquisitionID})
		cancel()
		if err != nil {
			res.MetadataStats.Failed++
			slog.Warn("Status check failed for request", "request_id", req.ID, "error", err)
			continue
		}
		res.MetadataStats.Updated++

		if status.Downloaded && req.AcquisitionStatus != models.AcquisitionDownloaded {
			req.AcquisitionStatus = models.AcquisitionDownloaded
			req.AcquisitionMessage = ""
			if _, err := s.store.Update(ctx, req); err != nil {
				slog.Error("Failed to persist downloaded status", "request_id", req.ID, "error", err)
			} else {
				slog.Info("Request download completed", "request_id", req.ID, "title", req.Title)
			}
		}
	}

	slog.Info("Status check pass finished",
		"inspected", res.UpdatedCount,
		"updated", res.MetadataStats.Updated,
		"failed", res.MetadataStats.Failed)
	return res, nil
}
