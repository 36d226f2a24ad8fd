package models

import "time"

// RequestStatus is the user-visible lifecycle stage of a request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusDenied    RequestStatus = "denied"
	StatusAvailable RequestStatus = "available"
)

// AcquisitionStatus tracks reconciliation with Readarr, independently of
// Status. It stays "pending" until the request is approved.
type AcquisitionStatus string

const (
	AcquisitionPending    AcquisitionStatus = "pending"
	AcquisitionAdded      AcquisitionStatus = "added"
	AcquisitionDownloaded AcquisitionStatus = "downloaded"
	AcquisitionError      AcquisitionStatus = "error"
)

// Metadata sources a request's BookID can belong to.
const (
	SourceGoogle      = "google"
	SourceOpenLibrary = "openLibrary"
)

type Request struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"` // For display

	Title  string `json:"title"`
	Author string `json:"author"`
	Cover  string `json:"cover,omitempty"`
	ISBN   string `json:"isbn,omitempty"`
	BookID string `json:"book_id,omitempty"` // metadata provider identifier
	Source string `json:"source,omitempty"`  // "google" or "openLibrary"

	Status             RequestStatus     `json:"status"`
	AcquisitionStatus  AcquisitionStatus `json:"acquisition_status"`
	AcquisitionID      int64             `json:"acquisition_id,omitempty"` // Readarr book id
	AcquisitionMessage string            `json:"acquisition_message,omitempty"`

	Tags []string `json:"tags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidTransition reports whether a status change follows the lifecycle
// graph: pending -> approved|denied, approved -> available. Denied and
// available are terminal. Re-approving an approved request is allowed so
// admins can retry a failed acquisition.
func ValidTransition(from, to RequestStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusApproved || to == StatusDenied
	case StatusApproved:
		return to == StatusApproved || to == StatusAvailable
	default:
		return false
	}
}

// RequestFilter narrows a request listing. Zero values match everything.
type RequestFilter struct {
	UserID            int64
	Status            RequestStatus
	AcquisitionStatus AcquisitionStatus
}
