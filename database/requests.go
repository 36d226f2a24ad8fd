package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bookarr/models"
	"bookarr/services"
)

type RequestStore struct {
	DB *sql.DB
}

func NewRequestStore(db *sql.DB) *RequestStore {
	return &RequestStore{DB: db}
}

const requestColumns = `r.id, r.user_id, r.title, r.author, r.cover, r.isbn, r.book_id, r.source,
	r.status, r.acquisition_status, r.acquisition_id, r.acquisition_message, r.tags,
	r.created_at, r.updated_at`

func (s *RequestStore) Create(ctx context.Context, r models.Request) (models.Request, error) {
	err := s.DB.QueryRowContext(ctx,
		`INSERT INTO requests (user_id, title, author, cover, isbn, book_id, source, status, acquisition_status, tags)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at, updated_at`,
		r.UserID, r.Title, r.Author, r.Cover, r.ISBN, r.BookID, r.Source,
		r.Status, r.AcquisitionStatus, joinTags(r.Tags),
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return models.Request{}, fmt.Errorf("failed to create request: %w", err)
	}
	return r, nil
}

func (s *RequestStore) GetByID(ctx context.Context, id int64) (models.Request, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+requestColumns+`, u.username
		 FROM requests r JOIN users u ON r.user_id = u.id
		 WHERE r.id = $1`, id)

	r, err := scanRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Request{}, fmt.Errorf("%w: request %d", services.ErrNotFound, id)
		}
		return models.Request{}, err
	}
	return r, nil
}

func (s *RequestStore) List(ctx context.Context, f models.RequestFilter) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + `, u.username
		FROM requests r JOIN users u ON r.user_id = u.id`

	var conds []string
	var args []any
	if f.UserID != 0 {
		args = append(args, f.UserID)
		conds = append(conds, fmt.Sprintf("r.user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("r.status = $%d", len(args)))
	}
	if f.AcquisitionStatus != "" {
		args = append(args, f.AcquisitionStatus)
		conds = append(conds, fmt.Sprintf("r.acquisition_status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.created_at DESC"

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func (s *RequestStore) Update(ctx context.Context, r models.Request) (models.Request, error) {
	err := s.DB.QueryRowContext(ctx,
		`UPDATE requests
		 SET status = $1, acquisition_status = $2, acquisition_id = $3, acquisition_message = $4,
		     tags = $5, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $6
		 RETURNING updated_at`,
		r.Status, r.AcquisitionStatus, r.AcquisitionID, r.AcquisitionMessage,
		joinTags(r.Tags), r.ID,
	).Scan(&r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Request{}, fmt.Errorf("%w: request %d", services.ErrNotFound, r.ID)
		}
		return models.Request{}, fmt.Errorf("failed to update request: %w", err)
	}
	return r, nil
}

func (s *RequestStore) FindActive(ctx context.Context, userID int64, bookID string) (*models.Request, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+requestColumns+`, u.username
		 FROM requests r JOIN users u ON r.user_id = u.id
		 WHERE r.user_id = $1 AND r.book_id = $2 AND r.status != 'denied'
		 ORDER BY r.created_at DESC
		 LIMIT 1`, userID, bookID)

	r, err := scanRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (models.Request, error) {
	var r models.Request
	var cover, isbn, bookID, source, message, tags sql.NullString
	err := row.Scan(
		&r.ID, &r.UserID, &r.Title, &r.Author, &cover, &isbn, &bookID, &source,
		&r.Status, &r.AcquisitionStatus, &r.AcquisitionID, &message, &tags,
		&r.CreatedAt, &r.UpdatedAt, &r.Username,
	)
	if err != nil {
		return models.Request{}, err
	}
	r.Cover = cover.String
	r.ISBN = isbn.String
	r.BookID = bookID.String
	r.Source = source.String
	r.AcquisitionMessage = message.String
	r.Tags = splitTags(tags.String)
	return r, nil
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}
