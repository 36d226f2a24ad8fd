package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookarr/config"
)

// AcquisitionBackend is the boundary to the external media manager
// (Readarr). Every call may fail with a transport or validation error; the
// lifecycle service converts those into acquisition errors on the request.
type AcquisitionBackend interface {
	FindAuthor(ctx context.Context, name string) (*AuthorRef, error)
	AddAuthor(ctx context.Context, name string) (*AuthorRef, error)
	FindBook(ctx context.Context, author *AuthorRef, title string) (*BookRef, error)
	AddBook(ctx context.Context, author *AuthorRef, title, isbn string) (*BookRef, error)
	TriggerSearch(ctx context.Context, book *BookRef) error
	GetDownloadStatus(ctx context.Context, book *BookRef) (DownloadStatus, error)
	UpdateTags(ctx context.Context, book *BookRef, tags []string) error
}

type AuthorRef struct {
	ID              int64  `json:"id"`
	Name            string `json:"authorName"`
	ForeignAuthorID string `json:"foreignAuthorId"`
}

type BookRef struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	ForeignBookID string `json:"foreignBookId"`
}

type DownloadStatus struct {
	Downloaded bool `json:"downloaded"`
}

// NameMatcher decides whether a Readarr entry matches a requested name.
// Pluggable so fuzzier strategies can be swapped in without touching the
// lifecycle logic.
type NameMatcher func(candidate, requested string) bool

// DefaultNameMatcher compares case-insensitively after collapsing runs of
// whitespace.
func DefaultNameMatcher(candidate, requested string) bool {
	return strings.EqualFold(normalizeName(candidate), normalizeName(requested))
}

func normalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ReadarrClient talks to the Readarr v1 API.
type ReadarrClient struct {
	baseURL          string
	apiKey           string
	qualityProfileID int
	rootFolder       string
	client           *http.Client

	// Match is consulted when scanning lookup results. Defaults to
	// DefaultNameMatcher.
	Match NameMatcher
}

func NewReadarrClient(cfg *config.Config) *ReadarrClient {
	return &ReadarrClient{
		baseURL:          strings.TrimRight(cfg.ReadarrURL, "/"),
		apiKey:           cfg.ReadarrAPIKey,
		qualityProfileID: cfg.ReadarrQualityProfileID,
		rootFolder:       cfg.ReadarrRootFolder,
		client:           &http.Client{Timeout: 15 * time.Second},
		Match:            DefaultNameMatcher,
	}
}

// FindAuthor scans the authors already in the Readarr library. Returns
// (nil, nil) when no entry matches.
func (c *ReadarrClient) FindAuthor(ctx context.Context, name string) (*AuthorRef, error) {
	var authors []AuthorRef
	if err := c.get(ctx, "/api/v1/author", nil, &authors); err != nil {
		return nil, err
	}
	for i := range authors {
		if c.Match(authors[i].Name, name) {
			return &authors[i], nil
		}
	}
	return nil, nil
}

// AddAuthor resolves the author through Readarr's metadata lookup and adds
// the first match to the library, unmonitored search-wise (the book search
// is triggered separately).
func (c *ReadarrClient) AddAuthor(ctx context.Context, name string) (*AuthorRef, error) {
	var results []AuthorRef
	if err := c.get(ctx, "/api/v1/author/lookup", url.Values{"term": {name}}, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no Readarr match for author %q", name)
	}

	pick := results[0]
	for i := range results {
		if c.Match(results[i].Name, name) {
			pick = results[i]
			break
		}
	}

	body := map[string]any{
		"authorName":       pick.Name,
		"foreignAuthorId":  pick.ForeignAuthorID,
		"qualityProfileId": c.qualityProfileID,
		"rootFolderPath":   c.rootFolder,
		"monitored":        true,
		"addOptions":       map[string]any{"searchForMissingBooks": false},
	}
	var created AuthorRef
	if err := c.do(ctx, http.MethodPost, "/api/v1/author", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// FindBook scans the books Readarr already tracks under the author.
// Returns (nil, nil) when the title is not present.
func (c *ReadarrClient) FindBook(ctx context.Context, author *AuthorRef, title string) (*BookRef, error) {
	var books []BookRef
	q := url.Values{"authorId": {fmt.Sprintf("%d", author.ID)}}
	if err := c.get(ctx, "/api/v1/book", q, &books); err != nil {
		return nil, err
	}
	for i := range books {
		if c.Match(books[i].Title, title) {
			return &books[i], nil
		}
	}
	return nil, nil
}

// AddBook resolves the edition through the metadata lookup (by ISBN when
// available, title otherwise) and adds it under the given author.
func (c *ReadarrClient) AddBook(ctx context.Context, author *AuthorRef, title, isbn string) (*BookRef, error) {
	term := title
	if isbn != "" {
		term = "isbn:" + isbn
	}
	var results []BookRef
	if err := c.get(ctx, "/api/v1/book/lookup", url.Values{"term": {term}}, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no Readarr match for book %q", title)
	}

	pick := results[0]
	for i := range results {
		if c.Match(results[i].Title, title) {
			pick = results[i]
			break
		}
	}

	body := map[string]any{
		"title":         pick.Title,
		"foreignBookId": pick.ForeignBookID,
		"monitored":     true,
		"author":        map[string]any{"id": author.ID},
		"addOptions":    map[string]any{"searchForNewBook": false},
	}
	var created BookRef
	if err := c.do(ctx, http.MethodPost, "/api/v1/book", body, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// TriggerSearch queues a BookSearch command for the book.
func (c *ReadarrClient) TriggerSearch(ctx context.Context, book *BookRef) error {
	body := map[string]any{
		"name":    "BookSearch",
		"bookIds": []int64{book.ID},
	}
	return c.do(ctx, http.MethodPost, "/api/v1/command", body, nil)
}

// GetDownloadStatus reports whether Readarr holds a file for the book.
func (c *ReadarrClient) GetDownloadStatus(ctx context.Context, book *BookRef) (DownloadStatus, error) {
	var detail struct {
		ID         int64 `json:"id"`
		Statistics struct {
			BookFileCount int `json:"bookFileCount"`
		} `json:"statistics"`
	}
	path := fmt.Sprintf("/api/v1/book/%d", book.ID)
	if err := c.get(ctx, path, nil, &detail); err != nil {
		return DownloadStatus{}, err
	}
	return DownloadStatus{Downloaded: detail.Statistics.BookFileCount > 0}, nil
}

// UpdateTags replaces the tag set on the Readarr book, creating tag labels
// that do not exist yet.
func (c *ReadarrClient) UpdateTags(ctx context.Context, book *BookRef, tags []string) error {
	type tagRef struct {
		ID    int64  `json:"id"`
		Label string `json:"label"`
	}
	var existing []tagRef
	if err := c.get(ctx, "/api/v1/tag", nil, &existing); err != nil {
		return err
	}

	ids := make([]int64, 0, len(tags))
	for _, label := range tags {
		var id int64
		for _, t := range existing {
			if strings.EqualFold(t.Label, label) {
				id = t.ID
				break
			}
		}
		if id == 0 {
			var created tagRef
			if err := c.do(ctx, http.MethodPost, "/api/v1/tag", map[string]any{"label": label}, &created); err != nil {
				return err
			}
			id = created.ID
		}
		ids = append(ids, id)
	}

	body := map[string]any{"id": book.ID, "tags": ids}
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/api/v1/book/%d", book.ID), body, nil)
}

func (c *ReadarrClient) get(ctx context.Context, path string, query url.Values, v any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, v)
}

func (c *ReadarrClient) do(ctx context.Context, method, path string, body, v any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("readarr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("readarr returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			return fmt.Errorf("failed to decode readarr response: %w", err)
		}
	}
	return nil
}
