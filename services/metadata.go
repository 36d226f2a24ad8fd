package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"bookarr/config"
	"bookarr/httpclient"
	"bookarr/models"
)

// MetadataProvider is a book-catalog API used only at browse/request time.
// Lifecycle transitions never call back into it.
type MetadataProvider interface {
	Search(ctx context.Context, query string) ([]BookSummary, error)
	GetDetail(ctx context.Context, bookID string) (BookDetail, error)
}

type BookSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Cover  string `json:"cover,omitempty"`
	ISBN   string `json:"isbn,omitempty"`
	Source string `json:"source"`
}

type BookDetail struct {
	BookSummary
	Description   string `json:"description,omitempty"`
	PublishedYear string `json:"published_year,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`
}

// ProviderSet routes a stored bookId+source pair to the provider that
// issued it.
type ProviderSet struct {
	providers map[string]MetadataProvider
}

func NewProviderSet(cfg *config.Config) *ProviderSet {
	return &ProviderSet{providers: map[string]MetadataProvider{
		models.SourceGoogle:      NewGoogleBooksClient(cfg.GoogleBooksURL, cfg.GoogleBooksAPIKey),
		models.SourceOpenLibrary: NewOpenLibraryClient(cfg.OpenLibraryURL),
	}}
}

func (p *ProviderSet) Lookup(source string) (MetadataProvider, error) {
	if source == "" {
		source = models.SourceGoogle
	}
	provider, ok := p.providers[source]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metadata source %q", ErrValidation, source)
	}
	return provider, nil
}

// --- Google Books ---

type GoogleBooksClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewGoogleBooksClient(baseURL, apiKey string) *GoogleBooksClient {
	return &GoogleBooksClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  httpclient.DefaultClient,
	}
}

type googleVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		Description         string   `json:"description"`
		PublishedDate       string   `json:"publishedDate"`
		PageCount           int      `json:"pageCount"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (g *GoogleBooksClient) Search(ctx context.Context, query string) ([]BookSummary, error) {
	params := map[string]string{"q": query, "maxResults": "20"}
	if g.apiKey != "" {
		params["key"] = g.apiKey
	}
	searchURL := httpclient.BuildQueryURL(g.baseURL+"/volumes", params)

	var payload struct {
		Items []googleVolume `json:"items"`
	}
	if err := httpclient.GetJSON(ctx, searchURL, g.client, &payload); err != nil {
		return nil, err
	}

	results := make([]BookSummary, 0, len(payload.Items))
	for _, item := range payload.Items {
		results = append(results, g.summary(item))
	}
	return results, nil
}

func (g *GoogleBooksClient) GetDetail(ctx context.Context, bookID string) (BookDetail, error) {
	detailURL := g.baseURL + "/volumes/" + bookID
	if g.apiKey != "" {
		detailURL = httpclient.BuildQueryURL(detailURL, map[string]string{"key": g.apiKey})
	}

	var item googleVolume
	if err := httpclient.GetJSON(ctx, detailURL, g.client, &item); err != nil {
		return BookDetail{}, err
	}

	return BookDetail{
		BookSummary:   g.summary(item),
		Description:   item.VolumeInfo.Description,
		PublishedYear: item.VolumeInfo.PublishedDate,
		PageCount:     item.VolumeInfo.PageCount,
	}, nil
}

func (g *GoogleBooksClient) summary(item googleVolume) BookSummary {
	s := BookSummary{
		ID:     item.ID,
		Title:  item.VolumeInfo.Title,
		Cover:  item.VolumeInfo.ImageLinks.Thumbnail,
		Source: models.SourceGoogle,
	}
	if len(item.VolumeInfo.Authors) > 0 {
		s.Author = item.VolumeInfo.Authors[0]
	}
	for _, id := range item.VolumeInfo.IndustryIdentifiers {
		if id.Type == "ISBN_13" {
			s.ISBN = id.Identifier
			break
		}
		if id.Type == "ISBN_10" && s.ISBN == "" {
			s.ISBN = id.Identifier
		}
	}
	return s
}

// --- Open Library ---

type OpenLibraryClient struct {
	baseURL string
	client  *http.Client
}

func NewOpenLibraryClient(baseURL string) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return &OpenLibraryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.DefaultClient,
	}
}

type openLibraryDoc struct {
	Key        string   `json:"key"` // "/works/OL45883W"
	Title      string   `json:"title"`
	AuthorName []string `json:"author_name"`
	CoverID    int      `json:"cover_i"`
	ISBN       []string `json:"isbn"`
}

func (o *OpenLibraryClient) Search(ctx context.Context, query string) ([]BookSummary, error) {
	searchURL := httpclient.BuildQueryURL(o.baseURL+"/search.json", map[string]string{
		"q":     query,
		"limit": "20",
	})

	var payload struct {
		Docs []openLibraryDoc `json:"docs"`
	}
	if err := httpclient.GetJSON(ctx, searchURL, o.client, &payload); err != nil {
		return nil, err
	}

	results := make([]BookSummary, 0, len(payload.Docs))
	for _, doc := range payload.Docs {
		s := BookSummary{
			ID:     strings.TrimPrefix(doc.Key, "/works/"),
			Title:  doc.Title,
			Source: models.SourceOpenLibrary,
		}
		if len(doc.AuthorName) > 0 {
			s.Author = doc.AuthorName[0]
		}
		if doc.CoverID > 0 {
			s.Cover = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", doc.CoverID)
		}
		if len(doc.ISBN) > 0 {
			s.ISBN = doc.ISBN[0]
		}
		results = append(results, s)
	}
	return results, nil
}

func (o *OpenLibraryClient) GetDetail(ctx context.Context, bookID string) (BookDetail, error) {
	detailURL := fmt.Sprintf("%s/works/%s.json", o.baseURL, bookID)

	// description is either a plain string or {type, value}
	var work struct {
		Title       string `json:"title"`
		Description any    `json:"description"`
		Covers      []int  `json:"covers"`
	}
	if err := httpclient.GetJSON(ctx, detailURL, o.client, &work); err != nil {
		return BookDetail{}, err
	}

	detail := BookDetail{
		BookSummary: BookSummary{
			ID:     bookID,
			Title:  work.Title,
			Source: models.SourceOpenLibrary,
		},
	}
	switch d := work.Description.(type) {
	case string:
		detail.Description = d
	case map[string]any:
		if v, ok := d["value"].(string); ok {
			detail.Description = v
		}
	}
	if len(work.Covers) > 0 {
		detail.Cover = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", work.Covers[0])
	}
	return detail, nil
}
