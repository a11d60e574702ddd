package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bookreview/pkg/domain"
)

// DefaultBaseURL is the Google Books volumes API root.
const DefaultBaseURL = "https://www.googleapis.com/books/v1"

// ISBNUnknown is the sentinel recorded when a volume declares no ISBN_13.
const ISBNUnknown = domain.ISBNUnknown

// ErrVolumeNotFound is returned when the provider cannot resolve a volume ID.
var ErrVolumeNotFound = errors.New("volume not found")

// Client calls the Google Books API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient constructs a catalog client. baseURL may be empty to use the
// real provider; tests point it at a fake.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Volume mirrors the provider's volume JSON.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

type VolumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Categories          []string             `json:"categories"`
	PublishedDate       string               `json:"publishedDate"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
}

type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// Search queries volumes by free text and returns candidates in provider
// order. A provider-side failure yields an empty list, indistinguishable
// from no results; the cause is only logged.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Candidate, error) {
	endpoint := c.baseURL + "/volumes?" + url.Values{
		"q":   {query},
		"key": {c.apiKey},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search volumes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		slog.Warn("google books search failed", "status", resp.StatusCode, "query", query)
		return nil, nil
	}
	var payload struct {
		Items []Volume `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	candidates := make([]domain.Candidate, 0, len(payload.Items))
	for _, item := range payload.Items {
		candidates = append(candidates, domain.Candidate{
			GoogleBookID: item.ID,
			Title:        titleOrFallback(item.VolumeInfo.Title),
			Authors:      authorsOrFallback(item.VolumeInfo.Authors),
		})
	}
	return candidates, nil
}

// FetchVolume resolves one volume by its stable provider ID. Any
// non-success response maps to ErrVolumeNotFound.
func (c *Client) FetchVolume(ctx context.Context, googleBookID string) (domain.BookMetadata, error) {
	endpoint := c.baseURL + "/volumes/" + url.PathEscape(googleBookID) + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.BookMetadata{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.BookMetadata{}, fmt.Errorf("fetch volume: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.BookMetadata{}, ErrVolumeNotFound
	}
	var volume Volume
	if err := json.NewDecoder(resp.Body).Decode(&volume); err != nil {
		return domain.BookMetadata{}, fmt.Errorf("decode volume response: %w", err)
	}
	info := volume.VolumeInfo
	return domain.BookMetadata{
		Title:         info.Title,
		Author:        strings.Join(info.Authors, ", "),
		Genre:         strings.Join(info.Categories, ", "),
		PublishedDate: info.PublishedDate,
		GoogleBookID:  googleBookID,
		ISBN:          isbn13(info.IndustryIdentifiers),
	}, nil
}

// isbn13 returns the first declared ISBN_13, or the Unknown sentinel.
func isbn13(ids []IndustryIdentifier) string {
	for _, id := range ids {
		if id.Type == "ISBN_13" {
			return id.Identifier
		}
	}
	return ISBNUnknown
}

func titleOrFallback(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Unknown title"
	}
	return title
}

func authorsOrFallback(authors []string) string {
	if len(authors) == 0 {
		return "Unknown author"
	}
	return strings.Join(authors, ", ")
}
