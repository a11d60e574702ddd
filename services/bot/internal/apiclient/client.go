// Package apiclient calls the review persistence API over HTTP.
package apiclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookreview/pkg/domain"
)

// Client calls the review API service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// APIError represents a review API error response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsConflict reports whether err is a duplicate-record rejection.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest &&
		strings.HasSuffix(apiErr.Code, "_ALREADY_EXISTS")
}

// IsForbidden reports whether err is a 403 (banned user) from the API.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden
}

// NewClient constructs a review API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// GetBookByGoogleID fetches a book by its catalog-provider ID.
func (c *Client) GetBookByGoogleID(googleBookID string) (domain.Book, error) {
	var book domain.Book
	if err := c.get("/books/"+googleBookID, &book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// CreateBook asks the API to resolve and persist a book.
func (c *Client) CreateBook(googleBookID string) (domain.Book, error) {
	var book domain.Book
	err := c.post("/api/books/", map[string]string{"google_book_id": googleBookID}, &book)
	if err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

// GetUserByTelegramID fetches a user by chat-platform ID.
func (c *Client) GetUserByTelegramID(telegramID int64) (domain.User, error) {
	var user domain.User
	if err := c.get("/api/users/"+strconv.FormatInt(telegramID, 10), &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// CreateUser registers a chat-platform user.
func (c *Client) CreateUser(telegramID int64) (domain.User, error) {
	var user domain.User
	err := c.post("/api/users/", map[string]int64{"telegram_id": telegramID}, &user)
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// CreateReview submits a review.
func (c *Client) CreateReview(review domain.Review) (domain.Review, error) {
	var created struct {
		Message string        `json:"message"`
		Review  domain.Review `json:"review"`
	}
	err := c.post("/api/review/", map[string]any{
		"book_id":     review.BookID,
		"user_id":     review.UserID,
		"rating":      review.Rating,
		"review_text": review.ReviewText,
		"public":      review.Public,
	}, &created)
	if err != nil {
		return domain.Review{}, err
	}
	return created.Review, nil
}

// ListReviewsByBook fetches reviews filtered to one book.
func (c *Client) ListReviewsByBook(bookID int64) ([]domain.Review, error) {
	var reviews []domain.Review
	if err := c.get("/reviews?book_id="+strconv.FormatInt(bookID, 10), &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *Client) get(path string, out any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *Client) post(path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		msg := errResp.Error
		if msg == "" {
			msg = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Code: errResp.Code, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
