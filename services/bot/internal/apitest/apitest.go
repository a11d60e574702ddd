// Package apitest runs an in-memory stand-in for the review persistence
// API. It speaks the API's wire contract over httptest, so bot-side
// packages exercise real HTTP round trips without importing the API
// service's internals.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"bookreview/pkg/domain"
)

// Server is the fake API. Catalog metadata is registered up front with
// AddVolume; everything else accumulates through the HTTP surface.
type Server struct {
	ts *httptest.Server

	mu      sync.Mutex
	volumes map[string]domain.BookMetadata
	books   []domain.Book
	users   []domain.User
	reviews []domain.Review
	banned  map[int64]bool
}

// New starts the fake and registers its shutdown with the test.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		volumes: make(map[string]domain.BookMetadata),
		banned:  make(map[int64]bool),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/books/", s.handleCreateBook)
	mux.HandleFunc("/books/", s.handleGetBook)
	mux.HandleFunc("/api/users/", s.handleUsers)
	mux.HandleFunc("/api/review/", s.handleCreateReview)
	mux.HandleFunc("/reviews", s.handleListReviews)
	s.ts = httptest.NewServer(mux)
	t.Cleanup(s.ts.Close)
	return s
}

// URL is the base URL clients should target.
func (s *Server) URL() string { return s.ts.URL }

// AddVolume registers catalog metadata so CreateBook can resolve it.
func (s *Server) AddVolume(meta domain.BookMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volumes[meta.GoogleBookID] = meta
}

// SetBanned flips a user's banned flag, standing in for the out-of-band
// moderation process.
func (s *Server) SetBanned(telegramID int64, banned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banned[telegramID] = banned
}

// BookCount reports how many books were persisted.
func (s *Server) BookCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.books)
}

// ReviewCount reports how many reviews were persisted.
func (s *Server) ReviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

// Reviews returns a copy of the persisted reviews in insertion order.
func (s *Server) Reviews() []domain.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Review, len(s.reviews))
	copy(out, s.reviews)
	return out
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "SYSTEM_METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var req struct {
		GoogleBookID string `json:"google_book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GoogleBookID == "" {
		writeErr(w, http.StatusBadRequest, "REQUEST_INVALID", "invalid JSON body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.GoogleBookID == req.GoogleBookID {
			writeErr(w, http.StatusBadRequest, "BOOK_ALREADY_EXISTS", "Book already exists in the database")
			return
		}
	}
	meta, ok := s.volumes[req.GoogleBookID]
	if !ok {
		writeErr(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found")
		return
	}
	book := domain.Book{
		ID:            int64(len(s.books) + 1),
		Title:         meta.Title,
		Author:        meta.Author,
		Genre:         meta.Genre,
		PublishedDate: meta.PublishedDate,
		GoogleBookID:  meta.GoogleBookID,
		ISBN:          meta.ISBN,
	}
	s.books = append(s.books, book)
	writeBody(w, http.StatusOK, book)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	googleBookID := strings.TrimPrefix(r.URL.Path, "/books/")
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.books {
		if b.GoogleBookID == googleBookID {
			writeBody(w, http.StatusOK, b)
			return
		}
	}
	writeErr(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found")
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			TelegramID int64 `json:"telegram_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TelegramID == 0 {
			writeErr(w, http.StatusBadRequest, "REQUEST_INVALID", "invalid JSON body")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, u := range s.users {
			if u.TelegramID == req.TelegramID {
				writeErr(w, http.StatusBadRequest, "USER_ALREADY_EXISTS", "User with this Telegram ID already exists")
				return
			}
		}
		user := domain.User{ID: int64(len(s.users) + 1), TelegramID: req.TelegramID}
		s.users = append(s.users, user)
		writeBody(w, http.StatusCreated, user)
		return
	}

	telegramID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/users/"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.TelegramID == telegramID {
			u.Banned = s.banned[u.TelegramID]
			writeBody(w, http.StatusOK, u)
			return
		}
	}
	writeErr(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "SYSTEM_METHOD_NOT_ALLOWED", "method not allowed")
		return
	}
	var req domain.Review
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "REQUEST_INVALID", "invalid JSON body")
		return
	}
	if !domain.ValidRating(req.Rating) {
		writeErr(w, http.StatusBadRequest, "REVIEW_INVALID_RATING", "Rating must be between 1 and 5")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if req.BookID <= 0 || req.BookID > int64(len(s.books)) {
		writeErr(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found")
		return
	}
	if req.UserID <= 0 || req.UserID > int64(len(s.users)) {
		writeErr(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
		return
	}
	if s.banned[s.users[req.UserID-1].TelegramID] {
		writeErr(w, http.StatusForbidden, "USER_BANNED", "User is banned")
		return
	}
	req.ID = int64(len(s.reviews) + 1)
	s.reviews = append(s.reviews, req)
	writeBody(w, http.StatusCreated, map[string]any{
		"message": "Review created successfully",
		"review":  req,
	})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	var bookID int64
	if raw := r.URL.Query().Get("book_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeErr(w, http.StatusBadRequest, "REQUEST_INVALID", "invalid book_id")
			return
		}
		bookID = parsed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Review{}
	for _, review := range s.reviews {
		if bookID == 0 || review.BookID == bookID {
			out = append(out, review)
		}
	}
	writeBody(w, http.StatusOK, out)
}

func writeBody(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	writeBody(w, status, map[string]string{"error": msg, "code": code})
}
