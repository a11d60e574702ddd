package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bookreview/internal/util"
	"bookreview/pkg/domain"
	"bookreview/services/api/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
}

// Server exposes the persistence API over HTTP/JSON.
type Server struct {
	app *app.App
	mux *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	s := &Server{app: cfg.App, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Router returns the configured handler with request middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog("api", s.mux))
}

// Deployed clients depend on these exact paths, including the split
// between /api/books/ (create) and /books/ (read).
func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/api/books/", s.handleCreateBook)
	s.mux.HandleFunc("/books/", s.handleGetBook)
	s.mux.HandleFunc("/api/users/", s.handleUsers)
	s.mux.HandleFunc("/api/review/", s.handleCreateReview)
	s.mux.HandleFunc("/reviews", s.handleListReviews)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createBookRequest struct {
	GoogleBookID string `json:"google_book_id"`
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req createBookRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID", "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.GoogleBookID) == "" {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID", "google_book_id is required")
		return
	}
	book, err := s.app.CreateBook(r.Context(), req.GoogleBookID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// GET /books/{google_book_id}
func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	googleBookID := strings.TrimPrefix(r.URL.Path, "/books/")
	if googleBookID == "" || strings.Contains(googleBookID, "/") {
		writeError(w, http.StatusNotFound, "SYSTEM_NOT_FOUND", "not found")
		return
	}
	book, err := s.app.GetBookByGoogleID(googleBookID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

type createUserRequest struct {
	TelegramID int64 `json:"telegram_id"`
}

// POST /api/users/ and GET /api/users/{telegram_id}
func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateUser(w, r)
	case http.MethodGet:
		s.handleGetUser(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID", "invalid JSON body")
		return
	}
	if req.TelegramID == 0 {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID", "telegram_id is required")
		return
	}
	user, err := s.app.CreateUser(req.TelegramID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.URL.Path, "/api/users/")
	telegramID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || telegramID == 0 {
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "user not found")
		return
	}
	user, err := s.app.GetUserByTelegramID(telegramID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type createReviewRequest struct {
	BookID     int64  `json:"book_id"`
	UserID     int64  `json:"user_id"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
	Public     bool   `json:"public"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req createReviewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "REQUEST_INVALID", "invalid JSON body")
		return
	}
	review, err := s.app.CreateReview(r.Context(), domain.Review{
		BookID:     req.BookID,
		UserID:     req.UserID,
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
		Public:     req.Public,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Review created successfully",
		"review":  review,
	})
}

// GET /reviews, optionally filtered with ?book_id=N.
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	var bookID int64
	if raw := r.URL.Query().Get("book_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "REQUEST_INVALID", "invalid book_id")
			return
		}
		bookID = parsed
	}
	reviews, err := s.app.ListReviews(bookID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// writeAppError maps app sentinels onto the wire contract. The machine
// code rides on the sentinel, never on the message text.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrBookExists):
		writeError(w, http.StatusBadRequest, "BOOK_ALREADY_EXISTS", "Book already exists in the database")
	case errors.Is(err, app.ErrUserExists):
		writeError(w, http.StatusBadRequest, "USER_ALREADY_EXISTS", "User with this Telegram ID already exists")
	case errors.Is(err, app.ErrBookNotFound):
		writeError(w, http.StatusNotFound, "BOOK_NOT_FOUND", "Book not found")
	case errors.Is(err, app.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found")
	case errors.Is(err, app.ErrUserBanned):
		writeError(w, http.StatusForbidden, "USER_BANNED", "User is banned")
	case errors.Is(err, app.ErrInvalidRating):
		writeError(w, http.StatusBadRequest, "REVIEW_INVALID_RATING", "Rating must be between 1 and 5")
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, "SYSTEM_INTERNAL_ERROR", "internal error")
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "SYSTEM_METHOD_NOT_ALLOWED", "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{
		Error:     msg,
		Code:      code,
		RequestID: strings.TrimSpace(w.Header().Get("X-Request-Id")),
	})
}
