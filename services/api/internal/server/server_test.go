package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bookreview/pkg/domain"
	"bookreview/pkg/store"
	"bookreview/services/api/internal/app"
)

type fakeCatalog struct{}

func (fakeCatalog) FetchVolume(_ context.Context, id string) (domain.BookMetadata, error) {
	if id != "gb-dune" {
		return domain.BookMetadata{}, errors.New("volume not found")
	}
	return domain.BookMetadata{
		Title:        "Dune",
		Author:       "Frank Herbert",
		GoogleBookID: "gb-dune",
		ISBN:         "9780441013593",
	}, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	appCore, err := app.New(app.Config{Store: mem, Catalog: fakeCatalog{}})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	srv, err := New(Config{App: appCore})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, mem
}

func postJSON(t *testing.T, url string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCreateBookEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/books/", `{"google_book_id":"gb-dune"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first create status = %d, want 200", resp.StatusCode)
	}
	var book domain.Book
	decodeBody(t, resp, &book)
	if book.ID == 0 || book.Title != "Dune" {
		t.Fatalf("unexpected book: %+v", book)
	}

	resp = postJSON(t, ts.URL+"/api/books/", `{"google_book_id":"gb-dune"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate create status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, ts.URL+"/api/books/", `{"google_book_id":"gb-missing"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown volume status = %d, want 404", resp.StatusCode)
	}
}

func TestGetBookEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	postJSON(t, ts.URL+"/api/books/", `{"google_book_id":"gb-dune"}`).Body.Close()

	resp, err := http.Get(ts.URL + "/books/gb-dune")
	if err != nil {
		t.Fatalf("get book: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var book domain.Book
	decodeBody(t, resp, &book)
	if book.GoogleBookID != "gb-dune" {
		t.Fatalf("unexpected book: %+v", book)
	}

	resp, err = http.Get(ts.URL + "/books/gb-other")
	if err != nil {
		t.Fatalf("get missing book: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing book status = %d, want 404", resp.StatusCode)
	}
}

func TestUserEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/users/", `{"telegram_id":42}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create user status = %d, want 201", resp.StatusCode)
	}
	var user domain.User
	decodeBody(t, resp, &user)
	if user.TelegramID != 42 || user.Banned {
		t.Fatalf("unexpected user: %+v", user)
	}

	resp = postJSON(t, ts.URL+"/api/users/", `{"telegram_id":42}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate user status = %d, want 400", resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/api/users/42")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get user status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/users/777")
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing user status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateReviewEndpoint(t *testing.T) {
	ts, mem := newTestServer(t)
	postJSON(t, ts.URL+"/api/books/", `{"google_book_id":"gb-dune"}`).Body.Close()
	postJSON(t, ts.URL+"/api/users/", `{"telegram_id":42}`).Body.Close()

	body := `{"book_id":1,"user_id":1,"rating":4,"review_text":"Great book","public":true}`
	resp := postJSON(t, ts.URL+"/api/review/", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create review status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		Message string        `json:"message"`
		Review  domain.Review `json:"review"`
	}
	decodeBody(t, resp, &created)
	if created.Review.Rating != 4 || created.Review.ReviewText != "Great book" {
		t.Fatalf("unexpected review: %+v", created.Review)
	}

	cases := []struct {
		name string
		body string
		want int
	}{
		{"missing book", `{"book_id":99,"user_id":1,"rating":4}`, http.StatusNotFound},
		{"missing user", `{"book_id":1,"user_id":99,"rating":4}`, http.StatusNotFound},
		{"rating too low", `{"book_id":1,"user_id":1,"rating":0}`, http.StatusBadRequest},
		{"rating too high", `{"book_id":1,"user_id":1,"rating":6}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		resp := postJSON(t, ts.URL+"/api/review/", tc.body)
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status = %d, want %d", tc.name, resp.StatusCode, tc.want)
		}
	}

	mem.SetBanned(42, true)
	resp = postJSON(t, ts.URL+"/api/review/", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("banned user status = %d, want 403", resp.StatusCode)
	}
}

// The bot's conflict detection keys on the machine code, so each
// rejection must carry the code for its exact cause.
func TestErrorEnvelopeCodes(t *testing.T) {
	ts, mem := newTestServer(t)
	postJSON(t, ts.URL+"/api/books/", `{"google_book_id":"gb-dune"}`).Body.Close()
	postJSON(t, ts.URL+"/api/users/", `{"telegram_id":42}`).Body.Close()
	mem.SetBanned(42, true)

	cases := []struct {
		name string
		path string
		body string
		want string
	}{
		{"duplicate book", "/api/books/", `{"google_book_id":"gb-dune"}`, "BOOK_ALREADY_EXISTS"},
		{"duplicate user", "/api/users/", `{"telegram_id":42}`, "USER_ALREADY_EXISTS"},
		{"missing book", "/api/review/", `{"book_id":99,"user_id":1,"rating":4}`, "BOOK_NOT_FOUND"},
		{"missing user", "/api/review/", `{"book_id":1,"user_id":99,"rating":4}`, "USER_NOT_FOUND"},
		{"invalid rating", "/api/review/", `{"book_id":1,"user_id":1,"rating":0}`, "REVIEW_INVALID_RATING"},
		{"banned user", "/api/review/", `{"book_id":1,"user_id":1,"rating":4}`, "USER_BANNED"},
		{"bad payload", "/api/review/", `not json`, "REQUEST_INVALID"},
	}
	for _, tc := range cases {
		resp := postJSON(t, ts.URL+tc.path, tc.body)
		var envelope struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		decodeBody(t, resp, &envelope)
		if envelope.Code != tc.want {
			t.Fatalf("%s: code = %q, want %q", tc.name, envelope.Code, tc.want)
		}
		if envelope.Error == "" {
			t.Fatalf("%s: empty error message", tc.name)
		}
	}
}

func TestListReviewsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	postJSON(t, ts.URL+"/api/books/", `{"google_book_id":"gb-dune"}`).Body.Close()
	postJSON(t, ts.URL+"/api/users/", `{"telegram_id":42}`).Body.Close()
	for i := 1; i <= 2; i++ {
		resp := postJSON(t, ts.URL+"/api/review/", fmt.Sprintf(`{"book_id":1,"user_id":1,"rating":%d,"public":true}`, i))
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed review %d: status %d", i, resp.StatusCode)
		}
	}

	resp, err := http.Get(ts.URL + "/reviews")
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	var reviews []domain.Review
	decodeBody(t, resp, &reviews)
	if len(reviews) != 2 {
		t.Fatalf("review count = %d, want 2", len(reviews))
	}
	if reviews[0].ID > reviews[1].ID {
		t.Fatalf("expected storage order, got %+v", reviews)
	}

	resp, err = http.Get(ts.URL + "/reviews?book_id=999")
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	decodeBody(t, resp, &reviews)
	if len(reviews) != 0 {
		t.Fatalf("filtered count = %d, want 0", len(reviews))
	}
}
