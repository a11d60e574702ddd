package apiclient

import (
	"errors"
	"testing"

	"bookreview/pkg/domain"
	"bookreview/services/bot/internal/apitest"
)

func newClient(t *testing.T) (*Client, *apitest.Server) {
	t.Helper()
	api := apitest.New(t)
	api.AddVolume(domain.BookMetadata{
		Title:        "Dune",
		Author:       "Frank Herbert",
		GoogleBookID: "gb-dune",
		ISBN:         "9780441013593",
	})
	return NewClient(api.URL()), api
}

func TestBookCreateAndFetch(t *testing.T) {
	c, _ := newClient(t)

	if _, err := c.GetBookByGoogleID("gb-dune"); !IsNotFound(err) {
		t.Fatalf("expected not-found before create, got %v", err)
	}

	created, err := c.CreateBook("gb-dune")
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	if created.ID == 0 || created.Title != "Dune" {
		t.Fatalf("unexpected book: %+v", created)
	}

	if _, err := c.CreateBook("gb-dune"); !IsConflict(err) {
		t.Fatalf("expected conflict on duplicate, got %v", err)
	}

	fetched, err := c.GetBookByGoogleID("gb-dune")
	if err != nil {
		t.Fatalf("fetch book: %v", err)
	}
	if fetched.ID != created.ID {
		t.Fatalf("fetched ID %d, want %d", fetched.ID, created.ID)
	}
}

func TestUserCreateAndFetch(t *testing.T) {
	c, _ := newClient(t)

	user, err := c.CreateUser(42)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.TelegramID != 42 {
		t.Fatalf("unexpected user: %+v", user)
	}
	if _, err := c.CreateUser(42); !IsConflict(err) {
		t.Fatalf("expected conflict on duplicate, got %v", err)
	}
	fetched, err := c.GetUserByTelegramID(42)
	if err != nil {
		t.Fatalf("fetch user: %v", err)
	}
	if fetched.ID != user.ID {
		t.Fatalf("fetched ID %d, want %d", fetched.ID, user.ID)
	}
	if _, err := c.GetUserByTelegramID(777); !IsNotFound(err) {
		t.Fatalf("expected not-found for unknown user, got %v", err)
	}
}

func TestCreateReviewAndList(t *testing.T) {
	c, api := newClient(t)
	book, _ := c.CreateBook("gb-dune")
	user, _ := c.CreateUser(42)

	review, err := c.CreateReview(domain.Review{
		BookID:     book.ID,
		UserID:     user.ID,
		Rating:     4,
		ReviewText: "Great book",
		Public:     true,
	})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	if review.ID == 0 || review.Rating != 4 {
		t.Fatalf("unexpected review: %+v", review)
	}

	reviews, err := c.ListReviewsByBook(book.ID)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 1 || reviews[0].ReviewText != "Great book" {
		t.Fatalf("unexpected reviews: %+v", reviews)
	}

	api.SetBanned(42, true)
	if _, err := c.CreateReview(domain.Review{BookID: book.ID, UserID: user.ID, Rating: 4}); !IsForbidden(err) {
		t.Fatalf("expected forbidden for banned user, got %v", err)
	}
}

func TestAPIErrorShape(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.GetBookByGoogleID("nope")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Code != "BOOK_NOT_FOUND" {
		t.Fatalf("code = %q, want BOOK_NOT_FOUND", apiErr.Code)
	}
}
