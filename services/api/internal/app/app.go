package app

import (
	"context"
	"errors"
	"fmt"

	"bookreview/internal/util"
	"bookreview/pkg/domain"
	"bookreview/pkg/queue"
	"bookreview/pkg/store"
)

// Catalog resolves volume metadata from the external book catalog.
type Catalog interface {
	FetchVolume(ctx context.Context, googleBookID string) (domain.BookMetadata, error)
}

// Config holds dependencies for the core application.
type Config struct {
	Store     store.Store
	Catalog   Catalog
	Publisher queue.Publisher
}

// App is the core application service wiring storage, the catalog
// client, and the event publisher together.
type App struct {
	store     store.Store
	catalog   Catalog
	publisher queue.Publisher
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog client required")
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = queue.NopPublisher{}
	}
	return &App{store: cfg.Store, catalog: cfg.Catalog, publisher: publisher}, nil
}

// CreateBook resolves metadata for the volume and inserts a book row.
// The duplicate check is a read before the insert, so two concurrent
// calls for the same volume can both pass it; the schema does not
// enforce uniqueness either.
func (a *App) CreateBook(ctx context.Context, googleBookID string) (domain.Book, error) {
	meta, err := a.catalog.FetchVolume(ctx, googleBookID)
	if err != nil {
		return domain.Book{}, fmt.Errorf("%w: %v", ErrBookNotFound, err)
	}

	if _, exists, err := a.store.GetBookByGoogleID(googleBookID); err != nil {
		return domain.Book{}, fmt.Errorf("check existing book: %w", err)
	} else if exists {
		return domain.Book{}, ErrBookExists
	}

	book, err := a.store.CreateBook(domain.Book{
		Title:         meta.Title,
		Author:        meta.Author,
		Genre:         meta.Genre,
		PublishedDate: meta.PublishedDate,
		GoogleBookID:  meta.GoogleBookID,
		ISBN:          meta.ISBN,
	})
	if err != nil {
		return domain.Book{}, fmt.Errorf("create book: %w", err)
	}
	return book, nil
}

// GetBookByGoogleID returns a book by its catalog-provider ID.
func (a *App) GetBookByGoogleID(googleBookID string) (domain.Book, error) {
	book, ok, err := a.store.GetBookByGoogleID(googleBookID)
	if err != nil {
		return domain.Book{}, err
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// CreateUser inserts a user row for a chat-platform ID.
func (a *App) CreateUser(telegramID int64) (domain.User, error) {
	if _, exists, err := a.store.GetUserByTelegramID(telegramID); err != nil {
		return domain.User{}, fmt.Errorf("check existing user: %w", err)
	} else if exists {
		return domain.User{}, ErrUserExists
	}
	user, err := a.store.CreateUser(domain.User{TelegramID: telegramID})
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUserByTelegramID returns a user by chat-platform ID.
func (a *App) GetUserByTelegramID(telegramID int64) (domain.User, error) {
	user, ok, err := a.store.GetUserByTelegramID(telegramID)
	if err != nil {
		return domain.User{}, err
	}
	if !ok {
		return domain.User{}, ErrUserNotFound
	}
	return user, nil
}

// CreateReview validates the rating and referenced rows, rejects banned
// users, inserts the review, and emits a review.created event. The event
// is best-effort: a publish failure is logged and the insert stands.
func (a *App) CreateReview(ctx context.Context, review domain.Review) (domain.Review, error) {
	if !domain.ValidRating(review.Rating) {
		return domain.Review{}, ErrInvalidRating
	}
	if _, ok, err := a.store.GetBookByID(review.BookID); err != nil {
		return domain.Review{}, fmt.Errorf("check book: %w", err)
	} else if !ok {
		return domain.Review{}, ErrBookNotFound
	}
	user, ok, err := a.store.GetUserByID(review.UserID)
	if err != nil {
		return domain.Review{}, fmt.Errorf("check user: %w", err)
	}
	if !ok {
		return domain.Review{}, ErrUserNotFound
	}
	if user.Banned {
		return domain.Review{}, ErrUserBanned
	}

	created, err := a.store.CreateReview(review)
	if err != nil {
		return domain.Review{}, fmt.Errorf("create review: %w", err)
	}
	if err := a.publisher.PublishReviewCreated(ctx, created); err != nil {
		util.LoggerFromContext(ctx).Warn("publish review.created failed", "review_id", created.ID, "err", err)
	}
	return created, nil
}

// ListReviews returns reviews in storage order, optionally filtered to
// one book when bookID > 0.
func (a *App) ListReviews(bookID int64) ([]domain.Review, error) {
	if bookID > 0 {
		return a.store.ListReviewsByBook(bookID)
	}
	return a.store.ListReviews()
}
