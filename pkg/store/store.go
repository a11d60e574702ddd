package store

import "bookreview/pkg/domain"

// Store defines persistence operations for books, users, and reviews.
// Every create is a single durable insert; nothing spans entities.
type Store interface {
	// books
	CreateBook(domain.Book) (domain.Book, error)
	GetBookByGoogleID(googleBookID string) (domain.Book, bool, error)
	GetBookByID(id int64) (domain.Book, bool, error)

	// users
	CreateUser(domain.User) (domain.User, error)
	GetUserByTelegramID(telegramID int64) (domain.User, bool, error)
	GetUserByID(id int64) (domain.User, bool, error)

	// reviews
	CreateReview(domain.Review) (domain.Review, error)
	ListReviews() ([]domain.Review, error)
	ListReviewsByBook(bookID int64) ([]domain.Review, error)
}
