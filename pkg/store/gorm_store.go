package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bookreview/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&BookModel{}, &UserModel{}, &ReviewModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// CreateBook inserts a book row and returns it with the assigned ID.
func (s *GormStore) CreateBook(b domain.Book) (domain.Book, error) {
	model := bookToModel(b)
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Book{}, fmt.Errorf("insert book: %w", err)
	}
	return bookFromModel(model), nil
}

// GetBookByGoogleID returns the first book with the given google_book_id.
func (s *GormStore) GetBookByGoogleID(googleBookID string) (domain.Book, bool, error) {
	var model BookModel
	err := s.db.Where("google_book_id = ?", googleBookID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Book{}, false, nil
	}
	if err != nil {
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// GetBookByID returns a book by primary key.
func (s *GormStore) GetBookByID(id int64) (domain.Book, bool, error) {
	var model BookModel
	err := s.db.First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Book{}, false, nil
	}
	if err != nil {
		return domain.Book{}, false, err
	}
	return bookFromModel(model), true, nil
}

// CreateUser inserts a user row and returns it with the assigned ID.
func (s *GormStore) CreateUser(u domain.User) (domain.User, error) {
	model := UserModel{TelegramID: u.TelegramID, Banned: u.Banned}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return userFromModel(model), nil
}

// GetUserByTelegramID returns the user with the given chat-platform ID.
func (s *GormStore) GetUserByTelegramID(telegramID int64) (domain.User, bool, error) {
	var model UserModel
	err := s.db.Where("telegram_id = ?", telegramID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by primary key.
func (s *GormStore) GetUserByID(id int64) (domain.User, bool, error) {
	var model UserModel
	err := s.db.First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// CreateReview inserts a review row and returns it with the assigned ID.
func (s *GormStore) CreateReview(r domain.Review) (domain.Review, error) {
	model := ReviewModel{
		BookID:     r.BookID,
		UserID:     r.UserID,
		Rating:     r.Rating,
		ReviewText: r.ReviewText,
		Public:     r.Public,
	}
	if err := s.db.Create(&model).Error; err != nil {
		return domain.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return reviewFromModel(model), nil
}

// ListReviews returns all reviews in storage order.
func (s *GormStore) ListReviews() ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return reviewsFromModels(models), nil
}

// ListReviewsByBook returns reviews for one book in storage order.
func (s *GormStore) ListReviewsByBook(bookID int64) ([]domain.Review, error) {
	var models []ReviewModel
	if err := s.db.Where("book_id = ?", bookID).Order("id").Find(&models).Error; err != nil {
		return nil, err
	}
	return reviewsFromModels(models), nil
}

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		Title:         b.Title,
		Author:        b.Author,
		Genre:         b.Genre,
		PublishedDate: b.PublishedDate,
		ISBN:          isbnToColumn(b.ISBN),
		GoogleBookID:  b.GoogleBookID,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:            m.ID,
		Title:         m.Title,
		Author:        m.Author,
		Genre:         m.Genre,
		PublishedDate: m.PublishedDate,
		ISBN:          isbnFromColumn(m.ISBN),
		GoogleBookID:  m.GoogleBookID,
	}
}

// isbnToColumn stores the Unknown sentinel as NULL so that books
// without an ISBN_13 never collide on the unique index.
func isbnToColumn(isbn string) *string {
	if isbn == "" || isbn == domain.ISBNUnknown {
		return nil
	}
	return &isbn
}

func isbnFromColumn(isbn *string) string {
	if isbn == nil {
		return domain.ISBNUnknown
	}
	return *isbn
}

func userFromModel(m UserModel) domain.User {
	return domain.User{ID: m.ID, TelegramID: m.TelegramID, Banned: m.Banned}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{
		ID:         m.ID,
		BookID:     m.BookID,
		UserID:     m.UserID,
		Rating:     m.Rating,
		ReviewText: m.ReviewText,
		Public:     m.Public,
	}
}

func reviewsFromModels(models []ReviewModel) []domain.Review {
	out := make([]domain.Review, 0, len(models))
	for _, m := range models {
		out = append(out, reviewFromModel(m))
	}
	return out
}
