package store

import (
	"sync"

	"bookreview/pkg/domain"
)

// MemoryStore keeps records in-process. Used in tests and local runs
// without Postgres.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  map[string]int64
	books   []domain.Book
	users   []domain.User
	reviews []domain.Review
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: map[string]int64{}}
}

func (m *MemoryStore) assign(entity string) int64 {
	m.nextID[entity]++
	return m.nextID[entity]
}

// CreateBook appends a book with a fresh ID.
func (m *MemoryStore) CreateBook(b domain.Book) (domain.Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.assign("book")
	m.books = append(m.books, b)
	return b, nil
}

// GetBookByGoogleID returns the first book with the given google_book_id.
func (m *MemoryStore) GetBookByGoogleID(googleBookID string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.books {
		if b.GoogleBookID == googleBookID {
			return b, true, nil
		}
	}
	return domain.Book{}, false, nil
}

// GetBookByID returns a book by ID.
func (m *MemoryStore) GetBookByID(id int64) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.books {
		if b.ID == id {
			return b, true, nil
		}
	}
	return domain.Book{}, false, nil
}

// CreateUser appends a user with a fresh ID.
func (m *MemoryStore) CreateUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = m.assign("user")
	m.users = append(m.users, u)
	return u, nil
}

// GetUserByTelegramID returns the user with the given chat-platform ID.
func (m *MemoryStore) GetUserByTelegramID(telegramID int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.TelegramID == telegramID {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}

// SetBanned flips a user's banned flag. Not part of the Store interface;
// it stands in for the out-of-band admin process in tests.
func (m *MemoryStore) SetBanned(telegramID int64, banned bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].TelegramID == telegramID {
			m.users[i].Banned = banned
		}
	}
}

// CreateReview appends a review with a fresh ID.
func (m *MemoryStore) CreateReview(r domain.Review) (domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = m.assign("review")
	m.reviews = append(m.reviews, r)
	return r, nil
}

// ListReviews returns all reviews in insertion order.
func (m *MemoryStore) ListReviews() ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Review, len(m.reviews))
	copy(out, m.reviews)
	return out, nil
}

// ListReviewsByBook returns reviews for one book in insertion order.
func (m *MemoryStore) ListReviewsByBook(bookID int64) ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Review, 0)
	for _, r := range m.reviews {
		if r.BookID == bookID {
			out = append(out, r)
		}
	}
	return out, nil
}

// BookCount reports how many book rows exist. Test helper.
func (m *MemoryStore) BookCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books)
}

// ReviewCount reports how many review rows exist. Test helper.
func (m *MemoryStore) ReviewCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reviews)
}
