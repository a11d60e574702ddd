package domain

// Book is a catalog book persisted once per google_book_id.
// Records are never mutated or deleted by this system.
type Book struct {
	ID            int64  `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Genre         string `json:"genre,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	GoogleBookID  string `json:"google_book_id"`
	ISBN          string `json:"isbn,omitempty"`
}

// User is a chat-platform user. Banned users cannot author reviews;
// the banned flag itself is managed by an out-of-band admin process.
type User struct {
	ID         int64 `json:"id"`
	TelegramID int64 `json:"telegram_id"`
	Banned     bool  `json:"banned"`
}

// Review links a rating and optional free text to a Book and a User.
// A user may review the same book more than once.
type Review struct {
	ID         int64  `json:"id"`
	BookID     int64  `json:"book_id"`
	UserID     int64  `json:"user_id"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text,omitempty"`
	Public     bool   `json:"public"`
}

// Candidate is a search result from the catalog provider, before any
// local record exists for it.
type Candidate struct {
	GoogleBookID string `json:"google_book_id"`
	Title        string `json:"title"`
	Authors      string `json:"authors"`
}

// ISBNUnknown is the sentinel carried on the wire when the catalog
// provider declares no ISBN_13 for a volume.
const ISBNUnknown = "Unknown"

// BookMetadata is the normalized volume metadata resolved from the
// catalog provider when a Book record is created.
type BookMetadata struct {
	Title         string
	Author        string
	Genre         string
	PublishedDate string
	GoogleBookID  string
	ISBN          string
}

const (
	// MinRating and MaxRating bound valid review ratings.
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is an acceptable review rating.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
