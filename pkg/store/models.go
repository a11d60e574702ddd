package store

// GORM models used for persistence.
//
// google_book_id is deliberately indexed but not unique: duplicate
// detection is a read-before-write in the app layer, so two concurrent
// creates for the same volume can both land. See the app tests.
//
// isbn is nullable: volumes without an ISBN_13 carry the "Unknown"
// sentinel on the wire, which is stored as NULL so the unique index
// only binds real ISBNs.
type BookModel struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	Title         string  `gorm:"size:255;not null"`
	Author        string  `gorm:"size:255;not null"`
	Genre         string  `gorm:"size:100"`
	PublishedDate string  `gorm:"size:10"`
	ISBN          *string `gorm:"size:20;uniqueIndex"`
	GoogleBookID  string  `gorm:"size:12;not null;index"`
}

type UserModel struct {
	ID         int64 `gorm:"primaryKey;autoIncrement"`
	TelegramID int64 `gorm:"uniqueIndex;not null"`
	Banned     bool  `gorm:"not null;default:false"`
}

type ReviewModel struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	BookID     int64     `gorm:"not null;index"`
	Book       BookModel `gorm:"constraint:OnDelete:RESTRICT"`
	UserID     int64     `gorm:"not null;index"`
	User       UserModel `gorm:"constraint:OnDelete:RESTRICT"`
	Rating     int       `gorm:"not null;check:rating BETWEEN 1 AND 5"`
	ReviewText string    `gorm:"type:text"`
	Public     bool      `gorm:"not null;default:false"`
}
