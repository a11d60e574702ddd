package app

import "errors"

var (
	// ErrBookNotFound covers both a missing local row and a volume the
	// catalog provider cannot resolve.
	ErrBookNotFound  = errors.New("book not found")
	ErrBookExists    = errors.New("book already exists")
	ErrUserNotFound  = errors.New("user not found")
	ErrUserExists    = errors.New("user already exists")
	ErrUserBanned    = errors.New("user is banned")
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)
