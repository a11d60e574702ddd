// Package session tracks per-chat conversational state between
// Telegram updates.
package session

import (
	"context"
	"time"

	"bookreview/pkg/domain"
)

// State is a node in the conversation state machine.
type State string

const (
	StateIdle               State = "idle"
	StateCandidatesShown    State = "candidates_shown"
	StateBookSelected       State = "book_selected"
	StateAwaitingRating     State = "awaiting_rating"
	StateAwaitingReviewText State = "awaiting_review_text"
)

// Event is an input that may move the machine to another state.
type Event string

const (
	EventSearch      Event = "search"
	EventSelectBook  Event = "select_book"
	EventAddReview   Event = "add_review"
	EventRate        Event = "rate"
	EventSubmitText  Event = "submit_text"
	EventViewReviews Event = "view_reviews"
)

// transitions is the explicit edge table. Free text in any state except
// AwaitingReviewText is a search, so EventSearch has an edge from every
// state: a new search silently abandons any in-flight review.
var transitions = map[State]map[Event]State{
	StateIdle: {
		EventSearch: StateCandidatesShown,
	},
	StateCandidatesShown: {
		EventSearch:     StateCandidatesShown,
		EventSelectBook: StateBookSelected,
	},
	StateBookSelected: {
		EventSearch:      StateCandidatesShown,
		EventSelectBook:  StateBookSelected,
		EventAddReview:   StateAwaitingRating,
		EventViewReviews: StateBookSelected,
	},
	StateAwaitingRating: {
		EventSearch: StateCandidatesShown,
		EventRate:   StateAwaitingReviewText,
	},
	StateAwaitingReviewText: {
		EventSearch:     StateCandidatesShown,
		EventSubmitText: StateIdle,
	},
}

// Transition returns the successor state for an event, or false when the
// event is not legal in the current state.
func Transition(current State, event Event) (State, bool) {
	next, ok := transitions[current][event]
	return next, ok
}

// Session is the ephemeral per-chat record. It is created lazily on
// first contact, overwritten by each new search, and cleared after a
// successful review submission or TTL expiry.
type Session struct {
	ChatID           int64              `json:"chat_id"`
	State            State              `json:"state"`
	Candidates       []domain.Candidate `json:"candidates,omitempty"`
	SelectedGoogleID string             `json:"selected_google_id,omitempty"`
	PendingRating    int                `json:"pending_rating,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// New returns an idle session for a chat.
func New(chatID int64) Session {
	return Session{ChatID: chatID, State: StateIdle, UpdatedAt: time.Now().UTC()}
}

// Candidate returns the stored candidate at index, if it exists.
func (s Session) Candidate(index int) (domain.Candidate, bool) {
	if index < 0 || index >= len(s.Candidates) {
		return domain.Candidate{}, false
	}
	return s.Candidates[index], true
}

// DefaultTTL bounds session lifetime after the last update.
const DefaultTTL = 30 * time.Minute

// Store persists sessions keyed by chat ID. Implementations expire
// sessions after their TTL.
type Store interface {
	Get(ctx context.Context, chatID int64) (Session, bool, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, chatID int64) error
}
