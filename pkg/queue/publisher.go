// Package queue publishes review lifecycle events for out-of-band
// consumers, such as the moderation process that manages user bans.
package queue

import (
	"context"

	"bookreview/pkg/domain"
)

// Publisher emits a review.created event after a review is inserted.
// Publishing is best-effort: the review is already committed when the
// event goes out, and a publish failure never rolls it back.
type Publisher interface {
	PublishReviewCreated(ctx context.Context, review domain.Review) error
	Close() error
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReviewCreated(context.Context, domain.Review) error { return nil }
func (NopPublisher) Close() error                                              { return nil }
