// Package bot drives the review conversation over Telegram.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"bookreview/pkg/domain"
	"bookreview/services/bot/internal/apiclient"
	"bookreview/services/bot/internal/session"
)

// Callback data prefixes. The wire format is fixed: persisted keyboards
// keep working across deploys.
const (
	callbackSelectBook  = "book_"
	callbackAddReview   = "review_"
	callbackShowReviews = "showR_"
	callbackRate        = "rate_"
)

// User-facing copy.
const (
	msgWelcome       = "Welcome! Send me a book title or an author name and I will find books for you."
	msgNoResults     = "Sorry, I could not find any books matching your query."
	msgChooseBook    = "Choose a book to review:"
	msgRatePrompt    = "Rate the book from 1 to 5:"
	msgReviewPrompt  = "You can now leave a review for this book. Send me your text."
	msgReviewSaved   = "Your review has been saved!"
	msgGenericError  = "Something went wrong. Please try again."
	msgBookGone      = "Sorry, the selected book is not available."
	msgNoReviews     = "No reviews for this book yet."
	msgUnknownAction = "Unknown command."
	msgStaleAction   = "That action is not available right now. Send a book title to start a new search."
)

// Sender is the slice of the Telegram API the bot uses. *tgbotapi.BotAPI
// satisfies it; tests substitute a fake.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Catalog searches the external book catalog.
type Catalog interface {
	Search(ctx context.Context, query string) ([]domain.Candidate, error)
}

// ReviewAPI is the persistence API surface the bot depends on.
// *apiclient.Client satisfies it.
type ReviewAPI interface {
	GetBookByGoogleID(googleBookID string) (domain.Book, error)
	CreateBook(googleBookID string) (domain.Book, error)
	GetUserByTelegramID(telegramID int64) (domain.User, error)
	CreateUser(telegramID int64) (domain.User, error)
	CreateReview(review domain.Review) (domain.Review, error)
	ListReviewsByBook(bookID int64) ([]domain.Review, error)
}

// Config wires required dependencies for the bot.
type Config struct {
	Sender   Sender
	Sessions session.Store
	API      ReviewAPI
	Catalog  Catalog
}

// Bot routes incoming Telegram updates through the conversation state
// machine and the persistence API.
type Bot struct {
	sender   Sender
	sessions session.Store
	api      ReviewAPI
	catalog  Catalog
}

// New constructs the bot.
func New(cfg Config) (*Bot, error) {
	if cfg.Sender == nil {
		return nil, errors.New("sender required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store required")
	}
	if cfg.API == nil {
		return nil, errors.New("review api client required")
	}
	if cfg.Catalog == nil {
		return nil, errors.New("catalog client required")
	}
	return &Bot{
		sender:   cfg.Sender,
		sessions: cfg.Sessions,
		api:      cfg.API,
		catalog:  cfg.Catalog,
	}, nil
}

// HandleUpdate processes one update to completion. The caller is
// expected to feed updates for a chat sequentially.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.Chat != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil && update.CallbackQuery.Message.Chat != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.IsCommand() {
		if msg.Command() == "start" {
			b.reply(chatID, msgWelcome)
		} else {
			b.reply(chatID, msgUnknownAction)
		}
		return
	}

	sess := b.getSession(ctx, chatID)
	if sess.State == session.StateAwaitingReviewText {
		b.submitReview(ctx, sess, msg)
		return
	}
	b.search(ctx, sess, msg.Text)
}

func (b *Bot) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) {
	// Acknowledge the button press so the client stops its spinner.
	if _, err := b.sender.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		slog.Warn("answer callback failed", "err", err)
	}

	chatID := q.Message.Chat.ID
	sess := b.getSession(ctx, chatID)

	data := q.Data
	switch {
	case strings.HasPrefix(data, callbackSelectBook):
		b.selectBook(ctx, sess, indexFrom(data, callbackSelectBook))
	case strings.HasPrefix(data, callbackAddReview):
		b.startReview(ctx, sess, indexFrom(data, callbackAddReview))
	case strings.HasPrefix(data, callbackShowReviews):
		b.showReviews(ctx, sess, indexFrom(data, callbackShowReviews))
	case strings.HasPrefix(data, callbackRate):
		b.applyRating(ctx, sess, indexFrom(data, callbackRate))
	default:
		b.reply(chatID, msgUnknownAction)
	}
}

// search runs the fallback edge: free text in any non-review-text state
// is a new query and abandons whatever was in flight.
func (b *Bot) search(ctx context.Context, sess session.Session, query string) {
	candidates, err := b.catalog.Search(ctx, query)
	if err != nil {
		slog.Error("catalog search failed", "chat_id", sess.ChatID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}
	if len(candidates) == 0 {
		// Reset rather than leave a half-finished flow behind a failed
		// search.
		fresh := session.New(sess.ChatID)
		if err := b.sessions.Save(ctx, fresh); err != nil {
			slog.Error("save session failed", "chat_id", sess.ChatID, "err", err)
		}
		b.reply(sess.ChatID, msgNoResults)
		return
	}

	next, _ := session.Transition(sess.State, session.EventSearch)
	sess.State = next
	sess.Candidates = candidates
	sess.SelectedGoogleID = ""
	sess.PendingRating = 0
	if err := b.sessions.Save(ctx, sess); err != nil {
		slog.Error("save session failed", "chat_id", sess.ChatID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}

	var text strings.Builder
	text.WriteString(msgChooseBook)
	text.WriteString("\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&text, "%d. %s - %s\n\n", i+1, c.Title, c.Authors)
	}
	b.replyWithKeyboard(sess.ChatID, text.String(), candidateKeyboard(len(candidates)))
}

func (b *Bot) selectBook(ctx context.Context, sess session.Session, index int) {
	next, ok := session.Transition(sess.State, session.EventSelectBook)
	if !ok {
		b.reply(sess.ChatID, msgStaleAction)
		return
	}
	candidate, ok := sess.Candidate(index)
	if !ok {
		b.reply(sess.ChatID, msgBookGone)
		return
	}

	sess.State = next
	sess.SelectedGoogleID = candidate.GoogleBookID
	if err := b.sessions.Save(ctx, sess); err != nil {
		slog.Error("save session failed", "chat_id", sess.ChatID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add review", callbackAddReview+strconv.Itoa(index)),
			tgbotapi.NewInlineKeyboardButtonData("View reviews", callbackShowReviews+strconv.Itoa(index)),
		),
	)
	text := fmt.Sprintf("You selected: %s - %s\nWhat would you like to do?", candidate.Title, candidate.Authors)
	b.replyWithKeyboard(sess.ChatID, text, keyboard)
}

func (b *Bot) startReview(ctx context.Context, sess session.Session, index int) {
	next, ok := session.Transition(sess.State, session.EventAddReview)
	if !ok {
		b.reply(sess.ChatID, msgStaleAction)
		return
	}
	candidate, ok := sess.Candidate(index)
	if !ok {
		b.reply(sess.ChatID, msgBookGone)
		return
	}

	sess.State = next
	sess.SelectedGoogleID = candidate.GoogleBookID
	if err := b.sessions.Save(ctx, sess); err != nil {
		slog.Error("save session failed", "chat_id", sess.ChatID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}

	row := make([]tgbotapi.InlineKeyboardButton, 0, domain.MaxRating)
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(r), callbackRate+strconv.Itoa(r)))
	}
	b.replyWithKeyboard(sess.ChatID, msgRatePrompt, tgbotapi.NewInlineKeyboardMarkup(row))
}

func (b *Bot) applyRating(ctx context.Context, sess session.Session, rating int) {
	next, ok := session.Transition(sess.State, session.EventRate)
	if !ok {
		b.reply(sess.ChatID, msgStaleAction)
		return
	}
	if !domain.ValidRating(rating) {
		b.reply(sess.ChatID, msgUnknownAction)
		return
	}

	sess.State = next
	sess.PendingRating = rating
	if err := b.sessions.Save(ctx, sess); err != nil {
		slog.Error("save session failed", "chat_id", sess.ChatID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}
	b.reply(sess.ChatID, msgReviewPrompt)
}

// showReviews renders stored reviews for the selected candidate. A book
// that was never persisted has no reviews by definition.
func (b *Bot) showReviews(_ context.Context, sess session.Session, index int) {
	if _, ok := session.Transition(sess.State, session.EventViewReviews); !ok {
		b.reply(sess.ChatID, msgStaleAction)
		return
	}
	candidate, ok := sess.Candidate(index)
	if !ok {
		b.reply(sess.ChatID, msgBookGone)
		return
	}

	book, err := b.api.GetBookByGoogleID(candidate.GoogleBookID)
	if apiclient.IsNotFound(err) {
		b.reply(sess.ChatID, msgNoReviews)
		return
	}
	if err != nil {
		slog.Error("fetch book for reviews failed", "chat_id", sess.ChatID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}
	reviews, err := b.api.ListReviewsByBook(book.ID)
	if err != nil {
		slog.Error("list reviews failed", "chat_id", sess.ChatID, "book_id", book.ID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}
	if len(reviews) == 0 {
		b.reply(sess.ChatID, msgNoReviews)
		return
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Reviews for %s:\n\n", book.Title)
	for _, review := range reviews {
		fmt.Fprintf(&text, "\u2022 %d/5", review.Rating)
		if review.ReviewText != "" {
			fmt.Fprintf(&text, " — %s", review.ReviewText)
		}
		text.WriteString("\n\n")
	}
	b.reply(sess.ChatID, strings.TrimRight(text.String(), "\n"))
}

// submitReview resolves the Book and User records (creating either on
// first contact, fetching on a lost create race) and stores the review.
// Creates are independently committed: a Book created here stays even
// when the review itself is rejected.
func (b *Bot) submitReview(ctx context.Context, sess session.Session, msg *tgbotapi.Message) {
	if sess.SelectedGoogleID == "" || sess.PendingRating == 0 || msg.From == nil {
		b.reply(sess.ChatID, msgGenericError)
		return
	}

	book, err := b.ensureBook(sess.SelectedGoogleID)
	if err != nil {
		slog.Error("resolve book failed", "chat_id", sess.ChatID, "google_book_id", sess.SelectedGoogleID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}
	user, err := b.ensureUser(msg.From.ID)
	if err != nil {
		slog.Error("resolve user failed", "chat_id", sess.ChatID, "telegram_id", msg.From.ID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}

	created, err := b.api.CreateReview(domain.Review{
		BookID:     book.ID,
		UserID:     user.ID,
		Rating:     sess.PendingRating,
		ReviewText: msg.Text,
		Public:     true,
	})
	if err != nil {
		// Stay in the review-text state so the user can resend; a new
		// search still abandons the attempt.
		slog.Error("create review failed", "chat_id", sess.ChatID, "book_id", book.ID, "user_id", user.ID, "err", err)
		b.reply(sess.ChatID, msgGenericError)
		return
	}

	slog.Info("review submitted", "chat_id", sess.ChatID, "review_id", created.ID, "book_id", book.ID, "rating", created.Rating)
	if err := b.sessions.Delete(ctx, sess.ChatID); err != nil {
		slog.Warn("clear session failed", "chat_id", sess.ChatID, "err", err)
	}
	b.reply(sess.ChatID, msgReviewSaved)
}

// ensureBook fetches the book, creating it on first reference. Conflict
// on create means another chat won the race; fetch what they inserted.
func (b *Bot) ensureBook(googleBookID string) (domain.Book, error) {
	book, err := b.api.GetBookByGoogleID(googleBookID)
	if err == nil {
		return book, nil
	}
	if !apiclient.IsNotFound(err) {
		return domain.Book{}, err
	}
	book, err = b.api.CreateBook(googleBookID)
	if apiclient.IsConflict(err) {
		return b.api.GetBookByGoogleID(googleBookID)
	}
	return book, err
}

// ensureUser fetches the user, creating it on first interaction.
func (b *Bot) ensureUser(telegramID int64) (domain.User, error) {
	user, err := b.api.GetUserByTelegramID(telegramID)
	if err == nil {
		return user, nil
	}
	if !apiclient.IsNotFound(err) {
		return domain.User{}, err
	}
	user, err = b.api.CreateUser(telegramID)
	if apiclient.IsConflict(err) {
		return b.api.GetUserByTelegramID(telegramID)
	}
	return user, err
}

// getSession loads the chat's session, creating an idle one lazily.
func (b *Bot) getSession(ctx context.Context, chatID int64) session.Session {
	sess, ok, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		slog.Error("load session failed", "chat_id", chatID, "err", err)
	}
	if !ok {
		return session.New(chatID)
	}
	return sess
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("send message failed", "chat_id", chatID, "err", err)
	}
}

func (b *Bot) replyWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.sender.Send(msg); err != nil {
		slog.Error("send message failed", "chat_id", chatID, "err", err)
	}
}

// candidateKeyboard lays out one numbered button per candidate, five to
// a row.
func candidateKeyboard(n int) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < n; i++ {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(i+1), callbackSelectBook+strconv.Itoa(i)))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// indexFrom parses the numeric suffix of callback data; -1 on garbage,
// which downstream bounds checks reject.
func indexFrom(data, prefix string) int {
	value, err := strconv.Atoi(strings.TrimPrefix(data, prefix))
	if err != nil {
		return -1
	}
	return value
}
