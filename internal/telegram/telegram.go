package telegram

import (
	"context"
)

// Member is the slice of a Telegram user the bot passes between components.
// Always built explicitly with named fields, including in test and demo
// flows that simulate a joining member.
type Member struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Button is one inline keyboard button linking out to a URL.
type Button struct {
	Text string
	URL  string
}

// Sender is the outbound surface the bot consumes. Messages are Markdown
// with web previews disabled. SendMessage returns the platform message id
// so callers can later edit or delete what they sent.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, buttons ...[]Button) (int, error)
	EditMessage(ctx context.Context, chatID int64, messageID int, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
