package notifier

import "context"

// Message is one outbound chat notification, already formatted as
// Telegram HTML.
type Message struct {
	ChatID int64
	// TopicID targets a forum topic inside the chat; zero sends to the
	// chat root.
	TopicID int
	Text    string
	// Silent delivers without a client-side notification sound.
	Silent bool
}

// Notifier delivers messages to a chat destination.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
