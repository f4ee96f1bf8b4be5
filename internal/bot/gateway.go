package bot

import "context"

// EventKind classifies an inbound chat update.
type EventKind string

const (
	EventText     EventKind = "text"
	EventContact  EventKind = "contact"
	EventPhoto    EventKind = "photo"
	EventDocument EventKind = "document"
	EventCallback EventKind = "callback"
)

// Event is one inbound update, normalized away from the transport types so
// the dispatch and flow logic can be exercised without a live chat API.
type Event struct {
	Kind      EventKind
	Principal int64
	ChatID    int64
	MessageID int
	Username  string

	// Text carries the message text, or for callbacks the text of the
	// message the pressed button was attached to.
	Text string
	// Phone is set for contact-share events.
	Phone string
	// FileID is set for photo and document events.
	FileID string
	// Data is the opaque button payload for callback events.
	Data string
}

// Button is one inline action button: a visible label plus the payload
// routed back as callback data.
type Button struct {
	Label string
	Data  string
}

// Gateway is the outbound side of the chat transport. Implementations
// render messages; callers never see transport types.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) error
	// SendTextWithButtons returns the sent message id so the message can be
	// edited later (pagination, moderation annotation).
	SendTextWithButtons(ctx context.Context, chatID int64, text string, buttons [][]Button) (int, error)
	SendTextWithMenu(ctx context.Context, chatID int64, text string, menu [][]string) error
	RequestContact(ctx context.Context, chatID int64, text, buttonLabel string) error
	SendPhoto(ctx context.Context, chatID int64, fileID, caption string) error
	SendDocument(ctx context.Context, chatID int64, fileID, caption string) error
	EditText(ctx context.Context, chatID int64, messageID int, text string) error
	EditTextWithButtons(ctx context.Context, chatID int64, messageID int, text string, buttons [][]Button) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
