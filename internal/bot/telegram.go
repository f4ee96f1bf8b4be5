package bot

import (
	"context"

	"bookshop-bot/internal/util"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// TelegramGateway adapts the Bot API client to the Gateway interface and
// converts incoming updates into Events.
type TelegramGateway struct {
	api    *tgbotapi.BotAPI
	logger *zap.Logger
}

func NewTelegramGateway(token string) (*TelegramGateway, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = false

	logger := util.GetLogger()
	logger.Info("Telegram gateway authorized", zap.String("account", api.Self.UserName))

	return &TelegramGateway{api: api, logger: logger}, nil
}

// Run consumes long-poll updates until ctx is cancelled. Events fan out
// through per-principal workers: one principal's events are handled in
// arrival order, different principals concurrently.
func (g *TelegramGateway) Run(ctx context.Context, handle func(context.Context, Event)) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := g.api.GetUpdatesChan(u)

	workers := newFanout(handle, g.logger)
	defer workers.close()

	for {
		select {
		case <-ctx.Done():
			g.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			ev, ok := g.toEvent(update)
			if !ok {
				continue
			}
			workers.deliver(ctx, ev)
		}
	}
}

func (g *TelegramGateway) toEvent(update tgbotapi.Update) (Event, bool) {
	if q := update.CallbackQuery; q != nil {
		// Acknowledge immediately so the client stops its spinner.
		if _, err := g.api.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
			g.logger.Warn("Failed to answer callback query", zap.Error(err))
		}
		if q.Message == nil {
			return Event{}, false
		}
		return Event{
			Kind:      EventCallback,
			Principal: q.From.ID,
			ChatID:    q.Message.Chat.ID,
			MessageID: q.Message.MessageID,
			Username:  q.From.UserName,
			Text:      q.Message.Text,
			Data:      q.Data,
		}, true
	}

	m := update.Message
	if m == nil || m.From == nil {
		return Event{}, false
	}

	ev := Event{
		Kind:      EventText,
		Principal: m.From.ID,
		ChatID:    m.Chat.ID,
		MessageID: m.MessageID,
		Username:  m.From.UserName,
		Text:      m.Text,
	}
	switch {
	case m.Contact != nil:
		ev.Kind = EventContact
		ev.Phone = m.Contact.PhoneNumber
	case len(m.Photo) > 0:
		ev.Kind = EventPhoto
		ev.FileID = m.Photo[len(m.Photo)-1].FileID
	case m.Document != nil:
		ev.Kind = EventDocument
		ev.FileID = m.Document.FileID
	}
	return ev, true
}

func (g *TelegramGateway) SendText(_ context.Context, chatID int64, text string) error {
	_, err := g.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (g *TelegramGateway) SendTextWithButtons(_ context.Context, chatID int64, text string, buttons [][]Button) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = inlineMarkup(buttons)
	sent, err := g.api.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (g *TelegramGateway) SendTextWithMenu(_ context.Context, chatID int64, text string, menu [][]string) error {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(menu))
	for _, labels := range menu {
		row := make([]tgbotapi.KeyboardButton, 0, len(labels))
		for _, label := range labels {
			row = append(row, tgbotapi.NewKeyboardButton(label))
		}
		rows = append(rows, row)
	}
	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := g.api.Send(msg)
	return err
}

func (g *TelegramGateway) RequestContact(_ context.Context, chatID int64, text, buttonLabel string) error {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButtonContact(buttonLabel)),
	)
	keyboard.ResizeKeyboard = true
	keyboard.OneTimeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := g.api.Send(msg)
	return err
}

func (g *TelegramGateway) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(fileID))
	photo.Caption = caption
	_, err := g.api.Send(photo)
	return err
}

func (g *TelegramGateway) SendDocument(_ context.Context, chatID int64, fileID, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileID(fileID))
	doc.Caption = caption
	_, err := g.api.Send(doc)
	return err
}

func (g *TelegramGateway) EditText(_ context.Context, chatID int64, messageID int, text string) error {
	_, err := g.api.Send(tgbotapi.NewEditMessageText(chatID, messageID, text))
	return err
}

func (g *TelegramGateway) EditTextWithButtons(_ context.Context, chatID int64, messageID int, text string, buttons [][]Button) error {
	_, err := g.api.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, inlineMarkup(buttons)))
	return err
}

func (g *TelegramGateway) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	_, err := g.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
	return err
}

func inlineMarkup(buttons [][]Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, row := range buttons {
		out := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			out = append(out, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		rows = append(rows, out)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
