package bot

import (
	"context"
	"strings"
	"time"

	"bookshop-bot/internal/card"
	"bookshop-bot/internal/catalog"
	"bookshop-bot/internal/order"
	"bookshop-bot/internal/session"
	"bookshop-bot/internal/store"
	"bookshop-bot/internal/util"

	"go.uber.org/zap"
)

// Bot routes inbound chat events to the conversation flows. One instance
// serves every chat; per-principal state lives in the session manager.
type Bot struct {
	gateway    Gateway
	records    *store.Records
	catalog    *catalog.Manager
	cards      *card.Registry
	sessions   *session.Manager
	orders     *order.Workflow
	isOperator func(int64) bool
	logger     *zap.Logger
}

func New(gateway Gateway, records *store.Records, cat *catalog.Manager, cards *card.Registry, sessions *session.Manager, orders *order.Workflow, isOperator func(int64) bool) *Bot {
	return &Bot{
		gateway:    gateway,
		records:    records,
		catalog:    cat,
		cards:      cards,
		sessions:   sessions,
		orders:     orders,
		isOperator: isOperator,
		logger:     util.GetLogger(),
	}
}

// Dispatch handles one inbound event. Safe for concurrent calls with
// distinct principals; events from one principal are expected in order.
func (b *Bot) Dispatch(ctx context.Context, ev Event) {
	started := time.Now()
	util.UpdatesHandledTotal.WithLabelValues(string(ev.Kind)).Inc()
	defer func() {
		util.DispatchLatency.WithLabelValues(string(ev.Kind)).Observe(time.Since(started).Seconds())
	}()

	if ev.Kind == EventCallback {
		b.handleCallback(ctx, ev)
		return
	}

	if ev.Kind == EventText {
		switch {
		case ev.Text == "/start":
			b.handleStart(ctx, ev)
			return
		case ev.Text == "/cancel" || ev.Text == MenuCancel:
			b.handleCancel(ctx, ev)
			return
		case isBuyerMenuLabel(ev.Text) || (b.isOperator(ev.Principal) && isAdminMenuLabel(ev.Text)):
			b.handleMenu(ctx, ev)
			return
		}
	}

	// Not an entry point: feed it to the active flow, if any.
	if s, ok := b.sessions.Get(ev.Principal); ok {
		b.handleStep(ctx, ev, s)
		return
	}

	b.sendRoleMenu(ctx, ev, "Choose an action from the menu, or send /start.")
}

// handleMenu covers the persistent-keyboard entry points. Entering any
// flow from here abandons whatever flow was active.
func (b *Bot) handleMenu(ctx context.Context, ev Event) {
	admin := b.isOperator(ev.Principal)

	switch ev.Text {
	case MenuBooks:
		b.showBooks(ctx, ev, admin)
	case MenuPlaceOrder:
		b.startCheckout(ctx, ev)
	case MenuMyOrders:
		b.showMyOrders(ctx, ev)
	case MenuEditProfile:
		b.startProfileEdit(ctx, ev)
	case MenuAbout:
		b.send(ctx, ev.ChatID, aboutText)
	case MenuStats:
		if admin {
			b.showStats(ctx, ev)
		}
	case MenuOrders:
		if admin {
			b.showOrdersConsole(ctx, ev)
		}
	case MenuAddBook:
		if admin {
			b.startBookAdd(ctx, ev)
		}
	case MenuBookList:
		if admin {
			b.showBooks(ctx, ev, true)
		}
	case MenuUsers:
		if admin {
			b.showUsers(ctx, ev)
		}
	case MenuCardSettings:
		if admin {
			b.showCardSettings(ctx, ev)
		}
	}
}

func (b *Bot) handleStart(ctx context.Context, ev Event) {
	b.sessions.End(ev.Principal)

	if b.isOperator(ev.Principal) {
		b.sendMenu(ctx, ev.ChatID, "👋 Welcome back, admin.", adminMenu())
		return
	}

	user, ok, err := b.records.User(ctx, ev.Principal)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	if ok && user.Registered() {
		b.sendMenu(ctx, ev.ChatID, "👋 Welcome back, "+user.Name+"!", buyerMenu())
		return
	}

	b.startRegistration(ctx, ev)
}

func (b *Bot) handleCancel(ctx context.Context, ev Event) {
	b.sessions.End(ev.Principal)
	b.sendRoleMenu(ctx, ev, "Cancelled.")
}

// handleStep routes a non-entry-point event into the principal's active
// flow by its tag.
func (b *Bot) handleStep(ctx context.Context, ev Event, s *session.Session) {
	switch s.Flow {
	case session.FlowRegistration:
		b.stepRegistration(ctx, ev, s)
	case session.FlowCheckout:
		b.stepCheckout(ctx, ev, s)
	case session.FlowProfileEdit:
		b.stepProfileEdit(ctx, ev, s)
	case session.FlowBookAdd, session.FlowBookEdit:
		if b.isOperator(ev.Principal) {
			b.stepBook(ctx, ev, s)
		}
	case session.FlowCardEdit:
		if b.isOperator(ev.Principal) {
			b.stepCard(ctx, ev, s)
		}
	default:
		b.sessions.End(ev.Principal)
	}
}

// handleCallback routes a button press by its payload prefix. Moderation
// and catalog-admin payloads are operator-only regardless of who manages
// to press the button.
func (b *Bot) handleCallback(ctx context.Context, ev Event) {
	data := ev.Data
	admin := b.isOperator(ev.Principal)

	switch {
	case strings.HasPrefix(data, "book_"):
		b.selectBook(ctx, ev, strings.TrimPrefix(data, "book_"))
	case strings.HasPrefix(data, "payment_"):
		b.selectPayment(ctx, ev, strings.TrimPrefix(data, "payment_"))
	case data == "page_prev" || data == "page_next" || data == "page_info":
		b.turnPage(ctx, ev, data)
	case data == "page_close":
		b.closePager(ctx, ev)
	case data == "finish_order":
		b.finishOrder(ctx, ev)
	case data == "leave_feedback":
		b.promptFeedback(ctx, ev)
	case strings.HasPrefix(data, "approve_") && admin:
		b.moderate(ctx, ev, strings.TrimPrefix(data, "approve_"), true)
	case strings.HasPrefix(data, "reject_") && admin:
		b.moderate(ctx, ev, strings.TrimPrefix(data, "reject_"), false)
	case strings.HasPrefix(data, "view_receipt_") && admin:
		b.viewReceipt(ctx, ev, strings.TrimPrefix(data, "view_receipt_"))
	case strings.HasPrefix(data, "orders_") && admin:
		b.listOrders(ctx, ev, strings.TrimPrefix(data, "orders_"))
	case strings.HasPrefix(data, "editbook_") && admin:
		b.startBookEdit(ctx, ev, strings.TrimPrefix(data, "editbook_"))
	case strings.HasPrefix(data, "deletebook_") && admin:
		b.deleteBook(ctx, ev, strings.TrimPrefix(data, "deletebook_"))
	case data == "edit_card" && admin:
		b.startCardEdit(ctx, ev)
	case data == "back_admin" && admin:
		b.sendMenu(ctx, ev.ChatID, "Admin menu:", adminMenu())
	default:
		b.logger.Debug("Unrouted callback payload", zap.String("data", data), zap.Int64("user_id", ev.Principal))
	}
}

func (b *Bot) sendRoleMenu(ctx context.Context, ev Event, text string) {
	if b.isOperator(ev.Principal) {
		b.sendMenu(ctx, ev.ChatID, text, adminMenu())
		return
	}
	b.sendMenu(ctx, ev.ChatID, text, buyerMenu())
}

func (b *Bot) send(ctx context.Context, chatID int64, text string) {
	if err := b.gateway.SendText(ctx, chatID, text); err != nil {
		b.logger.Warn("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendMenu(ctx context.Context, chatID int64, text string, menu [][]string) {
	if err := b.gateway.SendTextWithMenu(ctx, chatID, text, menu); err != nil {
		b.logger.Warn("Failed to send menu", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendButtons(ctx context.Context, chatID int64, text string, buttons [][]Button) {
	if _, err := b.gateway.SendTextWithButtons(ctx, chatID, text, buttons); err != nil {
		b.logger.Warn("Failed to send message with buttons", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) reportError(ctx context.Context, ev Event, err error) {
	b.logger.Error("Handler failed",
		zap.Int64("user_id", ev.Principal),
		zap.String("kind", string(ev.Kind)),
		zap.Error(err))
	b.send(ctx, ev.ChatID, "⚠️ Something went wrong, please try again.")
}
