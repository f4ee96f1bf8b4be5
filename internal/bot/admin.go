package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"bookshop-bot/internal/catalog"
	"bookshop-bot/internal/models"
	"bookshop-bot/internal/order"
	"bookshop-bot/internal/session"
)

func (b *Bot) showStats(ctx context.Context, ev Event) {
	b.sessions.End(ev.Principal)

	stats, err := b.orders.Stats(ctx)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	b.send(ctx, ev.ChatID, fmt.Sprintf(
		"📊 Statistics\n\n👥 Users: %d\n📚 Books: %d\n📦 Orders: %d\n⏳ Pending: %d\n✅ Approved: %d\n❌ Rejected: %d",
		stats.Users, stats.Books, stats.Orders, stats.Pending, stats.Approved, stats.Rejected))
}

func (b *Bot) showOrdersConsole(ctx context.Context, ev Event) {
	b.sessions.End(ev.Principal)

	b.sendButtons(ctx, ev.ChatID, "📦 Which orders?", [][]Button{
		{{Label: "⏳ Pending", Data: "orders_pending"}},
		{{Label: "✅ Approved", Data: "orders_approved"}},
		{{Label: "❌ Rejected", Data: "orders_rejected"}},
		{{Label: "📋 All", Data: "orders_all"}},
	})
}

func (b *Bot) listOrders(ctx context.Context, ev Event, filter string) {
	orders, err := b.orders.List(ctx, filter)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	if len(orders) == 0 {
		b.send(ctx, ev.ChatID, "No orders here.")
		return
	}

	for _, o := range orders {
		buttons := orderButtons(o)
		if len(buttons) == 0 {
			b.send(ctx, ev.ChatID, orderCard(o))
			continue
		}
		b.sendButtons(ctx, ev.ChatID, orderCard(o), buttons)
	}
}

// orderButtons returns the moderation actions that still apply: decided
// orders keep only the receipt viewer, and only when a receipt exists.
func orderButtons(o models.Order) [][]Button {
	n := strconv.Itoa(o.Number)
	var buttons [][]Button
	if o.Status == models.OrderStatusPending {
		buttons = append(buttons, []Button{
			{Label: "✅ Approve", Data: "approve_" + n},
			{Label: "❌ Reject", Data: "reject_" + n},
		})
	}
	if o.HasReceipt() {
		buttons = append(buttons, []Button{{Label: "🧾 View receipt", Data: "view_receipt_" + n}})
	}
	return buttons
}

func (b *Bot) moderate(ctx context.Context, ev Event, rawNumber string, approve bool) {
	number, err := strconv.Atoi(rawNumber)
	if err != nil {
		return
	}
	decision := models.OrderStatusRejected
	if approve {
		decision = models.OrderStatusApproved
	}

	_, err = b.orders.Moderate(ctx, number, decision, &order.Annotation{ChatID: ev.ChatID, MessageID: ev.MessageID})
	switch {
	case errors.Is(err, order.ErrAlreadyDecided):
		b.send(ctx, ev.ChatID, fmt.Sprintf("Order #%d has already been decided.", number))
	case errors.Is(err, order.ErrNotFound):
		b.send(ctx, ev.ChatID, fmt.Sprintf("Order #%d was not found.", number))
	case err != nil:
		b.reportError(ctx, ev, err)
	}
	// On success the annotation edit and the buyer notification go out
	// through the notifier.
}

func (b *Bot) viewReceipt(ctx context.Context, ev Event, rawNumber string) {
	number, err := strconv.Atoi(rawNumber)
	if err != nil {
		return
	}
	o, err := b.orders.Get(ctx, number)
	if err != nil {
		b.send(ctx, ev.ChatID, fmt.Sprintf("Order #%d was not found.", number))
		return
	}
	if !o.HasReceipt() {
		b.send(ctx, ev.ChatID, fmt.Sprintf("Order #%d has no receipt (%s payment).", number, o.PaymentMethod))
		return
	}

	caption := fmt.Sprintf("🧾 Receipt for order #%d", number)
	if o.ReceiptKind == models.ReceiptDocument {
		err = b.gateway.SendDocument(ctx, ev.ChatID, o.ReceiptFileID, caption)
	} else {
		err = b.gateway.SendPhoto(ctx, ev.ChatID, o.ReceiptFileID, caption)
	}
	if err != nil {
		b.reportError(ctx, ev, err)
	}
}

// --- users ---

func (b *Bot) showUsers(ctx context.Context, ev Event) {
	b.sessions.End(ev.Principal)

	users, err := b.records.Users(ctx)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	if len(users) == 0 {
		b.send(ctx, ev.ChatID, "No registered users yet.")
		return
	}

	list := make([]models.User, 0, len(users))
	for _, u := range users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].RegisteredAt.Before(list[j].RegisteredAt) })

	var text strings.Builder
	fmt.Fprintf(&text, "👥 Users: %d\n\n", len(list))
	for i, u := range list {
		if i == 10 {
			fmt.Fprintf(&text, "… and %d more", len(list)-10)
			break
		}
		fmt.Fprintf(&text, "%d. %s, %s (%s, %s)\n", i+1, u.Name, u.Phone, u.Region, u.District)
	}
	b.send(ctx, ev.ChatID, text.String())
}

// --- catalog administration ---

func (b *Bot) startBookAdd(ctx context.Context, ev Event) {
	b.sessions.Begin(ev.Principal, session.FlowBookAdd, session.StepBookName)
	b.send(ctx, ev.ChatID, "➕ Adding a book.\n\nTitle?")
}

func (b *Bot) startBookEdit(ctx context.Context, ev Event, id string) {
	book, err := b.catalog.Get(ctx, id)
	if err != nil {
		b.send(ctx, ev.ChatID, "That book no longer exists.")
		return
	}
	s := b.sessions.Begin(ev.Principal, session.FlowBookEdit, session.StepBookName)
	s.Book.EditID = id
	b.send(ctx, ev.ChatID, fmt.Sprintf("✏️ Editing book %s (%s).\n\nNew title?", id, book.Name))
}

func (b *Bot) stepBook(ctx context.Context, ev Event, s *session.Session) {
	if !textOnly(ctx, b, ev) {
		return
	}
	text := strings.TrimSpace(ev.Text)

	switch s.Step {
	case session.StepBookName:
		s.Book.Name = text
		s.Step = session.StepBookCategory
		b.send(ctx, ev.ChatID, "📂 Category?")

	case session.StepBookCategory:
		s.Book.Category = text
		s.Step = session.StepBookPrice
		b.send(ctx, ev.ChatID, "💰 Price?")

	case session.StepBookPrice:
		book := models.Book{Name: s.Book.Name, Category: s.Book.Category, Price: text}
		editID := s.Book.EditID
		b.sessions.End(ev.Principal)

		if editID == "" {
			id, err := b.catalog.Add(ctx, book)
			if err != nil {
				b.reportError(ctx, ev, err)
				return
			}
			b.send(ctx, ev.ChatID, fmt.Sprintf("✅ Book %s added: %s", id, book.Name))
			return
		}

		if err := b.catalog.Edit(ctx, editID, book); err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				b.send(ctx, ev.ChatID, "That book no longer exists.")
				return
			}
			b.reportError(ctx, ev, err)
			return
		}
		b.send(ctx, ev.ChatID, fmt.Sprintf("✅ Book %s updated: %s", editID, book.Name))
	}
}

func (b *Bot) deleteBook(ctx context.Context, ev Event, id string) {
	book, err := b.catalog.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			b.send(ctx, ev.ChatID, "That book no longer exists.")
			return
		}
		b.reportError(ctx, ev, err)
		return
	}
	b.send(ctx, ev.ChatID, fmt.Sprintf("🗑 Deleted %s. Remaining books were renumbered.", book.Name))
}

// --- payment card ---

func (b *Bot) showCardSettings(ctx context.Context, ev Event) {
	b.sessions.End(ev.Principal)

	pc, err := b.cards.Get(ctx)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}

	text := "💳 No payment card configured."
	if pc.Number != "" {
		text = fmt.Sprintf("💳 Current card:\n\n%s\n%s", pc.Number, pc.Owner)
	}
	b.sendButtons(ctx, ev.ChatID, text, [][]Button{
		{{Label: "✏️ Change card", Data: "edit_card"}},
		{{Label: "◀️ Back", Data: "back_admin"}},
	})
}

func (b *Bot) startCardEdit(ctx context.Context, ev Event) {
	b.sessions.Begin(ev.Principal, session.FlowCardEdit, session.StepCardNumber)
	b.send(ctx, ev.ChatID, "💳 New card number?")
}

func (b *Bot) stepCard(ctx context.Context, ev Event, s *session.Session) {
	if !textOnly(ctx, b, ev) {
		return
	}
	text := strings.TrimSpace(ev.Text)

	switch s.Step {
	case session.StepCardNumber:
		s.Card.Number = text
		s.Step = session.StepCardOwner
		b.send(ctx, ev.ChatID, "👤 Card owner name?")

	case session.StepCardOwner:
		number := s.Card.Number
		b.sessions.End(ev.Principal)
		if err := b.cards.Set(ctx, number, text); err != nil {
			b.reportError(ctx, ev, err)
			return
		}
		b.send(ctx, ev.ChatID, "✅ Payment card updated.")
	}
}
