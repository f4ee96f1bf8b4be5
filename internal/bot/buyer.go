package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bookshop-bot/internal/models"
	"bookshop-bot/internal/order"
	"bookshop-bot/internal/session"
	"bookshop-bot/internal/store"
)

const aboutText = `📖 Bookshop bot

Browse the catalog, place an order and pay by card transfer or in cash
on delivery. Every order is reviewed by an operator; you will get a
message as soon as yours is approved.`

// --- registration ---

func (b *Bot) startRegistration(ctx context.Context, ev Event) {
	b.sessions.Begin(ev.Principal, session.FlowRegistration, session.StepRegName)
	b.send(ctx, ev.ChatID, "📝 Let's get you registered!\n\nWhat is your full name?")
}

func (b *Bot) stepRegistration(ctx context.Context, ev Event, s *session.Session) {
	switch s.Step {
	case session.StepRegName:
		if ev.Kind != EventText || strings.TrimSpace(ev.Text) == "" {
			b.send(ctx, ev.ChatID, "Please send your name as text.")
			return
		}
		s.Registration.Name = strings.TrimSpace(ev.Text)
		s.Step = session.StepRegPhone
		if err := b.gateway.RequestContact(ctx, ev.ChatID, "📱 Share your phone number, or type it.", "📱 Share phone number"); err != nil {
			b.send(ctx, ev.ChatID, "📱 What is your phone number?")
		}

	case session.StepRegPhone:
		phone, ok := phoneFrom(ev)
		if !ok {
			b.send(ctx, ev.ChatID, "Please share your contact or type your phone number.")
			return
		}
		s.Registration.Phone = phone
		s.Step = session.StepRegRegion
		b.send(ctx, ev.ChatID, "🌍 Which region do you live in?")

	case session.StepRegRegion:
		if !textOnly(ctx, b, ev) {
			return
		}
		s.Registration.Region = strings.TrimSpace(ev.Text)
		s.Step = session.StepRegDistrict
		b.send(ctx, ev.ChatID, "🏙 Which district?")

	case session.StepRegDistrict:
		if !textOnly(ctx, b, ev) {
			return
		}
		s.Registration.District = strings.TrimSpace(ev.Text)
		s.Step = session.StepRegVillage
		b.send(ctx, ev.ChatID, "🏘 And which village or neighbourhood?")

	case session.StepRegVillage:
		if !textOnly(ctx, b, ev) {
			return
		}
		user := models.User{
			TelegramID:   ev.Principal,
			Username:     ev.Username,
			Name:         s.Registration.Name,
			Phone:        s.Registration.Phone,
			Region:       s.Registration.Region,
			District:     s.Registration.District,
			Village:      strings.TrimSpace(ev.Text),
			RegisteredAt: time.Now(),
		}
		if err := b.records.PutUser(ctx, user); err != nil {
			b.reportError(ctx, ev, err)
			return
		}
		b.sessions.End(ev.Principal)
		b.sendMenu(ctx, ev.ChatID, "✅ Registration complete, "+user.Name+"! Welcome!", buyerMenu())
	}
}

// --- catalog browsing and checkout ---

func (b *Bot) showBooks(ctx context.Context, ev Event, admin bool) {
	b.sessions.End(ev.Principal)

	entries, err := b.catalog.List(ctx)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	if len(entries) == 0 {
		b.send(ctx, ev.ChatID, "The catalog is empty for now.")
		return
	}

	if admin {
		// One message per book so each carries its own action buttons.
		for _, e := range entries {
			text := fmt.Sprintf("%s. %s\n📂 %s\n💰 %s", e.ID, e.Book.Name, e.Book.Category, e.Book.Price)
			b.sendButtons(ctx, ev.ChatID, text, [][]Button{{
				{Label: "✏️ Edit", Data: "editbook_" + e.ID},
				{Label: "🗑 Delete", Data: "deletebook_" + e.ID},
			}})
		}
		return
	}

	var text strings.Builder
	text.WriteString("📚 Our books:\n\n")
	for _, e := range entries {
		fmt.Fprintf(&text, "%s. %s\n📂 %s\n💰 %s\n\n", e.ID, e.Book.Name, e.Book.Category, e.Book.Price)
	}
	b.send(ctx, ev.ChatID, text.String())
}

func (b *Bot) startCheckout(ctx context.Context, ev Event) {
	user, ok, err := b.records.User(ctx, ev.Principal)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	if !ok || !user.Registered() {
		b.send(ctx, ev.ChatID, "Please register first: send /start.")
		return
	}

	entries, err := b.catalog.List(ctx)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	if len(entries) == 0 {
		b.send(ctx, ev.ChatID, "The catalog is empty, nothing to order yet.")
		return
	}

	s := b.sessions.Begin(ev.Principal, session.FlowCheckout, session.StepBookSelect)
	text, buttons, page := renderCatalogPage(entries, 0)
	s.Checkout.Page = page
	b.sendButtons(ctx, ev.ChatID, text, buttons)
}

func (b *Bot) turnPage(ctx context.Context, ev Event, direction string) {
	s, ok := b.sessions.Get(ev.Principal)
	if !ok || s.Flow != session.FlowCheckout {
		return
	}

	entries, err := b.catalog.List(ctx)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}

	page := s.Checkout.Page
	switch direction {
	case "page_next":
		page++
	case "page_prev":
		page--
	}

	text, buttons, page := renderCatalogPage(entries, page)
	s.Checkout.Page = page
	if err := b.gateway.EditTextWithButtons(ctx, ev.ChatID, ev.MessageID, text, buttons); err != nil {
		// Rendering an unchanged page is rejected by the transport; that
		// happens on page_info and on clamped over-steps. Nothing to do.
		b.logger.Debug("Pager edit skipped")
	}
}

func (b *Bot) closePager(ctx context.Context, ev Event) {
	if s, ok := b.sessions.Get(ev.Principal); ok && s.Flow == session.FlowCheckout && s.Step == session.StepBookSelect {
		b.sessions.End(ev.Principal)
	}
	if err := b.gateway.DeleteMessage(ctx, ev.ChatID, ev.MessageID); err != nil {
		b.logger.Debug("Failed to delete pager message")
	}
}

func (b *Bot) selectBook(ctx context.Context, ev Event, id string) {
	s, ok := b.sessions.Get(ev.Principal)
	if !ok || s.Flow != session.FlowCheckout || s.Step != session.StepBookSelect {
		return
	}

	book, err := b.catalog.Get(ctx, id)
	if err != nil {
		b.send(ctx, ev.ChatID, "That book is no longer available, please pick another.")
		return
	}

	s.Checkout.BookID = id
	s.Checkout.BookName = book.Name
	s.Checkout.BookPrice = book.Price
	s.Step = session.StepPaymentMethod

	text := fmt.Sprintf("📖 %s\n💰 %s\n\nHow would you like to pay?", book.Name, book.Price)
	buttons := [][]Button{
		{{Label: "💳 Card transfer", Data: "payment_" + models.PaymentCardTransfer}},
		{{Label: "💵 Cash on delivery", Data: "payment_" + models.PaymentCash}},
	}
	if err := b.gateway.EditTextWithButtons(ctx, ev.ChatID, ev.MessageID, text, buttons); err != nil {
		b.sendButtons(ctx, ev.ChatID, text, buttons)
	}
}

func (b *Bot) selectPayment(ctx context.Context, ev Event, method string) {
	s, ok := b.sessions.Get(ev.Principal)
	if !ok || s.Flow != session.FlowCheckout || s.Step != session.StepPaymentMethod {
		return
	}
	if method != models.PaymentCardTransfer && method != models.PaymentCash {
		return
	}
	s.Checkout.PaymentMethod = method

	if method == models.PaymentCash {
		s.Step = session.StepFeedback
		b.offerFinish(ctx, ev.ChatID, "💵 You chose cash on delivery.")
		return
	}

	pc, err := b.cards.Get(ctx)
	if err != nil {
		// Keep the buyer at the payment step so the choice can be retried.
		s.Checkout.PaymentMethod = ""
		b.reportError(ctx, ev, err)
		return
	}
	s.Step = session.StepReceipt
	if pc.Number == "" {
		b.send(ctx, ev.ChatID, "💳 The payment card is not configured yet, please contact the admin.\n\nIf you have already paid, send the receipt as a photo or file.")
		return
	}
	b.send(ctx, ev.ChatID, fmt.Sprintf("💳 Transfer %s to:\n\n%s\n%s\n\nThen send the receipt as a photo or file.", s.Checkout.BookPrice, pc.Number, pc.Owner))
}

func (b *Bot) stepCheckout(ctx context.Context, ev Event, s *session.Session) {
	switch s.Step {
	case session.StepReceipt:
		switch ev.Kind {
		case EventPhoto:
			s.Checkout.ReceiptFileID = ev.FileID
			s.Checkout.ReceiptKind = models.ReceiptPhoto
		case EventDocument:
			s.Checkout.ReceiptFileID = ev.FileID
			s.Checkout.ReceiptKind = models.ReceiptDocument
		default:
			b.send(ctx, ev.ChatID, "Please send the payment receipt as a photo or file.")
			return
		}
		s.Step = session.StepFeedback
		b.offerFinish(ctx, ev.ChatID, "✅ Receipt received.")

	case session.StepFeedback:
		// Free text at the feedback step is the feedback itself.
		if ev.Kind == EventText && strings.TrimSpace(ev.Text) != "" {
			s.Checkout.Feedback = strings.TrimSpace(ev.Text)
			b.offerFinish(ctx, ev.ChatID, "💬 Thanks for the feedback!")
			return
		}
		b.send(ctx, ev.ChatID, "Use the buttons to finish the order, or type your feedback.")

	default:
		b.send(ctx, ev.ChatID, "Please use the buttons above to continue.")
	}
}

func (b *Bot) offerFinish(ctx context.Context, chatID int64, prefix string) {
	b.sendButtons(ctx, chatID, prefix+"\n\nFinish the order, or leave some feedback first:", [][]Button{
		{{Label: "✅ Finish order", Data: "finish_order"}},
		{{Label: "💬 Leave feedback", Data: "leave_feedback"}},
	})
}

func (b *Bot) promptFeedback(ctx context.Context, ev Event) {
	s, ok := b.sessions.Get(ev.Principal)
	if !ok || s.Flow != session.FlowCheckout || s.Step != session.StepFeedback {
		return
	}
	b.send(ctx, ev.ChatID, "💬 Type your feedback:")
}

func (b *Bot) finishOrder(ctx context.Context, ev Event) {
	s, ok := b.sessions.Get(ev.Principal)
	if !ok || s.Flow != session.FlowCheckout || s.Step != session.StepFeedback {
		return
	}

	sub := order.Submission{
		BookID:        s.Checkout.BookID,
		BookName:      s.Checkout.BookName,
		PaymentMethod: s.Checkout.PaymentMethod,
		ReceiptFileID: s.Checkout.ReceiptFileID,
		ReceiptKind:   s.Checkout.ReceiptKind,
		Feedback:      s.Checkout.Feedback,
	}
	b.sessions.End(ev.Principal)

	_, err := b.orders.Submit(ctx, ev.Principal, sub)
	switch {
	case errors.Is(err, order.ErrNotRegistered):
		b.send(ctx, ev.ChatID, "Please register first: send /start.")
	case errors.Is(err, order.ErrNotFound):
		b.send(ctx, ev.ChatID, "That book is no longer available, please start over.")
	case err != nil:
		b.reportError(ctx, ev, err)
	}
	// On success the buyer confirmation goes out through the notifier.
}

// --- my orders ---

func (b *Bot) showMyOrders(ctx context.Context, ev Event) {
	b.sessions.End(ev.Principal)

	orders, err := b.orders.UserOrders(ctx, ev.Principal)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	if len(orders) == 0 {
		b.send(ctx, ev.ChatID, "You have no orders yet.")
		return
	}

	var text strings.Builder
	text.WriteString("📦 Your orders:\n\n")
	for _, o := range orders {
		fmt.Fprintf(&text, "%s Order #%d: %s, %s (%s)\n", statusMark(o.Status), o.Number, o.BookName, o.BookPrice, o.Status)
	}
	b.send(ctx, ev.ChatID, text.String())
}

// --- profile edit ---

func (b *Bot) startProfileEdit(ctx context.Context, ev Event) {
	user, ok, err := b.records.User(ctx, ev.Principal)
	if err != nil {
		b.reportError(ctx, ev, err)
		return
	}
	if !ok || !user.Registered() {
		b.send(ctx, ev.ChatID, "Please register first: send /start.")
		return
	}

	b.sessions.Begin(ev.Principal, session.FlowProfileEdit, session.StepProfileName)
	b.send(ctx, ev.ChatID, fmt.Sprintf("✏️ Let's update your details.\n\nName (current: %s)?", user.Name))
}

func (b *Bot) stepProfileEdit(ctx context.Context, ev Event, s *session.Session) {
	switch s.Step {
	case session.StepProfileName:
		if !textOnly(ctx, b, ev) {
			return
		}
		s.Profile.Name = strings.TrimSpace(ev.Text)
		s.Step = session.StepProfilePhone
		b.send(ctx, ev.ChatID, "📱 Phone number?")

	case session.StepProfilePhone:
		phone, ok := phoneFrom(ev)
		if !ok {
			b.send(ctx, ev.ChatID, "Please share your contact or type your phone number.")
			return
		}
		s.Profile.Phone = phone
		s.Step = session.StepProfileRegion
		b.send(ctx, ev.ChatID, "🌍 Region?")

	case session.StepProfileRegion:
		if !textOnly(ctx, b, ev) {
			return
		}
		s.Profile.Region = strings.TrimSpace(ev.Text)
		s.Step = session.StepProfileDistrict
		b.send(ctx, ev.ChatID, "🏙 District?")

	case session.StepProfileDistrict:
		if !textOnly(ctx, b, ev) {
			return
		}
		s.Profile.District = strings.TrimSpace(ev.Text)
		s.Step = session.StepProfileVillage
		b.send(ctx, ev.ChatID, "🏘 Village or neighbourhood?")

	case session.StepProfileVillage:
		if !textOnly(ctx, b, ev) {
			return
		}
		village := strings.TrimSpace(ev.Text)
		err := b.records.UpdateUsers(ctx, func(users map[string]models.User) error {
			u := users[store.UserKey(ev.Principal)]
			u.TelegramID = ev.Principal
			u.Name = s.Profile.Name
			u.Phone = s.Profile.Phone
			u.Region = s.Profile.Region
			u.District = s.Profile.District
			u.Village = village
			users[store.UserKey(ev.Principal)] = u
			return nil
		})
		if err != nil {
			b.reportError(ctx, ev, err)
			return
		}
		b.sessions.End(ev.Principal)
		b.sendMenu(ctx, ev.ChatID, "✅ Profile updated.", buyerMenu())
	}
}

// --- shared helpers ---

func statusMark(s models.OrderStatus) string {
	switch s {
	case models.OrderStatusApproved:
		return "✅"
	case models.OrderStatusRejected:
		return "❌"
	default:
		return "⏳"
	}
}

// phoneFrom extracts a phone number from a contact share or typed text.
// Contact shares arrive without the leading plus, typed numbers usually
// with it; normalize to the plus form.
func phoneFrom(ev Event) (string, bool) {
	var phone string
	switch ev.Kind {
	case EventContact:
		phone = strings.TrimSpace(ev.Phone)
	case EventText:
		phone = strings.TrimSpace(ev.Text)
	default:
		return "", false
	}
	if phone == "" {
		return "", false
	}
	if !strings.HasPrefix(phone, "+") {
		phone = "+" + phone
	}
	return phone, true
}

func textOnly(ctx context.Context, b *Bot, ev Event) bool {
	if ev.Kind == EventText && strings.TrimSpace(ev.Text) != "" {
		return true
	}
	b.send(ctx, ev.ChatID, "Please send a text reply.")
	return false
}
