package bot

import (
	"context"
	"fmt"
	"strings"

	"bookshop-bot/internal/models"
	"bookshop-bot/internal/order"
)

// notifier renders the order workflow's outbound notifications through
// the gateway.
type notifier struct {
	gateway Gateway
}

// NewNotifier returns the workflow-facing notification sender backed by
// the given gateway. It is built before the Bot so the workflow can be
// wired between them.
func NewNotifier(gateway Gateway) order.Notifier {
	return &notifier{gateway: gateway}
}

func (n *notifier) BuyerOrderConfirmation(ctx context.Context, o models.Order) error {
	return n.gateway.SendText(ctx, o.UserID, fmt.Sprintf(
		"✅ Order #%d accepted!\n\n📖 %s\n💰 %s\n💳 %s\n\nAn operator will review it shortly.",
		o.Number, o.BookName, o.BookPrice, paymentLabel(o.PaymentMethod)))
}

func (n *notifier) AdminModerationPrompt(ctx context.Context, adminID int64, o models.Order) error {
	_, err := n.gateway.SendTextWithButtons(ctx, adminID, orderCard(o), orderButtons(o))
	return err
}

func (n *notifier) BuyerDecision(ctx context.Context, o models.Order) error {
	text := fmt.Sprintf("✅ Your order #%d has been approved! We will contact you about delivery.", o.Number)
	if o.Status == models.OrderStatusRejected {
		text = fmt.Sprintf("❌ Your order #%d has been rejected. Contact the admin for details.", o.Number)
	}
	return n.gateway.SendText(ctx, o.UserID, text)
}

// AnnotateModerationPrompt re-renders the admin's prompt with the decision
// marker appended and without action buttons.
func (n *notifier) AnnotateModerationPrompt(ctx context.Context, chatID int64, messageID int, o models.Order) error {
	marker := "✅ APPROVED"
	if o.Status == models.OrderStatusRejected {
		marker = "❌ REJECTED"
	}
	return n.gateway.EditText(ctx, chatID, messageID, orderCard(o)+"\n\n"+marker)
}

// orderCard renders the operator's view of an order.
func orderCard(o models.Order) string {
	var text strings.Builder
	fmt.Fprintf(&text, "🆕 Order #%d\n📅 %s\n\n", o.Number, o.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&text, "👤 %s\n📱 %s\n📍 %s, %s, %s\n\n", o.UserName, o.UserPhone, o.UserRegion, o.UserDistrict, o.UserVillage)
	fmt.Fprintf(&text, "📖 %s\n💰 %s\n💳 %s\n", o.BookName, o.BookPrice, paymentLabel(o.PaymentMethod))
	if o.HasReceipt() {
		text.WriteString("🧾 Receipt attached\n")
	}
	if o.Feedback != "" && o.Feedback != models.FeedbackNone {
		fmt.Fprintf(&text, "💬 %s\n", o.Feedback)
	}
	return strings.TrimRight(text.String(), "\n")
}

func paymentLabel(method string) string {
	if method == models.PaymentCash {
		return "Cash on delivery"
	}
	return "Card transfer"
}
