package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"bookshop-bot/internal/broker"
	"bookshop-bot/internal/models"
	"bookshop-bot/internal/store"
	"bookshop-bot/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotRegistered is returned when an unregistered principal submits.
	ErrNotRegistered = errors.New("user not registered")
	// ErrNotFound is returned for an unknown order or a stale book id.
	ErrNotFound = errors.New("order not found")
	// ErrAlreadyDecided is returned when moderating a non-pending order.
	ErrAlreadyDecided = errors.New("order already decided")
	// ErrInvalidDecision is returned for a decision other than approved/rejected.
	ErrInvalidDecision = errors.New("invalid moderation decision")
	// ErrInvalidInput is returned for an incomplete checkout.
	ErrInvalidInput = errors.New("incomplete checkout")
)

// Notifier is the outbound slice of the messaging gateway the workflow
// fans out through. Implementations render the actual chat messages.
type Notifier interface {
	BuyerOrderConfirmation(ctx context.Context, o models.Order) error
	AdminModerationPrompt(ctx context.Context, adminID int64, o models.Order) error
	BuyerDecision(ctx context.Context, o models.Order) error
	AnnotateModerationPrompt(ctx context.Context, chatID int64, messageID int, o models.Order) error
}

// Submission carries the checkout scratch data a buyer accumulated.
type Submission struct {
	BookID        string
	BookName      string
	PaymentMethod string
	ReceiptFileID string
	ReceiptKind   models.ReceiptKind
	Feedback      string
}

// Notification records one attempted outbound send and its outcome.
type Notification struct {
	Kind      string
	Recipient int64
	Err       error
}

// Result is the outcome of Submit or Moderate: the order plus every
// notification attempt, so partial transport failure is observable.
type Result struct {
	Order         models.Order
	Notifications []Notification
}

// Failed returns the notification attempts that errored.
func (r *Result) Failed() []Notification {
	var failed []Notification
	for _, n := range r.Notifications {
		if n.Err != nil {
			failed = append(failed, n)
		}
	}
	return failed
}

// Annotation identifies the moderation prompt message to mark with the
// decision; the edit is best-effort.
type Annotation struct {
	ChatID    int64
	MessageID int
}

// Workflow drives the order lifecycle: creation from completed checkouts
// and the one-shot pending -> approved/rejected transition.
type Workflow struct {
	records   *store.Records
	publisher broker.Publisher
	notifier  Notifier
	adminIDs  []int64
	logger    *zap.Logger
	now       func() time.Time
}

// NewWorkflow creates an order workflow.
func NewWorkflow(records *store.Records, publisher broker.Publisher, notifier Notifier, adminIDs []int64) *Workflow {
	return &Workflow{
		records:   records,
		publisher: publisher,
		notifier:  notifier,
		adminIDs:  adminIDs,
		logger:    util.GetLogger(),
		now:       time.Now,
	}
}

// Submit creates an order from a completed checkout. Buyer and book fields
// are snapshotted now; later edits to either do not touch the order. The
// order number is assigned under the orders lock, so sequential submissions
// yield 1..N and concurrent ones cannot collide.
func (w *Workflow) Submit(ctx context.Context, principal int64, sub Submission) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Workflow.Submit")
	defer span.End()

	if sub.BookID == "" || sub.PaymentMethod == "" {
		util.OrdersFailedTotal.WithLabelValues("invalid_input").Inc()
		return nil, fmt.Errorf("%w: book and payment method are required", ErrInvalidInput)
	}

	user, ok, err := w.records.User(ctx, principal)
	if err != nil {
		return nil, err
	}
	if !ok || !user.Registered() {
		util.OrdersFailedTotal.WithLabelValues("not_registered").Inc()
		return nil, fmt.Errorf("%w: %d", ErrNotRegistered, principal)
	}

	// The selection was made earlier in the conversation; re-fetch the
	// entry so a catalog delete (which renumbers ids) in the meantime
	// fails closed instead of snapshotting the wrong book.
	books, err := w.records.Books(ctx)
	if err != nil {
		return nil, err
	}
	book, ok := books[sub.BookID]
	if !ok || (sub.BookName != "" && book.Name != sub.BookName) {
		util.OrdersFailedTotal.WithLabelValues("stale_book").Inc()
		return nil, fmt.Errorf("%w: book %s", ErrNotFound, sub.BookID)
	}

	feedback := sub.Feedback
	if feedback == "" {
		feedback = models.FeedbackNone
	}

	order := models.Order{
		UserID:        principal,
		UserName:      user.Name,
		UserPhone:     user.Phone,
		UserRegion:    user.Region,
		UserDistrict:  user.District,
		UserVillage:   user.Village,
		BookID:        sub.BookID,
		BookName:      book.Name,
		BookPrice:     book.Price,
		PaymentMethod: sub.PaymentMethod,
		ReceiptFileID: sub.ReceiptFileID,
		ReceiptKind:   sub.ReceiptKind,
		Feedback:      feedback,
		Status:        models.OrderStatusPending,
		CreatedAt:     w.now(),
	}

	err = w.records.UpdateOrders(ctx, func(orders map[string]models.Order) error {
		order.Number = nextNumber(orders)
		orders[strconv.Itoa(order.Number)] = order
		return nil
	})
	if err != nil {
		util.OrdersFailedTotal.WithLabelValues("store_error").Inc()
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	util.OrdersSubmittedTotal.Inc()
	w.logger.Info("Order submitted",
		zap.Int("order_number", order.Number),
		zap.Int64("user_id", principal),
		zap.String("payment_method", order.PaymentMethod))

	w.publishSubmitted(ctx, order)

	result := &Result{Order: order}
	result.attempt(ctx, "buyer_confirmation", principal, func() error {
		return w.notifier.BuyerOrderConfirmation(ctx, order)
	})
	for _, adminID := range w.adminIDs {
		id := adminID
		result.attempt(ctx, "admin_prompt", id, func() error {
			return w.notifier.AdminModerationPrompt(ctx, id, order)
		})
	}
	w.reportFailures(result)

	return result, nil
}

// Moderate applies an operator decision to a pending order. Deciding an
// already-decided order is a no-op that returns ErrAlreadyDecided: nothing
// is persisted and nobody is re-notified.
func (w *Workflow) Moderate(ctx context.Context, orderNumber int, decision models.OrderStatus, annotate *Annotation) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Workflow.Moderate")
	defer span.End()

	if decision != models.OrderStatusApproved && decision != models.OrderStatusRejected {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	key := strconv.Itoa(orderNumber)
	var order models.Order
	err := w.records.UpdateOrders(ctx, func(orders map[string]models.Order) error {
		o, ok := orders[key]
		if !ok {
			return fmt.Errorf("%w: #%d", ErrNotFound, orderNumber)
		}
		if o.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: #%d is %s", ErrAlreadyDecided, orderNumber, o.Status)
		}
		o.Status = decision
		orders[key] = o
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	util.OrdersModeratedTotal.WithLabelValues(string(decision)).Inc()
	w.logger.Info("Order moderated",
		zap.Int("order_number", orderNumber),
		zap.String("decision", string(decision)))

	w.publishModerated(ctx, order)

	result := &Result{Order: order}
	if annotate != nil {
		result.attempt(ctx, "annotation", annotate.ChatID, func() error {
			return w.notifier.AnnotateModerationPrompt(ctx, annotate.ChatID, annotate.MessageID, order)
		})
	}
	result.attempt(ctx, "buyer_decision", order.UserID, func() error {
		return w.notifier.BuyerDecision(ctx, order)
	})
	w.reportFailures(result)

	return result, nil
}

// Get returns one order by number.
func (w *Workflow) Get(ctx context.Context, orderNumber int) (models.Order, error) {
	orders, err := w.records.Orders(ctx)
	if err != nil {
		return models.Order{}, err
	}
	order, ok := orders[strconv.Itoa(orderNumber)]
	if !ok {
		return models.Order{}, fmt.Errorf("%w: #%d", ErrNotFound, orderNumber)
	}
	return order, nil
}

// List returns orders matching the status filter ("all" is unfiltered),
// ordered by order number.
func (w *Workflow) List(ctx context.Context, filter string) ([]models.Order, error) {
	orders, err := w.records.Orders(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Order
	for _, o := range orders {
		if filter != "all" && string(o.Status) != filter {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// UserOrders returns the principal's own orders ordered by number.
func (w *Workflow) UserOrders(ctx context.Context, principal int64) ([]models.Order, error) {
	orders, err := w.records.Orders(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Order
	for _, o := range orders {
		if o.UserID == principal {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// Dashboard is the operator summary aggregate.
type Dashboard struct {
	Users    int `json:"users"`
	Books    int `json:"books"`
	Orders   int `json:"orders"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
}

// Stats computes the dashboard over the current collections; no caching.
func (w *Workflow) Stats(ctx context.Context) (Dashboard, error) {
	users, err := w.records.Users(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	books, err := w.records.Books(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	orders, err := w.records.Orders(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{Users: len(users), Books: len(books), Orders: len(orders)}
	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusPending:
			d.Pending++
		case models.OrderStatusApproved:
			d.Approved++
		case models.OrderStatusRejected:
			d.Rejected++
		}
	}
	return d, nil
}

func (r *Result) attempt(_ context.Context, kind string, recipient int64, send func() error) {
	r.Notifications = append(r.Notifications, Notification{
		Kind:      kind,
		Recipient: recipient,
		Err:       send(),
	})
}

func (w *Workflow) reportFailures(result *Result) {
	for _, n := range result.Failed() {
		util.NotificationFailuresTotal.WithLabelValues(n.Kind).Inc()
		w.logger.Warn("Notification failed",
			zap.String("kind", n.Kind),
			zap.Int64("recipient", n.Recipient),
			zap.Error(n.Err))
	}
}

func (w *Workflow) publishSubmitted(ctx context.Context, order models.Order) {
	event := &models.OrderSubmittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderSubmitted,
			Timestamp: w.now(),
		},
		OrderNumber:   order.Number,
		UserID:        order.UserID,
		BookID:        order.BookID,
		BookName:      order.BookName,
		BookPrice:     order.BookPrice,
		PaymentMethod: order.PaymentMethod,
	}
	if err := w.publisher.PublishOrderSubmitted(ctx, event); err != nil {
		w.logger.Error("Failed to publish OrderSubmitted event", zap.Error(err))
	}
}

func (w *Workflow) publishModerated(ctx context.Context, order models.Order) {
	eventType := models.EventTypeOrderApproved
	if order.Status == models.OrderStatusRejected {
		eventType = models.EventTypeOrderRejected
	}
	event := &models.OrderModeratedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: w.now(),
		},
		OrderNumber: order.Number,
		UserID:      order.UserID,
		Status:      order.Status,
	}
	if err := w.publisher.PublishOrderModerated(ctx, event); err != nil {
		w.logger.Error("Failed to publish OrderModerated event", zap.Error(err))
	}
}

// nextNumber keeps the externally visible small sequential numbering while
// being collision-free under the orders lock. Orders are never deleted, so
// scanning for the max is equivalent to a durable counter.
func nextNumber(orders map[string]models.Order) int {
	max := 0
	for _, o := range orders {
		if o.Number > max {
			max = o.Number
		}
	}
	return max + 1
}
