package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"bookshop-bot/internal/broker"
	"bookshop-bot/internal/card"
	"bookshop-bot/internal/catalog"
	"bookshop-bot/internal/models"
	"bookshop-bot/internal/order"
	"bookshop-bot/internal/session"
	"bookshop-bot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	buyerID = int64(42)
	adminID = int64(100)
)

type sentMessage struct {
	op        string
	chatID    int64
	messageID int
	text      string
	buttons   [][]Button
	menu      [][]string
	fileID    string
}

type fakeGateway struct {
	mu     sync.Mutex
	nextID int
	log    []sentMessage
}

func (g *fakeGateway) record(m sentMessage) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	m.messageID = g.nextID
	g.log = append(g.log, m)
	return m.messageID
}

func (g *fakeGateway) SendText(_ context.Context, chatID int64, text string) error {
	g.record(sentMessage{op: "text", chatID: chatID, text: text})
	return nil
}

func (g *fakeGateway) SendTextWithButtons(_ context.Context, chatID int64, text string, buttons [][]Button) (int, error) {
	return g.record(sentMessage{op: "buttons", chatID: chatID, text: text, buttons: buttons}), nil
}

func (g *fakeGateway) SendTextWithMenu(_ context.Context, chatID int64, text string, menu [][]string) error {
	g.record(sentMessage{op: "menu", chatID: chatID, text: text, menu: menu})
	return nil
}

func (g *fakeGateway) RequestContact(_ context.Context, chatID int64, text, _ string) error {
	g.record(sentMessage{op: "contact", chatID: chatID, text: text})
	return nil
}

func (g *fakeGateway) SendPhoto(_ context.Context, chatID int64, fileID, caption string) error {
	g.record(sentMessage{op: "photo", chatID: chatID, fileID: fileID, text: caption})
	return nil
}

func (g *fakeGateway) SendDocument(_ context.Context, chatID int64, fileID, caption string) error {
	g.record(sentMessage{op: "document", chatID: chatID, fileID: fileID, text: caption})
	return nil
}

func (g *fakeGateway) EditText(_ context.Context, chatID int64, messageID int, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.log = append(g.log, sentMessage{op: "edit", chatID: chatID, messageID: messageID, text: text})
	return nil
}

func (g *fakeGateway) EditTextWithButtons(_ context.Context, chatID int64, messageID int, text string, buttons [][]Button) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.log = append(g.log, sentMessage{op: "edit", chatID: chatID, messageID: messageID, text: text, buttons: buttons})
	return nil
}

func (g *fakeGateway) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.log = append(g.log, sentMessage{op: "delete", chatID: chatID, messageID: messageID})
	return nil
}

func (g *fakeGateway) to(chatID int64) []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []sentMessage
	for _, m := range g.log {
		if m.chatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

func (g *fakeGateway) last(chatID int64) sentMessage {
	msgs := g.to(chatID)
	if len(msgs) == 0 {
		return sentMessage{}
	}
	return msgs[len(msgs)-1]
}

type botFixture struct {
	bot      *Bot
	gw       *fakeGateway
	records  *store.Records
	catalog  *catalog.Manager
	sessions *session.Manager
	workflow *order.Workflow
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	backend, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	records := store.NewRecords(backend)

	gw := &fakeGateway{}
	cat := catalog.NewManager(records)
	cards := card.NewRegistry(records)
	sessions := session.NewManager(30 * time.Minute)
	workflow := order.NewWorkflow(records, broker.NopPublisher{}, NewNotifier(gw), []int64{adminID})
	isOperator := func(id int64) bool { return id == adminID }

	return &botFixture{
		bot:      New(gw, records, cat, cards, sessions, workflow, isOperator),
		gw:       gw,
		records:  records,
		catalog:  cat,
		sessions: sessions,
		workflow: workflow,
	}
}

func (f *botFixture) text(principal int64, text string) {
	f.bot.Dispatch(context.Background(), Event{Kind: EventText, Principal: principal, ChatID: principal, Text: text})
}

func (f *botFixture) contact(principal int64, phone string) {
	f.bot.Dispatch(context.Background(), Event{Kind: EventContact, Principal: principal, ChatID: principal, Phone: phone})
}

func (f *botFixture) photo(principal int64, fileID string) {
	f.bot.Dispatch(context.Background(), Event{Kind: EventPhoto, Principal: principal, ChatID: principal, FileID: fileID})
}

func (f *botFixture) callback(principal int64, data string, messageID int) {
	f.bot.Dispatch(context.Background(), Event{Kind: EventCallback, Principal: principal, ChatID: principal, MessageID: messageID, Data: data})
}

func (f *botFixture) seedBuyer(t *testing.T) {
	t.Helper()
	require.NoError(t, f.records.PutUser(context.Background(), models.User{
		TelegramID:   buyerID,
		Name:         "Aziz Aliyev",
		Phone:        "+998901234567",
		Region:       "Andijon",
		District:     "Marhamat",
		Village:      "Oq oltin",
		RegisteredAt: time.Now(),
	}))
}

func (f *botFixture) seedBooks(t *testing.T, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := f.catalog.Add(context.Background(), models.Book{
			Name:     fmt.Sprintf("Book %d", i),
			Category: "Fiction",
			Price:    "45000",
		})
		require.NoError(t, err)
	}
}

func TestRegistrationFlow(t *testing.T) {
	f := newBotFixture(t)

	f.text(buyerID, "/start")
	assert.Contains(t, f.gw.last(buyerID).text, "registered")

	f.text(buyerID, "Aziz Aliyev")
	assert.Equal(t, "contact", f.gw.last(buyerID).op)

	f.contact(buyerID, "998901234567")
	f.text(buyerID, "Andijon")
	f.text(buyerID, "Marhamat")
	f.text(buyerID, "Oq oltin")

	user, ok, err := f.records.User(context.Background(), buyerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, user.Registered())
	assert.Equal(t, "Aziz Aliyev", user.Name)
	assert.Equal(t, "+998901234567", user.Phone, "contact phones gain the leading plus")
	assert.Equal(t, "Oq oltin", user.Village)

	last := f.gw.last(buyerID)
	assert.Equal(t, "menu", last.op)
	assert.Equal(t, 0, f.sessions.Len())
}

func TestRegistrationRejectsNonTextName(t *testing.T) {
	f := newBotFixture(t)
	f.text(buyerID, "/start")
	f.photo(buyerID, "file-1")
	assert.Contains(t, f.gw.last(buyerID).text, "name as text")

	s, ok := f.sessions.Get(buyerID)
	require.True(t, ok)
	assert.Equal(t, session.StepRegName, s.Step)
}

func TestStartForRegisteredShowsMenu(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)

	f.text(buyerID, "/start")
	last := f.gw.last(buyerID)
	assert.Equal(t, "menu", last.op)
	assert.Contains(t, last.text, "Aziz Aliyev")
}

func TestEntryPointOverwritesActiveFlow(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 3)

	f.text(buyerID, MenuPlaceOrder)
	s, ok := f.sessions.Get(buyerID)
	require.True(t, ok)
	assert.Equal(t, session.FlowCheckout, s.Flow)

	f.text(buyerID, MenuEditProfile)
	s, ok = f.sessions.Get(buyerID)
	require.True(t, ok)
	assert.Equal(t, session.FlowProfileEdit, s.Flow)
	assert.Empty(t, s.Checkout.BookID)
}

func TestCheckoutCashEndToEnd(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 3)

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	require.Equal(t, "buttons", pager.op)
	assert.Equal(t, "book_1", pager.buttons[0][0].Data)

	f.callback(buyerID, "book_2", pager.messageID)
	f.callback(buyerID, "payment_cash", pager.messageID)
	f.callback(buyerID, "finish_order", pager.messageID)

	o, err := f.workflow.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Book 2", o.BookName)
	assert.Equal(t, models.PaymentCash, o.PaymentMethod)
	assert.Empty(t, o.ReceiptFileID)
	assert.Equal(t, models.OrderStatusPending, o.Status)
	assert.Equal(t, models.FeedbackNone, o.Feedback)

	assert.Contains(t, f.gw.last(buyerID).text, "Order #1 accepted")

	prompt := f.gw.last(adminID)
	require.Equal(t, "buttons", prompt.op)
	assert.Contains(t, prompt.text, "Aziz Aliyev")
	assert.Equal(t, "approve_1", prompt.buttons[0][0].Data)

	assert.Equal(t, 0, f.sessions.Len())
}

func TestCheckoutCardWithReceiptAndFeedback(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 1)
	require.NoError(t, f.bot.cards.Set(context.Background(), "8600 1234 5678 9012", "AZIZ ALIYEV"))

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	f.callback(buyerID, "book_1", pager.messageID)
	f.callback(buyerID, "payment_card", pager.messageID)
	assert.Contains(t, f.gw.last(buyerID).text, "8600 1234 5678 9012")

	// Text at the receipt step re-prompts.
	f.text(buyerID, "paid already")
	assert.Contains(t, f.gw.last(buyerID).text, "photo or file")

	f.photo(buyerID, "receipt-1")
	f.callback(buyerID, "leave_feedback", 0)
	f.text(buyerID, "please deliver in the morning")
	f.callback(buyerID, "finish_order", 0)

	o, err := f.workflow.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCardTransfer, o.PaymentMethod)
	assert.Equal(t, "receipt-1", o.ReceiptFileID)
	assert.Equal(t, models.ReceiptPhoto, o.ReceiptKind)
	assert.Equal(t, "please deliver in the morning", o.Feedback)
}

// cardFailBackend fails card loads on demand, passing everything else
// through to the real backend.
type cardFailBackend struct {
	store.Backend
	fail bool
}

func (b *cardFailBackend) Load(ctx context.Context, collection string, out interface{}) error {
	if b.fail && collection == store.CollectionCard {
		return errors.New("backend down")
	}
	return b.Backend.Load(ctx, collection, out)
}

func TestCardReadFailureKeepsPaymentStep(t *testing.T) {
	backend, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	flaky := &cardFailBackend{Backend: backend}
	records := store.NewRecords(flaky)

	gw := &fakeGateway{}
	cat := catalog.NewManager(records)
	cards := card.NewRegistry(records)
	sessions := session.NewManager(30 * time.Minute)
	workflow := order.NewWorkflow(records, broker.NopPublisher{}, NewNotifier(gw), []int64{adminID})
	f := &botFixture{
		bot:      New(gw, records, cat, cards, sessions, workflow, func(id int64) bool { return id == adminID }),
		gw:       gw,
		records:  records,
		catalog:  cat,
		sessions: sessions,
		workflow: workflow,
	}
	f.seedBuyer(t)
	f.seedBooks(t, 1)
	require.NoError(t, cards.Set(context.Background(), "8600 1234 5678 9012", "AZIZ ALIYEV"))

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	f.callback(buyerID, "book_1", pager.messageID)

	flaky.fail = true
	f.callback(buyerID, "payment_card", pager.messageID)

	s, ok := f.sessions.Get(buyerID)
	require.True(t, ok)
	assert.Equal(t, session.StepPaymentMethod, s.Step, "a failed card read must not advance the checkout")
	assert.Empty(t, s.Checkout.PaymentMethod)

	// Retrying the choice succeeds once the store answers again.
	flaky.fail = false
	f.callback(buyerID, "payment_card", pager.messageID)

	s, ok = f.sessions.Get(buyerID)
	require.True(t, ok)
	assert.Equal(t, session.StepReceipt, s.Step)
	assert.Contains(t, f.gw.last(buyerID).text, "8600 1234 5678 9012")
}

func TestCheckoutUnregistered(t *testing.T) {
	f := newBotFixture(t)
	f.seedBooks(t, 1)

	f.text(buyerID, MenuPlaceOrder)
	assert.Contains(t, f.gw.last(buyerID).text, "register")
	_, ok := f.sessions.Get(buyerID)
	assert.False(t, ok)
}

func TestPagerNavigationClamps(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 12)

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	require.Equal(t, "buttons", pager.op)
	assert.Contains(t, pager.text, "1. Book 1")

	f.callback(buyerID, "page_next", pager.messageID)
	edit := f.gw.last(buyerID)
	assert.Equal(t, "edit", edit.op)
	assert.Contains(t, edit.text, "11. Book 11")

	// Over-stepping past the last page stays on the last page.
	f.callback(buyerID, "page_next", pager.messageID)
	edit = f.gw.last(buyerID)
	assert.Contains(t, edit.text, "11. Book 11")

	s, ok := f.sessions.Get(buyerID)
	require.True(t, ok)
	assert.Equal(t, 1, s.Checkout.Page)
}

func TestPagerCloseEndsSelection(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 3)

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	f.callback(buyerID, "page_close", pager.messageID)

	assert.Equal(t, "delete", f.gw.last(buyerID).op)
	_, ok := f.sessions.Get(buyerID)
	assert.False(t, ok)
}

func TestModerationApproveViaCallback(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 1)

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	f.callback(buyerID, "book_1", pager.messageID)
	f.callback(buyerID, "payment_cash", pager.messageID)
	f.callback(buyerID, "finish_order", pager.messageID)

	prompt := f.gw.last(adminID)
	f.callback(adminID, "approve_1", prompt.messageID)

	o, err := f.workflow.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusApproved, o.Status)

	annotated := f.gw.last(adminID)
	assert.Equal(t, "edit", annotated.op)
	assert.Equal(t, prompt.messageID, annotated.messageID)
	assert.Contains(t, annotated.text, "APPROVED")

	assert.Contains(t, f.gw.last(buyerID).text, "approved")

	// Second decision is refused and the buyer hears nothing more.
	before := len(f.gw.to(buyerID))
	f.callback(adminID, "reject_1", prompt.messageID)
	assert.Contains(t, f.gw.last(adminID).text, "already been decided")
	assert.Len(t, f.gw.to(buyerID), before)
}

func TestModerationIgnoredForNonAdmin(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 1)

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	f.callback(buyerID, "book_1", pager.messageID)
	f.callback(buyerID, "payment_cash", pager.messageID)
	f.callback(buyerID, "finish_order", pager.messageID)

	f.callback(buyerID, "approve_1", 1)

	o, err := f.workflow.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, o.Status)
}

func TestViewReceiptForCashOrder(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 1)

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	f.callback(buyerID, "book_1", pager.messageID)
	f.callback(buyerID, "payment_cash", pager.messageID)
	f.callback(buyerID, "finish_order", pager.messageID)

	f.callback(adminID, "view_receipt_1", 1)
	assert.Contains(t, f.gw.last(adminID).text, "no receipt")
}

func TestAdminBookAddFlow(t *testing.T) {
	f := newBotFixture(t)

	f.text(adminID, MenuAddBook)
	f.text(adminID, "Go in Action")
	f.text(adminID, "Programming")
	f.text(adminID, "120000")

	book, err := f.catalog.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Go in Action", book.Name)
	assert.Contains(t, f.gw.last(adminID).text, "added")
}

func TestAdminBookEditAndDelete(t *testing.T) {
	f := newBotFixture(t)
	f.seedBooks(t, 3)

	f.callback(adminID, "editbook_2", 1)
	f.text(adminID, "Renamed")
	f.text(adminID, "History")
	f.text(adminID, "99000")

	book, err := f.catalog.Get(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", book.Name)

	f.callback(adminID, "deletebook_1", 1)
	assert.Contains(t, f.gw.last(adminID).text, "renumbered")

	book, err = f.catalog.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", book.Name, "survivors shift down after delete")
}

func TestAdminMenuIgnoredForBuyer(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)

	f.text(buyerID, MenuAddBook)
	_, ok := f.sessions.Get(buyerID)
	assert.False(t, ok)
}

func TestAdminStats(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 2)

	f.text(adminID, MenuStats)
	last := f.gw.last(adminID)
	assert.Contains(t, last.text, "Users: 1")
	assert.Contains(t, last.text, "Books: 2")
}

func TestCardEditFlow(t *testing.T) {
	f := newBotFixture(t)

	f.text(adminID, MenuCardSettings)
	assert.Contains(t, f.gw.last(adminID).text, "No payment card")

	f.callback(adminID, "edit_card", 1)
	f.text(adminID, "8600 0000 1111 2222")
	f.text(adminID, "SHOP OWNER")

	pc, err := f.bot.cards.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8600 0000 1111 2222", pc.Number)
	assert.Equal(t, "SHOP OWNER", pc.Owner)
	assert.Contains(t, f.gw.last(adminID).text, "updated")
}

func TestProfileEditFlow(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)

	f.text(buyerID, MenuEditProfile)
	f.text(buyerID, "Aziz A.")
	f.text(buyerID, "+998907654321")
	f.text(buyerID, "Tashkent")
	f.text(buyerID, "Chilonzor")
	f.text(buyerID, "19-kvartal")

	user, ok, err := f.records.User(context.Background(), buyerID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Aziz A.", user.Name)
	assert.Equal(t, "+998907654321", user.Phone)
	assert.Equal(t, "Chilonzor", user.District)
}

func TestMyOrdersListsOwnOnly(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 1)

	f.text(buyerID, MenuPlaceOrder)
	pager := f.gw.last(buyerID)
	f.callback(buyerID, "book_1", pager.messageID)
	f.callback(buyerID, "payment_cash", pager.messageID)
	f.callback(buyerID, "finish_order", pager.messageID)

	f.text(buyerID, MenuMyOrders)
	last := f.gw.last(buyerID)
	assert.Contains(t, last.text, "Order #1")
	assert.Contains(t, last.text, "Book 1")
}

func TestCancelEndsSessionAndShowsMenu(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 1)

	f.text(buyerID, MenuPlaceOrder)
	f.text(buyerID, MenuCancel)

	_, ok := f.sessions.Get(buyerID)
	assert.False(t, ok)
	assert.Equal(t, "menu", f.gw.last(buyerID).op)
}

func TestAboutAndFallback(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)

	f.text(buyerID, MenuAbout)
	assert.Contains(t, f.gw.last(buyerID).text, "Bookshop")

	f.text(buyerID, "random chatter")
	assert.Equal(t, "menu", f.gw.last(buyerID).op)
}

func TestOrdersConsoleFilters(t *testing.T) {
	f := newBotFixture(t)
	f.seedBuyer(t)
	f.seedBooks(t, 1)

	for i := 0; i < 2; i++ {
		f.text(buyerID, MenuPlaceOrder)
		pager := f.gw.last(buyerID)
		f.callback(buyerID, "book_1", pager.messageID)
		f.callback(buyerID, "payment_cash", pager.messageID)
		f.callback(buyerID, "finish_order", pager.messageID)
	}
	_, err := f.workflow.Moderate(context.Background(), 1, models.OrderStatusApproved, nil)
	require.NoError(t, err)

	f.text(adminID, MenuOrders)
	assert.Equal(t, "buttons", f.gw.last(adminID).op)

	before := len(f.gw.to(adminID))
	f.callback(adminID, "orders_pending", 1)
	cards := f.gw.to(adminID)[before:]
	require.Len(t, cards, 1)
	assert.True(t, strings.Contains(cards[0].text, "Order #2"))
	assert.Equal(t, "approve_2", cards[0].buttons[0][0].Data)
}
