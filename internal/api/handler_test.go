package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bookshop-bot/internal/broker"
	"bookshop-bot/internal/models"
	"bookshop-bot/internal/order"
	"bookshop-bot/internal/session"
	"bookshop-bot/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentNotifier struct{}

func (silentNotifier) BuyerOrderConfirmation(context.Context, models.Order) error { return nil }
func (silentNotifier) AdminModerationPrompt(context.Context, int64, models.Order) error {
	return nil
}
func (silentNotifier) BuyerDecision(context.Context, models.Order) error { return nil }
func (silentNotifier) AnnotateModerationPrompt(context.Context, int64, int, models.Order) error {
	return nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *order.Workflow, *store.Records) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	backend, err := store.NewFileBackend(t.TempDir())
	require.NoError(t, err)
	records := store.NewRecords(backend)
	workflow := order.NewWorkflow(records, broker.NopPublisher{}, silentNotifier{}, nil)

	router := gin.New()
	NewHandler(workflow, session.NewManager(time.Minute), records).SetupRoutes(router)
	return router, workflow, records
}

func seedOrder(t *testing.T, workflow *order.Workflow, records *store.Records) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, records.PutUser(ctx, models.User{
		TelegramID: 42, Name: "Aziz Aliyev", Phone: "+998901234567",
	}))
	require.NoError(t, records.UpdateBooks(ctx, func(books map[string]models.Book) error {
		books["1"] = models.Book{Name: "Book 1", Category: "Fiction", Price: "45000"}
		return nil
	}))
	_, err := workflow.Submit(ctx, 42, order.Submission{
		BookID: "1", BookName: "Book 1", PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	router, _, _ := newTestRouter(t)

	assert.Equal(t, http.StatusOK, get(router, "/health").Code)
	assert.Equal(t, http.StatusOK, get(router, "/ready").Code)
}

func TestDashboard(t *testing.T) {
	router, workflow, records := newTestRouter(t)
	seedOrder(t, workflow, records)

	w := get(router, "/api/v1/dashboard")
	require.Equal(t, http.StatusOK, w.Code)

	var d order.Dashboard
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	assert.Equal(t, 1, d.Users)
	assert.Equal(t, 1, d.Orders)
	assert.Equal(t, 1, d.Pending)
}

func TestListOrdersFilter(t *testing.T) {
	router, workflow, records := newTestRouter(t)
	seedOrder(t, workflow, records)

	w := get(router, "/api/v1/orders?status=pending")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)

	w = get(router, "/api/v1/orders?status=approved")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Count)
}

func TestGetOrder(t *testing.T) {
	router, workflow, records := newTestRouter(t)
	seedOrder(t, workflow, records)

	w := get(router, "/api/v1/orders/1")
	require.Equal(t, http.StatusOK, w.Code)

	var o models.Order
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
	assert.Equal(t, "Book 1", o.BookName)

	assert.Equal(t, http.StatusNotFound, get(router, "/api/v1/orders/99").Code)
	assert.Equal(t, http.StatusBadRequest, get(router, "/api/v1/orders/abc").Code)
}
