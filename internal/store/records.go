package store

import (
	"context"
	"strconv"
	"sync"

	"bookshop-bot/internal/models"
	"bookshop-bot/internal/util"
)

// Records is the typed access layer over a Backend. It holds one mutex per
// collection so that every read-modify-write cycle is serialized: two
// concurrent checkouts cannot compute the same order number and an approve
// cannot race a reject on the same order.
type Records struct {
	backend Backend

	usersMu  sync.Mutex
	booksMu  sync.Mutex
	ordersMu sync.Mutex
	cardMu   sync.Mutex
}

// NewRecords wraps a backend.
func NewRecords(backend Backend) *Records {
	return &Records{backend: backend}
}

// UserKey converts a principal id to its collection key.
func UserKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Users returns the users collection.
func (r *Records) Users(ctx context.Context) (map[string]models.User, error) {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()
	return r.loadUsers(ctx)
}

// User returns one user by principal id.
func (r *Records) User(ctx context.Context, id int64) (models.User, bool, error) {
	users, err := r.Users(ctx)
	if err != nil {
		return models.User{}, false, err
	}
	u, ok := users[UserKey(id)]
	return u, ok, nil
}

// UpdateUsers applies fn to the users collection and persists the result.
// Returning an error from fn aborts without writing.
func (r *Records) UpdateUsers(ctx context.Context, fn func(users map[string]models.User) error) error {
	r.usersMu.Lock()
	defer r.usersMu.Unlock()

	users, err := r.loadUsers(ctx)
	if err != nil {
		return err
	}
	if err := fn(users); err != nil {
		return err
	}
	if err := r.backend.Replace(ctx, CollectionUsers, users); err != nil {
		util.StoreErrorsTotal.WithLabelValues(CollectionUsers, "replace").Inc()
		return err
	}
	return nil
}

// PutUser stores a single user record, replacing any existing one.
func (r *Records) PutUser(ctx context.Context, u models.User) error {
	return r.UpdateUsers(ctx, func(users map[string]models.User) error {
		users[UserKey(u.TelegramID)] = u
		return nil
	})
}

// Books returns the catalog collection.
func (r *Records) Books(ctx context.Context) (map[string]models.Book, error) {
	r.booksMu.Lock()
	defer r.booksMu.Unlock()
	return r.loadBooks(ctx)
}

// UpdateBooks applies fn to the catalog and persists the result.
func (r *Records) UpdateBooks(ctx context.Context, fn func(books map[string]models.Book) error) error {
	r.booksMu.Lock()
	defer r.booksMu.Unlock()

	books, err := r.loadBooks(ctx)
	if err != nil {
		return err
	}
	if err := fn(books); err != nil {
		return err
	}
	if err := r.backend.Replace(ctx, CollectionBooks, books); err != nil {
		util.StoreErrorsTotal.WithLabelValues(CollectionBooks, "replace").Inc()
		return err
	}
	return nil
}

// Orders returns the orders collection.
func (r *Records) Orders(ctx context.Context) (map[string]models.Order, error) {
	r.ordersMu.Lock()
	defer r.ordersMu.Unlock()
	return r.loadOrders(ctx)
}

// UpdateOrders applies fn to the orders collection and persists the result.
func (r *Records) UpdateOrders(ctx context.Context, fn func(orders map[string]models.Order) error) error {
	r.ordersMu.Lock()
	defer r.ordersMu.Unlock()

	orders, err := r.loadOrders(ctx)
	if err != nil {
		return err
	}
	if err := fn(orders); err != nil {
		return err
	}
	if err := r.backend.Replace(ctx, CollectionOrders, orders); err != nil {
		util.StoreErrorsTotal.WithLabelValues(CollectionOrders, "replace").Inc()
		return err
	}
	return nil
}

// Card returns the payment card record; both fields are empty when unset.
func (r *Records) Card(ctx context.Context) (models.PaymentCard, error) {
	r.cardMu.Lock()
	defer r.cardMu.Unlock()

	var card models.PaymentCard
	if err := r.backend.Load(ctx, CollectionCard, &card); err != nil {
		util.StoreErrorsTotal.WithLabelValues(CollectionCard, "load").Inc()
		return models.PaymentCard{}, err
	}
	return card, nil
}

// SetCard unconditionally replaces the payment card record.
func (r *Records) SetCard(ctx context.Context, card models.PaymentCard) error {
	r.cardMu.Lock()
	defer r.cardMu.Unlock()

	if err := r.backend.Replace(ctx, CollectionCard, card); err != nil {
		util.StoreErrorsTotal.WithLabelValues(CollectionCard, "replace").Inc()
		return err
	}
	return nil
}

func (r *Records) loadUsers(ctx context.Context) (map[string]models.User, error) {
	users := make(map[string]models.User)
	if err := r.backend.Load(ctx, CollectionUsers, &users); err != nil {
		util.StoreErrorsTotal.WithLabelValues(CollectionUsers, "load").Inc()
		return nil, err
	}
	return users, nil
}

func (r *Records) loadBooks(ctx context.Context) (map[string]models.Book, error) {
	books := make(map[string]models.Book)
	if err := r.backend.Load(ctx, CollectionBooks, &books); err != nil {
		util.StoreErrorsTotal.WithLabelValues(CollectionBooks, "load").Inc()
		return nil, err
	}
	return books, nil
}

func (r *Records) loadOrders(ctx context.Context) (map[string]models.Order, error) {
	orders := make(map[string]models.Order)
	if err := r.backend.Load(ctx, CollectionOrders, &orders); err != nil {
		util.StoreErrorsTotal.WithLabelValues(CollectionOrders, "load").Inc()
		return nil, err
	}
	return orders, nil
}
