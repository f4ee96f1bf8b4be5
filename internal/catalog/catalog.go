package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"bookshop-bot/internal/models"
	"bookshop-bot/internal/store"
	"bookshop-bot/internal/util"

	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for a stale or unknown catalog id.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidInput is returned when a required field is empty.
	ErrInvalidInput = errors.New("invalid book field")
)

// Entry pairs a catalog key with its book.
type Entry struct {
	ID   string
	Book models.Book
}

// Manager owns the catalog collection. Keys are contiguous decimal strings
// starting at "1"; deletion renumbers the survivors to keep them so.
type Manager struct {
	records *store.Records
	logger  *zap.Logger
}

// NewManager creates a catalog manager.
func NewManager(records *store.Records) *Manager {
	return &Manager{records: records, logger: util.GetLogger()}
}

// List returns catalog entries ordered by numeric key.
func (m *Manager) List(ctx context.Context) ([]Entry, error) {
	books, err := m.records.Books(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(books))
	for id, book := range books {
		entries = append(entries, Entry{ID: id, Book: book})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, _ := strconv.Atoi(entries[i].ID)
		b, _ := strconv.Atoi(entries[j].ID)
		return a < b
	})
	return entries, nil
}

// Get returns one book by id.
func (m *Manager) Get(ctx context.Context, id string) (models.Book, error) {
	books, err := m.records.Books(ctx)
	if err != nil {
		return models.Book{}, err
	}
	book, ok := books[id]
	if !ok {
		return models.Book{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return book, nil
}

// Add appends a book under the next contiguous key and returns that key.
func (m *Manager) Add(ctx context.Context, book models.Book) (string, error) {
	if err := validate(book); err != nil {
		return "", err
	}

	var id string
	err := m.records.UpdateBooks(ctx, func(books map[string]models.Book) error {
		id = strconv.Itoa(len(books) + 1)
		books[id] = book
		return nil
	})
	if err != nil {
		return "", err
	}

	m.logger.Info("Book added", zap.String("book_id", id), zap.String("name", book.Name))
	return id, nil
}

// Edit replaces the book stored under id.
func (m *Manager) Edit(ctx context.Context, id string, book models.Book) error {
	if err := validate(book); err != nil {
		return err
	}

	return m.records.UpdateBooks(ctx, func(books map[string]models.Book) error {
		if _, ok := books[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		books[id] = book
		return nil
	})
}

// Delete removes the book under id and renumbers the survivors so keys stay
// contiguous from 1, preserving relative order. Any id a caller cached for
// an entry after the deleted one is stale afterwards and must be re-fetched.
func (m *Manager) Delete(ctx context.Context, id string) (models.Book, error) {
	var deleted models.Book
	err := m.records.UpdateBooks(ctx, func(books map[string]models.Book) error {
		book, ok := books[id]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		deleted = book
		delete(books, id)

		survivors := make([]Entry, 0, len(books))
		for k, v := range books {
			survivors = append(survivors, Entry{ID: k, Book: v})
		}
		sort.Slice(survivors, func(i, j int) bool {
			a, _ := strconv.Atoi(survivors[i].ID)
			b, _ := strconv.Atoi(survivors[j].ID)
			return a < b
		})

		for k := range books {
			delete(books, k)
		}
		for i, e := range survivors {
			books[strconv.Itoa(i+1)] = e.Book
		}
		return nil
	})
	if err != nil {
		return models.Book{}, err
	}

	m.logger.Info("Book deleted", zap.String("book_id", id), zap.String("name", deleted.Name))
	return deleted, nil
}

// Seed populates the default catalog when it is empty.
func (m *Manager) Seed(ctx context.Context) error {
	return m.records.UpdateBooks(ctx, func(books map[string]models.Book) error {
		if len(books) > 0 {
			return nil
		}
		books["1"] = models.Book{Name: "Python dasturlash", Category: "Dasturlash", Price: "50000"}
		books["2"] = models.Book{Name: "O'tkan kunlar", Category: "Badiiy adabiyot", Price: "35000"}
		books["3"] = models.Book{Name: "Algoritimlar va ma'lumotlar strukturasi", Category: "Dasturlash", Price: "60000"}
		return nil
	})
}

func validate(book models.Book) error {
	if strings.TrimSpace(book.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(book.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if strings.TrimSpace(book.Price) == "" {
		return fmt.Errorf("%w: price is required", ErrInvalidInput)
	}
	return nil
}
