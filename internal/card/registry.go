package card

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"bookshop-bot/internal/models"
	"bookshop-bot/internal/store"
	"bookshop-bot/internal/util"

	"go.uber.org/zap"
)

// ErrInvalidInput is returned when a card field is empty.
var ErrInvalidInput = errors.New("invalid card field")

// Registry owns the single payment card record shown to buyers at checkout.
type Registry struct {
	records *store.Records
	logger  *zap.Logger
}

// NewRegistry creates a card registry.
func NewRegistry(records *store.Records) *Registry {
	return &Registry{records: records, logger: util.GetLogger()}
}

// Get returns the card; both fields are empty until an admin sets it.
func (r *Registry) Get(ctx context.Context) (models.PaymentCard, error) {
	return r.records.Card(ctx)
}

// Set replaces the card unconditionally (last write wins).
func (r *Registry) Set(ctx context.Context, number, owner string) error {
	number = strings.TrimSpace(number)
	owner = strings.TrimSpace(owner)
	if number == "" {
		return fmt.Errorf("%w: number is required", ErrInvalidInput)
	}
	if owner == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}

	if err := r.records.SetCard(ctx, models.PaymentCard{Number: number, Owner: owner}); err != nil {
		return err
	}
	r.logger.Info("Payment card updated", zap.String("owner", owner))
	return nil
}
