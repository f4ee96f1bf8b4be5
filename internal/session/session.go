package session

import (
	"context"
	"sync"
	"time"

	"bookshop-bot/internal/models"
	"bookshop-bot/internal/util"

	"go.uber.org/zap"
)

// Flow identifies which multi-step conversation a principal is in. Exactly
// one flow is active per principal; entering a new flow overwrites the old
// one together with its scratch data.
type Flow int

const (
	FlowNone Flow = iota
	FlowRegistration
	FlowCheckout
	FlowBookAdd
	FlowBookEdit
	FlowProfileEdit
	FlowCardEdit
)

func (f Flow) String() string {
	switch f {
	case FlowRegistration:
		return "registration"
	case FlowCheckout:
		return "checkout"
	case FlowBookAdd:
		return "book_add"
	case FlowBookEdit:
		return "book_edit"
	case FlowProfileEdit:
		return "profile_edit"
	case FlowCardEdit:
		return "card_edit"
	default:
		return "none"
	}
}

// Step is the current state within a flow.
type Step int

const (
	StepNone Step = iota

	StepRegName
	StepRegPhone
	StepRegRegion
	StepRegDistrict
	StepRegVillage

	StepBookSelect
	StepPaymentMethod
	StepReceipt
	StepFeedback

	StepBookName
	StepBookCategory
	StepBookPrice

	StepProfileName
	StepProfilePhone
	StepProfileRegion
	StepProfileDistrict
	StepProfileVillage

	StepCardNumber
	StepCardOwner
)

// RegistrationScratch holds fields captured before the user record exists.
type RegistrationScratch struct {
	Name     string
	Phone    string
	Region   string
	District string
}

// CheckoutScratch accumulates a checkout across its steps.
type CheckoutScratch struct {
	Page          int
	BookID        string
	BookName      string
	BookPrice     string
	PaymentMethod string
	ReceiptFileID string
	ReceiptKind   models.ReceiptKind
	Feedback      string
}

// BookScratch accumulates a catalog add or edit. EditID is empty for adds.
type BookScratch struct {
	EditID   string
	Name     string
	Category string
}

// ProfileScratch accumulates a profile edit until the final step commits it.
type ProfileScratch struct {
	Name     string
	Phone    string
	Region   string
	District string
}

// CardScratch accumulates the card-edit flow.
type CardScratch struct {
	Number string
}

// Session is one principal's active flow. Only that principal's handler
// goroutine mutates the scratch fields; the manager guards the idle clock
// it reads from the janitor.
type Session struct {
	Flow Flow
	Step Step

	Registration RegistrationScratch
	Checkout     CheckoutScratch
	Book         BookScratch
	Profile      ProfileScratch
	Card         CardScratch

	updatedAt time.Time
}

// Manager owns all transient per-principal conversation state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	ttl      time.Duration
	logger   *zap.Logger
}

// NewManager creates a session manager. Sessions idle longer than ttl are
// evicted by the janitor; a zero ttl disables eviction.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		logger:   util.GetLogger(),
	}
}

// Begin activates a flow for the principal, discarding any active session.
func (m *Manager) Begin(principal int64, flow Flow, step Step) *Session {
	s := &Session{Flow: flow, Step: step, updatedAt: time.Now()}

	m.mu.Lock()
	m.sessions[principal] = s
	m.mu.Unlock()

	util.SessionsStartedTotal.WithLabelValues(flow.String()).Inc()
	return s
}

// Get returns the principal's active session, refreshing its idle clock.
func (m *Manager) Get(principal int64) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[principal]
	if ok {
		s.updatedAt = time.Now()
	}
	return s, ok
}

// End discards the principal's session and its scratch data.
func (m *Manager) End(principal int64) {
	m.mu.Lock()
	delete(m.sessions, principal)
	m.mu.Unlock()
}

// Len returns the number of active sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// StartJanitor evicts idle sessions until ctx is cancelled.
func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if m.ttl <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.evictIdle(time.Now()); n > 0 {
					m.logger.Info("Evicted idle sessions", zap.Int("count", n))
				}
			}
		}
	}()
}

func (m *Manager) evictIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for principal, s := range m.sessions {
		if now.Sub(s.updatedAt) > m.ttl {
			delete(m.sessions, principal)
			evicted++
		}
	}
	if evicted > 0 {
		util.SessionsExpiredTotal.Add(float64(evicted))
	}
	return evicted
}
