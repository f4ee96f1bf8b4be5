package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBeginOverwritesActiveFlow(t *testing.T) {
	m := NewManager(time.Hour)

	s := m.Begin(1, FlowCheckout, StepBookSelect)
	s.Checkout.BookID = "2"

	// Entering another flow abandons the checkout scratch entirely.
	m.Begin(1, FlowProfileEdit, StepProfileName)

	got, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, FlowProfileEdit, got.Flow)
	assert.Equal(t, StepProfileName, got.Step)
	assert.Empty(t, got.Checkout.BookID)
}

func TestEndDiscardsScratch(t *testing.T) {
	m := NewManager(time.Hour)

	s := m.Begin(1, FlowRegistration, StepRegName)
	s.Registration.Name = "Aziz Aliyev"
	m.End(1)

	_, ok := m.Get(1)
	assert.False(t, ok)

	// Re-entry starts clean.
	s = m.Begin(1, FlowRegistration, StepRegName)
	assert.Empty(t, s.Registration.Name)
}

func TestSessionsAreIsolatedPerPrincipal(t *testing.T) {
	m := NewManager(time.Hour)

	m.Begin(1, FlowCheckout, StepBookSelect)
	m.Begin(2, FlowCardEdit, StepCardNumber)

	a, ok := m.Get(1)
	require.True(t, ok)
	b, ok := m.Get(2)
	require.True(t, ok)

	assert.Equal(t, FlowCheckout, a.Flow)
	assert.Equal(t, FlowCardEdit, b.Flow)
	assert.Equal(t, 2, m.Len())
}

func TestEvictIdleRespectsTTL(t *testing.T) {
	m := NewManager(10 * time.Minute)

	m.Begin(1, FlowCheckout, StepBookSelect)
	m.Begin(2, FlowRegistration, StepRegName)

	// Nothing is idle yet.
	assert.Zero(t, m.evictIdle(time.Now()))
	assert.Equal(t, 2, m.Len())

	evicted := m.evictIdle(time.Now().Add(11 * time.Minute))
	assert.Equal(t, 2, evicted)
	assert.Zero(t, m.Len())
}

func TestGetRefreshesIdleClock(t *testing.T) {
	m := NewManager(10 * time.Minute)

	m.Begin(1, FlowCheckout, StepBookSelect)

	// A Get counts as activity, so eviction measured from before it
	// must not fire.
	_, ok := m.Get(1)
	require.True(t, ok)

	assert.Zero(t, m.evictIdle(time.Now().Add(9*time.Minute)))
	assert.Equal(t, 1, m.Len())
}
