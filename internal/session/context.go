// Package session owns the companion's active-patient context. Every
// gateway and aggregator call takes an explicit Context snapshot instead
// of reading process-wide state, and completions are checked against the
// manager's generation so work finished under a stale context is
// discarded.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Context identifies the active patient for one unit of work.
type Context struct {
	PatientID   uuid.UUID
	PatientName string
	Token       string
}

// Valid reports whether a patient is selected.
func (c Context) Valid() bool {
	return c.PatientID != uuid.Nil
}

// Manager is the single authoritative owner of the active-patient
// context. Generation increments on every change, including Clear.
type Manager struct {
	mu  sync.Mutex
	ctx Context
	gen uint64
}

func NewManager() *Manager {
	return &Manager{}
}

// Snapshot returns the current context and its generation.
func (m *Manager) Snapshot() (Context, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx, m.gen
}

// Set replaces the active context.
func (m *Manager) Set(ctx Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = ctx
	m.gen++
}

// Clear drops the active context (logout). In-flight work started under
// the old generation becomes stale.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx = Context{}
	m.gen++
}

// Current reports whether gen is still the live generation.
func (m *Manager) Current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen == gen
}
