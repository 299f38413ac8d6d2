package pointer

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/helixml/droidbridge/api/pkg/controlmsg"
)

// DefaultCapacity is the number of simultaneous pool contacts.
const DefaultCapacity = 10

// Manager hands out pointer ids from a fixed pool to input sources
// (a stick, a key binding, ...). Pool ids are 0..capacity-1, so the
// reserved top ids are never returned.
type Manager struct {
	mu      sync.Mutex
	slots   []any
	byOwner map[any]int
}

func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		slots:   make([]any, capacity),
		byOwner: make(map[any]int, capacity),
	}
}

// Allocate binds a free id to owner. An owner that already holds an id gets
// the same id back. When the pool is exhausted it returns false and the
// caller should drop the gesture. Owners must be comparable and non-nil.
func (m *Manager) Allocate(owner any) (controlmsg.PointerID, bool) {
	if owner == nil {
		return 0, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if idx, ok := m.byOwner[owner]; ok {
		return controlmsg.PointerID(idx), true
	}

	for idx, holder := range m.slots {
		if holder != nil {
			continue
		}
		m.slots[idx] = owner
		m.byOwner[owner] = idx
		return controlmsg.PointerID(idx), true
	}

	log.Debug().Int("capacity", len(m.slots)).Msg("pointer pool exhausted")
	return 0, false
}

// Release frees the id held by owner. Releasing an owner with no id is a no-op.
func (m *Manager) Release(owner any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byOwner[owner]
	if !ok {
		return
	}
	delete(m.byOwner, owner)
	m.slots[idx] = nil
}

// AllocatedID returns the id currently held by owner.
func (m *Manager) AllocatedID(owner any) (controlmsg.PointerID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, ok := m.byOwner[owner]
	return controlmsg.PointerID(idx), ok
}

func (m *Manager) Capacity() int {
	return len(m.slots)
}

// InUse returns the number of allocated ids.
func (m *Manager) InUse() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byOwner)
}
