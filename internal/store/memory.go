package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"gitlab.com/dirk.krummacker/persona-service/internal/model"
)

// MemoryStore keeps personas in process memory. It honours the same contract as SQLStore,
// including the uniqueness of emails, and is meant for local development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	personas []model.Persona // insertion order
	nextID   int64
}

// NewMemoryStore returns an empty store whose first assigned id is 1.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (m *MemoryStore) FindAll(ctx context.Context) ([]model.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedByGivenName(m.personas), nil
}

func (m *MemoryStore) FindByID(ctx context.Context, id int64) (model.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if i := m.indexOf(id); i >= 0 {
		return m.personas[i], nil
	}
	return model.Persona{}, ErrNotFound
}

func (m *MemoryStore) Insert(ctx context.Context, persona model.Persona) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.emailTaken(persona.Email, model.ID{}) {
		return 0, ErrDuplicateEmail
	}
	id := m.nextID
	m.nextID++
	persona.Id = model.NewID(id)
	m.personas = append(m.personas, persona)
	return id, nil
}

func (m *MemoryStore) Update(ctx context.Context, persona model.Persona) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(persona.Id.Int64())
	if i < 0 {
		return nil
	}
	if m.emailTaken(persona.Email, persona.Id) {
		return ErrDuplicateEmail
	}
	stored := &m.personas[i]
	stored.GivenName = persona.GivenName
	stored.FamilyName = persona.FamilyName
	stored.BirthDate = persona.BirthDate
	stored.Email = persona.Email
	stored.Phone = persona.Phone
	stored.Address = persona.Address
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(id)
	if i < 0 {
		return false, nil
	}
	m.personas = slices.Delete(m.personas, i, i+1)
	return true, nil
}

func (m *MemoryStore) Exists(ctx context.Context, id int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexOf(id) >= 0, nil
}

func (m *MemoryStore) EmailTaken(ctx context.Context, email string, excludeID model.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.emailTaken(email, excludeID), nil
}

func (m *MemoryStore) Filter(ctx context.Context, criteria model.Criteria) ([]model.Persona, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []model.Persona
	for _, p := range m.personas {
		if containsFold(p.GivenName, criteria.GivenName) &&
			containsFold(p.FamilyName, criteria.FamilyName) &&
			containsFold(p.Email, criteria.Email) {
			matches = append(matches, p)
		}
	}
	return sortedByGivenName(matches), nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// indexOf returns -1 if the id is unknown. The caller holds the lock.
func (m *MemoryStore) indexOf(id int64) int {
	return slices.IndexFunc(m.personas, func(p model.Persona) bool {
		return p.Id.Int64() == id
	})
}

// emailTaken expects the caller to hold the lock.
func (m *MemoryStore) emailTaken(email string, excludeID model.ID) bool {
	return slices.ContainsFunc(m.personas, func(p model.Persona) bool {
		return p.Email == email && (!excludeID.IsSet() || p.Id != excludeID)
	})
}

// sortedByGivenName returns a sorted copy. The sort is stable so ties keep insertion order.
func sortedByGivenName(personas []model.Persona) []model.Persona {
	sorted := make([]model.Persona, len(personas))
	copy(sorted, personas)
	slices.SortStableFunc(sorted, func(a, b model.Persona) int {
		return strings.Compare(a.GivenName, b.GivenName)
	})
	return sorted
}

// containsFold reports whether needle is a case-insensitive substring of s. A blank needle
// matches everything.
func containsFold(s string, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}
