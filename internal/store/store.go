// Package store holds the persistence port of the persona service and its implementations: a
// relational one on top of sqlx (MySQL or PostgreSQL) and an in-memory one for local development.
package store

import (
	"context"
	"errors"

	"gitlab.com/dirk.krummacker/persona-service/internal/model"
)

// ErrNotFound is returned when no persona with the requested id exists.
var ErrNotFound = errors.New("persona not found")

// ErrDuplicateEmail is returned when a write would violate the uniqueness of the email column.
var ErrDuplicateEmail = errors.New("duplicate email")

// Store is the persistence port consumed by the persona service.
type Store interface {
	// FindAll returns all personas ordered by given name. Ties keep insertion order.
	FindAll(ctx context.Context) ([]model.Persona, error)
	// FindByID returns ErrNotFound if the persona does not exist.
	FindByID(ctx context.Context, id int64) (model.Persona, error)
	// Insert stores a new persona and returns the id assigned to it.
	Insert(ctx context.Context, persona model.Persona) (int64, error)
	// Update overwrites all columns except id and registration date.
	Update(ctx context.Context, persona model.Persona) error
	// Delete returns false if there was nothing to delete.
	Delete(ctx context.Context, id int64) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// EmailTaken reports whether a persona other than excludeID uses the email.
	EmailTaken(ctx context.Context, email string, excludeID model.ID) (bool, error)
	// Filter returns the personas where every non-blank criterion is a case-insensitive substring
	// of the corresponding field.
	Filter(ctx context.Context, criteria model.Criteria) ([]model.Persona, error)
	Ping(ctx context.Context) error
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
