// Package service implements the persona operations on top of the store and the business rules.
//
// Errors come in three kinds: *validation.Error for rule violations, ErrNotFound for unknown ids,
// and everything else for infrastructure failures, wrapped with the operation that failed.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gitlab.com/dirk.krummacker/persona-service/internal/metrics"
	"gitlab.com/dirk.krummacker/persona-service/internal/model"
	"gitlab.com/dirk.krummacker/persona-service/internal/store"
	"gitlab.com/dirk.krummacker/persona-service/internal/validation"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no persona with the requested id exists.
var ErrNotFound = errors.New("persona no encontrada")

// Service orchestrates the store and the validator for each persona operation.
type Service struct {
	store     store.Store
	validator *validation.Validator
	now       func() time.Time
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

// New returns a service on top of the specified store. A nil now means time.Now, a nil logger
// discards all output and nil metrics record nothing.
func New(s store.Store, logger *zap.Logger, m *metrics.Metrics, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     s,
		validator: validation.New(s, now),
		now:       now,
		logger:    logger,
		metrics:   m,
	}
}

// ListAll returns all personas ordered by given name.
func (s *Service) ListAll(ctx context.Context) ([]model.Persona, error) {
	personas, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("error al obtener las personas: %w", err)
	}
	return personas, nil
}

// GetByID returns the persona with the specified id or ErrNotFound.
func (s *Service) GetByID(ctx context.Context, id int64) (model.Persona, error) {
	persona, err := s.store.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Persona{}, ErrNotFound
	}
	if err != nil {
		return model.Persona{}, fmt.Errorf("error al obtener la persona con ID %d: %w", id, err)
	}
	return persona, nil
}

// Create validates and stores a new persona. Any id sent by the client is discarded, the
// registration date is set to the current UTC time. The stored persona is returned with the id
// assigned by the store.
func (s *Service) Create(ctx context.Context, persona model.Persona) (model.Persona, error) {
	if err := s.validator.Validate(ctx, persona, model.ID{}); err != nil {
		return model.Persona{}, s.fail("create", "error al crear la persona", err)
	}

	persona.Id = model.ID{}
	// Databases keep microseconds at most; the response must match what a later lookup returns.
	persona.RegistrationDate = s.now().UTC().Truncate(time.Microsecond)

	id, err := s.store.Insert(ctx, persona)
	if err != nil {
		return model.Persona{}, s.fail("create", "error al crear la persona", err)
	}
	persona.Id = model.NewID(id)
	s.metrics.RecordOperation("create", metrics.OutcomeSuccess)
	s.logger.Info("persona created", zap.Int64("id", id))
	return persona, nil
}

// Update replaces all fields of the persona with the specified id except the id itself and the
// registration date. It returns ErrNotFound if there is no such persona.
func (s *Service) Update(ctx context.Context, id int64, persona model.Persona) (model.Persona, error) {
	existing, err := s.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.metrics.RecordOperation("update", metrics.OutcomeNotFound)
		return model.Persona{}, ErrNotFound
	}
	if err != nil {
		return model.Persona{}, s.fail("update", fmt.Sprintf("error al actualizar la persona con ID %d", id), err)
	}

	if err := s.validator.Validate(ctx, persona, existing.Id); err != nil {
		return model.Persona{}, s.fail("update", fmt.Sprintf("error al actualizar la persona con ID %d", id), err)
	}

	existing.GivenName = persona.GivenName
	existing.FamilyName = persona.FamilyName
	existing.BirthDate = persona.BirthDate.UTC()
	existing.Email = persona.Email
	existing.Phone = persona.Phone
	existing.Address = persona.Address

	if err := s.store.Update(ctx, existing); err != nil {
		return model.Persona{}, s.fail("update", fmt.Sprintf("error al actualizar la persona con ID %d", id), err)
	}
	s.metrics.RecordOperation("update", metrics.OutcomeSuccess)
	s.logger.Info("persona updated", zap.Int64("id", id))
	return existing, nil
}

// Delete removes the persona with the specified id. It returns false if there is no such
// persona.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	_, err := s.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		s.metrics.RecordOperation("delete", metrics.OutcomeNotFound)
		return false, nil
	}
	if err != nil {
		return false, s.fail("delete", fmt.Sprintf("error al eliminar la persona con ID %d", id), err)
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return false, s.fail("delete", fmt.Sprintf("error al eliminar la persona con ID %d", id), err)
	}
	if !deleted {
		// Removed concurrently between lookup and delete.
		s.metrics.RecordOperation("delete", metrics.OutcomeNotFound)
		return false, nil
	}
	s.metrics.RecordOperation("delete", metrics.OutcomeSuccess)
	s.logger.Info("persona deleted", zap.Int64("id", id))
	return true, nil
}

// Filter returns the personas matching every non-blank criterion as a case-insensitive
// substring. Rejecting a call without any criterion is up to the caller.
func (s *Service) Filter(ctx context.Context, criteria model.Criteria) ([]model.Persona, error) {
	personas, err := s.store.Filter(ctx, criteria)
	if err != nil {
		return nil, fmt.Errorf("error al filtrar las personas: %w", err)
	}
	return personas, nil
}

// Exists reports whether a persona with the specified id is stored.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	exists, err := s.store.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("error al verificar existencia de persona con ID %d: %w", id, err)
	}
	return exists, nil
}

// Ping checks that the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// fail classifies err for the metrics and wraps infrastructure errors with msg. Rule violations
// are returned unwrapped; a unique constraint violation reported by the store counts as one.
func (s *Service) fail(operation string, msg string, err error) error {
	if errors.Is(err, store.ErrDuplicateEmail) {
		err = &validation.Error{Reason: validation.MessageDuplicateEmail}
	}
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		s.metrics.RecordOperation(operation, metrics.OutcomeRejected)
		return validationErr
	}
	s.metrics.RecordOperation(operation, metrics.OutcomeError)
	return fmt.Errorf("%s: %w", msg, err)
}
