// Package validation enforces the business rules a persona must satisfy before it is written.
package validation

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/dirk.krummacker/persona-service/internal/model"
)

// MinimumAge is the age in years a persona must have reached.
const MinimumAge = 18

// Messages returned to API clients when a rule is violated.
const (
	MessageDuplicateEmail  = "Ya existe una persona con este email"
	MessageUnderage        = "La persona debe ser mayor de 18 años"
	MessageFutureBirthDate = "La fecha de nacimiento no puede ser futura"
)

// Error is a business rule violation. Its message is meant to be shown to the client verbatim.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// EmailChecker looks up whether an email is already used by another persona.
type EmailChecker interface {
	EmailTaken(ctx context.Context, email string, excludeID model.ID) (bool, error)
}

// Validator checks personas against the business rules.
type Validator struct {
	emails EmailChecker
	now    func() time.Time
}

// New returns a validator that reads the current time from now. A nil now means time.Now.
func New(emails EmailChecker, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{emails: emails, now: now}
}

// Validate runs the checks in order and stops at the first violation, which is returned as
// *Error. Email uniqueness ignores the persona with excludeID, so an update may keep its own
// email. Any other error means the email lookup itself failed.
func (v *Validator) Validate(ctx context.Context, persona model.Persona, excludeID model.ID) error {
	taken, err := v.emails.EmailTaken(ctx, persona.Email, excludeID)
	if err != nil {
		return fmt.Errorf("could not check email uniqueness: %w", err)
	}
	if taken {
		return &Error{Reason: MessageDuplicateEmail}
	}
	today := model.DateOf(v.now())
	if err := checkAge(persona.BirthDate, today); err != nil {
		return err
	}
	return checkNotFuture(persona.BirthDate, today)
}

func checkAge(birth model.Date, today model.Date) error {
	if Age(birth, today) < MinimumAge {
		return &Error{Reason: MessageUnderage}
	}
	return nil
}

func checkNotFuture(birth model.Date, today model.Date) error {
	if birth.After(today) {
		return &Error{Reason: MessageFutureBirthDate}
	}
	return nil
}

// Age returns the number of completed years between birth and today. Someone born on February 29
// completes a year on February 28 of a common year only if today is past that day.
func Age(birth model.Date, today model.Date) int {
	age := today.Year() - birth.Year()
	if birth.After(addYears(today, -age)) {
		age--
	}
	return age
}

// addYears moves d by the specified number of years. February 29 becomes February 28 when the
// target year is not a leap year.
func addYears(d model.Date, years int) model.Date {
	year := d.Year() + years
	day := d.Day()
	if d.Month() == time.February && day == 29 && !isLeap(year) {
		day = 28
	}
	return model.NewDate(year, d.Month(), day)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
