package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/dirk.krummacker/persona-service/internal/model"
)

// fakeEmails answers EmailTaken from a map of email to owner id.
type fakeEmails struct {
	owners map[string]int64
	err    error
	calls  int
}

func (f *fakeEmails) EmailTaken(ctx context.Context, email string, excludeID model.ID) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	owner, ok := f.owners[email]
	if !ok {
		return false, nil
	}
	exclude, set := excludeID.Get()
	return !set || owner != exclude, nil
}

// today is the fixed current date of all tests.
var today = time.Date(2026, time.October, 18, 15, 4, 5, 0, time.UTC)

func fixedClock() time.Time {
	return today
}

// reasonOf returns the message of a validation error, failing the test for any other error.
func reasonOf(t *testing.T, err error) string {
	t.Helper()
	var validationErr *Error
	require.True(t, errors.As(err, &validationErr), "expected a validation error, got %v", err)
	return validationErr.Reason
}

// TestValidateValid expects no error for an adult with a fresh email.
func TestValidateValid(t *testing.T) {
	v := New(&fakeEmails{}, fixedClock)
	err := v.Validate(context.Background(), model.Persona{
		Email:     "ana@x.com",
		BirthDate: model.NewDate(2000, time.January, 1),
	}, model.ID{})
	assert.NoError(t, err)
}

// TestValidateDuplicateEmail expects the duplicate to be rejected unless it belongs to the
// excluded persona.
func TestValidateDuplicateEmail(t *testing.T) {
	emails := &fakeEmails{owners: map[string]int64{"ana@x.com": 3}}
	v := New(emails, fixedClock)
	persona := model.Persona{Email: "ana@x.com", BirthDate: model.NewDate(2000, time.January, 1)}

	err := v.Validate(context.Background(), persona, model.ID{})
	assert.Equal(t, MessageDuplicateEmail, reasonOf(t, err))

	err = v.Validate(context.Background(), persona, model.NewID(4))
	assert.Equal(t, MessageDuplicateEmail, reasonOf(t, err))

	err = v.Validate(context.Background(), persona, model.NewID(3))
	assert.NoError(t, err)
}

// TestValidateOrder expects the email check to win over the age check.
func TestValidateOrder(t *testing.T) {
	emails := &fakeEmails{owners: map[string]int64{"kid@x.com": 1}}
	v := New(emails, fixedClock)
	err := v.Validate(context.Background(), model.Persona{
		Email:     "kid@x.com",
		BirthDate: model.NewDate(2020, time.January, 1),
	}, model.ID{})
	assert.Equal(t, MessageDuplicateEmail, reasonOf(t, err))
}

// TestValidateLookupFailure expects a failing email lookup not to be reported as a rule
// violation.
func TestValidateLookupFailure(t *testing.T) {
	failure := errors.New("connection refused")
	v := New(&fakeEmails{err: failure}, fixedClock)
	err := v.Validate(context.Background(), model.Persona{Email: "ana@x.com"}, model.ID{})
	assert.ErrorIs(t, err, failure)
	var validationErr *Error
	assert.False(t, errors.As(err, &validationErr))
}

// TestValidateAgeBoundary expects exactly 18 years to pass and one day less to fail.
func TestValidateAgeBoundary(t *testing.T) {
	v := New(&fakeEmails{}, fixedClock)
	err := v.Validate(context.Background(), model.Persona{BirthDate: model.NewDate(2008, time.October, 18)}, model.ID{})
	assert.NoError(t, err)

	err = v.Validate(context.Background(), model.Persona{BirthDate: model.NewDate(2008, time.October, 19)}, model.ID{})
	assert.Equal(t, MessageUnderage, reasonOf(t, err))
}

// TestValidateFutureBirthDate expects a birth date of tomorrow to be rejected. Since such a
// persona is also underage, the age rule reports it first.
func TestValidateFutureBirthDate(t *testing.T) {
	v := New(&fakeEmails{}, fixedClock)
	err := v.Validate(context.Background(), model.Persona{BirthDate: model.NewDate(2026, time.October, 19)}, model.ID{})
	assert.Equal(t, MessageUnderage, reasonOf(t, err))
}

// TestCheckNotFuture checks the future date rule on its own: today passes, tomorrow fails.
func TestCheckNotFuture(t *testing.T) {
	now := model.DateOf(today)
	assert.NoError(t, checkNotFuture(model.NewDate(2026, time.October, 18), now))
	assert.NoError(t, checkNotFuture(model.NewDate(1990, time.October, 19), now))
	err := checkNotFuture(model.NewDate(2026, time.October, 19), now)
	assert.Equal(t, MessageFutureBirthDate, reasonOf(t, err))
}

// TestCheckNotFutureIgnoresClock expects only the calendar day to count.
func TestCheckNotFutureIgnoresClock(t *testing.T) {
	birth := model.Date{Time: time.Date(2026, time.October, 18, 23, 59, 0, 0, time.UTC)}
	assert.NoError(t, checkNotFuture(birth, model.DateOf(today)))
}

// TestAge checks ordinary and leap day birthdays.
func TestAge(t *testing.T) {
	tests := []struct {
		birth model.Date
		today model.Date
		age   int
	}{
		{model.NewDate(2000, time.January, 1), model.NewDate(2026, time.October, 18), 26},
		{model.NewDate(2008, time.October, 18), model.NewDate(2026, time.October, 18), 18},
		{model.NewDate(2008, time.October, 19), model.NewDate(2026, time.October, 18), 17},
		{model.NewDate(2008, time.February, 29), model.NewDate(2026, time.February, 28), 17},
		{model.NewDate(2008, time.February, 29), model.NewDate(2026, time.March, 1), 18},
		{model.NewDate(2004, time.February, 29), model.NewDate(2024, time.February, 29), 20},
		{model.NewDate(2006, time.February, 28), model.NewDate(2024, time.February, 29), 18},
		{model.NewDate(2006, time.March, 1), model.NewDate(2024, time.February, 29), 17},
		{model.NewDate(2026, time.October, 19), model.NewDate(2026, time.October, 18), -1},
	}
	for _, test := range tests {
		assert.Equal(t, test.age, Age(test.birth, test.today), "birth %s, today %s", test.birth, test.today)
	}
}
