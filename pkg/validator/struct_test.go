package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventForm struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required,event_phone"`
	EventDate  string `json:"event_date" validate:"required,event_date"`
	GuestCount int    `json:"guest_count" validate:"required,min=1"`
}

type signupForm struct {
	Password string `json:"password" validate:"required,strong_password"`
	Terms    bool   `json:"terms_accepted" validate:"eq=true"`
}

func TestStructValidator_Valid(t *testing.T) {
	sv := NewStructValidator()

	err := sv.Validate(&eventForm{
		Name:       "Asha Rao",
		Email:      "asha@example.com",
		Phone:      "+91 98765 43210",
		EventDate:  "2026-12-20",
		GuestCount: 150,
	})
	assert.NoError(t, err)
}

func TestStructValidator_ReportsEveryField(t *testing.T) {
	sv := NewStructValidator()

	err := sv.Validate(&eventForm{
		Email:     "not-an-email",
		Phone:     "12345",
		EventDate: "20/12/2026",
	})
	require.Error(t, err)

	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))

	fields := fieldErrs.Fields()
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "phone")
	assert.Contains(t, fields, "event_date")
	assert.Contains(t, fields, "guest_count")
	assert.Equal(t, "event_date must be a date in YYYY-MM-DD format", fields["event_date"])
}

func TestStructValidator_Password(t *testing.T) {
	sv := NewStructValidator()

	assert.NoError(t, sv.Validate(&signupForm{Password: "Str0ng!pass", Terms: true}))

	err := sv.Validate(&signupForm{Password: "weakpassword", Terms: false})
	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	assert.Len(t, fieldErrs, 2)
}

func TestIsStrongPassword(t *testing.T) {
	assert.True(t, IsStrongPassword("Abcdef1!"))
	assert.False(t, IsStrongPassword("Abcdef1"))
	assert.False(t, IsStrongPassword("abcdefg1!"))
	assert.False(t, IsStrongPassword("ABCDEFG1!"))
	assert.False(t, IsStrongPassword("Abcdefgh!"))
}

type passwordChangeForm struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,nefield=Current"`
	Confirm string `json:"confirm_password" validate:"required,eqfield=New"`
}

func TestStructValidator_FieldComparisons(t *testing.T) {
	sv := NewStructValidator()

	assert.NoError(t, sv.Validate(&passwordChangeForm{Current: "a", New: "b", Confirm: "b"}))

	err := sv.Validate(&passwordChangeForm{Current: "a", New: "a", Confirm: "b"})
	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	fields := fieldErrs.Fields()
	assert.Equal(t, "new_password must be different from the current one", fields["new_password"])
	assert.Equal(t, "confirm_password does not match", fields["confirm_password"])
}
