package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	SetClock(clockwork.NewFakeClockAt(at))
	t.Cleanup(func() { SetClock(nil) })
}

func validForm() CaseForm {
	return CaseForm{
		Date:          "2024-09-18",
		EmergencyType: "Fire",
		Severity:      "High",
		Address:       "Calle 5",
		City:          "Ponce",
		State:         "PR",
		ZipCode:       "00716",
		FirstName:     "Ana",
		LastName:      "Rivera",
		Age:           "34",
		Phone:         "787-555-0100",
		Email:         "ana@example.com",
		Description:   "Kitchen fire, family evacuated.",
	}
}

func TestCaseForm_Build(t *testing.T) {
	c, err := validForm().Build()
	require.NoError(t, err)

	assert.Empty(t, c.ID, "ids are assigned by the store")
	assert.Equal(t, Date{Year: 2024, Month: time.September, Day: 18}, c.Date)
	assert.Equal(t, EmergencyType{Type: KindFire, Severity: SeverityHigh}, c.EmergencyType)
	assert.Equal(t, Location{Address: "Calle 5", City: "Ponce", State: "PR", ZipCode: "00716"}, c.Location)
	assert.Equal(t, "Ana", c.Person.FirstName)
	assert.Equal(t, "Rivera", c.Person.LastName)
	require.NotNil(t, c.Person.Age)
	assert.Equal(t, 34, *c.Person.Age)
	assert.Equal(t, "787-555-0100", c.Person.Phone)
	assert.Equal(t, "ana@example.com", c.Person.Email)
	assert.Equal(t, "Kitchen fire, family evacuated.", c.Description)
	assert.Nil(t, c.Geo)
}

func TestCaseForm_Build_KeepsID(t *testing.T) {
	f := validForm()
	f.ID = "existing-id"

	c, err := f.Build()
	require.NoError(t, err)
	assert.Equal(t, "existing-id", c.ID)
}

func TestCaseForm_Build_Defaults(t *testing.T) {
	freezeClock(t, time.Date(2025, time.March, 3, 22, 15, 0, 0, time.UTC))

	c, err := CaseForm{FirstName: "Ana", Address: "Calle 5"}.Build()
	require.NoError(t, err)

	assert.Equal(t, KindFire, c.EmergencyType.Type)
	assert.Equal(t, SeverityLow, c.EmergencyType.Severity)
	assert.Equal(t, Date{Year: 2025, Month: time.March, Day: 3}, c.Date)
	assert.Nil(t, c.Person.Age)
}

func TestCaseForm_Build_Age(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"", nil},
		{"34", intPtr(34)},
		{" 7 ", intPtr(7)},
		{"thirty", nil},
		{"3.5", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			f := validForm()
			f.Age = tt.in
			c, err := f.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Person.Age)
		})
	}
}

func TestCaseForm_Build_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CaseForm)
		field  string
	}{
		{"missing first name", func(f *CaseForm) { f.FirstName = "" }, "FirstName"},
		{"missing address", func(f *CaseForm) { f.Address = "" }, "Address"},
		{"unknown type", func(f *CaseForm) { f.EmergencyType = "Tornado" }, "EmergencyType"},
		{"unknown severity", func(f *CaseForm) { f.Severity = "Extreme" }, "Severity"},
		{"bad date", func(f *CaseForm) { f.Date = "18/09/2024" }, "Date"},
		{"invalid utf-8 first name", func(f *CaseForm) { f.FirstName = "An\xffa" }, "FirstName"},
		{"invalid utf-8 city", func(f *CaseForm) { f.City = "Pon\xc3" }, "City"},
		{"invalid utf-8 description", func(f *CaseForm) { f.Description = "smoke \xfe\xff" }, "Description"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)

			c, err := f.Build()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Equal(t, Case{}, c)
		})
	}
}

func TestCaseForm_Build_AcceptsMultibyteText(t *testing.T) {
	f := validForm()
	f.FirstName = "José"
	f.Address = "Avenida Muñoz Rivera 1"
	f.Description = "Humo en la cocina 🔥"

	c, err := f.Build()
	require.NoError(t, err)
	assert.Equal(t, "José", c.Person.FirstName)
	assert.Equal(t, "Humo en la cocina 🔥", c.Description)
}

func TestFormFromCase_RoundTrip(t *testing.T) {
	original, err := validForm().Build()
	require.NoError(t, err)
	original.ID = "case-9"

	rebuilt, err := FormFromCase(original).Build()
	require.NoError(t, err)
	assert.Equal(t, original, rebuilt)
}

func intPtr(n int) *int { return &n }
