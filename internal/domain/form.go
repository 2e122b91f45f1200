package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ErrValidation marks a form that cannot be turned into a Case.
var ErrValidation = errors.New("invalid case form")

// ValidationError lists the form fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// CaseForm is the raw user input for one case, as typed into a front end.
// ID is empty for a new case and carries the existing id on resubmission.
type CaseForm struct {
	ID            string `json:"id,omitempty" validate:"utf8"`
	Date          string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EmergencyType string `json:"emergency_type,omitempty" validate:"required,oneof=Fire Flood Earthquake Hurricane Other"`
	Severity      string `json:"severity,omitempty" validate:"required,oneof=Low Medium High Critical"`

	Address string `json:"address" validate:"required,utf8"`
	City    string `json:"city,omitempty" validate:"utf8"`
	State   string `json:"state,omitempty" validate:"utf8"`
	ZipCode string `json:"zip_code,omitempty" validate:"utf8"`

	FirstName string `json:"first_name" validate:"required,utf8"`
	LastName  string `json:"last_name,omitempty" validate:"utf8"`
	Age       string `json:"age,omitempty"`
	Phone     string `json:"phone,omitempty" validate:"utf8"`
	Email     string `json:"email,omitempty" validate:"utf8"`

	Description string `json:"description,omitempty" validate:"utf8"`
}

var validate = newValidator()

// newValidator adds the "utf8" tag: stored text must survive a JSON round
// trip byte for byte, and encoding/json rewrites invalid UTF-8.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("utf8", func(fl validator.FieldLevel) bool { // only errors on an empty tag
		return utf8.ValidString(fl.Field().String())
	})
	return v
}

// Build validates the form and constructs the Case it describes. Empty
// type, severity and date fall back to Fire, Low and today. A non-numeric
// age is treated as unknown. No Case is returned when validation fails.
func (f CaseForm) Build() (Case, error) {
	if f.EmergencyType == "" {
		f.EmergencyType = string(KindFire)
	}
	if f.Severity == "" {
		f.Severity = string(SeverityLow)
	}

	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field())
			}
			return Case{}, &ValidationError{Fields: fields}
		}
		return Case{}, fmt.Errorf("validate case form: %w", err)
	}

	date := Today()
	if f.Date != "" {
		d, err := ParseDate(f.Date)
		if err != nil {
			return Case{}, &ValidationError{Fields: []string{"Date"}}
		}
		date = d
	}

	return Case{
		ID:   f.ID,
		Date: date,
		EmergencyType: EmergencyType{
			Type:     EmergencyKind(f.EmergencyType),
			Severity: Severity(f.Severity),
		},
		Location: Location{
			Address: f.Address,
			City:    f.City,
			State:   f.State,
			ZipCode: f.ZipCode,
		},
		Person: Person{
			FirstName: f.FirstName,
			LastName:  f.LastName,
			Age:       parseAge(f.Age),
			Phone:     f.Phone,
			Email:     f.Email,
		},
		Description: f.Description,
	}, nil
}

// FormFromCase fills a form with an existing case, the way a front end
// loads a selected row back into its inputs for editing.
func FormFromCase(c Case) CaseForm {
	f := CaseForm{
		ID:            c.ID,
		EmergencyType: string(c.EmergencyType.Type),
		Severity:      string(c.EmergencyType.Severity),
		Address:       c.Location.Address,
		City:          c.Location.City,
		State:         c.Location.State,
		ZipCode:       c.Location.ZipCode,
		FirstName:     c.Person.FirstName,
		LastName:      c.Person.LastName,
		Phone:         c.Person.Phone,
		Email:         c.Person.Email,
		Description:   c.Description,
	}
	if !c.Date.IsZero() {
		f.Date = c.Date.String()
	}
	if c.Person.Age != nil {
		f.Age = strconv.Itoa(*c.Person.Age)
	}
	return f
}

// parseAge returns nil for empty or non-numeric input.
func parseAge(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
