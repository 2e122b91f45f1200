package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EmergencyKind is the closed set of emergency categories offered at intake.
type EmergencyKind string

const (
	KindFire       EmergencyKind = "Fire"
	KindFlood      EmergencyKind = "Flood"
	KindEarthquake EmergencyKind = "Earthquake"
	KindHurricane  EmergencyKind = "Hurricane"
	KindOther      EmergencyKind = "Other"
)

// Kinds lists every EmergencyKind in presentation order.
var Kinds = []EmergencyKind{KindFire, KindFlood, KindEarthquake, KindHurricane, KindOther}

// Valid reports whether k is one of Kinds.
func (k EmergencyKind) Valid() bool {
	for _, v := range Kinds {
		if k == v {
			return true
		}
	}
	return false
}

// Severity is the closed four-level urgency scale.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// Severities lists every Severity from least to most urgent.
var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// Valid reports whether s is one of Severities.
func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

// Location is where the emergency happened.
type Location struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// Person is the affected individual. Age is nil when unknown.
type Person struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       *int   `json:"age"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

// FullName joins first and last name, skipping empty parts.
func (p Person) FullName() string {
	switch {
	case p.LastName == "":
		return p.FirstName
	case p.FirstName == "":
		return p.LastName
	default:
		return p.FirstName + " " + p.LastName
	}
}

// EmergencyType pairs the emergency category with its severity.
type EmergencyType struct {
	Type     EmergencyKind `json:"type"`
	Severity Severity      `json:"severity"`
}

// Geo is the geocoded position of a case location.
type Geo struct {
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	FormattedAddress string  `json:"formatted_address,omitempty"`
	Confidence       float64 `json:"confidence,omitempty"`
}

// Case is one emergency intake record. It exclusively owns its Location,
// Person and EmergencyType.
type Case struct {
	ID            string        `json:"id"`
	Date          Date          `json:"date"`
	EmergencyType EmergencyType `json:"emergency_type"`
	Location      Location      `json:"location"`
	Person        Person        `json:"person"`
	Description   string        `json:"description"`

	// Geo is set only when location geocoding succeeded.
	Geo *Geo `json:"geo,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate shared pointer fields.
func (c Case) Clone() Case {
	if c.Person.Age != nil {
		age := *c.Person.Age
		c.Person.Age = &age
	}
	if c.Geo != nil {
		g := *c.Geo
		c.Geo = &g
	}
	return c
}

// CheckIntegrity verifies the fields every stored case must carry: an id
// and members of both closed enumerations.
func (c Case) CheckIntegrity() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("missing id"))
	}
	if !c.EmergencyType.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown emergency type %q", c.EmergencyType.Type))
	}
	if !c.EmergencyType.Severity.Valid() {
		errs = append(errs, fmt.Errorf("unknown severity %q", c.EmergencyType.Severity))
	}
	return errors.Join(errs...)
}

// DateLayout is the ISO-8601 calendar date format used on the wire.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// String formats d as YYYY-MM-DD, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalJSON encodes d as "YYYY-MM-DD", or "" for the zero Date.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
