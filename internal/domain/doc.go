// Package domain models emergency intake cases.
//
// # Records
//
// A [Case] is the aggregate root. It owns exactly one [Location], one
// [Person] and one [EmergencyType], plus a free-text description, a calendar
// [Date] and an identifier assigned by the store. Cases never share their
// parts.
//
// # Closed enumerations
//
//	Emergency type: Fire | Flood | Earthquake | Hurricane | Other
//	Severity:       Low | Medium | High | Critical
//
// Both are presented as choices, never as free text. Forms that leave them
// empty get the first entry of each list.
//
// # Forms
//
// Front ends collect raw strings in a [CaseForm] and call [CaseForm.Build].
// First name and address are required. Age is parsed leniently: anything
// that is not an integer becomes an unknown age rather than an error.
//
// # Wire format
//
// Cases marshal to JSON with snake_case keys. Dates use the ISO-8601
// calendar form "YYYY-MM-DD"; an unknown age is encoded as null.
//
// # Geocoding
//
// When a [Geocoder] is configured, [EnrichWithGeocoding] resolves the
// location to coordinates. Lookups are best effort and never block intake.
package domain
