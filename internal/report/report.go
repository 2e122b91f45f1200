// Package report derives plain-text summaries from the current cases.
package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/case-intake/internal/domain"
)

// KindCount is the number of cases of one emergency type.
type KindCount struct {
	Kind  domain.EmergencyKind
	Count int
}

// SeverityCount is the number of cases at one severity.
type SeverityCount struct {
	Severity domain.Severity
	Count    int
}

// Row is one line of the case table.
type Row struct {
	ID       string
	Date     string
	Type     domain.EmergencyKind
	Severity domain.Severity
	Person   string
	City     string
}

// Summary is a snapshot of case counts. Kinds and severities appear in
// enumeration order with zero counts included.
type Summary struct {
	Total      int
	ByType     []KindCount
	BySeverity []SeverityCount
	// Matrix[i][j] counts cases of domain.Kinds[i] at domain.Severities[j].
	Matrix [][]int
	Rows   []Row
}

// Summarize counts cases by type and severity. The result depends only on
// the given cases and their order.
func Summarize(cases []domain.Case) Summary {
	kindIdx := make(map[domain.EmergencyKind]int, len(domain.Kinds))
	for i, k := range domain.Kinds {
		kindIdx[k] = i
	}
	sevIdx := make(map[domain.Severity]int, len(domain.Severities))
	for i, s := range domain.Severities {
		sevIdx[s] = i
	}

	s := Summary{
		Total:      len(cases),
		ByType:     make([]KindCount, len(domain.Kinds)),
		BySeverity: make([]SeverityCount, len(domain.Severities)),
		Matrix:     make([][]int, len(domain.Kinds)),
		Rows:       make([]Row, 0, len(cases)),
	}
	for i, k := range domain.Kinds {
		s.ByType[i].Kind = k
		s.Matrix[i] = make([]int, len(domain.Severities))
	}
	for j, sev := range domain.Severities {
		s.BySeverity[j].Severity = sev
	}

	for _, c := range cases {
		i, okKind := kindIdx[c.EmergencyType.Type]
		j, okSev := sevIdx[c.EmergencyType.Severity]
		if okKind {
			s.ByType[i].Count++
		}
		if okSev {
			s.BySeverity[j].Count++
		}
		if okKind && okSev {
			s.Matrix[i][j]++
		}
		s.Rows = append(s.Rows, Row{
			ID:       c.ID,
			Date:     c.Date.String(),
			Type:     c.EmergencyType.Type,
			Severity: c.EmergencyType.Severity,
			Person:   c.Person.FullName(),
			City:     c.Location.City,
		})
	}
	return s
}

// Render writes the summary as aligned plain text.
func (s Summary) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "EMERGENCY CASE REPORT")
	fmt.Fprintf(tw, "Total cases:\t%d\n", s.Total)

	fmt.Fprintln(tw, "\nBy emergency type")
	for _, kc := range s.ByType {
		fmt.Fprintf(tw, "  %s\t%d\n", kc.Kind, kc.Count)
	}

	fmt.Fprintln(tw, "\nBy severity")
	for _, sc := range s.BySeverity {
		fmt.Fprintf(tw, "  %s\t%d\n", sc.Severity, sc.Count)
	}

	fmt.Fprint(tw, "\nType / severity")
	for _, sev := range domain.Severities {
		fmt.Fprintf(tw, "\t%s", sev)
	}
	fmt.Fprintln(tw)
	for i, k := range domain.Kinds {
		fmt.Fprintf(tw, "  %s", k)
		for _, n := range s.Matrix[i] {
			fmt.Fprintf(tw, "\t%d", n)
		}
		fmt.Fprintln(tw)
	}

	if len(s.Rows) > 0 {
		fmt.Fprintln(tw, "\nCases")
		fmt.Fprintln(tw, "  ID\tDate\tType\tSeverity\tPerson\tCity")
		for _, r := range s.Rows {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.Type, r.Severity, r.Person, r.City)
		}
	}

	return tw.Flush()
}

func (s Summary) String() string {
	var b strings.Builder
	_ = s.Render(&b)
	return b.String()
}

// Detail formats a single case the way an operator reviews it after
// selecting it from the table.
func Detail(c domain.Case) string {
	age := "N/A"
	if c.Person.Age != nil {
		age = fmt.Sprint(*c.Person.Age)
	}
	date := "N/A"
	if !c.Date.IsZero() {
		date = c.Date.String()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Case ID: %s\n", c.ID)
	fmt.Fprintf(&b, "Date: %s\n", date)
	fmt.Fprintf(&b, "Type: %s\n", c.EmergencyType.Type)
	fmt.Fprintf(&b, "Severity: %s\n", c.EmergencyType.Severity)
	fmt.Fprintf(&b, "\nLocation:\n%s\n", c.Location.Address)
	fmt.Fprintf(&b, "%s, %s %s\n", c.Location.City, c.Location.State, c.Location.ZipCode)
	if c.Geo != nil {
		fmt.Fprintf(&b, "Coordinates: %.5f, %.5f\n", c.Geo.Lat, c.Geo.Lon)
	}
	fmt.Fprintf(&b, "\nAffected person:\n%s\n", c.Person.FullName())
	fmt.Fprintf(&b, "Age: %s\n", age)
	fmt.Fprintf(&b, "Phone: %s\n", c.Person.Phone)
	fmt.Fprintf(&b, "Email: %s\n", c.Person.Email)
	fmt.Fprintf(&b, "\nDescription:\n%s", c.Description)
	return strings.TrimSpace(b.String())
}
