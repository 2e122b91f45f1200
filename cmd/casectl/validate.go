package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/couchcryptid/case-intake/internal/adapter/jsonfile"
	"github.com/couchcryptid/case-intake/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// rawCase mirrors the stored case layout with every value kept loose, so
// bad values can be reported instead of failing the whole decode.
type rawCase struct {
	ID            string `json:"id"`
	Date          string `json:"date"`
	EmergencyType struct {
		Type     string `json:"type"`
		Severity string `json:"severity"`
	} `json:"emergency_type"`
	Location struct {
		Address string `json:"address"`
	} `json:"location"`
	Person struct {
		FirstName string          `json:"first_name"`
		Age       json.RawMessage `json:"age"`
	} `json:"person"`
}

func runValidate(_ context.Context, e env, args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	path := e.cfg.CasesFile
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	fmt.Fprintf(e.stdout, "=== Case Data Validation: %s ===\n\n", path)

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(e.stderr, "FATAL: read %s: %v\n", path, err)
		return exitFail
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		fmt.Fprintf(e.stderr, "FATAL: parse document: %v\n", err)
		return exitFail
	}
	if doc == nil {
		fmt.Fprintln(e.stderr, "FATAL: parse document: document is null")
		return exitFail
	}
	// An absent "cases" key is an empty file, as the service loads it.
	var records []json.RawMessage
	if raw, ok := doc["cases"]; ok {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			fmt.Fprintln(e.stderr, `FATAL: parse document: "cases" is null`)
			return exitFail
		}
		if err := json.Unmarshal(raw, &records); err != nil {
			fmt.Fprintf(e.stderr, "FATAL: parse document: %v\n", err)
			return exitFail
		}
	}

	decode := &phase{name: "Phase 1: Case records decode"}
	var cases []rawCase
	for i, raw := range records {
		var c rawCase
		if err := json.Unmarshal(raw, &c); err != nil {
			decode.errorf("case %d: %v", i, err)
			continue
		}
		cases = append(cases, c)
	}

	phases := []*phase{
		decode,
		checkIDs(cases),
		checkRequiredFields(cases),
		checkEnumerations(cases),
		checkValues(cases),
		checkLoader(path),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(e.stdout, "  %-36s %s\n", p.name, status)
	}

	fmt.Fprintf(e.stdout, "\nRecords: %d\n", len(records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(e.stdout, "\n--- %s ---\n", p.name)
		for i, msg := range p.errors {
			fmt.Fprintf(e.stdout, "  [%d] %s\n", i+1, msg)
		}
	}

	if allPassed {
		fmt.Fprintln(e.stdout, "\nAll validations passed.")
		return exitOK
	}
	fmt.Fprintln(e.stdout, "\nValidation FAILED.")
	return exitFail
}

func checkIDs(cases []rawCase) *phase {
	p := &phase{name: "Phase 2: Identifiers"}
	seen := make(map[string]int, len(cases))
	for i, c := range cases {
		if c.ID == "" {
			p.errorf("case %d: missing id", i)
			continue
		}
		if first, ok := seen[c.ID]; ok {
			p.errorf("case %d: id %s already used by case %d", i, c.ID, first)
			continue
		}
		seen[c.ID] = i
	}
	return p
}

func checkRequiredFields(cases []rawCase) *phase {
	p := &phase{name: "Phase 3: Required fields"}
	for i, c := range cases {
		if c.Location.Address == "" {
			p.errorf("case %d (%s): location.address is empty", i, c.ID)
		}
		if c.Person.FirstName == "" {
			p.errorf("case %d (%s): person.first_name is empty", i, c.ID)
		}
	}
	return p
}

func checkEnumerations(cases []rawCase) *phase {
	p := &phase{name: "Phase 4: Enumerations"}
	for i, c := range cases {
		if !domain.EmergencyKind(c.EmergencyType.Type).Valid() {
			p.errorf("case %d (%s): emergency_type.type %q not in %v", i, c.ID, c.EmergencyType.Type, domain.Kinds)
		}
		if !domain.Severity(c.EmergencyType.Severity).Valid() {
			p.errorf("case %d (%s): emergency_type.severity %q not in %v", i, c.ID, c.EmergencyType.Severity, domain.Severities)
		}
	}
	return p
}

func checkValues(cases []rawCase) *phase {
	p := &phase{name: "Phase 5: Dates and ages"}
	for i, c := range cases {
		if c.Date != "" {
			if _, err := domain.ParseDate(c.Date); err != nil {
				p.errorf("case %d (%s): date %q is not YYYY-MM-DD", i, c.ID, c.Date)
			}
		}
		age := bytes.TrimSpace(c.Person.Age)
		if len(age) == 0 || bytes.Equal(age, []byte("null")) {
			continue
		}
		if _, err := strconv.Atoi(string(age)); err != nil {
			p.errorf("case %d (%s): person.age %s is not an integer or null", i, c.ID, age)
		}
	}
	return p
}

// checkLoader confirms the service itself would accept the file.
func checkLoader(path string) *phase {
	p := &phase{name: "Phase 6: Service load"}
	if _, err := jsonfile.New(path).Load(); err != nil {
		p.errorf("%v", err)
	}
	return p
}
