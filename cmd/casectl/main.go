// Command casectl records, edits and reports emergency cases in the same
// data file the intake service uses.
//
// Usage:
//
//	casectl [-file cases.json] <command> [flags]
//
// Commands:
//
//	add       record a new case from flags
//	update    edit an existing case; only the given flags change
//	list      print the case table
//	show      print one case in detail
//	report    print the summary report
//	validate  check a data file for integrity problems
//	seed      append reproducible sample cases
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/couchcryptid/case-intake/internal/app"
	"github.com/couchcryptid/case-intake/internal/config"
	"github.com/couchcryptid/case-intake/internal/domain"
	"github.com/couchcryptid/case-intake/internal/intake"
	"github.com/couchcryptid/case-intake/internal/observability"
	"github.com/couchcryptid/case-intake/internal/report"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// env carries what every command needs.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, e env, args []string) int
}

var commands = []command{
	{name: "add", usage: "record a new case", run: runAdd},
	{name: "update", usage: "edit an existing case: update <id> [flags]", run: runUpdate},
	{name: "list", usage: "print the case table", run: runList},
	{name: "show", usage: "print one case: show <id>", run: runShow},
	{name: "report", usage: "print the summary report", run: runReport},
	{name: "validate", usage: "check a data file for integrity problems", run: runValidate},
	{name: "seed", usage: "append reproducible sample cases", run: runSeed},
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("casectl", flag.ContinueOnError)
	global.SetOutput(stderr)
	file := global.String("file", "", "data file (default $CASES_FILE or cases.json)")
	global.Usage = func() {
		fmt.Fprintln(stderr, "usage: casectl [-file path] <command> [flags]")
		fmt.Fprintln(stderr)
		for _, c := range commands {
			fmt.Fprintf(stderr, "  %-9s %s\n", c.name, c.usage)
		}
	}
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		global.Usage()
		return exitUsage
	}

	name, rest := global.Arg(0), global.Args()[1:]
	var cmd *command
	for i := range commands {
		if commands[i].name == name {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "unknown command %q\n", name)
		global.Usage()
		return exitUsage
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return exitFail
	}
	if *file != "" {
		cfg.CasesFile = *file
	}
	// Quieter defaults than the service: only problems reach the terminal.
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "text"
	}
	e := env{
		cfg:    cfg,
		logger: observability.NewCLILogger(stderr, cfg),
		stdout: stdout,
		stderr: stderr,
	}
	return cmd.run(context.Background(), e, rest)
}

// open builds and opens the service over the configured data file.
func (e env) open(ctx context.Context) (*app.App, bool) {
	a := app.New(e.cfg, e.logger, observability.NewUnregisteredMetrics())
	if err := a.Service.Open(ctx); err != nil {
		fmt.Fprintf(e.stderr, "cannot load %s: %v\n", e.cfg.CasesFile, err)
		return nil, false
	}
	return a, true
}

// formField binds one CaseForm input to a command-line flag.
type formField struct {
	name  string
	usage string
	ptr   func(*domain.CaseForm) *string
}

var formFields = []formField{
	{"date", "case date YYYY-MM-DD (default today)", func(f *domain.CaseForm) *string { return &f.Date }},
	{"type", "emergency type: Fire, Flood, Earthquake, Hurricane or Other (default Fire)", func(f *domain.CaseForm) *string { return &f.EmergencyType }},
	{"severity", "severity: Low, Medium, High or Critical (default Low)", func(f *domain.CaseForm) *string { return &f.Severity }},
	{"address", "street address (required)", func(f *domain.CaseForm) *string { return &f.Address }},
	{"city", "city", func(f *domain.CaseForm) *string { return &f.City }},
	{"state", "state or province", func(f *domain.CaseForm) *string { return &f.State }},
	{"zip", "postal code", func(f *domain.CaseForm) *string { return &f.ZipCode }},
	{"first", "first name of the affected person (required)", func(f *domain.CaseForm) *string { return &f.FirstName }},
	{"last", "last name", func(f *domain.CaseForm) *string { return &f.LastName }},
	{"age", "age in years", func(f *domain.CaseForm) *string { return &f.Age }},
	{"phone", "phone number", func(f *domain.CaseForm) *string { return &f.Phone }},
	{"email", "email address", func(f *domain.CaseForm) *string { return &f.Email }},
	{"description", "free-text description", func(f *domain.CaseForm) *string { return &f.Description }},
}

func bindFormFlags(fs *flag.FlagSet) map[string]*string {
	values := make(map[string]*string, len(formFields))
	for _, f := range formFields {
		values[f.name] = fs.String(f.name, "", f.usage)
	}
	return values
}

// applyFormFlags copies only the flags given on the command line into form.
func applyFormFlags(fs *flag.FlagSet, values map[string]*string, form *domain.CaseForm) {
	fs.Visit(func(fl *flag.Flag) {
		for _, f := range formFields {
			if f.name == fl.Name {
				*f.ptr(form) = *values[f.name]
			}
		}
	})
}

func runAdd(ctx context.Context, e env, args []string) int {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	values := bindFormFlags(fs)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	var form domain.CaseForm
	applyFormFlags(fs, values, &form)
	return submit(ctx, e, form, "created")
}

func runUpdate(ctx context.Context, e env, args []string) int {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	values := bindFormFlags(fs)
	// The id may come before or after the flags.
	id, rest := "", args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		id, rest = args[0], args[1:]
	}
	if err := fs.Parse(rest); err != nil {
		return exitUsage
	}
	if id == "" && fs.NArg() > 0 {
		id = fs.Arg(0)
		if err := fs.Parse(fs.Args()[1:]); err != nil {
			return exitUsage
		}
	}
	if id == "" || fs.NArg() > 0 {
		fmt.Fprintln(e.stderr, "usage: casectl update <id> [flags] | update [flags] <id>")
		return exitUsage
	}

	a, ok := e.open(ctx)
	if !ok {
		return exitFail
	}
	existing, found := a.Service.Get(id)
	if !found {
		fmt.Fprintf(e.stderr, "case %s not found\n", id)
		return exitFail
	}
	form := domain.FormFromCase(existing)
	applyFormFlags(fs, values, &form)
	return submitWith(ctx, e, a, form, "updated")
}

func submit(ctx context.Context, e env, form domain.CaseForm, verb string) int {
	a, ok := e.open(ctx)
	if !ok {
		return exitFail
	}
	return submitWith(ctx, e, a, form, verb)
}

func submitWith(ctx context.Context, e env, a *app.App, form domain.CaseForm, verb string) int {
	c, err := a.Service.Submit(ctx, form)
	var saveErr *intake.SaveError
	switch {
	case errors.As(err, &saveErr):
		fmt.Fprintf(e.stderr, "case %s was not saved: %v\n", saveErr.Case.ID, saveErr.Err)
		return exitFail
	case err != nil:
		fmt.Fprintf(e.stderr, "%v\n", err)
		return exitFail
	}
	if err := a.Close(ctx); err != nil {
		fmt.Fprintf(e.stderr, "close: %v\n", err)
		return exitFail
	}
	fmt.Fprintf(e.stdout, "%s %s\n", verb, c.ID)
	return exitOK
}

func runList(ctx context.Context, e env, args []string) int {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	asJSON := fs.Bool("json", false, "print cases as JSON")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	a, ok := e.open(ctx)
	if !ok {
		return exitFail
	}
	cases := a.Service.List()

	if *asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(cases); err != nil {
			fmt.Fprintf(e.stderr, "encode: %v\n", err)
			return exitFail
		}
		return exitOK
	}

	tw := tabwriter.NewWriter(e.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tSEVERITY\tPERSON\tCITY")
	for _, r := range report.Summarize(cases).Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.Type, r.Severity, r.Person, r.City)
	}
	if err := tw.Flush(); err != nil {
		return exitFail
	}
	return exitOK
}

func runShow(ctx context.Context, e env, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(e.stderr, "usage: casectl show <id>")
		return exitUsage
	}
	a, ok := e.open(ctx)
	if !ok {
		return exitFail
	}
	c, found := a.Service.Get(args[0])
	if !found {
		fmt.Fprintf(e.stderr, "case %s not found\n", args[0])
		return exitFail
	}
	fmt.Fprintln(e.stdout, report.Detail(c))
	return exitOK
}

func runReport(ctx context.Context, e env, args []string) int {
	if len(args) != 0 {
		fmt.Fprintln(e.stderr, "usage: casectl report")
		return exitUsage
	}
	a, ok := e.open(ctx)
	if !ok {
		return exitFail
	}
	if err := a.Service.Report().Render(e.stdout); err != nil {
		fmt.Fprintf(e.stderr, "render report: %v\n", err)
		return exitFail
	}
	return exitOK
}
