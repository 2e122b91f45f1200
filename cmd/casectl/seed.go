package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/case-intake/internal/domain"
)

type place struct {
	city, state, zip string
}

var (
	seedStreets = []string{
		"12 River Rd", "400 Main St", "77 Harbor Way", "9 Elm Ct", "1500 Oak Ave",
		"23 Canyon Dr", "310 Bayview Blvd", "8 Mill Ln", "601 Prairie St", "45 Ridge Rd",
	}
	seedPlaces = []place{
		{"Springfield", "IL", "62701"},
		{"Houston", "TX", "77002"},
		{"San Francisco", "CA", "94103"},
		{"Miami", "FL", "33101"},
		{"Cedar Rapids", "IA", "52401"},
		{"Asheville", "NC", "28801"},
	}
	seedFirstNames = []string{"Ana", "Ben", "Chloe", "Dev", "Elena", "Farid", "Grace", "Hiro", "Ines", "Jamal"}
	seedLastNames  = []string{"Ruiz", "Okafor", "Nguyen", "Patel", "Schmidt", "Haddad", "Kim", "Moreau"}
	seedNotes      = map[domain.EmergencyKind][]string{
		domain.KindFire:       {"Kitchen fire spread to attic", "Brush fire near property line", "Smoke from garage"},
		domain.KindFlood:      {"Basement flooding", "Road washed out, car stranded", "Water entering ground floor"},
		domain.KindEarthquake: {"Cracked foundation after tremor", "Chimney collapsed", "Gas smell after shaking"},
		domain.KindHurricane:  {"Roof partially torn off", "Windows blown in", "Trapped by storm surge"},
		domain.KindOther:      {"Tree fell on house", "Power line down in yard", "Sinkhole opened in driveway"},
	}
)

func runSeed(ctx context.Context, e env, args []string) int {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	count := fs.Int("n", 20, "number of cases to add")
	seed := fs.Uint64("seed", 1, "random seed; the same seed yields the same cases")
	today := fs.String("today", "2024-09-18", "date used as today, YYYY-MM-DD")
	reset := fs.Bool("reset", false, "discard existing cases first")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if *count < 0 {
		fmt.Fprintln(e.stderr, "-n must not be negative")
		return exitUsage
	}
	day, err := time.Parse(domain.DateLayout, *today)
	if err != nil {
		fmt.Fprintf(e.stderr, "invalid -today: %v\n", err)
		return exitUsage
	}

	// Fixed clock and id source for reproducible output.
	domain.SetClock(clockwork.NewFakeClockAt(day.Add(9 * time.Hour)))
	defer domain.SetClock(nil)
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], *seed)
	uuid.SetRand(rand.NewChaCha8(key))
	defer uuid.SetRand(nil)
	rng := rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15))

	a, ok := e.open(ctx)
	if !ok {
		return exitFail
	}
	if *reset {
		// Open succeeded, so the file is readable and safe to discard.
		if err := a.File.Save(nil); err != nil {
			fmt.Fprintf(e.stderr, "reset %s: %v\n", e.cfg.CasesFile, err)
			return exitFail
		}
		if err := a.Service.Reload(ctx); err != nil {
			fmt.Fprintf(e.stderr, "reset %s: %v\n", e.cfg.CasesFile, err)
			return exitFail
		}
	}

	for range *count {
		if _, err := a.Service.Submit(ctx, sampleForm(rng, day)); err != nil {
			fmt.Fprintf(e.stderr, "seed: %v\n", err)
			return exitFail
		}
	}
	if err := a.Close(ctx); err != nil {
		fmt.Fprintf(e.stderr, "close: %v\n", err)
		return exitFail
	}

	fmt.Fprintf(e.stdout, "seeded %d cases into %s (%d total)\n", *count, e.cfg.CasesFile, len(a.Service.List()))
	return exitOK
}

// sampleForm draws one plausible intake form. Roughly a third of the forms
// leave type, severity or date empty so the form defaults are exercised.
func sampleForm(rng *rand.Rand, today time.Time) domain.CaseForm {
	kind := domain.Kinds[rng.IntN(len(domain.Kinds))]
	p := seedPlaces[rng.IntN(len(seedPlaces))]
	notes := seedNotes[kind]

	f := domain.CaseForm{
		EmergencyType: string(kind),
		Severity:      string(domain.Severities[rng.IntN(len(domain.Severities))]),
		Address:       seedStreets[rng.IntN(len(seedStreets))],
		City:          p.city,
		State:         p.state,
		ZipCode:       p.zip,
		FirstName:     seedFirstNames[rng.IntN(len(seedFirstNames))],
		LastName:      seedLastNames[rng.IntN(len(seedLastNames))],
		Phone:         fmt.Sprintf("555-%04d", rng.IntN(10000)),
		Description:   notes[rng.IntN(len(notes))],
	}
	f.Email = fmt.Sprintf("%s.%s@example.com", f.FirstName, f.LastName)

	switch rng.IntN(3) {
	case 0:
		f.Date = today.AddDate(0, 0, -rng.IntN(14)).Format(domain.DateLayout)
	case 1:
		// Default date (today).
	default:
		f.Date = today.Format(domain.DateLayout)
	}
	if rng.IntN(4) > 0 {
		f.Age = strconv.Itoa(1 + rng.IntN(90))
	}
	if kind == domain.KindFire && rng.IntN(3) == 0 {
		f.EmergencyType, f.Severity = "", ""
	}
	return f
}
