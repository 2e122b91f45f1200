package intake_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/couchcryptid/case-intake/internal/adapter/jsonfile"
	"github.com/couchcryptid/case-intake/internal/domain"
	"github.com/couchcryptid/case-intake/internal/intake"
	"github.com/couchcryptid/case-intake/internal/observability"
	"github.com/couchcryptid/case-intake/internal/store"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type failingRepo struct {
	cases   []domain.Case
	loadErr error
	saveErr error
	saves   int
}

func (r *failingRepo) Load() ([]domain.Case, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.cases, nil
}

func (r *failingRepo) Save(cases []domain.Case) error {
	r.saves++
	if r.saveErr != nil {
		return r.saveErr
	}
	r.cases = cases
	return nil
}

type publishedEvent struct {
	c       domain.Case
	created bool
}

type mockPublisher struct {
	events []publishedEvent
	err    error
}

func (p *mockPublisher) PublishCase(_ context.Context, c domain.Case, created bool) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{c: c, created: created})
	return nil
}

type stubGeocoder struct {
	calls int
}

func (g *stubGeocoder) ForwardGeocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	g.calls++
	return domain.GeocodingResult{Lat: 18.01, Lon: -66.61, FormattedAddress: "Ponce, PR", Confidence: 0.9}, nil
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func anaForm() domain.CaseForm {
	return domain.CaseForm{
		Date:          "2024-09-18",
		EmergencyType: "Fire",
		Severity:      "High",
		Address:       "Calle 5",
		City:          "Ponce",
		FirstName:     "Ana",
		Age:           "34",
		Description:   "Kitchen fire.",
	}
}

func newFileService(t *testing.T) (*intake.Service, *jsonfile.File, *observability.Metrics) {
	t.Helper()
	file := jsonfile.New(filepath.Join(t.TempDir(), "cases.json"))
	metrics := observability.NewUnregisteredMetrics()
	svc := intake.New(store.New(), file, nil, nil, discardLogger(), metrics)
	require.NoError(t, svc.Open(context.Background()))
	return svc, file, metrics
}

// --- tests ---

func TestService_SubmitCreatesAndPersists(t *testing.T) {
	svc, file, metrics := newFileService(t)
	before := svc.Report().Total

	c, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	require.NotNil(t, c.Person.Age)
	assert.Equal(t, 34, *c.Person.Age)
	assert.Len(t, svc.List(), 1)
	assert.Equal(t, before+1, svc.Report().Total)

	found, ok := svc.Get(c.ID)
	require.True(t, ok)
	assert.Equal(t, c, found)

	saved, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, []domain.Case{c}, saved)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CasesSubmitted.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StoreSize))
}

func TestService_SubmitMatchesForm(t *testing.T) {
	svc, _, _ := newFileService(t)
	form := anaForm()
	form.LastName = "Rivera"
	form.State = "PR"
	form.ZipCode = "00716"
	form.Phone = "787-555-0100"
	form.Email = "ana@example.com"
	form.EmergencyType = "Earthquake"
	form.Severity = "Medium"

	c, err := svc.Submit(context.Background(), form)
	require.NoError(t, err)

	found, ok := svc.Get(c.ID)
	require.True(t, ok)
	form.ID = c.ID
	assert.Equal(t, form, domain.FormFromCase(found))
}

func TestService_SubmitValidationFailure(t *testing.T) {
	svc, file, metrics := newFileService(t)
	form := anaForm()
	form.FirstName = ""

	_, err := svc.Submit(context.Background(), form)
	require.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, svc.List())
	_, statErr := os.Stat(file.Path())
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ValidationFailures))
}

func TestService_StoredTextSurvivesReload(t *testing.T) {
	svc, _, _ := newFileService(t)
	ctx := context.Background()

	bad := anaForm()
	bad.FirstName = "An\xffa"
	_, err := svc.Submit(ctx, bad)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"FirstName"}, verr.Fields)
	assert.Empty(t, svc.List())

	good := anaForm()
	good.FirstName = "José"
	good.Description = "Humo <denso> & \"llamas\"\nsegunda línea"
	c, err := svc.Submit(ctx, good)
	require.NoError(t, err)

	require.NoError(t, svc.Reload(ctx))
	reloaded, ok := svc.Get(c.ID)
	require.True(t, ok)
	assert.Equal(t, c, reloaded)
}

func TestService_TwoCasesDistinctAndOrdered(t *testing.T) {
	svc, _, _ := newFileService(t)

	first, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)
	form := anaForm()
	form.FirstName = "Luis"
	second, err := svc.Submit(context.Background(), form)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	all := svc.List()
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
}

func TestService_SubmitUpdatesInPlace(t *testing.T) {
	svc, file, metrics := newFileService(t)

	first, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)

	edit := domain.FormFromCase(first)
	edit.Severity = "Critical"
	edit.Description = "Fire spread to second floor."
	updated, err := svc.Submit(context.Background(), edit)
	require.NoError(t, err)

	assert.Equal(t, first.ID, updated.ID)
	all := svc.List()
	require.Len(t, all, 2)
	assert.Equal(t, updated, all[0])
	assert.Equal(t, second, all[1])
	assert.Equal(t, domain.SeverityCritical, all[0].EmergencyType.Severity)

	saved, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, all, saved)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CasesSubmitted.WithLabelValues("updated")))
}

func TestService_SubmitUnknownID(t *testing.T) {
	svc, _, _ := newFileService(t)
	form := anaForm()
	form.ID = "ghost"

	_, err := svc.Submit(context.Background(), form)
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Empty(t, svc.List())
}

func TestService_SaveFailureKeepsMemory(t *testing.T) {
	repo := &failingRepo{saveErr: errors.New("disk full")}
	svc := intake.New(store.New(), repo, nil, nil, discardLogger(), observability.NewUnregisteredMetrics())
	require.NoError(t, svc.Open(context.Background()))

	c, err := svc.Submit(context.Background(), anaForm())
	require.Error(t, err)

	var saveErr *intake.SaveError
	require.ErrorAs(t, err, &saveErr)
	assert.Equal(t, c, saveErr.Case)
	assert.Contains(t, err.Error(), "disk full")

	all := svc.List()
	require.Len(t, all, 1, "store is not rolled back")
	assert.Equal(t, c.ID, all[0].ID)
}

func TestService_ReloadMalformedKeepsStore(t *testing.T) {
	svc, file, _ := newFileService(t)
	c, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(file.Path(), []byte(`{"cases": "not-a-list"}`), 0o644))

	err = svc.Reload(context.Background())
	require.ErrorIs(t, err, jsonfile.ErrMalformed)
	assert.Equal(t, []domain.Case{c}, svc.List())
}

func TestService_ReloadPicksUpFile(t *testing.T) {
	svc, file, _ := newFileService(t)
	_, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)

	other := domain.Case{
		ID:            "external",
		Date:          domain.Date{Year: 2024, Month: 1, Day: 1},
		EmergencyType: domain.EmergencyType{Type: domain.KindFlood, Severity: domain.SeverityLow},
		Location:      domain.Location{Address: "Elsewhere"},
		Person:        domain.Person{FirstName: "Eve"},
	}
	require.NoError(t, file.Save([]domain.Case{other}))

	require.NoError(t, svc.Reload(context.Background()))
	assert.Equal(t, []domain.Case{other}, svc.List())
}

func TestService_OpenMissingFileIsEmpty(t *testing.T) {
	svc, _, metrics := newFileService(t)
	assert.Empty(t, svc.List())
	assert.NoError(t, svc.CheckReadiness(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FileLoads.WithLabelValues("empty")))
}

func TestService_OpenFailure(t *testing.T) {
	repo := &failingRepo{loadErr: jsonfile.ErrMalformed}
	svc := intake.New(store.New(), repo, nil, nil, discardLogger(), observability.NewUnregisteredMetrics())

	err := svc.Open(context.Background())
	require.ErrorIs(t, err, jsonfile.ErrMalformed)
	assert.ErrorIs(t, svc.CheckReadiness(context.Background()), intake.ErrNotOpen)

	// A failed open must not clobber the file on shutdown.
	require.NoError(t, svc.Close(context.Background()))
	assert.Zero(t, repo.saves)
}

func TestService_CloseSaves(t *testing.T) {
	repo := &failingRepo{}
	svc := intake.New(store.New(), repo, nil, nil, discardLogger(), observability.NewUnregisteredMetrics())
	require.NoError(t, svc.Open(context.Background()))

	_, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)
	require.NoError(t, svc.Close(context.Background()))

	assert.Equal(t, 2, repo.saves)
	assert.Len(t, repo.cases, 1)
}

func TestService_PublishesEvents(t *testing.T) {
	pub := &mockPublisher{}
	metrics := observability.NewUnregisteredMetrics()
	file := jsonfile.New(filepath.Join(t.TempDir(), "cases.json"))
	svc := intake.New(store.New(), file, pub, nil, discardLogger(), metrics)
	require.NoError(t, svc.Open(context.Background()))

	c, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), domain.FormFromCase(c))
	require.NoError(t, err)

	require.Len(t, pub.events, 2)
	assert.True(t, pub.events[0].created)
	assert.False(t, pub.events[1].created)
	assert.Equal(t, c.ID, pub.events[1].c.ID)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("success")))
}

func TestService_PublishFailureDoesNotFailSubmit(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker down")}
	metrics := observability.NewUnregisteredMetrics()
	file := jsonfile.New(filepath.Join(t.TempDir(), "cases.json"))
	svc := intake.New(store.New(), file, pub, nil, discardLogger(), metrics)
	require.NoError(t, svc.Open(context.Background()))

	_, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)
	assert.Len(t, svc.List(), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.EventsPublished.WithLabelValues("error")))
}

func TestService_GeocodesAndKeepsCoordinatesOnEdit(t *testing.T) {
	geo := &stubGeocoder{}
	file := jsonfile.New(filepath.Join(t.TempDir(), "cases.json"))
	svc := intake.New(store.New(), file, nil, geo, discardLogger(), observability.NewUnregisteredMetrics())
	require.NoError(t, svc.Open(context.Background()))

	c, err := svc.Submit(context.Background(), anaForm())
	require.NoError(t, err)
	require.NotNil(t, c.Geo)
	assert.Equal(t, 18.01, c.Geo.Lat)
	assert.Equal(t, 1, geo.calls)

	edit := domain.FormFromCase(c)
	edit.Description = "updated"
	updated, err := svc.Submit(context.Background(), edit)
	require.NoError(t, err)
	assert.Equal(t, c.Geo, updated.Geo)
	assert.Equal(t, 1, geo.calls, "unchanged location is not geocoded again")

	edit.Address = "Calle 9"
	moved, err := svc.Submit(context.Background(), edit)
	require.NoError(t, err)
	require.NotNil(t, moved.Geo)
	assert.Equal(t, 2, geo.calls)
}
