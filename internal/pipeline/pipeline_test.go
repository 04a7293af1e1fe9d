package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verity/verity/internal/extract"
	"github.com/verity/verity/internal/metrics"
	"github.com/verity/verity/internal/model"
	"github.com/verity/verity/internal/render"
	"github.com/verity/verity/internal/rules"
	"github.com/verity/verity/internal/source"
)

var (
	rulesNow  = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	reportNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
)

type fakeSource struct {
	apps map[string]*model.Application
	docs map[string][]byte
}

func (s *fakeSource) Application(ctx context.Context, id string) (*model.Application, error) {
	app, ok := s.apps[id]
	if !ok {
		return nil, fmt.Errorf("applications/%s: %w", id, source.ErrNotFound)
	}
	return app, nil
}

func (s *fakeSource) Document(ctx context.Context, applicationID, kind string) ([]byte, error) {
	data, ok := s.docs[kind]
	if !ok {
		return nil, fmt.Errorf("unexpected status: 502")
	}
	return data, nil
}

type fakeRenderer struct{}

func (fakeRenderer) Render(ctx context.Context, filename string, data []byte) ([]render.Page, error) {
	if string(data) == "corrupt" {
		return nil, fmt.Errorf("%w: %s", render.ErrDecode, filename)
	}
	return []render.Page{{Filename: filename, Number: 1, Image: "AAAA"}}, nil
}

type fakeExtractor struct {
	results map[string]*extract.Result
	errs    map[string]error
	block   map[string]bool
	delay   time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeExtractor) Process(ctx context.Context, filename string, pages []render.Page) (*extract.Result, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if f.block[filename] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	res, ok := f.results[filename]
	if err := f.errs[filename]; err != nil {
		return res, err
	}
	if !ok {
		return nil, fmt.Errorf("no scripted result for %s", filename)
	}
	return res, nil
}

func result(cat model.Category, fields map[string]any) *extract.Result {
	return &extract.Result{Category: cat, Confidence: 0.9, Fields: fields}
}

// cleanResults satisfies every rule
func cleanResults() map[string]*extract.Result {
	return map[string]*extract.Result{
		"passport.pdf": result(model.CategoryIdentity, map[string]any{
			"document_type": "Passport",
			"surname":       "Mustermann",
			"given_names":   "Hans",
			"date_of_birth": "1980-01-01",
			"nationality":   "TUR",
			"valid_until":   "2030-01-01",
		}),
		"permit_old.pdf": result(model.CategoryIdentity, map[string]any{
			"document_type":     "Residence Permit",
			"nationality":       "TUR",
			"surname":           "Mustermann",
			"given_names":       "Hans",
			"valid_from":        "2016-01-01",
			"valid_until":       "2021-01-01",
			"paragraph_remarks": "§18b",
		}),
		"permit.pdf": result(model.CategoryIdentity, map[string]any{
			"document_type":     "Residence Permit",
			"nationality":       "TUR",
			"surname":           "Mustermann",
			"given_names":       "Hans",
			"valid_from":        "2021-03-01",
			"valid_until":       "2028-03-01",
			"paragraph_remarks": "§9",
		}),
		"payslip.pdf": result(model.CategoryLivelihood, map[string]any{
			"applicant_name": "Hans Mustermann",
			"net_income":     2500.0,
		}),
		"rent.pdf": result(model.CategoryLivelihood, map[string]any{
			"applicant_name":  "Herr Hans Mustermann",
			"total_warm_rent": 900.0,
		}),
		"telc.pdf": result(model.CategoryIntegration, map[string]any{
			"certificate_type": "Language Certificate",
			"examinee_name":    "Hans Mustermann",
			"language":         "Deutsch",
			"institute_name":   "telc gGmbH",
			"achieved_level":   "B1",
		}),
		"lid.pdf": result(model.CategoryIntegration, map[string]any{
			"certificate_type": "Naturalization Test",
			"examinee_name":    "Hans Mustermann",
			"result_status":    "bestanden",
		}),
	}
}

var declared = []model.DocumentRef{
	{Kind: "passport", Filename: "passport.pdf"},
	{Kind: "aufenthaltstitel_alt", Filename: "permit_old.pdf"},
	{Kind: "aufenthaltstitel", Filename: "permit.pdf"},
	{Kind: "lohnabrechnung", Filename: "payslip.pdf"},
	{Kind: "mietvertrag", Filename: "rent.pdf"},
	{Kind: "sprachzertifikat", Filename: "telc.pdf"},
	{Kind: "einbuergerungstest", Filename: "lid.pdf"},
}

func newSource() *fakeSource {
	docs := make(map[string][]byte)
	for _, d := range declared {
		docs[d.Kind] = []byte("%PDF " + d.Kind)
	}
	return &fakeSource{
		apps: map[string]*model.Application{
			"42":    {ID: "42", FirstName: "Hans", LastName: "Mustermann", Documents: declared},
			"empty": {ID: "empty"},
		},
		docs: docs,
	}
}

func newTestPipeline(t *testing.T, src DocumentSource, ex Extractor, opts ...Option) *Pipeline {
	t.Helper()

	cfg := model.DefaultConfig()
	cfg.Source.BaseURL = ""
	cfg.Concurrency.RenderWorkers = 2
	cfg.Concurrency.Documents = 4
	cfg.DocumentTimeout = time.Second

	rcfg := rules.DefaultConfig()
	rcfg.Now = func() time.Time { return rulesNow }

	base := []Option{
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithRenderer(fakeRenderer{}),
		WithExtractor(ex),
		WithEngine(rules.New(rcfg)),
		WithClock(func() time.Time { return reportNow }),
	}
	if src != nil {
		base = append(base, WithSource(src))
	}

	p, err := NewPipeline(cfg, append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func findCheck(t *testing.T, report *model.ValidationReport, check string) model.CheckResult {
	t.Helper()
	for _, c := range report.Checks {
		if c.CheckDisplayTitle == check {
			return c
		}
	}
	t.Fatalf("no %q check in %+v", check, report.Checks)
	return model.CheckResult{}
}

func TestCheck_CleanApplication(t *testing.T) {
	p := newTestPipeline(t, newSource(), &fakeExtractor{results: cleanResults()})

	report, err := p.Check(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, "42", report.ApplicationID)
	assert.True(t, report.IsComplete)
	assert.Equal(t, model.VerdictSuccess, report.OverallResult)
	assert.Equal(t, "2025-06-01T12:00:00.000000Z", report.CheckedAt)
	assert.NotNil(t, report.Checks)
	assert.Empty(t, report.Checks)
}

func TestCheck_AlertsMappedToChecks(t *testing.T) {
	results := cleanResults()
	results["passport.pdf"].Fields["valid_until"] = "2025-07-01"
	delete(results, "lid.pdf")
	src := newSource()
	src.apps["42"].Documents = declared[:6]

	p := newTestPipeline(t, src, &fakeExtractor{results: results})

	report, err := p.Check(context.Background(), "42")
	require.NoError(t, err)

	assert.Equal(t, model.VerdictCriticalError, report.OverallResult)
	assert.True(t, report.IsComplete)
	require.Len(t, report.Checks, 2)

	passport := findCheck(t, report, rules.CheckPassportValidity)
	assert.Equal(t, "passport.pdf", passport.DocumentTitle)
	assert.Equal(t, "passport", passport.Type)
	assert.Equal(t, model.CheckFail, passport.Status)

	naturalization := findCheck(t, report, rules.CheckNaturalization)
	assert.Equal(t, "Unknown Document", naturalization.DocumentTitle)
	assert.Equal(t, "unknown", naturalization.Type)
	assert.Equal(t, "Kein Einbürgerungstest-Zertifikat gefunden!", naturalization.Message)
}

func TestCheck_ExcludedDocumentsDoNotAbort(t *testing.T) {
	src := newSource()
	delete(src.docs, "mietvertrag")
	src.docs["sprachzertifikat"] = []byte("corrupt")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	p := newTestPipeline(t, src, &fakeExtractor{results: cleanResults()}, WithMetrics(m))

	report, err := p.Check(context.Background(), "42")
	require.NoError(t, err)

	assert.False(t, report.IsComplete)
	assert.Equal(t, model.VerdictCriticalError, report.OverallResult)
	findCheck(t, report, rules.CheckLivelihood)
	findCheck(t, report, rules.CheckLanguageCert)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsExcluded.WithLabelValues(string(StageFetching))))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DocumentsExcluded.WithLabelValues(string(StageRendering))))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.DocumentsUsable))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("check", "CRITICAL_ERROR")))
}

func TestCheck_DocumentTimeoutExcludesOnlyThatDocument(t *testing.T) {
	ex := &fakeExtractor{results: cleanResults(), block: map[string]bool{"telc.pdf": true}}
	p := newTestPipeline(t, newSource(), ex)
	p.docTimeout = 50 * time.Millisecond

	report, err := p.Check(context.Background(), "42")
	require.NoError(t, err)

	assert.False(t, report.IsComplete)
	require.Len(t, report.Checks, 1)
	assert.Equal(t, rules.CheckLanguageCert, report.Checks[0].CheckDisplayTitle)
}

func TestCheck_AfterShutdown(t *testing.T) {
	p := newTestPipeline(t, newSource(), &fakeExtractor{results: cleanResults()})
	p.Shutdown()

	_, err := p.Check(context.Background(), "42")
	assert.ErrorIs(t, err, ErrNoUsableDocuments)
}

func TestCheck_RunErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		p := newTestPipeline(t, newSource(), &fakeExtractor{})
		_, err := p.Check(context.Background(), "404")
		assert.ErrorIs(t, err, ErrApplicationNotFound)
	})

	t.Run("no documents", func(t *testing.T) {
		p := newTestPipeline(t, newSource(), &fakeExtractor{})
		_, err := p.Check(context.Background(), "empty")
		assert.ErrorIs(t, err, ErrNoDocuments)
	})

	t.Run("nothing usable", func(t *testing.T) {
		src := newSource()
		for k := range src.docs {
			src.docs[k] = []byte("corrupt")
		}
		p := newTestPipeline(t, src, &fakeExtractor{})
		_, err := p.Check(context.Background(), "42")
		assert.ErrorIs(t, err, ErrNoUsableDocuments)
	})

	t.Run("no source", func(t *testing.T) {
		p := newTestPipeline(t, nil, &fakeExtractor{})
		_, err := p.Check(context.Background(), "42")
		assert.ErrorIs(t, err, ErrAcquisition)
	})

	t.Run("graph build", func(t *testing.T) {
		results := cleanResults()
		results["payslip.pdf"].Category = "Steuer"
		p := newTestPipeline(t, newSource(), &fakeExtractor{results: results})
		_, err := p.Check(context.Background(), "42")
		assert.ErrorIs(t, err, ErrGraphBuild)
	})
}

func TestCheck_ParseFailureExcludesDocument(t *testing.T) {
	results := cleanResults()
	ex := &fakeExtractor{
		results: map[string]*extract.Result{},
		errs: map[string]error{
			"lid.pdf": &extract.ParseFailure{Message: "invalid character", RawContent: "unleserlich"},
		},
	}
	for k, v := range results {
		ex.results[k] = v
	}
	ex.results["lid.pdf"] = &extract.Result{Category: model.CategoryIntegration}

	p := newTestPipeline(t, newSource(), ex)
	report, err := p.Check(context.Background(), "42")
	require.NoError(t, err)

	assert.False(t, report.IsComplete)
	findCheck(t, report, rules.CheckNaturalization)
}

func TestProcessAll_BoundedConcurrency(t *testing.T) {
	ex := &fakeExtractor{results: cleanResults(), delay: 20 * time.Millisecond}
	p := newTestPipeline(t, newSource(), ex)
	p.documents = 2

	_, err := p.Check(context.Background(), "42")
	require.NoError(t, err)

	assert.LessOrEqual(t, ex.maxInFlight.Load(), int32(2))
	assert.GreaterOrEqual(t, ex.maxInFlight.Load(), int32(1))
}

func TestRunDirectory(t *testing.T) {
	dir := t.TempDir()
	for name := range cleanResults() {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.pdf"), []byte("ignored"), 0o644))

	ex := &fakeExtractor{
		results: cleanResults(),
		errs: map[string]error{
			"telc.pdf": &extract.ParseFailure{Message: "invalid character", RawContent: "kein JSON"},
		},
	}
	ex.results["telc.pdf"] = &extract.Result{Category: model.CategoryIntegration}

	p := newTestPipeline(t, nil, ex)

	report, err := p.RunDirectory(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, model.BatchFail, report.Status)
	require.Len(t, report.Alerts, 1)
	assert.Equal(t, rules.CheckLanguageCert, report.Alerts[0].Check)

	require.Len(t, report.ExtractedData, 7)
	// sorted by filename: lid, passport, payslip, permit, permit_old, rent, telc
	last := report.ExtractedData[6]
	assert.Equal(t, "telc.pdf", last.Metadata.Filename)
	assert.Equal(t, "kein JSON", last.Data["raw_content"])
	assert.Equal(t, model.CategoryIntegration, last.Metadata.Category)

	assert.Greater(t, report.GraphStats.Nodes, 7)
	assert.Greater(t, report.GraphStats.Edges, 7)
}

func TestRunDirectory_Empty(t *testing.T) {
	p := newTestPipeline(t, nil, &fakeExtractor{})
	_, err := p.RunDirectory(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoDocuments)
}

func TestDocumentError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(documentError("passport.pdf", StageFetching, ErrAcquisition, cause))

	assert.ErrorIs(t, err, ErrAcquisition)
	assert.ErrorIs(t, err, cause)

	var de *DocumentError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, StageFetching, de.Stage)
	assert.Contains(t, err.Error(), "passport.pdf excluded at fetching")
}
