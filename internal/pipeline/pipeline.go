package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/verity/verity/internal/extract"
	"github.com/verity/verity/internal/graph"
	"github.com/verity/verity/internal/llm"
	"github.com/verity/verity/internal/metrics"
	"github.com/verity/verity/internal/model"
	"github.com/verity/verity/internal/render"
	"github.com/verity/verity/internal/rules"
	"github.com/verity/verity/internal/source"
	"github.com/verity/verity/internal/worker"
)

// Extractor reads categorized fields from rendered pages
type Extractor interface {
	Process(ctx context.Context, filename string, pages []render.Page) (*extract.Result, error)
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithMetrics records run and stage metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithSource replaces the configured document source
func WithSource(s DocumentSource) Option {
	return func(p *Pipeline) { p.source = s }
}

// WithProvider uses provider instead of building one from configuration
func WithProvider(provider llm.Provider) Option {
	return func(p *Pipeline) { p.provider = provider }
}

// WithExtractor replaces the backend-driven extractor
func WithExtractor(e Extractor) Option {
	return func(p *Pipeline) { p.extractor = e }
}

// WithRenderer replaces the page renderer
func WithRenderer(r worker.Renderer) Option {
	return func(p *Pipeline) { p.renderer = r }
}

// WithEngine replaces the default rule engine
func WithEngine(e *rules.Engine) Option {
	return func(p *Pipeline) { p.engine = e }
}

// WithClock sets the time source for report timestamps
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// Pipeline orchestrates verification runs: acquire, render and extract every
// document concurrently, then fold the usable ones into a graph and
// evaluate the rules
type Pipeline struct {
	source    DocumentSource
	acquirer  *Acquirer
	provider  llm.Provider
	renderer  worker.Renderer
	extractor Extractor
	engine    *rules.Engine
	pool      *worker.Pool
	metrics   *metrics.Metrics
	logger    *slog.Logger

	documents  int
	docTimeout time.Duration
	now        func() time.Time
}

// NewPipeline creates a new pipeline with the given configuration.
// The render pool is started here; call Close when done.
func NewPipeline(cfg *model.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		logger:     slog.Default(),
		documents:  cfg.Concurrency.Documents,
		docTimeout: cfg.DocumentTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.documents <= 0 {
		p.documents = 8
	}
	if p.docTimeout <= 0 {
		p.docTimeout = 3 * time.Minute
	}

	if p.renderer == nil {
		p.renderer = render.New(render.Options{
			DPI:          cfg.Render.DPI,
			MaxPages:     cfg.Render.MaxPages,
			MaxDimension: cfg.Render.MaxDimension,
			JPEGQuality:  cfg.Render.JPEGQuality,
		}, p.logger)
	}

	if p.extractor == nil {
		if p.provider == nil {
			provider, err := llm.NewProvider(llm.ConfigFromModel(cfg))
			if err != nil {
				return nil, fmt.Errorf("extraction backend: %w", err)
			}
			p.provider = provider
		}
		limiter := worker.NewLimiter(cfg.Backend.RequestsPerSecond, cfg.Backend.Burst)
		p.extractor = extract.NewExtractor(p.provider, extract.WithLogger(p.logger), extract.WithLimiter(limiter))
	}

	if p.source == nil && cfg.Source.BaseURL != "" {
		p.source = source.NewClient(cfg.Source, cfg.Proxy)
	}
	p.acquirer = NewAcquirer(p.source)

	if p.engine == nil {
		p.engine = rules.New(rules.DefaultConfig())
	}

	p.pool = worker.NewPool(cfg.Concurrency.RenderWorkers)
	p.pool.Start()

	p.logger.Debug("pipeline ready",
		"render_workers", p.pool.Workers(),
		"documents", p.documents,
		"document_timeout", p.docTimeout,
	)
	return p, nil
}

// Provider returns the extraction backend, or nil when an extractor was injected
func (p *Pipeline) Provider() llm.Provider {
	return p.provider
}

// Close stops the render pool after queued jobs finish
func (p *Pipeline) Close() {
	p.pool.Close()
}

// Shutdown stops the render pool without draining it. Documents still
// waiting for a render are excluded at the rendering stage.
func (p *Pipeline) Shutdown() {
	p.pool.Shutdown()
}

// Check verifies one application from the document source
func (p *Pipeline) Check(ctx context.Context, applicationID string) (*model.ValidationReport, error) {
	start := time.Now()
	logger := p.logger.With("run", uuid.NewString(), "application", applicationID)

	report, err := p.check(ctx, logger, applicationID)

	result := "error"
	if err == nil {
		result = string(report.OverallResult)
	}
	p.metrics.ObserveRun("check", result, time.Since(start))
	return report, err
}

func (p *Pipeline) check(ctx context.Context, logger *slog.Logger, applicationID string) (*model.ValidationReport, error) {
	if p.source == nil {
		return nil, fmt.Errorf("%w: no document source configured", ErrAcquisition)
	}

	app, err := p.source.Application(ctx, applicationID)
	if err != nil {
		if errors.Is(err, source.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrApplicationNotFound, applicationID)
		}
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	logger.Info("application loaded", "documents", len(app.Documents))

	if len(app.Documents) == 0 {
		return nil, fmt.Errorf("%w: application %s", ErrNoDocuments, applicationID)
	}

	outcomes := p.processAll(ctx, logger, applicationID, app.Documents)

	ev, err := p.evaluate(logger, outcomes)
	if err != nil {
		return nil, err
	}

	report := buildReport(applicationID, outcomes, ev.alerts, p.now())
	report.IsComplete = ev.usable == len(app.Documents)

	logger.Info("verification finished",
		"result", report.OverallResult,
		"alerts", len(ev.alerts),
		"usable", ev.usable,
		"declared", len(app.Documents))
	return report, nil
}

// RunDirectory verifies every renderable file directly under dir
func (p *Pipeline) RunDirectory(ctx context.Context, dir string) (*model.BatchReport, error) {
	start := time.Now()
	logger := p.logger.With("run", uuid.NewString(), "dir", dir)

	report, err := p.runDirectory(ctx, logger, dir)

	result := "error"
	if err == nil {
		result = string(report.Status)
	}
	p.metrics.ObserveRun("directory", result, time.Since(start))
	return report, err
}

func (p *Pipeline) runDirectory(ctx context.Context, logger *slog.Logger, dir string) (*model.BatchReport, error) {
	paths, err := worker.ListDocuments(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAcquisition, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s contains no supported files", ErrNoDocuments, dir)
	}
	logger.Info("found documents", "count", len(paths))

	refs := make([]model.DocumentRef, len(paths))
	for i, path := range paths {
		refs[i] = model.DocumentRef{Filename: filepath.Base(path), LocalSource: path}
	}

	outcomes := p.processAll(ctx, logger, "", refs)

	ev, err := p.evaluate(logger, outcomes)
	if err != nil {
		return nil, err
	}

	status := model.BatchPass
	if len(ev.alerts) > 0 {
		status = model.BatchFail
	}

	return &model.BatchReport{
		ExtractedData: extractedData(outcomes),
		GraphStats:    ev.graph.Stats(),
		Alerts:        ev.alerts,
		Status:        status,
	}, nil
}

// outcome is the settled state of one document task
type outcome struct {
	ref     model.DocumentRef
	doc     model.Document
	fields  map[string]any
	failure map[string]any // unparsable backend answer, kept for reports
	err     *DocumentError
}

func (o outcome) usable() bool {
	return o.err == nil
}

// processAll runs every document task and waits for all of them to settle.
// Tasks share no cancellation: one failing document never stops another.
func (p *Pipeline) processAll(ctx context.Context, logger *slog.Logger, applicationID string, refs []model.DocumentRef) []outcome {
	outcomes := make([]outcome, len(refs))

	var g errgroup.Group
	g.SetLimit(p.documents)
	for i, ref := range refs {
		g.Go(func() error {
			outcomes[i] = p.processDocument(ctx, logger, applicationID, ref)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (p *Pipeline) processDocument(ctx context.Context, logger *slog.Logger, applicationID string, ref model.DocumentRef) outcome {
	if ref.Filename == "" {
		ref.Filename = ref.Kind + ".pdf"
	}
	o := outcome{ref: ref}
	logger = logger.With("file", ref.Filename)

	ctx, cancel := context.WithTimeout(ctx, p.docTimeout)
	defer cancel()

	start := time.Now()
	data, err := p.acquirer.Acquire(ctx, applicationID, ref)
	p.metrics.ObserveStage(string(StageFetching), time.Since(start))
	if err != nil {
		return p.exclude(logger, o, StageFetching, ErrAcquisition, err)
	}

	start = time.Now()
	pages, err := worker.RenderOn(ctx, p.pool, p.renderer, ref.Filename, data)
	p.metrics.ObserveStage(string(StageRendering), time.Since(start))
	if err == nil && len(pages) == 0 {
		err = errors.New("no pages rendered")
	}
	if err != nil {
		return p.exclude(logger, o, StageRendering, ErrRender, err)
	}
	logger.Debug("rendered document", "pages", len(pages))

	start = time.Now()
	res, err := p.extractor.Process(ctx, ref.Filename, pages)
	p.metrics.ObserveStage(string(StageExtracting), time.Since(start))
	if res != nil {
		o.doc = model.Document{
			Filename: ref.Filename,
			Kind:     ref.Kind,
			Category: res.Category,
			Pages:    len(pages),
		}
	}
	if err != nil {
		var pf *extract.ParseFailure
		if errors.As(err, &pf) {
			o.failure = pf.Fields()
		}
		return p.exclude(logger, o, StageExtracting, ErrExtraction, err)
	}

	o.fields = res.Fields
	if len(res.Fields) == 0 {
		return p.exclude(logger, o, StageExtracting, ErrExtraction, errors.New("no fields extracted"))
	}
	p.metrics.IncrementUsable()
	logger.Info("document processed", "category", res.Category, "fields", len(res.Fields))
	return o
}

func (p *Pipeline) exclude(logger *slog.Logger, o outcome, stage Stage, sentinel, cause error) outcome {
	o.err = documentError(o.ref.Filename, stage, sentinel, cause)
	p.metrics.IncrementExcluded(string(stage))
	logger.Warn("document excluded", "stage", stage, "error", cause)
	return o
}

type evaluation struct {
	graph  *graph.Graph
	alerts []model.Alert
	usable int
}

// evaluate folds the usable documents and runs the rules
func (p *Pipeline) evaluate(logger *slog.Logger, outcomes []outcome) (*evaluation, error) {
	var extractions []graph.Extraction
	for _, o := range outcomes {
		if o.usable() {
			extractions = append(extractions, graph.Extraction{Document: o.doc, Fields: o.fields})
		}
	}
	if len(extractions) == 0 {
		return nil, fmt.Errorf("%w: %d declared", ErrNoUsableDocuments, len(outcomes))
	}

	g, err := buildGraph(extractions)
	if err != nil {
		return nil, err
	}
	stats := g.Stats()
	logger.Info("graph built", "nodes", stats.Nodes, "edges", stats.Edges)

	alerts, err := p.runRules(g)
	if err != nil {
		return nil, err
	}
	p.metrics.RecordAlerts(alerts)
	for _, a := range alerts {
		logger.Debug("alert", "severity", a.Severity, "check", a.Check, "message", a.Message, "files", a.Filenames)
	}

	return &evaluation{graph: g, alerts: alerts, usable: len(extractions)}, nil
}

func buildGraph(extractions []graph.Extraction) (g *graph.Graph, err error) {
	defer func() {
		if v := recover(); v != nil {
			g, err = nil, fmt.Errorf("%w: panic: %v", ErrGraphBuild, v)
		}
	}()

	g, err = graph.Build(extractions)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGraphBuild, err)
	}
	return g, nil
}

func (p *Pipeline) runRules(g *graph.Graph) (alerts []model.Alert, err error) {
	defer func() {
		if v := recover(); v != nil {
			alerts, err = nil, fmt.Errorf("%w: panic: %v", ErrRuleEvaluation, v)
		}
	}()

	return p.engine.Evaluate(g), nil
}
