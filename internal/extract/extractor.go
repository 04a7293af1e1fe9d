package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/verity/verity/internal/llm"
	"github.com/verity/verity/internal/model"
	"github.com/verity/verity/internal/render"
	"github.com/verity/verity/internal/worker"
)

// MaxPages bounds the images sent to the backend for one document
const MaxPages = 5

const (
	categorizeMaxTokens = 256
	extractMaxTokens    = 1024
	temperature         = 0.1
)

// Categorization is the backend's answer to "what kind of document is this"
type Categorization struct {
	Category   model.Category `json:"category"`
	Confidence float64        `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
}

// Result is one document's categorization and extracted fields
type Result struct {
	Category   model.Category
	Confidence float64
	Fields     map[string]any
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

// WithLimiter throttles backend calls per endpoint
func WithLimiter(l *worker.Limiter) Option {
	return func(e *Extractor) { e.limiter = l }
}

// WithRegistry replaces the built-in category schemas
func WithRegistry(r *Registry) Option {
	return func(e *Extractor) { e.registry = r }
}

// Extractor reads typed fields from rendered pages with a vision model
type Extractor struct {
	provider llm.Provider
	limiter  *worker.Limiter
	registry *Registry
	logger   *slog.Logger
}

// NewExtractor creates an extractor backed by provider
func NewExtractor(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider: provider,
		registry: NewRegistry(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process categorizes the document, then extracts the fields of its category.
// The two backend calls are strictly sequential.
func (e *Extractor) Process(ctx context.Context, filename string, pages []render.Page) (*Result, error) {
	cat, err := e.Categorize(ctx, filename, pages)
	if err != nil {
		return nil, err
	}

	fields, err := e.Extract(ctx, filename, cat.Category, pages)
	if err != nil {
		return &Result{Category: cat.Category, Confidence: cat.Confidence}, err
	}

	return &Result{Category: cat.Category, Confidence: cat.Confidence, Fields: fields}, nil
}

// Categorize asks the backend for the document category. Only transport
// failures are errors; an unreadable or unknown answer means Identity.
func (e *Extractor) Categorize(ctx context.Context, filename string, pages []render.Page) (*Categorization, error) {
	text, err := e.complete(ctx, categorizePrompt, pages, categorizeMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("categorize %s: %w", filename, err)
	}

	fallback := &Categorization{Category: model.CategoryIdentity}

	fields, err := ParseResponse(text)
	if err != nil {
		e.logger.Warn("categorization unreadable, defaulting to Identity", "file", filename, "error", err)
		return fallback, nil
	}

	raw, _ := fields["category"].(string)
	category, ok := model.ParseCategory(raw)
	if !ok {
		e.logger.Warn("unknown category, defaulting to Identity", "file", filename, "category", raw)
		return fallback, nil
	}

	c := &Categorization{Category: category}
	if v, ok := fields["confidence"].(float64); ok {
		c.Confidence = v
	}
	if v, ok := fields["reasoning"].(string); ok {
		c.Reasoning = v
	}

	e.logger.Info("categorized document", "file", filename, "category", c.Category, "confidence", c.Confidence)
	return c, nil
}

// Extract asks the backend for the fields of category. A response that
// survives no parse stage is returned as a *ParseFailure.
func (e *Extractor) Extract(ctx context.Context, filename string, category model.Category, pages []render.Page) (map[string]any, error) {
	schema := e.registry.Find(category)

	text, err := e.complete(ctx, schema.Prompt, pages, extractMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", filename, err)
	}

	fields, err := ParseResponse(text)
	if err != nil {
		var pf *ParseFailure
		if errors.As(err, &pf) {
			e.logger.Warn("extraction unparsable", "file", filename, "error", pf.Message)
		}
		return nil, err
	}

	filtered := schema.Filter(fields, e.logger)
	e.logger.Debug("extracted fields", "file", filename, "category", schema.Category, "fields", len(filtered))
	return filtered, nil
}

func (e *Extractor) complete(ctx context.Context, prompt string, pages []render.Page, maxTokens int) (string, error) {
	if len(pages) > MaxPages {
		e.logger.Debug("limiting pages sent to backend", "pages", len(pages), "max", MaxPages)
		pages = pages[:MaxPages]
	}

	images := make([]string, 0, len(pages))
	for _, p := range pages {
		images = append(images, p.Image)
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, e.provider.Endpoint()); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		Prompt:      prompt,
		Images:      images,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
