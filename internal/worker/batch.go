package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/verity/verity/internal/render"
)

// Renderer rasterizes one document
type Renderer interface {
	Render(ctx context.Context, filename string, data []byte) ([]render.Page, error)
}

// RenderJob renders one acquired document on the CPU pool
type RenderJob struct {
	Filename string
	Data     []byte
	Renderer Renderer
}

// Execute executes the render job
func (j *RenderJob) Execute(ctx context.Context) Result {
	pages, err := j.Renderer.Render(ctx, j.Filename, j.Data)
	return &RenderResult{Filename: j.Filename, Pages: pages, Error: err}
}

// RenderResult is the outcome of a RenderJob
type RenderResult struct {
	Filename string
	Pages    []render.Page
	Error    error
}

// GetError returns the render error
func (r *RenderResult) GetError() error {
	return r.Error
}

// RenderOn runs a render job on pool and waits for its pages
func RenderOn(ctx context.Context, pool *Pool, renderer Renderer, filename string, data []byte) ([]render.Page, error) {
	res, err := pool.Do(ctx, &RenderJob{Filename: filename, Data: data, Renderer: renderer})
	if err != nil {
		return nil, err
	}
	if err := res.GetError(); err != nil {
		return nil, err
	}
	rr, ok := res.(*RenderResult)
	if !ok {
		return nil, fmt.Errorf("unexpected render result %T", res)
	}
	return rr.Pages, nil
}

// ListDocuments returns the renderable files directly under dir, sorted by
// name. Hidden files and subdirectories are skipped.
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !render.Supported(name) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
