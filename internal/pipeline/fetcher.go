package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/verity/verity/internal/model"
)

// DocumentSource is the remote application service
type DocumentSource interface {
	Application(ctx context.Context, id string) (*model.Application, error)
	Document(ctx context.Context, applicationID, kind string) ([]byte, error)
}

// Acquirer resolves a declared document to its bytes, from a local path
// when one is given and from the document source otherwise
type Acquirer struct {
	source DocumentSource
}

// NewAcquirer creates an acquirer; source may be nil for local-only runs
func NewAcquirer(source DocumentSource) *Acquirer {
	return &Acquirer{source: source}
}

// Acquire returns the raw bytes of ref
func (a *Acquirer) Acquire(ctx context.Context, applicationID string, ref model.DocumentRef) ([]byte, error) {
	if ref.LocalSource != "" {
		data, err := os.ReadFile(ref.LocalSource)
		if err != nil {
			return nil, fmt.Errorf("read local source: %w", err)
		}
		return data, nil
	}

	if a.source == nil {
		return nil, fmt.Errorf("no document source configured for %s", ref.Filename)
	}
	if ref.Kind == "" {
		return nil, fmt.Errorf("document %s has no type to fetch by", ref.Filename)
	}

	data, err := a.source.Document(ctx, applicationID, ref.Kind)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref.Kind, err)
	}
	return data, nil
}
