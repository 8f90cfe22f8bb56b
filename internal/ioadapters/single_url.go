package ioadapters

import (
	"context"
	"fmt"

	"github.com/ternarybob/mandi-agent/internal/models"
	"github.com/ternarybob/mandi-agent/internal/urlutil"
)

// SingleURLLoader resolves the single_url agent mode's target URL into
// exactly one Source, matching single_url_input.py's SingleUrlInput:
// look the URL up in the store first, falling back to a bare
// not-yet-discovered Source.
type SingleURLLoader struct {
	store     sourceStore // nil means no persistence backend configured
	targetURL string
}

// NewSingleURLLoader returns a loader for targetURL. store may be nil,
// matching single_url_input.py's `db | None` constructor argument —
// the loader then always returns a bare source needing discovery.
func NewSingleURLLoader(store sourceStore, targetURL string) *SingleURLLoader {
	return &SingleURLLoader{store: store, targetURL: targetURL}
}

// Load returns a one-element slice: the existing source for targetURL if
// found, otherwise a bare Source with HasConfig()==false so the runner
// knows to discover it.
func (l *SingleURLLoader) Load(ctx context.Context) ([]models.Source, error) {
	if l.targetURL == "" {
		return nil, fmt.Errorf("ioadapters: --url is required for single_url mode")
	}

	if l.store != nil {
		existing, err := l.store.FindByURL(ctx, l.targetURL)
		if err != nil {
			return nil, fmt.Errorf("ioadapters: find source by url: %w", err)
		}
		if existing != nil {
			return []models.Source{*existing}, nil
		}
	}

	return []models.Source{{
		EntryURL:     l.targetURL,
		BaseURL:      urlutil.ExtractBaseURL(l.targetURL),
		HealthStatus: models.HealthOK,
	}}, nil
}
