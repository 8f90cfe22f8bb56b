package ioadapters

import (
	"context"
	"testing"

	"github.com/ternarybob/mandi-agent/internal/models"
)

func TestSingleURLLoader_ReturnsExistingSource(t *testing.T) {
	existing := &models.Source{EntryURL: "https://a.example.com", ExtractionType: models.ExtractionTypeAPI, Endpoint: "https://a.example.com/api"}
	store := &fakeSourceStore{byURL: map[string]*models.Source{"https://a.example.com": existing}}
	loader := NewSingleURLLoader(store, "https://a.example.com")

	sources, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sources) != 1 || sources[0].Endpoint != "https://a.example.com/api" {
		t.Fatalf("expected existing source to be returned, got %+v", sources)
	}
}

func TestSingleURLLoader_FallsBackToBareSource(t *testing.T) {
	store := &fakeSourceStore{}
	loader := NewSingleURLLoader(store, "https://new.example.com")

	sources, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 bare source, got %d", len(sources))
	}
	if sources[0].HasConfig() {
		t.Error("expected bare source to have no extraction config")
	}
	if sources[0].BaseURL != "https://new.example.com" {
		t.Errorf("expected baseUrl to be derived, got %q", sources[0].BaseURL)
	}
}

func TestSingleURLLoader_NilStoreAlwaysBare(t *testing.T) {
	loader := NewSingleURLLoader(nil, "https://new.example.com")

	sources, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sources) != 1 || sources[0].HasConfig() {
		t.Fatalf("expected bare source with no store, got %+v", sources)
	}
}

func TestSingleURLLoader_EmptyURL(t *testing.T) {
	loader := NewSingleURLLoader(nil, "")
	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error for empty target URL")
	}
}
