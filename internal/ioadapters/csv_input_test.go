package ioadapters

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/mandi-agent/internal/models"
)

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.csv")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestCSVSourceLoader_ParsesRows(t *testing.T) {
	path := writeTempCSV(t, "entryUrl,baseUrl,name,extractionType,endpoint\n"+
		"https://a.example.com,,Mandi A,api,https://a.example.com/api\n"+
		"https://b.example.com,https://b.base.com,Mandi B,,\n")

	loader := NewCSVSourceLoader(path)
	sources, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(sources))
	}

	first := sources[0]
	if first.EntryURL != "https://a.example.com" || first.BaseURL != "https://a.example.com" {
		t.Errorf("unexpected first source: %+v", first)
	}
	if first.ExtractionType != models.ExtractionTypeAPI {
		t.Errorf("expected extractionType api, got %q", first.ExtractionType)
	}
	if first.Endpoint != "https://a.example.com/api" {
		t.Errorf("expected endpoint to be set, got %q", first.Endpoint)
	}

	second := sources[1]
	if second.BaseURL != "https://b.base.com" {
		t.Errorf("expected explicit baseUrl to be kept, got %q", second.BaseURL)
	}
	if second.ExtractionType != "" {
		t.Errorf("expected empty extractionType, got %q", second.ExtractionType)
	}
}

func TestCSVSourceLoader_SkipsBlankEntryURL(t *testing.T) {
	path := writeTempCSV(t, "entryUrl,name\n,Orphan\nhttps://c.example.com,Mandi C\n")

	loader := NewCSVSourceLoader(path)
	sources, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected 1 source after skipping blank row, got %d", len(sources))
	}
	if sources[0].EntryURL != "https://c.example.com" {
		t.Errorf("unexpected source: %+v", sources[0])
	}
}

func TestCSVSourceLoader_MissingFile(t *testing.T) {
	loader := NewCSVSourceLoader(filepath.Join(t.TempDir(), "missing.csv"))
	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error for missing CSV file")
	}
}
