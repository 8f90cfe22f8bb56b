package pdf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLinesToTable_SplitsHeaderAndRows(t *testing.T) {
	text := "Commodity   Mandi   Price\n" +
		"short line\n" +
		"Tomato      Pune    1500\n" +
		"Onion       Nashik  900\n"

	headers, rows := linesToTable(text)
	if len(headers) != 3 {
		t.Fatalf("expected 3 header columns, got %v", headers)
	}
	if headers[0] != "Commodity" || headers[2] != "Price" {
		t.Errorf("unexpected headers: %v", headers)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 data rows (short line skipped), got %d", len(rows))
	}
	if rows[0][0] != "Tomato" || rows[0][2] != "1500" {
		t.Errorf("unexpected first row: %v", rows[0])
	}
}

func TestLinesToTable_NoQualifyingLines(t *testing.T) {
	headers, rows := linesToTable("one\ntwo\nthree\n")
	if headers != nil || len(rows) != 0 {
		t.Errorf("expected no table for narrow lines, got headers=%v rows=%v", headers, rows)
	}
}

func TestReadPageContentFiles_ParsesContentPrefixedNames(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Content_page_1"), []byte("page one text"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Content_page_2"), []byte("page two text"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	pages := readPageContentFiles(dir, 2)
	if pages[1] != "page one text" {
		t.Errorf("expected page 1 text, got %q", pages[1])
	}
	if pages[2] != "page two text" {
		t.Errorf("expected page 2 text, got %q", pages[2])
	}
}

func TestNew_CreatesTempDir(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "nested", "pdf-work")

	tab, err := New(nil, dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tab == nil {
		t.Fatal("expected non-nil tabulator")
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected temp dir to be created: %v", err)
	}
}
