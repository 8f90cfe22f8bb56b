// -----------------------------------------------------------------------
// Tabular file collaborators - PDF and spreadsheet extraction boundary
// -----------------------------------------------------------------------

package interfaces

import (
	"context"
)

// PDFMetadata contains metadata about a PDF document.
type PDFMetadata struct {
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	PageCount   int    `json:"page_count"`
	FileSize    int64  `json:"file_size"`
	IsEncrypted bool   `json:"is_encrypted"`
}

// PDFTableData represents one page's extracted table: Headers is the
// detected header row (may be empty if none was found), Rows is the data
// rows beneath it. This shape is the collaborator contract spec.md §4.13/§9
// describes: PDF tabular extraction is explicitly out of scope of this
// module and delegated to whatever concrete PDFTabulator a deployment wires
// in.
type PDFTableData struct {
	PageNumber int        `json:"page_number"`
	Headers    []string   `json:"headers,omitempty"`
	Rows       [][]string `json:"rows"`
}

// PDFTabulator extracts tabular data from a PDF file on disk. C15 (the file
// scraper) calls this for fileType "pdf"; it never parses PDF bytes itself.
type PDFTabulator interface {
	// ExtractTables returns one PDFTableData per page that contains a
	// detected table.
	ExtractTables(ctx context.Context, filePath string) ([]PDFTableData, error)

	// GetMetadata retrieves PDF metadata without extracting table content.
	GetMetadata(ctx context.Context, filePath string) (*PDFMetadata, error)
}

// SpreadsheetTableData mirrors PDFTableData for the xlsx/xls path. No
// spreadsheet-reading library exists anywhere in the example corpus (see
// DESIGN.md), so the excel branch of C15 is expressed purely against this
// collaborator interface rather than a fabricated dependency.
type SpreadsheetTableData struct {
	SheetName string     `json:"sheet_name"`
	Headers   []string   `json:"headers,omitempty"`
	Rows      [][]string `json:"rows"`
}

// SpreadsheetTabulator extracts tabular data from an xlsx/xls file on disk.
type SpreadsheetTabulator interface {
	ExtractTables(ctx context.Context, filePath string) ([]SpreadsheetTableData, error)
}
