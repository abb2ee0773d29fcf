package questions

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// WorkbookSource reads the catalog from a local .xlsx workbook, for
// classrooms that maintain the sheet offline instead of publishing it.
type WorkbookSource struct {
	Path  string
	Sheet string // empty means the first sheet
}

// NewWorkbookSource creates a source for the given workbook path.
func NewWorkbookSource(path string) *WorkbookSource {
	return &WorkbookSource{Path: path}
}

func (w *WorkbookSource) Fetch(ctx context.Context) ([]Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(w.Path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheet := w.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("workbook sheet %q has no question rows", sheet)
	}

	return mapRows(rows), nil
}
