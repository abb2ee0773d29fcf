package questions

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"time"
)

// SheetSource reads the catalog from a Google Sheet published as CSV
// (the .../export?format=csv URL form).
type SheetSource struct {
	URL    string
	Client *http.Client
}

// NewSheetSource creates a source for the given export URL.
func NewSheetSource(url string) *SheetSource {
	return &SheetSource{
		URL:    url,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SheetSource) Fetch(ctx context.Context) ([]Question, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sheet export returned %d", resp.StatusCode)
	}

	reader := csv.NewReader(resp.Body)
	reader.FieldsPerRecord = -1 // rows in the course sheet are ragged
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing sheet CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("sheet has no question rows")
	}

	return mapRows(rows), nil
}
