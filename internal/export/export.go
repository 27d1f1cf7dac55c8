// Package export projects debt lists into downloadable representations.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/mmynk/debtwiser/internal/models"
)

// Format is an export representation.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// DateLayout is the day-precision layout used for exported dates.
const DateLayout = "2006-01-02"

// bom makes spreadsheet applications detect UTF-8.
const bom = "\ufeff"

// Header is the CSV header row.
var Header = []string{"id", "title", "amount", "status", "created_at", "paid_at"}

// ParseFormat parses a query value; the empty string means FormatJSON.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want json or csv)", s)
}

// Record is the flat representation of one debt.
type Record struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Amount    models.Amount     `json:"amount"`
	Status    models.DebtStatus `json:"status"`
	CreatedAt string            `json:"created_at"`
	PaidAt    string            `json:"paid_at"`
}

// Records converts debts in order. Dates are truncated to the UTC day.
func Records(debts []*models.Debt) []Record {
	out := make([]Record, 0, len(debts))
	for _, d := range debts {
		r := Record{
			ID:        d.ID,
			Title:     d.Title,
			Amount:    d.Amount,
			Status:    d.Status,
			CreatedAt: day(d.CreatedAt),
		}
		if d.PaidAt != nil {
			r.PaidAt = day(*d.PaidAt)
		}
		out = append(out, r)
	}
	return out
}

// day formats t as its UTC calendar day; the zero time is empty.
func day(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// WriteCSV writes a BOM, the header and one row per debt.
// Free text is quoted and embedded quotes doubled (RFC 4180).
func WriteCSV(w io.Writer, debts []*models.Debt) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range Records(debts) {
		row := []string{r.ID, r.Title, r.Amount.String(), string(r.Status), r.CreatedAt, r.PaidAt}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %s: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV renders debts with WriteCSV into memory.
func CSV(debts []*models.Debt) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, debts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
