// Package calculator aggregates debts into per-user totals.
package calculator

import "github.com/mmynk/debtwiser/internal/models"

// Summarize computes totals and counts partitioned by status.
// Amounts are summed in integer cents, so the totals are exact.
// Debts with an unknown status are ignored.
func Summarize(debts []*models.Debt) models.Summary {
	var s models.Summary
	for _, d := range debts {
		if d == nil {
			continue
		}
		switch d.Status {
		case models.StatusPaid:
			s.TotalPaid += d.Amount
			s.CountPaid++
		case models.StatusPending:
			s.TotalPending += d.Amount
			s.CountPending++
		}
	}
	return s
}
