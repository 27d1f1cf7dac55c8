package models

import (
	"fmt"
	"time"
)

// DebtStatus is the lifecycle state of a debt.
type DebtStatus string

const (
	StatusPending DebtStatus = "PENDING"
	StatusPaid    DebtStatus = "PAID"
)

// Debt represents an amount owed by a single user.
// A debt starts PENDING and may be paid exactly once; a PAID debt is never modified again.
type Debt struct {
	// ID is the unique identifier for the debt (UUID format).
	ID string `json:"id"`

	// UserID is the owner of the debt.
	// Cached copies are checked against it before being served.
	UserID string `json:"user_id"`

	// Title is the non-empty description of the debt (e.g. "rent").
	Title string `json:"title"`

	// Amount is the non-negative value owed.
	Amount Amount `json:"amount"`

	// Status is PENDING or PAID.
	Status DebtStatus `json:"status"`

	// PaidAt is set only when the debt transitions to PAID.
	PaidAt *time.Time `json:"paid_at"`

	// CreatedAt and UpdatedAt are maintained by the store.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDebt builds a PENDING debt owned by userID. ID and timestamps are assigned by the store.
func NewDebt(userID, title string, amount Amount) *Debt {
	return &Debt{
		UserID: userID,
		Title:  title,
		Amount: amount,
		Status: StatusPending,
	}
}

// IsPaid reports whether the debt reached its terminal state.
func (d *Debt) IsPaid() bool {
	return d.Status == StatusPaid
}

// MarkPaid transitions the debt to PAID at the given time.
// It returns an error if the debt is already paid.
func (d *Debt) MarkPaid(at time.Time) error {
	if d.IsPaid() {
		return fmt.Errorf("debt %s is already paid", d.ID)
	}
	d.Status = StatusPaid
	paidAt := at.UTC()
	d.PaidAt = &paidAt
	return nil
}

// StatusFilter selects which debts of a user a listing returns.
type StatusFilter string

const (
	FilterAll     StatusFilter = "all"
	FilterPending StatusFilter = "pending"
	FilterPaid    StatusFilter = "paid"
)

// ParseStatusFilter parses a query value; the empty string means FilterAll.
func ParseStatusFilter(s string) (StatusFilter, error) {
	if s == "" {
		return FilterAll, nil
	}
	f := StatusFilter(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown status filter %q (want all, pending or paid)", s)
	}
	return f, nil
}

// Valid reports whether f is one of the known filters.
func (f StatusFilter) Valid() bool {
	switch f {
	case FilterAll, FilterPending, FilterPaid:
		return true
	}
	return false
}

// Status returns the debt status the filter matches, or "" for FilterAll.
func (f StatusFilter) Status() DebtStatus {
	switch f {
	case FilterPending:
		return StatusPending
	case FilterPaid:
		return StatusPaid
	}
	return ""
}

// Summary aggregates a user's debts by status.
type Summary struct {
	TotalPaid    Amount `json:"total_paid"`
	TotalPending Amount `json:"total_pending"`
	CountPaid    int    `json:"count_paid"`
	CountPending int    `json:"count_pending"`
}
