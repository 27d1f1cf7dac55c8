package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mmynk/debtwiser/internal/models"
	"github.com/mmynk/debtwiser/internal/storage"
)

const debtColumns = "id, user_id, title, amount_cents, status, paid_at, created_at, updated_at"

func scanDebt(row pgx.Row) (*models.Debt, error) {
	var (
		debt   models.Debt
		amount int64
		status string
		paidAt *time.Time
	)
	if err := row.Scan(&debt.ID, &debt.UserID, &debt.Title, &amount, &status, &paidAt, &debt.CreatedAt, &debt.UpdatedAt); err != nil {
		return nil, err
	}
	debt.Amount = models.Amount(amount)
	debt.Status = models.DebtStatus(status)
	debt.CreatedAt = debt.CreatedAt.UTC()
	debt.UpdatedAt = debt.UpdatedAt.UTC()
	if paidAt != nil {
		t := paidAt.UTC()
		debt.PaidAt = &t
	}
	return &debt, nil
}

// ListDebtsByUser returns the user's debts, newest first.
func (s *PostgresStore) ListDebtsByUser(ctx context.Context, userID string, status models.DebtStatus) ([]*models.Debt, error) {
	query := "SELECT " + debtColumns + " FROM debts WHERE user_id = $1"
	args := []any{userID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	debts := make([]*models.Debt, 0)
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}

	return debts, nil
}

// GetDebt retrieves a debt by ID if it belongs to userID.
func (s *PostgresStore) GetDebt(ctx context.Context, userID, debtID string) (*models.Debt, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE id = $1 AND user_id = $2",
		debtID, userID,
	)

	debt, err := scanDebt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return debt, nil
}

// CreateDebt inserts a new debt, generating its ID and timestamps.
func (s *PostgresStore) CreateDebt(ctx context.Context, debt *models.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	if debt.Status == "" {
		debt.Status = models.StatusPending
	}
	now := s.timestamp()

	_, err := s.pool.Exec(ctx,
		"INSERT INTO debts ("+debtColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $7)",
		debt.ID, debt.UserID, debt.Title, int64(debt.Amount), string(debt.Status), debt.PaidAt, now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}

	debt.CreatedAt = now
	debt.UpdatedAt = now
	return nil
}

// UpdateDebt saves a PENDING debt; PAID rows never match the WHERE clause.
func (s *PostgresStore) UpdateDebt(ctx context.Context, debt *models.Debt) error {
	now := s.timestamp()

	tag, err := s.pool.Exec(ctx,
		`UPDATE debts SET title = $1, amount_cents = $2, status = $3, paid_at = $4, updated_at = $5
		 WHERE id = $6 AND user_id = $7 AND status = 'PENDING'`,
		debt.Title, int64(debt.Amount), string(debt.Status), debt.PaidAt, now,
		debt.ID, debt.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrConflict
	}

	debt.UpdatedAt = now
	return nil
}

// DeleteDebt removes a debt owned by debt.UserID.
func (s *PostgresStore) DeleteDebt(ctx context.Context, debt *models.Debt) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM debts WHERE id = $1 AND user_id = $2", debt.ID, debt.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrConflict
	}
	return nil
}
