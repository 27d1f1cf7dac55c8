package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/debtwiser/internal/models"
	"github.com/mmynk/debtwiser/internal/storage"
)

const debtColumns = "id, user_id, title, amount_cents, status, paid_at, created_at, updated_at"

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDebt(row rowScanner) (*models.Debt, error) {
	var (
		debt      models.Debt
		amount    int64
		status    string
		paidAt    sql.NullInt64
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&debt.ID, &debt.UserID, &debt.Title, &amount, &status, &paidAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	debt.Amount = models.Amount(amount)
	debt.Status = models.DebtStatus(status)
	debt.CreatedAt = fromMillis(createdAt)
	debt.UpdatedAt = fromMillis(updatedAt)
	if paidAt.Valid {
		t := fromMillis(paidAt.Int64)
		debt.PaidAt = &t
	}
	return &debt, nil
}

func nullMillis(debt *models.Debt) sql.NullInt64 {
	if debt.PaidAt == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*debt.PaidAt), Valid: true}
}

// ListDebtsByUser returns the user's debts, newest first.
func (s *SQLiteStore) ListDebtsByUser(ctx context.Context, userID string, status models.DebtStatus) ([]*models.Debt, error) {
	query := "SELECT " + debtColumns + " FROM debts WHERE user_id = ?"
	args := []any{userID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	// rowid breaks ties between debts created in the same millisecond
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
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
func (s *SQLiteStore) GetDebt(ctx context.Context, userID, debtID string) (*models.Debt, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE id = ? AND user_id = ?",
		debtID, userID,
	)

	debt, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return nil, nil // Debt not found for this user
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	return debt, nil
}

// CreateDebt inserts a new debt, generating its ID and timestamps.
func (s *SQLiteStore) CreateDebt(ctx context.Context, debt *models.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	if debt.Status == "" {
		debt.Status = models.StatusPending
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	debt.CreatedAt = now
	debt.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO debts ("+debtColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		debt.ID, debt.UserID, debt.Title, int64(debt.Amount), string(debt.Status),
		nullMillis(debt), toMillis(now), toMillis(now),
	)
	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}

	return nil
}

// UpdateDebt saves a PENDING debt. The WHERE clause keeps PAID rows immutable
// even when two writers race on the same debt.
func (s *SQLiteStore) UpdateDebt(ctx context.Context, debt *models.Debt) error {
	now := s.now().UTC().Truncate(time.Millisecond)

	res, err := s.db.ExecContext(ctx,
		`UPDATE debts SET title = ?, amount_cents = ?, status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND user_id = ? AND status = ?`,
		debt.Title, int64(debt.Amount), string(debt.Status), nullMillis(debt), toMillis(now),
		debt.ID, debt.UserID, string(models.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("failed to update debt: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrConflict
	}

	debt.UpdatedAt = now
	return nil
}

// DeleteDebt removes a debt owned by debt.UserID.
func (s *SQLiteStore) DeleteDebt(ctx context.Context, debt *models.Debt) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM debts WHERE id = ? AND user_id = ?",
		debt.ID, debt.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return storage.ErrConflict
	}

	return nil
}
