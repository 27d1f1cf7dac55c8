// Package service implements the business operations behind the HTTP handlers.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/debtwiser/internal/cache"
	"github.com/mmynk/debtwiser/internal/calculator"
	"github.com/mmynk/debtwiser/internal/export"
	"github.com/mmynk/debtwiser/internal/metrics"
	"github.com/mmynk/debtwiser/internal/models"
	"github.com/mmynk/debtwiser/internal/storage"
)

// CreateDebtInput holds the fields of a new debt. Amount is required;
// a missing or null amount is rejected rather than read as zero.
type CreateDebtInput struct {
	Title  string         `json:"title"`
	Amount *models.Amount `json:"amount"`
}

// UpdateDebtInput is a partial update; nil fields are left unchanged.
type UpdateDebtInput struct {
	Title  *string        `json:"title"`
	Amount *models.Amount `json:"amount"`
}

// Export is the result of DebtService.Export.
// Records is set for FormatJSON, CSV for FormatCSV.
type Export struct {
	Format  export.Format
	Records []export.Record
	CSV     []byte
}

// DebtService reads debts through the cache and keeps it consistent on writes.
// The store is authoritative; every mutation is persisted first and then
// invalidates all of the owner's list and summary entries plus the debt entry.
type DebtService struct {
	store   storage.DebtStore
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewDebtService creates a DebtService. m may be nil.
func NewDebtService(store storage.DebtStore, c *cache.Cache, m *metrics.Metrics, logger *slog.Logger) *DebtService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebtService{
		store:   store,
		cache:   c,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// ListByUser returns the user's debts matching filter, newest first.
func (s *DebtService) ListByUser(ctx context.Context, userID string, filter models.StatusFilter) ([]*models.Debt, error) {
	key, err := cache.ListKey(userID, filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	var cached []*models.Debt
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	debts, err := s.store.ListDebtsByUser(ctx, userID, filter.Status())
	if err != nil {
		s.logger.Error("Failed to list debts", "user_id", userID, "filter", filter, "error", err)
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	if debts == nil {
		debts = []*models.Debt{}
	}

	s.populate(ctx, key, debts)
	return debts, nil
}

// GetOne returns the debt if it belongs to userID.
func (s *DebtService) GetOne(ctx context.Context, userID, debtID string) (*models.Debt, error) {
	key, err := cache.DebtKey(debtID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}

	var cached models.Debt
	hit := s.lookup(ctx, key, &cached)
	if hit && cached.UserID == userID {
		return &cached, nil
	}

	debt, err := s.store.GetDebt(ctx, userID, debtID)
	if err != nil {
		s.logger.Error("Failed to get debt", "debt_id", debtID, "error", err)
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	if debt == nil {
		return nil, fmt.Errorf("%w: debt %s", ErrNotFound, debtID)
	}

	// Replaces a missing entry as well as one that names another owner
	s.populate(ctx, key, debt)
	return debt, nil
}

// Create persists a new PENDING debt.
func (s *DebtService) Create(ctx context.Context, userID string, in CreateDebtInput) (*models.Debt, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrInvalidArgument)
	}
	title, err := validateTitle(in.Title)
	if err != nil {
		return nil, err
	}
	if in.Amount == nil {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidArgument)
	}
	if err := validateAmount(*in.Amount); err != nil {
		return nil, err
	}

	debt := models.NewDebt(userID, title, *in.Amount)
	if err := s.store.CreateDebt(ctx, debt); err != nil {
		s.logger.Error("Failed to create debt", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to create debt: %w", err)
	}

	s.invalidate(ctx, userID, debt.ID)
	s.logger.Info("Debt created", "debt_id", debt.ID, "user_id", userID, "amount", debt.Amount)
	return debt, nil
}

// Update applies a partial update to a PENDING debt.
func (s *DebtService) Update(ctx context.Context, userID, debtID string, in UpdateDebtInput) (*models.Debt, error) {
	debt, err := s.loadForWrite(ctx, userID, debtID)
	if err != nil {
		return nil, err
	}
	if debt.IsPaid() {
		return nil, fmt.Errorf("%w: cannot modify a paid debt", ErrConflict)
	}

	if in.Title != nil {
		title, err := validateTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		debt.Title = title
	}
	if in.Amount != nil {
		if err := validateAmount(*in.Amount); err != nil {
			return nil, err
		}
		debt.Amount = *in.Amount
	}

	if err := s.save(ctx, debt); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID, debtID)
	s.logger.Info("Debt updated", "debt_id", debtID, "user_id", userID)
	return debt, nil
}

// Pay marks a PENDING debt as PAID. It is the only status transition.
func (s *DebtService) Pay(ctx context.Context, userID, debtID string) (*models.Debt, error) {
	debt, err := s.loadForWrite(ctx, userID, debtID)
	if err != nil {
		return nil, err
	}
	if err := debt.MarkPaid(s.now()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConflict, err)
	}

	if err := s.save(ctx, debt); err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID, debtID)
	s.logger.Info("Debt paid", "debt_id", debtID, "user_id", userID)
	return debt, nil
}

// Remove deletes a debt regardless of its status.
func (s *DebtService) Remove(ctx context.Context, userID, debtID string) error {
	debt, err := s.loadForWrite(ctx, userID, debtID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteDebt(ctx, debt); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return fmt.Errorf("%w: debt %s", ErrNotFound, debtID)
		}
		s.logger.Error("Failed to delete debt", "debt_id", debtID, "error", err)
		return fmt.Errorf("failed to delete debt: %w", err)
	}

	s.invalidate(ctx, userID, debtID)
	s.logger.Info("Debt removed", "debt_id", debtID, "user_id", userID)
	return nil
}

// Summary returns totals and counts of the user's debts partitioned by status.
func (s *DebtService) Summary(ctx context.Context, userID string) (models.Summary, error) {
	key, err := cache.SummaryKey(userID)
	if err != nil {
		return models.Summary{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	var cached models.Summary
	if s.lookup(ctx, key, &cached) {
		return cached, nil
	}

	debts, err := s.store.ListDebtsByUser(ctx, userID, "")
	if err != nil {
		s.logger.Error("Failed to list debts for summary", "user_id", userID, "error", err)
		return models.Summary{}, fmt.Errorf("failed to list debts: %w", err)
	}

	summary := calculator.Summarize(debts)
	s.populate(ctx, key, summary)
	return summary, nil
}

// Export renders the debts returned by ListByUser in the requested format.
func (s *DebtService) Export(ctx context.Context, userID string, filter models.StatusFilter, format string) (*Export, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	debts, err := s.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}

	out := &Export{Format: f}
	switch f {
	case export.FormatCSV:
		if out.CSV, err = export.CSV(debts); err != nil {
			return nil, fmt.Errorf("failed to render CSV: %w", err)
		}
	default:
		out.Records = export.Records(debts)
	}
	return out, nil
}

// loadForWrite reads the debt from the store, bypassing the cache.
func (s *DebtService) loadForWrite(ctx context.Context, userID, debtID string) (*models.Debt, error) {
	if userID == "" || debtID == "" {
		return nil, fmt.Errorf("%w: empty user or debt id", ErrInvalidArgument)
	}

	debt, err := s.store.GetDebt(ctx, userID, debtID)
	if err != nil {
		s.logger.Error("Failed to load debt", "debt_id", debtID, "error", err)
		return nil, fmt.Errorf("failed to load debt: %w", err)
	}
	if debt == nil {
		return nil, fmt.Errorf("%w: debt %s", ErrNotFound, debtID)
	}
	return debt, nil
}

func (s *DebtService) save(ctx context.Context, debt *models.Debt) error {
	if err := s.store.UpdateDebt(ctx, debt); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return fmt.Errorf("%w: debt %s was paid or removed concurrently", ErrConflict, debt.ID)
		}
		s.logger.Error("Failed to save debt", "debt_id", debt.ID, "error", err)
		return fmt.Errorf("failed to save debt: %w", err)
	}
	return nil
}

// lookup reports a cache hit. Backend and decode failures count as a miss.
func (s *DebtService) lookup(ctx context.Context, key string, dest any) bool {
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("Cache read failed, using store", "key", key, "error", err)
		return false
	}
	if hit {
		s.logger.Debug("cache hit", "key", key)
	} else {
		s.logger.Debug("cache miss", "key", key)
	}
	return hit
}

func (s *DebtService) populate(ctx context.Context, key string, value any) {
	if err := s.cache.Set(ctx, key, value, 0); err != nil {
		s.logger.Warn("Cache write failed", "key", key, "error", err)
	}
}

// invalidate drops every entry a mutation of debtID can make stale.
// It survives cancellation of ctx since the store write already happened.
func (s *DebtService) invalidate(ctx context.Context, userID, debtID string) {
	keys, err := cache.InvalidationKeys(userID, debtID)
	if err != nil {
		s.logger.Warn("Failed to derive invalidation keys", "user_id", userID, "debt_id", debtID, "error", err)
		s.metrics.Invalidation(metrics.ResultError)
		return
	}

	if err := s.cache.Delete(context.WithoutCancel(ctx), keys...); err != nil {
		s.logger.Warn("Cache invalidation failed", "user_id", userID, "debt_id", debtID, "error", err)
		s.metrics.Invalidation(metrics.ResultError)
		return
	}
	s.metrics.Invalidation(metrics.ResultOK)
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", ErrInvalidArgument)
	}
	return title, nil
}

func validateAmount(a models.Amount) error {
	if a < 0 {
		return fmt.Errorf("%w: negative amount", ErrInvalidArgument)
	}
	if a > models.MaxAmount {
		return fmt.Errorf("%w: amount too large", ErrInvalidArgument)
	}
	return nil
}
