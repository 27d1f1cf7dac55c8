package cache

import (
	"errors"
	"fmt"

	"github.com/mmynk/debtwiser/internal/models"
)

// ErrInvalidKey is returned when a key component is empty or unknown.
var ErrInvalidKey = errors.New("cache: invalid key component")

// ListKey returns the key of a user's debt list for one status filter,
// e.g. "debts:user:u1:pending".
func ListKey(userID string, filter models.StatusFilter) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidKey)
	}
	if !filter.Valid() {
		return "", fmt.Errorf("%w: status filter %q", ErrInvalidKey, filter)
	}
	return "debts:user:" + userID + ":" + string(filter), nil
}

// DebtKey returns the key of a single debt, e.g. "debt:7f0c...".
func DebtKey(debtID string) (string, error) {
	if debtID == "" {
		return "", fmt.Errorf("%w: empty debt id", ErrInvalidKey)
	}
	return "debt:" + debtID, nil
}

// SummaryKey returns the key of a user's summary, e.g. "debts:summary:user:u1".
func SummaryKey(userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidKey)
	}
	return "debts:summary:user:" + userID, nil
}

// UserKeys returns the user-scoped key family: the all, pending and paid lists
// plus the summary. Any write to one of the user's debts makes all of them stale.
func UserKeys(userID string) ([]string, error) {
	keys := make([]string, 0, 4)
	for _, f := range []models.StatusFilter{models.FilterAll, models.FilterPending, models.FilterPaid} {
		k, err := ListKey(userID, f)
		if err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	summary, err := SummaryKey(userID)
	if err != nil {
		return nil, err
	}
	return append(keys, summary), nil
}

// InvalidationKeys returns every key to drop after a write to debtID owned by userID.
func InvalidationKeys(userID, debtID string) ([]string, error) {
	keys, err := UserKeys(userID)
	if err != nil {
		return nil, err
	}
	debt, err := DebtKey(debtID)
	if err != nil {
		return nil, err
	}
	return append(keys, debt), nil
}
