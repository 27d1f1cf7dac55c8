package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/debtwiser/internal/cache"
	"github.com/mmynk/debtwiser/internal/export"
	"github.com/mmynk/debtwiser/internal/models"
	"github.com/mmynk/debtwiser/internal/storage"
)

// fakeStore is an in-memory DebtStore that counts calls.
type fakeStore struct {
	mu     sync.Mutex
	debts  map[string]*models.Debt
	seq    int
	clock  time.Time
	lists  int
	gets   int
	writes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		debts: make(map[string]*models.Debt),
		clock: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func clone(d *models.Debt) *models.Debt {
	c := *d
	if d.PaidAt != nil {
		p := *d.PaidAt
		c.PaidAt = &p
	}
	return &c
}

func (f *fakeStore) ListDebtsByUser(ctx context.Context, userID string, status models.DebtStatus) ([]*models.Debt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists++

	out := []*models.Debt{}
	for _, d := range f.debts {
		if d.UserID == userID && (status == "" || d.Status == status) {
			out = append(out, clone(d))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) GetDebt(ctx context.Context, userID, debtID string) (*models.Debt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++

	d, ok := f.debts[debtID]
	if !ok || d.UserID != userID {
		return nil, nil
	}
	return clone(d), nil
}

func (f *fakeStore) CreateDebt(ctx context.Context, debt *models.Debt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++

	f.seq++
	debt.ID = fmt.Sprintf("debt-%d", f.seq)
	debt.Status = models.StatusPending
	debt.CreatedAt = f.tick()
	debt.UpdatedAt = debt.CreatedAt
	f.debts[debt.ID] = clone(debt)
	return nil
}

func (f *fakeStore) UpdateDebt(ctx context.Context, debt *models.Debt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++

	stored, ok := f.debts[debt.ID]
	if !ok || stored.UserID != debt.UserID || stored.Status != models.StatusPending {
		return storage.ErrConflict
	}
	debt.UpdatedAt = f.tick()
	f.debts[debt.ID] = clone(debt)
	return nil
}

func (f *fakeStore) DeleteDebt(ctx context.Context, debt *models.Debt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++

	stored, ok := f.debts[debt.ID]
	if !ok || stored.UserID != debt.UserID {
		return storage.ErrConflict
	}
	delete(f.debts, debt.ID)
	return nil
}

// downClient fails every cache operation.
type downClient struct{}

var errDown = errors.New("connection refused")

func (downClient) Get(context.Context, string) ([]byte, error) { return nil, errDown }
func (downClient) Set(context.Context, string, []byte, time.Duration) error { return errDown }
func (downClient) Delete(context.Context, ...string) error { return errDown }
func (downClient) Ping(context.Context) error { return errDown }
func (downClient) Close() error { return nil }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupService(t *testing.T) (*DebtService, *fakeStore, cache.Client) {
	t.Helper()
	store := newFakeStore()
	client := cache.NewMemory("", cache.DefaultTTL)
	t.Cleanup(func() { client.Close() })

	svc := NewDebtService(store, cache.New(client, cache.Options{}), nil, quietLogger())
	svc.now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	return svc, store, client
}

func mustCreate(t *testing.T, svc *DebtService, userID, title string, amount models.Amount) *models.Debt {
	t.Helper()
	debt, err := svc.Create(context.Background(), userID, CreateDebtInput{Title: title, Amount: &amount})
	if err != nil {
		t.Fatalf("Create(%q) failed: %v", title, err)
	}
	return debt
}

func amountPtr(a models.Amount) *models.Amount { return &a }

// warm fills every user-scoped entry.
func warm(t *testing.T, svc *DebtService, userID string) {
	t.Helper()
	ctx := context.Background()
	for _, f := range []models.StatusFilter{models.FilterAll, models.FilterPending, models.FilterPaid} {
		if _, err := svc.ListByUser(ctx, userID, f); err != nil {
			t.Fatalf("ListByUser(%s) failed: %v", f, err)
		}
	}
	if _, err := svc.Summary(ctx, userID); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
}

func assertUserKeysAbsent(t *testing.T, client cache.Client, userID, debtID string) {
	t.Helper()
	keys, err := cache.InvalidationKeys(userID, debtID)
	if err != nil {
		t.Fatalf("InvalidationKeys failed: %v", err)
	}
	for _, key := range keys {
		if _, err := client.Get(context.Background(), key); !errors.Is(err, cache.ErrNotFound) {
			t.Errorf("expected %s to be invalidated, got err=%v", key, err)
		}
	}
}

func TestCreate(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	t.Run("persists a pending debt", func(t *testing.T) {
		debt := mustCreate(t, svc, "u1", "  rent ", 10000)
		if debt.ID == "" || debt.Status != models.StatusPending || debt.PaidAt != nil {
			t.Errorf("unexpected debt: %+v", debt)
		}
		if debt.Title != "rent" {
			t.Errorf("expected trimmed title, got %q", debt.Title)
		}
	})

	t.Run("zero amount is allowed", func(t *testing.T) {
		mustCreate(t, svc, "u1", "free lunch", 0)
	})

	invalid := []struct {
		name string
		in   CreateDebtInput
	}{
		{"negative amount", CreateDebtInput{Title: "x", Amount: amountPtr(-500)}},
		{"empty title", CreateDebtInput{Title: "", Amount: amountPtr(100)}},
		{"blank title", CreateDebtInput{Title: "   ", Amount: amountPtr(100)}},
		{"too large", CreateDebtInput{Title: "x", Amount: amountPtr(models.MaxAmount + 1)}},
		{"missing amount", CreateDebtInput{Title: "x"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			before := store.writes
			_, err := svc.Create(ctx, "u1", tt.in)
			if !errors.Is(err, ErrInvalidArgument) {
				t.Fatalf("expected ErrInvalidArgument, got %v", err)
			}
			if store.writes != before {
				t.Error("invalid input must not reach the store")
			}
		})
	}

	t.Run("negative amount persists nothing", func(t *testing.T) {
		_, err := svc.Create(ctx, "u9", CreateDebtInput{Title: "x", Amount: amountPtr(-500)})
		if !errors.Is(err, ErrInvalidArgument) || !strings.Contains(err.Error(), "negative amount") {
			t.Fatalf("unexpected error: %v", err)
		}
		debts, _ := svc.ListByUser(ctx, "u9", models.FilterAll)
		if len(debts) != 0 {
			t.Errorf("expected no debts, got %d", len(debts))
		}
	})

	t.Run("missing amount is not zero", func(t *testing.T) {
		_, err := svc.Create(ctx, "u8", CreateDebtInput{Title: "x"})
		if !errors.Is(err, ErrInvalidArgument) || !strings.Contains(err.Error(), "amount is required") {
			t.Fatalf("unexpected error: %v", err)
		}
		debts, _ := svc.ListByUser(ctx, "u8", models.FilterAll)
		if len(debts) != 0 {
			t.Errorf("expected no debts, got %d", len(debts))
		}
	})

	t.Run("empty user", func(t *testing.T) {
		if _, err := svc.Create(ctx, "", CreateDebtInput{Title: "x", Amount: amountPtr(1)}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPayLifecycle(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	debt := mustCreate(t, svc, "u1", "rent", 10000)

	paid, err := svc.Pay(ctx, "u1", debt.ID)
	if err != nil {
		t.Fatalf("Pay failed: %v", err)
	}
	if paid.Status != models.StatusPaid || paid.PaidAt == nil {
		t.Fatalf("expected PAID with paid_at, got %+v", paid)
	}
	if !paid.PaidAt.Equal(svc.now()) {
		t.Errorf("paid_at = %v, want %v", paid.PaidAt, svc.now())
	}

	if _, err := svc.Pay(ctx, "u1", debt.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("second Pay: expected ErrConflict, got %v", err)
	}

	title := "new title"
	if _, err := svc.Update(ctx, "u1", debt.ID, UpdateDebtInput{Title: &title}); !errors.Is(err, ErrConflict) {
		t.Errorf("Update after Pay: expected ErrConflict, got %v", err)
	}

	got, err := svc.GetOne(ctx, "u1", debt.ID)
	if err != nil {
		t.Fatalf("GetOne failed: %v", err)
	}
	if got.Status != models.StatusPaid || got.Title != "rent" {
		t.Errorf("paid debt changed: %+v", got)
	}

	// Paid debts may still be removed
	if err := svc.Remove(ctx, "u1", debt.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := svc.GetOne(ctx, "u1", debt.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after Remove, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()
	debt := mustCreate(t, svc, "u1", "power", 7550)

	t.Run("partial patch", func(t *testing.T) {
		amount := models.Amount(8000)
		got, err := svc.Update(ctx, "u1", debt.ID, UpdateDebtInput{Amount: &amount})
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if got.Amount != 8000 || got.Title != "power" {
			t.Errorf("unexpected debt: %+v", got)
		}
	})

	t.Run("invalid patch", func(t *testing.T) {
		negative := models.Amount(-1)
		if _, err := svc.Update(ctx, "u1", debt.ID, UpdateDebtInput{Amount: &negative}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		empty := ""
		if _, err := svc.Update(ctx, "u1", debt.ID, UpdateDebtInput{Title: &empty}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("other user", func(t *testing.T) {
		title := "stolen"
		if _, err := svc.Update(ctx, "u2", debt.ID, UpdateDebtInput{Title: &title}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("missing debt", func(t *testing.T) {
		if _, err := svc.Update(ctx, "u1", "nope", UpdateDebtInput{}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := svc.Pay(ctx, "u1", "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := svc.Remove(ctx, "u1", "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestListByUser_CacheAside(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()
	mustCreate(t, svc, "u1", "rent", 10000)

	if _, err := svc.ListByUser(ctx, "u1", models.FilterAll); err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if store.lists != 1 {
		t.Fatalf("first call should hit the store, lists=%d", store.lists)
	}

	debts, err := svc.ListByUser(ctx, "u1", models.FilterAll)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if store.lists != 1 {
		t.Errorf("second call should be served from cache, lists=%d", store.lists)
	}
	if len(debts) != 1 || debts[0].Title != "rent" {
		t.Errorf("unexpected cached list: %+v", debts)
	}

	mustCreate(t, svc, "u1", "power", 7550)
	debts, err = svc.ListByUser(ctx, "u1", models.FilterAll)
	if err != nil {
		t.Fatalf("ListByUser failed: %v", err)
	}
	if store.lists != 2 {
		t.Errorf("call after invalidation should hit the store, lists=%d", store.lists)
	}
	if len(debts) != 2 || debts[0].Title != "power" {
		t.Errorf("expected newest first, got %+v", debts)
	}
}

func TestListByUser_EmptyListIsCached(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		debts, err := svc.ListByUser(ctx, "nobody", models.FilterPaid)
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}
		if debts == nil || len(debts) != 0 {
			t.Errorf("expected empty non-nil list, got %#v", debts)
		}
	}
	if store.lists != 1 {
		t.Errorf("expected one store call, got %d", store.lists)
	}
}

func TestListByUser_Filters(t *testing.T) {
	svc, _, _ := setupService(t)
	ctx := context.Background()

	rent := mustCreate(t, svc, "u1", "rent", 10000)
	mustCreate(t, svc, "u1", "power", 7550)
	mustCreate(t, svc, "u2", "other", 1)
	if _, err := svc.Pay(ctx, "u1", rent.ID); err != nil {
		t.Fatalf("Pay failed: %v", err)
	}

	counts := map[models.StatusFilter]int{
		models.FilterAll:     2,
		models.FilterPending: 1,
		models.FilterPaid:    1,
	}
	for filter, want := range counts {
		debts, err := svc.ListByUser(ctx, "u1", filter)
		if err != nil {
			t.Fatalf("ListByUser(%s) failed: %v", filter, err)
		}
		if len(debts) != want {
			t.Errorf("ListByUser(%s) returned %d debts, want %d", filter, len(debts), want)
		}
		for _, d := range debts {
			if d.UserID != "u1" {
				t.Errorf("ListByUser(%s) leaked %+v", filter, d)
			}
		}
	}

	if _, err := svc.ListByUser(ctx, "u1", "unpaid"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown filter, got %v", err)
	}
	if _, err := svc.ListByUser(ctx, "", models.FilterAll); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for empty user, got %v", err)
	}
}

func TestMutationsInvalidateUserKeys(t *testing.T) {
	mutations := []struct {
		name string
		// run returns the id of the debt it wrote
		run func(svc *DebtService, debtID string) (string, error)
	}{
		{"create", func(svc *DebtService, _ string) (string, error) {
			debt, err := svc.Create(context.Background(), "u1", CreateDebtInput{Title: "extra", Amount: amountPtr(1)})
			if err != nil {
				return "", err
			}
			return debt.ID, nil
		}},
		{"update", func(svc *DebtService, id string) (string, error) {
			title := "renamed"
			_, err := svc.Update(context.Background(), "u1", id, UpdateDebtInput{Title: &title})
			return id, err
		}},
		{"pay", func(svc *DebtService, id string) (string, error) {
			_, err := svc.Pay(context.Background(), "u1", id)
			return id, err
		}},
		{"remove", func(svc *DebtService, id string) (string, error) {
			return id, svc.Remove(context.Background(), "u1", id)
		}},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			svc, _, client := setupService(t)
			debt := mustCreate(t, svc, "u1", "rent", 10000)

			warm(t, svc, "u1")
			if _, err := svc.GetOne(context.Background(), "u1", debt.ID); err != nil {
				t.Fatalf("GetOne failed: %v", err)
			}

			written, err := m.run(svc, debt.ID)
			if err != nil {
				t.Fatalf("%s failed: %v", m.name, err)
			}
			if m.name == "create" && written == debt.ID {
				t.Fatalf("create returned the existing id %s", written)
			}
			assertUserKeysAbsent(t, client, "u1", written)
		})
	}
}

func TestMutationInvalidatesAfterCancel(t *testing.T) {
	svc, _, client := setupService(t)
	debt := mustCreate(t, svc, "u1", "rent", 10000)
	warm(t, svc, "u1")

	// The store ignores cancellation here, so the write succeeds and the
	// invalidation must still run.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Pay(ctx, "u1", debt.ID); err != nil {
		t.Fatalf("Pay failed: %v", err)
	}
	assertUserKeysAbsent(t, client, "u1", debt.ID)
}

func TestGetOne(t *testing.T) {
	svc, store, client := setupService(t)
	ctx := context.Background()
	debt := mustCreate(t, svc, "u1", "rent", 10000)

	t.Run("read through", func(t *testing.T) {
		before := store.gets
		for i := 0; i < 2; i++ {
			got, err := svc.GetOne(ctx, "u1", debt.ID)
			if err != nil {
				t.Fatalf("GetOne failed: %v", err)
			}
			if got.ID != debt.ID || got.Amount != 10000 {
				t.Errorf("unexpected debt: %+v", got)
			}
		}
		if store.gets-before != 1 {
			t.Errorf("expected one store read, got %d", store.gets-before)
		}
	})

	t.Run("other user gets not found", func(t *testing.T) {
		// The entry for debt.ID is warm and owned by u1
		if _, err := svc.GetOne(ctx, "u2", debt.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		got, err := svc.GetOne(ctx, "u1", debt.ID)
		if err != nil || got.UserID != "u1" {
			t.Errorf("owner lost access: %+v, %v", got, err)
		}
	})

	t.Run("entry of another owner is replaced", func(t *testing.T) {
		key, _ := cache.DebtKey(debt.ID)
		c := cache.New(client, cache.Options{})
		forged := *debt
		forged.UserID = "u3"
		forged.Title = "forged"
		if err := c.Set(ctx, key, forged, 0); err != nil {
			t.Fatalf("Set failed: %v", err)
		}

		got, err := svc.GetOne(ctx, "u1", debt.ID)
		if err != nil {
			t.Fatalf("GetOne failed: %v", err)
		}
		if got.UserID != "u1" || got.Title != "rent" {
			t.Errorf("served a record of another user: %+v", got)
		}

		// The foreign entry is replaced by the owner's record
		var entry models.Debt
		hit, err := c.Get(ctx, key, &entry)
		if err != nil || !hit {
			t.Fatalf("expected a cached entry, hit=%v err=%v", hit, err)
		}
		if entry.UserID != "u1" || entry.Title != "rent" {
			t.Errorf("cache still holds the foreign entry: %+v", entry)
		}

		before := store.gets
		if _, err := svc.GetOne(ctx, "u1", debt.ID); err != nil {
			t.Fatalf("GetOne failed: %v", err)
		}
		if store.gets != before {
			t.Error("expected the repaired entry to be served from cache")
		}
	})

	t.Run("invalid ids", func(t *testing.T) {
		if _, err := svc.GetOne(ctx, "u1", ""); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
		if _, err := svc.GetOne(ctx, "", debt.ID); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestSummary(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	rent := mustCreate(t, svc, "u1", "rent", 100000)
	mustCreate(t, svc, "u1", "power", 7550)
	mustCreate(t, svc, "u1", "water", 2025)
	if _, err := svc.Pay(ctx, "u1", rent.ID); err != nil {
		t.Fatalf("Pay failed: %v", err)
	}

	want := models.Summary{TotalPaid: 100000, TotalPending: 9575, CountPaid: 1, CountPending: 2}
	for i := 0; i < 2; i++ {
		got, err := svc.Summary(ctx, "u1")
		if err != nil {
			t.Fatalf("Summary failed: %v", err)
		}
		if got != want {
			t.Errorf("Summary = %+v, want %+v", got, want)
		}
	}
	if store.lists != 1 {
		t.Errorf("expected the second summary from cache, lists=%d", store.lists)
	}

	mustCreate(t, svc, "u1", "gas", 5)
	got, err := svc.Summary(ctx, "u1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if got.CountPending != 3 || got.TotalPending != 9580 {
		t.Errorf("summary not refreshed after create: %+v", got)
	}
}

func TestExport(t *testing.T) {
	svc, store, _ := setupService(t)
	ctx := context.Background()

	rent := mustCreate(t, svc, "u1", "rent, \"flat\"", 100000)
	mustCreate(t, svc, "u1", "power", 7550)
	if _, err := svc.Pay(ctx, "u1", rent.ID); err != nil {
		t.Fatalf("Pay failed: %v", err)
	}

	t.Run("unknown format is rejected before any read", func(t *testing.T) {
		before := store.lists
		if _, err := svc.Export(ctx, "u1", models.FilterAll, "xml"); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if store.lists != before {
			t.Error("format must be validated before reading debts")
		}
	})

	t.Run("json", func(t *testing.T) {
		out, err := svc.Export(ctx, "u1", models.FilterAll, "")
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if out.Format != export.FormatJSON || len(out.Records) != 2 || out.CSV != nil {
			t.Fatalf("unexpected export: %+v", out)
		}
		if out.Records[1].PaidAt != "2026-03-04" {
			t.Errorf("expected paid_at date, got %+v", out.Records[1])
		}
	})

	t.Run("csv round trip", func(t *testing.T) {
		out, err := svc.Export(ctx, "u1", models.FilterAll, "csv")
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		listed, err := svc.ListByUser(ctx, "u1", models.FilterAll)
		if err != nil {
			t.Fatalf("ListByUser failed: %v", err)
		}

		body := strings.TrimPrefix(string(out.CSV), "\ufeff")
		rows, err := csv.NewReader(strings.NewReader(body)).ReadAll()
		if err != nil {
			t.Fatalf("failed to parse CSV: %v", err)
		}
		if len(rows) != len(listed)+1 {
			t.Fatalf("expected %d rows, got %d", len(listed)+1, len(rows))
		}
		for i, d := range listed {
			row := rows[i+1]
			amount, err := models.ParseAmount(row[2])
			if err != nil {
				t.Fatalf("bad amount %q: %v", row[2], err)
			}
			if row[0] != d.ID || amount != d.Amount || row[3] != string(d.Status) || row[1] != d.Title {
				t.Errorf("row %d = %v, want %+v", i, row, d)
			}
		}
	})

	t.Run("filtered", func(t *testing.T) {
		out, err := svc.Export(ctx, "u1", models.FilterPending, "json")
		if err != nil {
			t.Fatalf("Export failed: %v", err)
		}
		if len(out.Records) != 1 || out.Records[0].Title != "power" {
			t.Errorf("unexpected records: %+v", out.Records)
		}
	})
}

func TestCacheUnavailable(t *testing.T) {
	store := newFakeStore()
	svc := NewDebtService(store, cache.New(downClient{}, cache.Options{}), nil, quietLogger())
	ctx := context.Background()

	debt, err := svc.Create(ctx, "u1", CreateDebtInput{Title: "rent", Amount: amountPtr(10000)})
	if err != nil {
		t.Fatalf("Create must succeed when invalidation fails: %v", err)
	}

	for i := 0; i < 2; i++ {
		debts, err := svc.ListByUser(ctx, "u1", models.FilterAll)
		if err != nil {
			t.Fatalf("ListByUser must fall back to the store: %v", err)
		}
		if len(debts) != 1 {
			t.Errorf("expected 1 debt, got %d", len(debts))
		}
	}
	if store.lists != 2 {
		t.Errorf("every read should reach the store, lists=%d", store.lists)
	}

	if _, err := svc.GetOne(ctx, "u1", debt.ID); err != nil {
		t.Errorf("GetOne failed: %v", err)
	}
	if _, err := svc.Summary(ctx, "u1"); err != nil {
		t.Errorf("Summary failed: %v", err)
	}
	if _, err := svc.Pay(ctx, "u1", debt.ID); err != nil {
		t.Errorf("Pay failed: %v", err)
	}
	if err := svc.Remove(ctx, "u1", debt.ID); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
}

func TestConcurrentPayConflict(t *testing.T) {
	svc, _, _ := setupService(t)
	debt := mustCreate(t, svc, "u1", "rent", 10000)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Pay(context.Background(), "u1", debt.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrConflict):
			t.Errorf("expected ErrConflict, got %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one successful Pay, got %d", ok)
	}
}
