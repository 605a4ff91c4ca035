package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/notifications"
)

// ---------------------------------------------------------------------------
// In-memory fakes. fakeDB serializes whole transactions with a mutex, which
// stands in for the row lock the Postgres stores take: operations on the same
// account cannot interleave between the balance read and the write.
// ---------------------------------------------------------------------------

type fakeTx struct {
	pgx.Tx
	release func()
	done    bool
}

func (t *fakeTx) Commit(context.Context) error   { t.finish(); return nil }
func (t *fakeTx) Rollback(context.Context) error { t.finish(); return nil }

func (t *fakeTx) finish() {
	if !t.done {
		t.done = true
		t.release()
	}
}

type fakeDB struct {
	mu sync.Mutex
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	d.mu.Lock()
	return &fakeTx{release: d.mu.Unlock}, nil
}

// ---

type mockCustomers struct {
	byPhone map[string]*models.Customer
}

func newMockCustomers(custs ...*models.Customer) *mockCustomers {
	m := &mockCustomers{byPhone: make(map[string]*models.Customer)}
	for _, c := range custs {
		cp := *c
		m.byPhone[c.Phone] = &cp
	}
	return m
}

func (m *mockCustomers) GetByPhone(_ context.Context, phone string) (*models.Customer, error) {
	c, ok := m.byPhone[phone]
	if !ok {
		return nil, ErrAccountNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCustomers) GetByPhoneForUpdate(_ context.Context, _ pgx.Tx, phone string) (*models.Customer, error) {
	return m.GetByPhone(context.Background(), phone)
}

func (m *mockCustomers) AddPoints(_ context.Context, _ pgx.Tx, id uuid.UUID, delta float64) (float64, error) {
	for _, c := range m.byPhone {
		if c.ID == id {
			c.Balance += delta
			return c.Balance, nil
		}
	}
	return 0, ErrAccountNotFound
}

func (m *mockCustomers) balance(phone string) float64 {
	return m.byPhone[phone].Balance
}

// ---

type mockRules struct {
	pct        float64
	configured bool
}

func (m *mockRules) CurrentPercentageTx(context.Context, pgx.Tx) (float64, error) {
	if !m.configured {
		return 0, ErrRuleNotConfigured
	}
	return m.pct, nil
}

// ---

type mockEntries struct {
	entries []*models.Transaction
}

func (m *mockEntries) CreateTx(_ context.Context, _ pgx.Tx, e *models.Transaction) error {
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockEntries) ListRecent(context.Context, int, int) ([]*models.TransactionRecord, error) {
	return nil, nil
}

func (m *mockEntries) byKind(kind string) []*models.Transaction {
	var out []*models.Transaction
	for _, e := range m.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func cust(phone string, balance float64) *models.Customer {
	return &models.Customer{ID: uuid.New(), Phone: phone, FullName: "Test Customer", Balance: balance}
}

func newTestEngine(customers *mockCustomers, rules *mockRules, entries *mockEntries, enqueue EnqueueReceiptFunc) *Engine {
	return NewEngine(&fakeDB{}, customers, rules, entries, enqueue, nil)
}

// ---------------------------------------------------------------------------
// 1. Credit: percentage snapshot and receipt enqueue
// ---------------------------------------------------------------------------

func TestCredit_AppliesPercentageSnapshot(t *testing.T) {
	customers := newMockCustomers(cust("5555", 0))
	entries := &mockEntries{}

	var receipt *notifications.PointsReceiptArgs
	enqueue := func(_ context.Context, _ pgx.Tx, args notifications.PointsReceiptArgs) error {
		receipt = &args
		return nil
	}
	eng := newTestEngine(customers, &mockRules{pct: 5.00, configured: true}, entries, enqueue)

	actor := uuid.New()
	res, err := eng.Credit(context.Background(), "5555", 100.00, actor)
	if err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if res.PointsCredited != 5.00 {
		t.Errorf("points credited: got %v, want 5.00", res.PointsCredited)
	}
	if res.NewBalance != 5.00 {
		t.Errorf("new balance: got %v, want 5.00", res.NewBalance)
	}
	if res.PercentageApplied != 5.00 {
		t.Errorf("percentage applied: got %v, want 5.00", res.PercentageApplied)
	}

	accruals := entries.byKind(models.KindAccrual)
	if len(accruals) != 1 {
		t.Fatalf("accrual entries: got %d, want 1", len(accruals))
	}
	e := accruals[0]
	if e.Amount != 5.00 {
		t.Errorf("entry amount: got %v, want 5.00", e.Amount)
	}
	if e.SaleAmount == nil || *e.SaleAmount != 100.00 {
		t.Errorf("entry sale amount: got %v, want 100.00", e.SaleAmount)
	}
	if e.Percentage == nil || *e.Percentage != 5.00 {
		t.Errorf("entry percentage: got %v, want 5.00", e.Percentage)
	}
	if e.StaffID != actor {
		t.Error("entry should record the acting staff member")
	}

	if receipt == nil {
		t.Fatal("expected a receipt to be enqueued")
	}
	if receipt.Points != 5.00 || receipt.NewBalance != 5.00 {
		t.Errorf("receipt: got %+v", receipt)
	}
}

// ---------------------------------------------------------------------------
// 2. Credit: missing rule is 0%, zero-point accruals still recorded
// ---------------------------------------------------------------------------

func TestCredit_NoRuleRecordsZeroPointAccrual(t *testing.T) {
	customers := newMockCustomers(cust("5555", 10))
	entries := &mockEntries{}
	eng := newTestEngine(customers, &mockRules{configured: false}, entries, nil)

	res, err := eng.Credit(context.Background(), "5555", 50.00, uuid.New())
	if err != nil {
		t.Fatalf("Credit with unconfigured rule should succeed at 0%%: %v", err)
	}
	if res.PointsCredited != 0 {
		t.Errorf("points credited: got %v, want 0", res.PointsCredited)
	}
	if got := customers.balance("5555"); got != 10 {
		t.Errorf("balance should be unchanged: got %v, want 10", got)
	}
	// The sale is still logged.
	if len(entries.entries) != 1 {
		t.Fatalf("entries: got %d, want 1", len(entries.entries))
	}
	if entries.entries[0].Amount != 0 {
		t.Errorf("zero-point accrual amount: got %v, want 0", entries.entries[0].Amount)
	}
}

// ---------------------------------------------------------------------------
// 3. Credit: unknown account leaves no trace
// ---------------------------------------------------------------------------

func TestCredit_UnknownAccount(t *testing.T) {
	customers := newMockCustomers(cust("5555", 10))
	entries := &mockEntries{}
	eng := newTestEngine(customers, &mockRules{pct: 5, configured: true}, entries, nil)

	_, err := eng.Credit(context.Background(), "9999", 100, uuid.New())
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
	if len(entries.entries) != 0 {
		t.Errorf("expected no ledger entries, got %d", len(entries.entries))
	}
	if got := customers.balance("5555"); got != 10 {
		t.Errorf("no balance may change anywhere: got %v, want 10", got)
	}
}

// ---------------------------------------------------------------------------
// 4. Validation
// ---------------------------------------------------------------------------

func TestInvalidAmounts(t *testing.T) {
	customers := newMockCustomers(cust("5555", 10))
	eng := newTestEngine(customers, &mockRules{pct: 5, configured: true}, &mockEntries{}, nil)

	if _, err := eng.Credit(context.Background(), "5555", 0, uuid.New()); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Credit(0): expected ErrInvalidAmount, got %v", err)
	}
	if _, err := eng.Debit(context.Background(), "5555", -3, uuid.New()); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Debit(-3): expected ErrInvalidAmount, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// 5. Debit: success and insufficient balance
// ---------------------------------------------------------------------------

func TestDebit(t *testing.T) {
	customers := newMockCustomers(cust("5555", 10))
	entries := &mockEntries{}
	eng := newTestEngine(customers, &mockRules{pct: 5, configured: true}, entries, nil)

	res, err := eng.Debit(context.Background(), "5555", 4, uuid.New())
	if err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if res.NewBalance != 6 {
		t.Errorf("new balance: got %v, want 6", res.NewBalance)
	}
	redemptions := entries.byKind(models.KindRedemption)
	if len(redemptions) != 1 {
		t.Fatalf("redemption entries: got %d, want 1", len(redemptions))
	}
	if redemptions[0].Amount != -4 {
		t.Errorf("redemption signed amount: got %v, want -4", redemptions[0].Amount)
	}

	// Over-redeeming fails and reports the current balance.
	_, err = eng.Debit(context.Background(), "5555", 100, uuid.New())
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if insufficient.Balance != 6 {
		t.Errorf("reported balance: got %v, want 6", insufficient.Balance)
	}
	if got := customers.balance("5555"); got != 6 {
		t.Errorf("balance after failed debit: got %v, want 6", got)
	}
	if len(entries.byKind(models.KindRedemption)) != 1 {
		t.Error("failed debit must not append a ledger entry")
	}
}

// ---------------------------------------------------------------------------
// 6. Concurrent debits: exactly one wins
// ---------------------------------------------------------------------------

func TestConcurrentDebits_OnlyOneSucceeds(t *testing.T) {
	customers := newMockCustomers(cust("5555", 10))
	entries := &mockEntries{}
	eng := newTestEngine(customers, &mockRules{pct: 5, configured: true}, entries, nil)

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := eng.Debit(context.Background(), "5555", 6, uuid.New())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, insufficient int
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			var ib *InsufficientBalanceError
			if !errors.As(err, &ib) {
				t.Fatalf("unexpected error: %v", err)
			}
			insufficient++
		}
	}
	if successes != 1 || insufficient != 1 {
		t.Fatalf("got %d successes and %d insufficient, want exactly 1 of each", successes, insufficient)
	}
	if got := customers.balance("5555"); got != 4 {
		t.Errorf("final balance: got %v, want 4", got)
	}
	if n := len(entries.byKind(models.KindRedemption)); n != 1 {
		t.Errorf("redemption entries: got %d, want 1", n)
	}
}

// ---------------------------------------------------------------------------
// 7. Ledger integrity: entry sum equals balance delta
// ---------------------------------------------------------------------------

func TestLedgerSumMatchesBalance(t *testing.T) {
	customers := newMockCustomers(cust("5555", 0))
	entries := &mockEntries{}
	eng := newTestEngine(customers, &mockRules{pct: 10, configured: true}, entries, nil)

	ctx := context.Background()
	actor := uuid.New()
	if _, err := eng.Credit(ctx, "5555", 100, actor); err != nil { // +10
		t.Fatalf("Credit: %v", err)
	}
	if _, err := eng.Credit(ctx, "5555", 33.33, actor); err != nil { // +3.33
		t.Fatalf("Credit: %v", err)
	}
	if _, err := eng.Debit(ctx, "5555", 7.5, actor); err != nil { // -7.5
		t.Fatalf("Debit: %v", err)
	}

	var sum float64
	for _, e := range entries.entries {
		sum += e.Amount
	}
	if got := customers.balance("5555"); got != sum {
		t.Errorf("balance %v does not match ledger sum %v", got, sum)
	}
	if got := customers.balance("5555"); got < 0 {
		t.Errorf("balance must never be negative, got %v", got)
	}
}
