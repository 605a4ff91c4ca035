package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/models"
	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/notifications"
)

var (
	// ErrAccountNotFound is returned when no customer exists for the given phone.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidAmount is returned for non-positive sale or redemption amounts.
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	// ErrRuleNotConfigured is returned by the rule store when no reward rule row
	// exists. Credit treats it as 0% and logs a warning instead of failing.
	ErrRuleNotConfigured = errors.New("reward rule not configured")
	// ErrStorageFailure wraps infrastructure errors: the store is unavailable or
	// a transaction conflict survived all retries.
	ErrStorageFailure = errors.New("storage failure")
)

// InsufficientBalanceError is returned when a redemption exceeds the current
// balance. It carries the balance so the caller can display it.
type InsufficientBalanceError struct {
	Balance float64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %.2f available", e.Balance)
}

type CreditResult struct {
	CustomerName      string  `json:"customer_name"`
	NewBalance        float64 `json:"new_balance"`
	PointsCredited    float64 `json:"points_credited"`
	PercentageApplied float64 `json:"percentage_applied"`
}

type DebitResult struct {
	CustomerName   string  `json:"customer_name"`
	NewBalance     float64 `json:"new_balance"`
	PointsRedeemed float64 `json:"points_redeemed"`
}

// Service is the ledger boundary consumed by the HTTP layer.
type Service interface {
	Credit(ctx context.Context, phone string, saleAmount float64, actorID uuid.UUID) (*CreditResult, error)
	Debit(ctx context.Context, phone string, points float64, actorID uuid.UUID) (*DebitResult, error)
	GetBalance(ctx context.Context, phone string) (*models.Customer, error)
	History(ctx context.Context, limit, offset int) ([]*models.TransactionRecord, error)
}

// DB begins the transaction each ledger operation runs in.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CustomerStore is the minimal customer access the engine needs.
// GetByPhoneForUpdate must lock the customer row for the duration of the
// transaction so concurrent mutations of the same account serialize.
type CustomerStore interface {
	GetByPhone(ctx context.Context, phone string) (*models.Customer, error)
	GetByPhoneForUpdate(ctx context.Context, tx pgx.Tx, phone string) (*models.Customer, error)
	AddPoints(ctx context.Context, tx pgx.Tx, id uuid.UUID, delta float64) (newBalance float64, err error)
}

// RuleStore reads the reward percentage inside the accrual transaction.
type RuleStore interface {
	CurrentPercentageTx(ctx context.Context, tx pgx.Tx) (float64, error)
}

// EntryStore appends and lists ledger entries.
type EntryStore interface {
	CreateTx(ctx context.Context, tx pgx.Tx, entry *models.Transaction) error
	ListRecent(ctx context.Context, limit, offset int) ([]*models.TransactionRecord, error)
}

// EnqueueReceiptFunc enqueues a points-receipt notification within the given
// transaction. Provided by main using river.Client.InsertTx; may be nil.
type EnqueueReceiptFunc func(ctx context.Context, tx pgx.Tx, args notifications.PointsReceiptArgs) error

// maxConflictRetries bounds retries on serialization/deadlock conflicts.
const maxConflictRetries = 3

const defaultHistoryLimit = 20

type Engine struct {
	db             DB
	customers      CustomerStore
	rules          RuleStore
	entries        EntryStore
	enqueueReceipt EnqueueReceiptFunc
	log            *slog.Logger
}

func NewEngine(db DB, customers CustomerStore, rules RuleStore, entries EntryStore, enqueueReceipt EnqueueReceiptFunc, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		db:             db,
		customers:      customers,
		rules:          rules,
		entries:        entries,
		enqueueReceipt: enqueueReceipt,
		log:            log,
	}
}

var _ Service = (*Engine)(nil)

// Credit records a sale: reads the reward percentage, credits the computed
// points and appends one ACCRUAL entry, all in a single transaction. A sale
// whose points round to zero is still recorded.
func (e *Engine) Credit(ctx context.Context, phone string, saleAmount float64, actorID uuid.UUID) (*CreditResult, error) {
	if saleAmount <= 0 {
		return nil, ErrInvalidAmount
	}
	var res *CreditResult
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		cust, err := e.customers.GetByPhoneForUpdate(ctx, tx, phone)
		if err != nil {
			return err
		}
		pct, err := e.rules.CurrentPercentageTx(ctx, tx)
		if errors.Is(err, ErrRuleNotConfigured) {
			e.log.Warn("reward rule not configured, crediting at 0%", "phone", phone)
			pct = 0
		} else if err != nil {
			return err
		}
		points := round2(saleAmount * pct / 100)
		newBalance, err := e.customers.AddPoints(ctx, tx, cust.ID, points)
		if err != nil {
			return err
		}
		sale := saleAmount
		applied := pct
		entry := &models.Transaction{
			ID:         uuid.New(),
			CustomerID: cust.ID,
			StaffID:    actorID,
			Amount:     points,
			Kind:       models.KindAccrual,
			SaleAmount: &sale,
			Percentage: &applied,
		}
		if err := e.entries.CreateTx(ctx, tx, entry); err != nil {
			return err
		}
		if e.enqueueReceipt != nil {
			if err := e.enqueueReceipt(ctx, tx, notifications.PointsReceiptArgs{
				Phone:        cust.Phone,
				CustomerName: cust.FullName,
				Points:       points,
				NewBalance:   newBalance,
			}); err != nil {
				return err
			}
		}
		res = &CreditResult{
			CustomerName:      cust.FullName,
			NewBalance:        newBalance,
			PointsCredited:    points,
			PercentageApplied: pct,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Debit redeems points against the balance. The balance check and the write
// happen under the same row lock, so two concurrent redemptions can never
// both drain the same balance.
func (e *Engine) Debit(ctx context.Context, phone string, points float64, actorID uuid.UUID) (*DebitResult, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}
	var res *DebitResult
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		cust, err := e.customers.GetByPhoneForUpdate(ctx, tx, phone)
		if err != nil {
			return err
		}
		if cust.Balance < points {
			return &InsufficientBalanceError{Balance: cust.Balance}
		}
		newBalance, err := e.customers.AddPoints(ctx, tx, cust.ID, -points)
		if err != nil {
			return err
		}
		entry := &models.Transaction{
			ID:         uuid.New(),
			CustomerID: cust.ID,
			StaffID:    actorID,
			Amount:     -points,
			Kind:       models.KindRedemption,
		}
		if err := e.entries.CreateTx(ctx, tx, entry); err != nil {
			return err
		}
		res = &DebitResult{
			CustomerName:   cust.FullName,
			NewBalance:     newBalance,
			PointsRedeemed: points,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) GetBalance(ctx context.Context, phone string) (*models.Customer, error) {
	return e.customers.GetByPhone(ctx, phone)
}

// History returns ledger entries most recent first: creation time descending
// with the entry id as a stable tie-break for equal timestamps.
func (e *Engine) History(ctx context.Context, limit, offset int) ([]*models.TransactionRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	records, err := e.entries.ListRecent(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	return records, nil
}

// inTx runs fn in a transaction. Business errors pass through untouched;
// serialization and deadlock conflicts are retried a bounded number of times;
// everything else surfaces as ErrStorageFailure.
func (e *Engine) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	var last error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		tx, err := e.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		err = fn(tx)
		if err == nil {
			if err = tx.Commit(ctx); err == nil {
				return nil
			}
		}
		_ = tx.Rollback(ctx)
		if isBusinessError(err) {
			return err
		}
		if !isConflict(err) {
			return fmt.Errorf("%w: %v", ErrStorageFailure, err)
		}
		e.log.Warn("transaction conflict, retrying", "attempt", attempt+1, "error", err)
		last = err
	}
	return fmt.Errorf("%w: conflict retries exhausted: %v", ErrStorageFailure, last)
}

func isBusinessError(err error) bool {
	var insufficient *InsufficientBalanceError
	return errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.As(err, &insufficient)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
