package notifications

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/blacklioncorp/gasolineras-pantaleon-api/internal/notify"
)

// PointsReceiptArgs describes a "points credited" receipt message. Jobs are
// enqueued inside the same transaction as the accrual, so a receipt exists
// exactly when the accrual committed.
type PointsReceiptArgs struct {
	Phone        string  `json:"phone"`
	CustomerName string  `json:"customer_name"`
	Points       float64 `json:"points"`
	NewBalance   float64 `json:"new_balance"`
}

func (PointsReceiptArgs) Kind() string { return "points_receipt" }

type PointsReceiptWorker struct {
	river.WorkerDefaults[PointsReceiptArgs]
	sender notify.Sender
}

func NewPointsReceiptWorker(sender notify.Sender) *PointsReceiptWorker {
	return &PointsReceiptWorker{sender: sender}
}

// Work delivers the receipt. Returning an error lets River retry delivery;
// the accrual itself is already committed and is never affected.
func (w *PointsReceiptWorker) Work(ctx context.Context, job *river.Job[PointsReceiptArgs]) error {
	args := job.Args
	msg := fmt.Sprintf("Gasolineras Pantaleon: %s, se abonaron %.2f puntos a tu cuenta. Saldo actual: %.2f.",
		args.CustomerName, args.Points, args.NewBalance)
	if err := w.sender.Send(ctx, args.Phone, msg); err != nil {
		return fmt.Errorf("send receipt to %s: %w", args.Phone, err)
	}
	return nil
}
