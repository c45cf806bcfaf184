package jobs

import (
	"context"
	"time"

	"github.com/anjiri1684/course_academy/models"
	"github.com/anjiri1684/course_academy/notifications"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PayoutLister interface {
	ListPayoutRequests(ctx context.Context, status string) ([]models.PayoutRequest, error)
}

// SendPendingPayoutDigest mails the admin a summary of payout requests
// waiting for a decision. Nothing is sent when the queue is empty.
func SendPendingPayoutDigest(payouts PayoutLister, notifier notifications.Notifier, adminName, adminEmail string, log *zap.Logger) func() {
	return func() {
		if adminEmail == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		pending, err := payouts.ListPayoutRequests(ctx, models.PayoutPending)
		if err != nil {
			log.Error("could not list pending payouts", zap.Error(err))
			return
		}
		if len(pending) == 0 {
			return
		}

		total := decimal.Zero
		for _, req := range pending {
			total = total.Add(req.Amount)
		}
		subject, body := notifications.PendingPayoutsDigest(len(pending), total.StringFixed(2))
		notifier.Send(ctx, adminName, adminEmail, subject, body)
		log.Info("pending payout digest sent", zap.Int("count", len(pending)))
	}
}
