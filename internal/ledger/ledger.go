package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/mkrylov/channelpass-bot/internal/catalog"
	"github.com/mkrylov/channelpass-bot/types"
)

// Store is the slice of the user store the ledger needs.
type Store interface {
	ConditionalActivate(ctx context.Context, userID int64, paymentID string, plan string, months int, tx types.Transaction) (*time.Time, bool, error)
	ExpireSubscription(ctx context.Context, userID int64) error
}

// Ledger owns the subscription state transitions. Activation runs as a single
// store-level conditional update keyed by the pending payment ID, so two
// near-simultaneous submissions can never both consume the same attempt.
type Ledger struct {
	store   Store
	catalog *catalog.Catalog
}

func New(store Store, cat *catalog.Catalog) *Ledger {
	return &Ledger{store: store, catalog: cat}
}

// Activate grants or extends the subscription for the verified payment and
// appends its transaction record. ok=false means the pending payment was no
// longer current (stale timer, concurrent activation, replay).
func (l *Ledger) Activate(ctx context.Context, userID int64, pending *types.PendingPayment, hash string, status types.TxStatus) (*time.Time, bool, error) {
	plan, found := l.catalog.Plan(pending.Plan)
	if !found {
		return nil, false, fmt.Errorf("activate: %w: %s", catalog.ErrUnknownPlan, pending.Plan)
	}

	rec := types.Transaction{
		UserID:    userID,
		Hash:      hash,
		PaymentID: pending.PaymentID,
		Plan:      pending.Plan,
		Currency:  pending.Currency,
		Amount:    pending.Amount,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	return l.store.ConditionalActivate(ctx, userID, pending.PaymentID, plan.ID, plan.Months, rec)
}

// Expire demotes the subscription to none. Transaction history and the last
// expiry timestamp are kept as historical record.
func (l *Ledger) Expire(ctx context.Context, userID int64) error {
	return l.store.ExpireSubscription(ctx, userID)
}

type Status struct {
	Plan          string
	ExpiresAt     *time.Time
	DaysRemaining int
	Expired       bool
}

// StatusOf is a pure projection of the user's subscription state.
func StatusOf(u *types.User, now time.Time) Status {
	if u == nil || u.Subscription == "" || u.ExpiresAt == nil {
		return Status{}
	}
	st := Status{Plan: u.Subscription, ExpiresAt: u.ExpiresAt}
	left := u.ExpiresAt.Sub(now)
	if left <= 0 {
		st.Expired = true
		return st
	}
	st.DaysRemaining = int((left + 24*time.Hour - time.Nanosecond) / (24 * time.Hour))
	return st
}
