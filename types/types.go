package types

import (
	"context"
	"errors"
	"time"
)

// ErrAlreadyMember is the sentinel ChannelGateway implementations return for
// the provider's "already a participant" condition.
var ErrAlreadyMember = errors.New("user is already a channel member")

type User struct {
	UserID       int64
	ChatID       int64
	Username     string
	FirstName    string
	LastName     string
	Subscription string
	ExpiresAt    *time.Time
	InChannel    bool
	Pending      *PendingPayment
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the user holds a subscription that has not yet expired.
func (u *User) Active(now time.Time) bool {
	return u.Subscription != "" && u.ExpiresAt != nil && u.ExpiresAt.After(now)
}

// PendingPayment is the user's single in-flight payment attempt. Opening a new
// one replaces any prior unconsumed attempt.
type PendingPayment struct {
	PaymentID string    `json:"payment_id"`
	Plan      string    `json:"plan"`
	Currency  Currency  `json:"currency"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type Transaction struct {
	ID        int64
	UserID    int64
	Hash      string
	PaymentID string
	Plan      string
	Currency  Currency
	Amount    float64
	Status    TxStatus
	CreatedAt time.Time
}

// UserStore is the persistence contract for the subscription ledger. The hash
// column carries a global uniqueness constraint; ConditionalActivate and
// RecordAwaitingReview are the only operations that clear a pending payment,
// and both require the caller to present the payment ID they saw at
// submission time.
type UserStore interface {
	UpsertProfile(ctx context.Context, u User) error
	GetUser(ctx context.Context, userID int64) (*User, error)

	SetPendingPayment(ctx context.Context, userID int64, p PendingPayment) error

	FindTransactionByHash(ctx context.Context, hash string) (*Transaction, error)

	// ConditionalActivate atomically verifies that paymentID is still the
	// user's current pending payment, extends the subscription by months
	// from max(now, current expiry), clears the pending payment and appends
	// the transaction record. Returns ok=false when the precondition no
	// longer holds or the hash was already recorded.
	ConditionalActivate(ctx context.Context, userID int64, paymentID string, plan string, months int, tx Transaction) (newExpiry *time.Time, ok bool, err error)

	// RecordAwaitingReview appends the transaction with status
	// awaiting_manual_check and consumes the matching pending payment.
	RecordAwaitingReview(ctx context.Context, userID int64, paymentID string, tx Transaction) (ok bool, err error)

	ExpireSubscription(ctx context.Context, userID int64) error
	FindExpiredActive(ctx context.Context, now time.Time) ([]*User, error)

	SetInChannel(ctx context.Context, userID int64, in bool) error
}

// Notifier delivers chat messages. Delivery failure is logged by
// implementations, never surfaced as a core error.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string)
	EditLast(ctx context.Context, chatID int64, text string)
}

// ChannelGateway wraps provider channel-membership calls. Implementations
// return ErrAlreadyMember when the provider reports the user is already a
// participant.
type ChannelGateway interface {
	AdmitMember(ctx context.Context, userID int64) (inviteLink string, err error)
	BanMember(ctx context.Context, userID int64) error
	UnbanMember(ctx context.Context, userID int64) error
}

// OnChainVerifier confirms that a transaction landed on the expected wallet
// with the expected amount. It fails closed: any ambiguity is a false.
type OnChainVerifier interface {
	Confirm(ctx context.Context, txHash string, expectedAmount float64, expectedDestination string) (bool, error)
}
