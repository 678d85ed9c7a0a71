package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"

	"github.com/mkrylov/channelpass-bot/internal/catalog"
	"github.com/mkrylov/channelpass-bot/internal/channel"
	"github.com/mkrylov/channelpass-bot/internal/messages"
	"github.com/mkrylov/channelpass-bot/types"
)

var (
	ErrNotTransactionHash   = errors.New("text is not a transaction hash")
	ErrNoPendingPayment     = errors.New("no pending payment")
	ErrDuplicateTransaction = errors.New("transaction hash already recorded")
	ErrVerificationFailed   = errors.New("on-chain verification failed")
	ErrTransient            = errors.New("temporary failure")
)

const hashLen = 64

// IsTransactionHash is the shape predicate: exactly 64 hex characters.
// Anything else is ordinary conversation text, not a payment claim.
func IsTransactionHash(s string) bool {
	if len(s) != hashLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

type Outcome int

const (
	// OutcomeScheduled: delayed-trust verification timer armed.
	OutcomeScheduled Outcome = iota
	// OutcomeActivated: subscription already extended, user notified.
	OutcomeActivated
	// OutcomeAwaitingReview: recorded for manual review, operator notified.
	OutcomeAwaitingReview
)

type Store interface {
	GetUser(ctx context.Context, userID int64) (*types.User, error)
	FindTransactionByHash(ctx context.Context, hash string) (*types.Transaction, error)
	RecordAwaitingReview(ctx context.Context, userID int64, paymentID string, tx types.Transaction) (bool, error)
}

type Ledger interface {
	Activate(ctx context.Context, userID int64, pending *types.PendingPayment, hash string, status types.TxStatus) (*time.Time, bool, error)
}

type Admitter interface {
	Admit(ctx context.Context, userID int64) (channel.AdmitResult, string, error)
}

type Config struct {
	Mode        types.VerifyMode
	Delay       time.Duration
	AdminChatID int64
}

// Service is the payment-verification state machine. A submitted hash passes
// the shape predicate, the pending-payment lookup and the global dedup check,
// then one of three mutually exclusive strategies decides its fate.
type Service struct {
	store    Store
	ledger   Ledger
	admitter Admitter
	notifier types.Notifier
	onchain  types.OnChainVerifier
	catalog  *catalog.Catalog
	cfg      Config
}

func NewService(store Store, l Ledger, admitter Admitter, notifier types.Notifier, onchain types.OnChainVerifier, cat *catalog.Catalog, cfg Config) *Service {
	if cfg.Delay <= 0 {
		cfg.Delay = 10 * time.Second
	}
	return &Service{
		store:    store,
		ledger:   l,
		admitter: admitter,
		notifier: notifier,
		onchain:  onchain,
		catalog:  cat,
		cfg:      cfg,
	}
}

// Submit runs the verification state machine for one submitted hash.
// Validation errors (ErrNoPendingPayment, ErrDuplicateTransaction,
// ErrVerificationFailed) are terminal per submission and leave the pending
// payment untouched; ErrTransient means collaborators stayed unreachable
// through all retry attempts.
func (s *Service) Submit(ctx context.Context, userID int64, rawHash string) (Outcome, error) {
	hash := strings.ToLower(strings.TrimSpace(rawHash))
	if !IsTransactionHash(hash) {
		return 0, ErrNotTransactionHash
	}

	var user *types.User
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.store.GetUser(ctx, userID)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: load user: %v", ErrTransient, err)
	}
	if user == nil || user.Pending == nil {
		return 0, ErrNoPendingPayment
	}
	pending := user.Pending

	var existing *types.Transaction
	err = s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		existing, err = s.store.FindTransactionByHash(ctx, hash)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: dedup lookup: %v", ErrTransient, err)
	}
	if existing != nil {
		return 0, ErrDuplicateTransaction
	}

	switch s.cfg.Mode {
	case types.VerifyModeOnChain:
		return s.submitOnChain(ctx, user, pending, hash)
	case types.VerifyModeManual:
		return s.submitManual(ctx, user, pending, hash)
	default:
		return s.submitDelayed(user, pending, hash)
	}
}

// submitDelayed arms a one-shot timer that trusts the payment after a fixed
// delay. This is a placeholder, not a security control: nothing on-chain is
// checked. The timer is keyed by the payment ID captured here, so if the user
// opens a different payment before it fires, activation fails closed instead
// of granting the stale plan.
func (s *Service) submitDelayed(user *types.User, pending *types.PendingPayment, hash string) (Outcome, error) {
	snapshot := *pending
	chatID := chatIDOf(user)
	userID := user.UserID

	time.AfterFunc(s.cfg.Delay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s.finalize(ctx, userID, chatID, user.Username, &snapshot, hash, types.TxStatusCompleted, true)
	})
	return OutcomeScheduled, nil
}

func (s *Service) submitOnChain(ctx context.Context, user *types.User, pending *types.PendingPayment, hash string) (Outcome, error) {
	wallet, err := s.catalog.WalletFor(pending.Currency)
	if err != nil {
		return 0, fmt.Errorf("resolve wallet: %w", err)
	}

	var confirmed bool
	err = s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		confirmed, err = s.onchain.Confirm(ctx, hash, pending.Amount, wallet)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: on-chain lookup: %v", ErrTransient, err)
	}
	if !confirmed {
		return 0, ErrVerificationFailed
	}

	s.finalize(ctx, user.UserID, chatIDOf(user), user.Username, pending, hash, types.TxStatusVerified, false)
	return OutcomeActivated, nil
}

func (s *Service) submitManual(ctx context.Context, user *types.User, pending *types.PendingPayment, hash string) (Outcome, error) {
	rec := types.Transaction{
		UserID:    user.UserID,
		Hash:      hash,
		PaymentID: pending.PaymentID,
		Plan:      pending.Plan,
		Currency:  pending.Currency,
		Amount:    pending.Amount,
		Status:    types.TxStatusAwaitingReview,
		CreatedAt: time.Now().UTC(),
	}

	var ok bool
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		ok, err = s.store.RecordAwaitingReview(ctx, user.UserID, pending.PaymentID, rec)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%w: record review: %v", ErrTransient, err)
	}
	if !ok {
		return 0, ErrDuplicateTransaction
	}

	if s.cfg.AdminChatID != 0 {
		s.notifier.Send(ctx, s.cfg.AdminChatID, messages.AdminManualReview(user.UserID, user.Username, rec))
	}
	return OutcomeAwaitingReview, nil
}

// finalize applies the accepted payment: conditional activation, then channel
// admission. Channel failure never rolls the ledger back, it degrades to a
// support-contact message. With edit set, the outcome replaces the last bot
// message in place (the "checking" notice of the delayed path).
func (s *Service) finalize(ctx context.Context, userID, chatID int64, username string, pending *types.PendingPayment, hash string, status types.TxStatus, edit bool) {
	deliver := s.notifier.Send
	if edit {
		deliver = s.notifier.EditLast
	}
	var (
		expiry *time.Time
		ok     bool
	)
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		expiry, ok, err = s.ledger.Activate(ctx, userID, pending, hash, status)
		return err
	})
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Str("hash", hash).Msg("activation failed")
		deliver(ctx, chatID, messages.ErrorTryAgainLater())
		return
	}
	if !ok {
		// The pending payment changed between submission and now.
		log.Warn().Int64("user_id", userID).Str("payment_id", pending.PaymentID).Msg("stale payment, activation skipped")
		deliver(ctx, chatID, messages.ErrorNoPendingPayment())
		return
	}

	_, link, err := s.admitter.Admit(ctx, userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("channel admit failed")
		deliver(ctx, chatID, messages.ErrorContactSupport())
		if s.cfg.AdminChatID != 0 {
			s.notifier.Send(ctx, s.cfg.AdminChatID, messages.AdminAdmitFailed(userID, username))
		}
		return
	}

	deliver(ctx, chatID, messages.PaymentAccepted(expiry.UTC(), link))
}

func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(300*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func chatIDOf(u *types.User) int64 {
	if u.ChatID != 0 {
		return u.ChatID
	}
	return u.UserID
}
