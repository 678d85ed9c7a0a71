package payment

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/mkrylov/channelpass-bot/internal/catalog"
	"github.com/mkrylov/channelpass-bot/types"
)

// Store is the slice of the user store the session manager needs.
type Store interface {
	SetPendingPayment(ctx context.Context, userID int64, p types.PendingPayment) error
}

// Manager opens and encodes payment attempts. It is the sole owner of the
// pending-payment field: opening a new attempt replaces any prior unconsumed
// one.
type Manager struct {
	catalog *catalog.Catalog
	store   Store
}

func NewManager(cat *catalog.Catalog, store Store) *Manager {
	return &Manager{catalog: cat, store: store}
}

func (m *Manager) OpenPayment(ctx context.Context, userID int64, planID string, currency types.Currency) (*types.PendingPayment, error) {
	amount, err := m.catalog.PriceOf(planID, currency)
	if err != nil {
		return nil, err
	}

	p := types.PendingPayment{
		PaymentID: uuid.NewString(),
		Plan:      planID,
		Currency:  currency,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	if err := m.store.SetPendingPayment(ctx, userID, p); err != nil {
		return nil, fmt.Errorf("persist pending payment: %w", err)
	}
	return &p, nil
}

func (m *Manager) WalletFor(currency types.Currency) (string, error) {
	return m.catalog.WalletFor(currency)
}

// PaymentURI builds the currency-specific payment descriptor for a pending
// attempt. TON encodes the amount in nanotons and carries the payment ID as
// the transfer comment; USDT passes the decimal amount directly.
func (m *Manager) PaymentURI(p *types.PendingPayment) (string, error) {
	wallet, err := m.catalog.WalletFor(p.Currency)
	if err != nil {
		return "", err
	}

	switch p.Currency {
	case types.CurrencyTON:
		nano := int64(math.Round(p.Amount * 1e9))
		return fmt.Sprintf("ton://transfer/%s?amount=%d&text=%s", wallet, nano, url.QueryEscape(p.PaymentID)), nil
	case types.CurrencyUSDT:
		return fmt.Sprintf("tron:%s?amount=%s", wallet, trimFloat(p.Amount)), nil
	default:
		return "", catalog.ErrCurrencyUnavailable
	}
}

func trimFloat(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
