package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrylov/channelpass-bot/internal/catalog"
	"github.com/mkrylov/channelpass-bot/internal/config"
	"github.com/mkrylov/channelpass-bot/types"
)

type memStore struct {
	pending map[int64]types.PendingPayment
}

func newMemStore() *memStore {
	return &memStore{pending: map[int64]types.PendingPayment{}}
}

func (s *memStore) SetPendingPayment(_ context.Context, userID int64, p types.PendingPayment) error {
	s.pending[userID] = p
	return nil
}

func testCatalog(t *testing.T, withUSDT bool) *catalog.Catalog {
	t.Helper()
	cfg := &config.Config{}
	cfg.Wallets.TON = "UQAkV2d4qpdTjxBKHvmfQM2nspyW7pW9Fw2lrqCCsGen0Tx4"
	if withUSDT {
		cfg.Wallets.USDT = "TXk3tq5zfPyhvMJ9sbRkeFQZGD6WbtNLfV"
	}
	cfg.Prices.Month1TON = 1.5
	cfg.Prices.Month1USDT = 24
	cfg.Prices.Month3TON = 4
	cfg.Prices.Month3USDT = 65
	cfg.Prices.Year1TON = 14
	cfg.Prices.Year1USDT = 230
	return catalog.FromConfig(cfg)
}

func TestOpenPayment(t *testing.T) {
	store := newMemStore()
	m := NewManager(testCatalog(t, true), store)

	p, err := m.OpenPayment(context.Background(), 42, catalog.Plan1Month, types.CurrencyUSDT)
	require.NoError(t, err)
	assert.Equal(t, catalog.Plan1Month, p.Plan)
	assert.Equal(t, types.CurrencyUSDT, p.Currency)
	assert.Equal(t, 24.0, p.Amount)
	assert.NotEmpty(t, p.PaymentID)
	assert.Equal(t, *p, store.pending[42])
}

func TestOpenPaymentReplacesPrior(t *testing.T) {
	store := newMemStore()
	m := NewManager(testCatalog(t, true), store)

	first, err := m.OpenPayment(context.Background(), 42, catalog.Plan1Month, types.CurrencyUSDT)
	require.NoError(t, err)
	second, err := m.OpenPayment(context.Background(), 42, catalog.Plan3Months, types.CurrencyTON)
	require.NoError(t, err)

	assert.NotEqual(t, first.PaymentID, second.PaymentID)
	assert.Equal(t, *second, store.pending[42])
}

func TestOpenPaymentErrors(t *testing.T) {
	m := NewManager(testCatalog(t, false), newMemStore())

	_, err := m.OpenPayment(context.Background(), 42, catalog.Plan1Month, types.CurrencyUSDT)
	assert.ErrorIs(t, err, catalog.ErrCurrencyUnavailable)

	_, err = m.OpenPayment(context.Background(), 42, "lifetime", types.CurrencyTON)
	assert.ErrorIs(t, err, catalog.ErrUnknownPlan)
}

func TestPaymentURI(t *testing.T) {
	m := NewManager(testCatalog(t, true), newMemStore())

	ton := &types.PendingPayment{PaymentID: "pid-1", Plan: catalog.Plan1Month, Currency: types.CurrencyTON, Amount: 1.5}
	uri, err := m.PaymentURI(ton)
	require.NoError(t, err)
	assert.Equal(t, "ton://transfer/UQAkV2d4qpdTjxBKHvmfQM2nspyW7pW9Fw2lrqCCsGen0Tx4?amount=1500000000&text=pid-1", uri)

	usdt := &types.PendingPayment{PaymentID: "pid-2", Plan: catalog.Plan1Month, Currency: types.CurrencyUSDT, Amount: 24}
	uri, err = m.PaymentURI(usdt)
	require.NoError(t, err)
	assert.Equal(t, "tron:TXk3tq5zfPyhvMJ9sbRkeFQZGD6WbtNLfV?amount=24", uri)
}

func TestQRPNG(t *testing.T) {
	png, err := QRPNG("ton://transfer/abc?amount=1")
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
