package verify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrylov/channelpass-bot/internal/catalog"
	"github.com/mkrylov/channelpass-bot/internal/channel"
	"github.com/mkrylov/channelpass-bot/internal/config"
	"github.com/mkrylov/channelpass-bot/types"
)

const (
	testHash  = "a3f1b2c4d5e6f7a8b9c0d1e2f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2"
	otherHash = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
)

type fakeStore struct {
	mu      sync.Mutex
	user    *types.User
	txs     map[string]*types.Transaction
	getErr  error
	findErr error
}

func newFakeStore(u *types.User) *fakeStore {
	return &fakeStore{user: u, txs: map[string]*types.Transaction{}}
}

func (s *fakeStore) GetUser(_ context.Context, _ int64) (*types.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.getErr
}

func (s *fakeStore) FindTransactionByHash(_ context.Context, hash string) (*types.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs[hash], s.findErr
}

func (s *fakeStore) RecordAwaitingReview(_ context.Context, userID int64, paymentID string, tx types.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.txs[tx.Hash]; dup {
		return false, nil
	}
	if s.user == nil || s.user.Pending == nil || s.user.Pending.PaymentID != paymentID {
		return false, nil
	}
	s.txs[tx.Hash] = &tx
	s.user.Pending = nil
	return true, nil
}

type fakeLedger struct {
	mu        sync.Mutex
	activated []types.Transaction
	stale     bool
	err       error
}

func (l *fakeLedger) Activate(_ context.Context, userID int64, pending *types.PendingPayment, hash string, status types.TxStatus) (*time.Time, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, false, l.err
	}
	if l.stale {
		return nil, false, nil
	}
	l.activated = append(l.activated, types.Transaction{
		UserID: userID, Hash: hash, PaymentID: pending.PaymentID,
		Plan: pending.Plan, Currency: pending.Currency, Amount: pending.Amount, Status: status,
	})
	e := time.Now().UTC().AddDate(0, 1, 0)
	return &e, true, nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.activated)
}

type fakeAdmitter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *fakeAdmitter) Admit(_ context.Context, _ int64) (channel.AdmitResult, string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return channel.AdmitFailed, "", a.err
	}
	return channel.Admitted, "https://t.me/+invite", nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent map[int64][]string
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{sent: map[int64][]string{}}
}

func (n *fakeNotifier) Send(_ context.Context, chatID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[chatID] = append(n.sent[chatID], text)
}

func (n *fakeNotifier) EditLast(ctx context.Context, chatID int64, text string) {
	n.Send(ctx, chatID, text)
}

func (n *fakeNotifier) texts(chatID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent[chatID]...)
}

type fakeChain struct {
	confirmed bool
	err       error
}

func (c *fakeChain) Confirm(_ context.Context, _ string, _ float64, _ string) (bool, error) {
	return c.confirmed, c.err
}

func testCatalog() *catalog.Catalog {
	cfg := &config.Config{}
	cfg.Wallets.TON = "UQAkV2d4qpdTjxBKHvmfQM2nspyW7pW9Fw2lrqCCsGen0Tx4"
	cfg.Prices.Month1TON = 1.5
	cfg.Prices.Month3TON = 4
	cfg.Prices.Year1TON = 14
	return catalog.FromConfig(cfg)
}

func userWithPending() *types.User {
	return &types.User{
		UserID:   42,
		ChatID:   42,
		Username: "alice",
		Pending: &types.PendingPayment{
			PaymentID: "pid-1",
			Plan:      catalog.Plan1Month,
			Currency:  types.CurrencyTON,
			Amount:    1.5,
			CreatedAt: time.Now().UTC(),
		},
	}
}

type fixture struct {
	store    *fakeStore
	ledger   *fakeLedger
	admitter *fakeAdmitter
	notifier *fakeNotifier
	chain    *fakeChain
	svc      *Service
}

func newFixture(t *testing.T, user *types.User, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		store:    newFakeStore(user),
		ledger:   &fakeLedger{},
		admitter: &fakeAdmitter{},
		notifier: newFakeNotifier(),
		chain:    &fakeChain{},
	}
	f.svc = NewService(f.store, f.ledger, f.admitter, f.notifier, f.chain, testCatalog(), cfg)
	return f
}

func TestIsTransactionHash(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "valid lower", in: testHash, want: true},
		{name: "valid upper", in: strings.ToUpper(testHash), want: true},
		{name: "too short", in: testHash[:63], want: false},
		{name: "too long", in: testHash + "a", want: false},
		{name: "non hex", in: strings.Replace(testHash, "a", "g", 1), want: false},
		{name: "empty", in: "", want: false},
		{name: "ordinary text", in: "привет, когда доступ?", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransactionHash(tt.in))
		})
	}
}

func TestSubmitRejectsNonHash(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeOnChain})

	_, err := f.svc.Submit(context.Background(), 42, "not a hash at all")
	assert.ErrorIs(t, err, ErrNotTransactionHash)
	assert.Zero(t, f.ledger.count())
	assert.NotNil(t, f.store.user.Pending)
}

func TestSubmitNoPendingPayment(t *testing.T) {
	f := newFixture(t, &types.User{UserID: 42, ChatID: 42}, Config{Mode: types.VerifyModeOnChain})

	_, err := f.svc.Submit(context.Background(), 42, testHash)
	assert.ErrorIs(t, err, ErrNoPendingPayment)
	assert.Zero(t, f.ledger.count())
}

func TestSubmitDuplicateLeavesPendingIntact(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeOnChain})
	f.store.txs[testHash] = &types.Transaction{UserID: 7, Hash: testHash, Status: types.TxStatusCompleted}

	_, err := f.svc.Submit(context.Background(), 42, testHash)
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
	assert.Zero(t, f.ledger.count())
	require.NotNil(t, f.store.user.Pending)
	assert.Equal(t, "pid-1", f.store.user.Pending.PaymentID)
}

func TestSubmitOnChainSuccess(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeOnChain})
	f.chain.confirmed = true

	out, err := f.svc.Submit(context.Background(), 42, strings.ToUpper(testHash))
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, out)

	require.Equal(t, 1, f.ledger.count())
	rec := f.ledger.activated[0]
	assert.Equal(t, testHash, rec.Hash) // normalized to lower case
	assert.Equal(t, types.TxStatusVerified, rec.Status)
	assert.Equal(t, 1, f.admitter.calls)

	sent := f.notifier.texts(42)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "Оплата подтверждена")
	assert.Contains(t, sent[0], "https://t.me/+invite")
}

func TestSubmitOnChainRejected(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeOnChain})
	f.chain.confirmed = false

	_, err := f.svc.Submit(context.Background(), 42, testHash)
	assert.ErrorIs(t, err, ErrVerificationFailed)
	assert.Zero(t, f.ledger.count())
	assert.Zero(t, f.admitter.calls)
	assert.NotNil(t, f.store.user.Pending)
}

func TestSubmitOnChainTransient(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeOnChain})
	f.chain.err = errors.New("tonapi http 503")

	_, err := f.svc.Submit(context.Background(), 42, testHash)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Zero(t, f.ledger.count())
}

func TestSubmitDelayedActivatesAfterDelay(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeDelay, Delay: 10 * time.Millisecond})

	out, err := f.svc.Submit(context.Background(), 42, testHash)
	require.NoError(t, err)
	assert.Equal(t, OutcomeScheduled, out)
	assert.Zero(t, f.ledger.count())

	require.Eventually(t, func() bool { return f.ledger.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, types.TxStatusCompleted, f.ledger.activated[0].Status)
	require.Eventually(t, func() bool { return len(f.notifier.texts(42)) == 1 }, time.Second, 5*time.Millisecond)
}

func TestSubmitDelayedStalePaymentFailsClosed(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeDelay, Delay: 10 * time.Millisecond})
	f.ledger.stale = true

	_, err := f.svc.Submit(context.Background(), 42, testHash)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(f.notifier.texts(42)) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, f.notifier.texts(42)[0], "Нет ожидающего платежа")
	assert.Zero(t, f.admitter.calls)
}

func TestSubmitManualReview(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeManual, AdminChatID: 999})

	out, err := f.svc.Submit(context.Background(), 42, testHash)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAwaitingReview, out)

	assert.Zero(t, f.ledger.count())
	assert.Zero(t, f.admitter.calls)
	require.Contains(t, f.store.txs, testHash)
	assert.Equal(t, types.TxStatusAwaitingReview, f.store.txs[testHash].Status)
	assert.Nil(t, f.store.user.Pending)

	admin := f.notifier.texts(999)
	require.Len(t, admin, 1)
	assert.Contains(t, admin[0], "@alice")
	assert.Contains(t, admin[0], testHash)
}

func TestFinalizeAdmitFailureKeepsSubscription(t *testing.T) {
	f := newFixture(t, userWithPending(), Config{Mode: types.VerifyModeOnChain, AdminChatID: 999})
	f.chain.confirmed = true
	f.admitter.err = errors.New("not enough rights")

	out, err := f.svc.Submit(context.Background(), 42, testHash)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, out)
	assert.Equal(t, 1, f.ledger.count())

	sent := f.notifier.texts(42)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "поддержку")
	require.Len(t, f.notifier.texts(999), 1)
}

func TestSameHashSecondUserDuplicate(t *testing.T) {
	// user A already holds the hash; user B with their own pending attempt
	// submits the same hash.
	b := userWithPending()
	b.UserID = 43
	b.ChatID = 43
	f := newFixture(t, b, Config{Mode: types.VerifyModeOnChain})
	f.store.txs[testHash] = &types.Transaction{UserID: 42, Hash: testHash, Status: types.TxStatusVerified}
	f.chain.confirmed = true

	_, err := f.svc.Submit(context.Background(), 43, testHash)
	assert.ErrorIs(t, err, ErrDuplicateTransaction)
	assert.NotNil(t, f.store.user.Pending)

	// a different hash still goes through
	out, err := f.svc.Submit(context.Background(), 43, otherHash)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, out)
}
