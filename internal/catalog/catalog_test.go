package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrylov/channelpass-bot/internal/config"
	"github.com/mkrylov/channelpass-bot/types"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Wallets.TON = "UQAkV2d4qpdTjxBKHvmfQM2nspyW7pW9Fw2lrqCCsGen0Tx4"
	cfg.Wallets.USDT = "TXk3tq5zfPyhvMJ9sbRkeFQZGD6WbtNLfV"
	cfg.Prices.Month1TON = 1.5
	cfg.Prices.Month3TON = 4
	cfg.Prices.Year1TON = 14
	cfg.Prices.Month1USDT = 24
	cfg.Prices.Month3USDT = 65
	cfg.Prices.Year1USDT = 230
	return cfg
}

func TestPriceOf(t *testing.T) {
	c := FromConfig(testConfig())

	tests := []struct {
		name     string
		plan     string
		currency types.Currency
		want     float64
		wantErr  error
	}{
		{name: "1month ton", plan: Plan1Month, currency: types.CurrencyTON, want: 1.5},
		{name: "1month usdt", plan: Plan1Month, currency: types.CurrencyUSDT, want: 24},
		{name: "3months usdt", plan: Plan3Months, currency: types.CurrencyUSDT, want: 65},
		{name: "1year ton", plan: Plan1Year, currency: types.CurrencyTON, want: 14},
		{name: "unknown plan", plan: "2weeks", currency: types.CurrencyTON, wantErr: ErrUnknownPlan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.PriceOf(tt.plan, tt.currency)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrencyWithoutWalletAbsent(t *testing.T) {
	cfg := testConfig()
	cfg.Wallets.USDT = ""
	c := FromConfig(cfg)

	_, err := c.PriceOf(Plan1Month, types.CurrencyUSDT)
	assert.ErrorIs(t, err, ErrCurrencyUnavailable)

	_, err = c.WalletFor(types.CurrencyUSDT)
	assert.ErrorIs(t, err, ErrCurrencyUnavailable)

	assert.Equal(t, []types.Currency{types.CurrencyTON}, c.Currencies(Plan1Month))
}

func TestWalletFor(t *testing.T) {
	c := FromConfig(testConfig())

	addr, err := c.WalletFor(types.CurrencyTON)
	require.NoError(t, err)
	assert.Equal(t, "UQAkV2d4qpdTjxBKHvmfQM2nspyW7pW9Fw2lrqCCsGen0Tx4", addr)
}

func TestPlansOrder(t *testing.T) {
	c := FromConfig(testConfig())

	plans := c.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, Plan1Month, plans[0].ID)
	assert.Equal(t, Plan3Months, plans[1].ID)
	assert.Equal(t, Plan1Year, plans[2].ID)
	assert.Equal(t, 12, plans[2].Months)
}
