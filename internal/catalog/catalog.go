package catalog

import (
	"errors"

	"github.com/mkrylov/channelpass-bot/internal/config"
	"github.com/mkrylov/channelpass-bot/types"
)

var (
	ErrUnknownPlan         = errors.New("unknown plan")
	ErrCurrencyUnavailable = errors.New("currency has no configured wallet")
)

const (
	Plan1Month  = "1month"
	Plan3Months = "3months"
	Plan1Year   = "1year"
)

type Plan struct {
	ID     string
	Title  string
	Months int
	Prices map[types.Currency]float64
}

// Catalog is the immutable plan/price table, built once at startup. Currencies
// without a configured payout wallet never enter the table, so a plan's
// effective price list already reflects what the bot can actually accept.
type Catalog struct {
	plans   map[string]Plan
	order   []string
	wallets map[types.Currency]string
}

func FromConfig(cfg *config.Config) *Catalog {
	wallets := map[types.Currency]string{}
	if cfg.Wallets.TON != "" {
		wallets[types.CurrencyTON] = cfg.Wallets.TON
	}
	if cfg.Wallets.USDT != "" {
		wallets[types.CurrencyUSDT] = cfg.Wallets.USDT
	}

	raw := []Plan{
		{ID: Plan1Month, Title: "1 месяц", Months: 1, Prices: map[types.Currency]float64{
			types.CurrencyTON:  cfg.Prices.Month1TON,
			types.CurrencyUSDT: cfg.Prices.Month1USDT,
		}},
		{ID: Plan3Months, Title: "3 месяца", Months: 3, Prices: map[types.Currency]float64{
			types.CurrencyTON:  cfg.Prices.Month3TON,
			types.CurrencyUSDT: cfg.Prices.Month3USDT,
		}},
		{ID: Plan1Year, Title: "1 год", Months: 12, Prices: map[types.Currency]float64{
			types.CurrencyTON:  cfg.Prices.Year1TON,
			types.CurrencyUSDT: cfg.Prices.Year1USDT,
		}},
	}

	c := &Catalog{plans: map[string]Plan{}, wallets: wallets}
	for _, p := range raw {
		prices := map[types.Currency]float64{}
		for cur, price := range p.Prices {
			if _, ok := wallets[cur]; ok && price > 0 {
				prices[cur] = price
			}
		}
		p.Prices = prices
		c.plans[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

func (c *Catalog) Plan(id string) (Plan, bool) {
	p, ok := c.plans[id]
	return p, ok
}

// Plans returns catalog entries in display order.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.plans[id])
	}
	return out
}

func (c *Catalog) PriceOf(planID string, currency types.Currency) (float64, error) {
	p, ok := c.plans[planID]
	if !ok {
		return 0, ErrUnknownPlan
	}
	price, ok := p.Prices[currency]
	if !ok {
		return 0, ErrCurrencyUnavailable
	}
	return price, nil
}

func (c *Catalog) WalletFor(currency types.Currency) (string, error) {
	addr, ok := c.wallets[currency]
	if !ok {
		return "", ErrCurrencyUnavailable
	}
	return addr, nil
}

// Currencies lists the currencies a given plan can be paid in.
func (c *Catalog) Currencies(planID string) []types.Currency {
	p, ok := c.plans[planID]
	if !ok {
		return nil
	}
	out := make([]types.Currency, 0, len(p.Prices))
	for _, cur := range []types.Currency{types.CurrencyTON, types.CurrencyUSDT} {
		if _, ok := p.Prices[cur]; ok {
			out = append(out, cur)
		}
	}
	return out
}
