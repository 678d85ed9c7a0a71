package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Telegram struct {
		BotToken    string `env:"BOT_TOKEN,required"`
		ChannelID   int64  `env:"CHANNEL_ID,required"`
		AdminChatID int64  `env:"ADMIN_CHAT_ID"`
	}

	Verify struct {
		// delay, onchain or manual. Exactly one strategy is active per
		// deployment.
		Mode  string        `env:"VERIFY_MODE" envDefault:"delay"`
		Delay time.Duration `env:"VERIFY_DELAY" envDefault:"10s"`
	}

	Sweep struct {
		Interval time.Duration `env:"SWEEP_INTERVAL" envDefault:"30m"`
	}

	HTTP struct {
		Port int `env:"HTTP_PORT" envDefault:"8080"`
	}

	Postgres struct {
		DSN string `env:"POSTGRES_DSN"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	// Payout wallets. A currency with an empty wallet is absent from the
	// plan catalog entirely.
	Wallets struct {
		TON  string `env:"TON_WALLET"`
		USDT string `env:"USDT_WALLET"`
	}

	TonAPI struct {
		BaseURL string `env:"TONAPI_BASE_URL" envDefault:"https://tonapi.io"`
		Token   string `env:"TONAPI_TOKEN"`
	}

	Prices struct {
		Month1TON  float64 `env:"PRICE_1M_TON" envDefault:"1.5"`
		Month3TON  float64 `env:"PRICE_3M_TON" envDefault:"4"`
		Year1TON   float64 `env:"PRICE_1Y_TON" envDefault:"14"`
		Month1USDT float64 `env:"PRICE_1M_USDT" envDefault:"24"`
		Month3USDT float64 `env:"PRICE_3M_USDT" envDefault:"65"`
		Year1USDT  float64 `env:"PRICE_1Y_USDT" envDefault:"230"`
	}
}

func Load() (*Config, error) {
	// Missing .env is fine, production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
