package sweeper

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/internal/messages"
	"github.com/mkrylov/channelpass-bot/types"
)

type Store interface {
	FindExpiredActive(ctx context.Context, now time.Time) ([]*types.User, error)
}

type Ledger interface {
	Expire(ctx context.Context, userID int64) error
}

type Revoker interface {
	Revoke(ctx context.Context, userID int64) error
}

// Sweeper periodically demotes subscriptions past expiry and reconciles
// channel membership. One user's failure never blocks the rest, and the
// revoke+expire pair is idempotent, so overlapping runs are harmless.
type Sweeper struct {
	store    Store
	ledger   Ledger
	revoker  Revoker
	notifier types.Notifier
	interval time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func New(store Store, l Ledger, revoker Revoker, notifier types.Notifier, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Sweeper{
		store:    store,
		ledger:   l,
		revoker:  revoker,
		notifier: notifier,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	log.Info().Dur("interval", s.interval).Msg("expiry sweeper started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := s.SweepOnce(s.ctx); err != nil {
					log.Error().Err(err).Msg("expiry sweep failed")
				}
			case <-s.ctx.Done():
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	log.Info().Msg("expiry sweeper stopped")
}

// SweepOnce runs one full pass over expired active subscriptions.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	expired, err := s.store.FindExpiredActive(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	for _, u := range expired {
		s.sweepUser(ctx, u)
	}
	return nil
}

func (s *Sweeper) sweepUser(ctx context.Context, u *types.User) {
	if err := s.revoker.Revoke(ctx, u.UserID); err != nil {
		// Leave the ledger untouched so the next sweep retries this
		// user; the rest of the pass continues.
		log.Error().Err(err).Int64("user_id", u.UserID).Msg("channel revoke failed")
		return
	}

	if err := s.ledger.Expire(ctx, u.UserID); err != nil {
		log.Error().Err(err).Int64("user_id", u.UserID).Msg("expire failed")
		return
	}

	chatID := u.ChatID
	if chatID == 0 {
		chatID = u.UserID
	}
	s.notifier.Send(ctx, chatID, messages.SubscriptionExpired())

	log.Info().Int64("user_id", u.UserID).Str("plan", u.Subscription).Msg("subscription expired")
}
