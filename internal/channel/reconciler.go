package channel

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkrylov/channelpass-bot/types"
)

type AdmitResult int

const (
	Admitted AdmitResult = iota
	AlreadyMember
	AdmitFailed
)

const callTimeout = 10 * time.Second

// MembershipCache is the slice of the user store the reconciler writes its
// best-effort in_channel mirror to.
type MembershipCache interface {
	SetInChannel(ctx context.Context, userID int64, in bool) error
}

// Reconciler keeps channel membership consistent with subscription state. The
// in_channel flag is a cache, never a source of truth: admit and revoke are
// always performed against the gateway and tolerate "already there" and
// "already gone".
type Reconciler struct {
	gateway types.ChannelGateway
	cache   MembershipCache
}

func NewReconciler(gateway types.ChannelGateway, cache MembershipCache) *Reconciler {
	return &Reconciler{gateway: gateway, cache: cache}
}

// Admit grants channel access. On success the returned invite link, when
// non-empty, should be delivered to the user.
func (r *Reconciler) Admit(ctx context.Context, userID int64) (AdmitResult, string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	link, err := r.gateway.AdmitMember(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrAlreadyMember) {
			r.markMembership(ctx, userID, true)
			return AlreadyMember, "", nil
		}
		return AdmitFailed, "", err
	}
	r.markMembership(ctx, userID, true)
	return Admitted, link, nil
}

// Revoke removes the user from the channel. Ban-then-unban, so the user is
// out but free to rejoin after a future valid payment.
func (r *Reconciler) Revoke(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	if err := r.gateway.BanMember(ctx, userID); err != nil {
		return err
	}
	if err := r.gateway.UnbanMember(ctx, userID); err != nil {
		// The user is already out of the channel at this point; log and
		// keep going so a later payment can still readmit them.
		log.Warn().Err(err).Int64("user_id", userID).Msg("unban after revoke failed")
	}
	r.markMembership(ctx, userID, false)
	return nil
}

func (r *Reconciler) markMembership(ctx context.Context, userID int64, in bool) {
	if r.cache == nil {
		return
	}
	if err := r.cache.SetInChannel(ctx, userID, in); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("update in_channel cache failed")
	}
}
