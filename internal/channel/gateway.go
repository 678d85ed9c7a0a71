package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/mkrylov/channelpass-bot/types"
)

// BotGateway implements types.ChannelGateway on the Bot API. The bot cannot
// force-add members, so admission lifts any ban and hands out a fresh
// single-use invite link.
type BotGateway struct {
	bot       *bot.Bot
	channelID int64
}

func NewBotGateway(b *bot.Bot, channelID int64) *BotGateway {
	return &BotGateway{bot: b, channelID: channelID}
}

func (g *BotGateway) AdmitMember(ctx context.Context, userID int64) (string, error) {
	_, err := g.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       g.channelID,
		UserID:       userID,
		OnlyIfBanned: true,
	})
	if err != nil && !isAlreadyParticipant(err) {
		return "", fmt.Errorf("unban before admit: %w", err)
	}

	link, err := g.bot.CreateChatInviteLink(ctx, &bot.CreateChatInviteLinkParams{
		ChatID:      g.channelID,
		MemberLimit: 1,
	})
	if err != nil {
		if isAlreadyParticipant(err) {
			return "", types.ErrAlreadyMember
		}
		return "", fmt.Errorf("create invite link: %w", err)
	}
	return link.InviteLink, nil
}

func (g *BotGateway) BanMember(ctx context.Context, userID int64) error {
	_, err := g.bot.BanChatMember(ctx, &bot.BanChatMemberParams{
		ChatID: g.channelID,
		UserID: userID,
	})
	return err
}

func (g *BotGateway) UnbanMember(ctx context.Context, userID int64) error {
	_, err := g.bot.UnbanChatMember(ctx, &bot.UnbanChatMemberParams{
		ChatID:       g.channelID,
		UserID:       userID,
		OnlyIfBanned: true,
	})
	return err
}

func isAlreadyParticipant(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "USER_ALREADY_PARTICIPANT") || strings.Contains(msg, "ALREADY A MEMBER")
}
