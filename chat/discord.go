package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/onnwee/emote-tender/backend/guild"
	"github.com/onnwee/emote-tender/backend/telemetry"
)

// StartDiscordBot runs the Discord bot until ctx is cancelled.
func StartDiscordBot(ctx context.Context, collector *Collector, token string) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentGuildMessages | discordgo.IntentGuildEmojis | discordgo.IntentMessageContent

	dg.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot || m.GuildID == "" {
			return
		}
		mctx := telemetry.WithCorrelation(ctx, m.ID)
		server := guild.Discord{Session: s, GuildID: m.GuildID}
		reply := func(rctx context.Context, text string) error {
			_, err := s.ChannelMessageSend(m.ChannelID, text, discordgo.WithContext(rctx))
			return err
		}
		if err := collector.HandleDiscordMessage(mctx, m.Content, server, reply); err != nil {
			telemetry.LoggerWithCorr(mctx).Error("discord message handling failed",
				slog.Any("err", err),
				slog.String("guild_id", m.GuildID),
				slog.String("component", "chat"))
		}
	})
	dg.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		slog.Info("discord bot connected", slog.String("user", r.User.Username), slog.Int("guilds", len(r.Guilds)), slog.String("component", "chat"))
	})

	if err := dg.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	<-ctx.Done()
	if err := dg.Close(); err != nil {
		slog.Error("failed to close discord session", slog.Any("err", err), slog.String("component", "chat"))
	}
	return nil
}
