package chat

import (
	"context"
	"errors"
	"log/slog"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/emote-tender/backend/telemetry"
)

// StartTwitchEmoteCollector reads channel's chat anonymously and stores the emotes it sees.
// It returns once ctx is cancelled.
func StartTwitchEmoteCollector(ctx context.Context, collector *Collector, channel string) {
	if channel == "" {
		slog.Info("TWITCH_CHANNEL not set; skipping twitch emote collector")
		return
	}
	client := twitch.NewAnonymousClient()

	client.OnPrivateMessage(func(msg twitch.PrivateMessage) {
		if len(msg.Emotes) == 0 {
			return
		}
		collector.HandleTwitchMessage(telemetry.WithCorrelation(ctx, msg.ID), msg)
	})
	client.OnConnect(func() {
		slog.Info("twitch emote collector connected", slog.String("channel", channel), slog.String("component", "chat"))
	})

	// Handle context cancellation by closing the client
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = client.Disconnect()
		close(done)
	}()

	client.Join(channel)
	if err := client.Connect(); err != nil && !errors.Is(err, twitch.ErrClientDisconnected) {
		slog.Error("twitch chat connect error", slog.Any("err", err), slog.String("component", "chat"))
	}
	<-done
}
