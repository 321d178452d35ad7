package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/emote-tender/backend/emotes"
	"github.com/onnwee/emote-tender/backend/guild"
	"github.com/onnwee/emote-tender/backend/scanner"
	"github.com/onnwee/emote-tender/backend/telemetry"
)

// EmoteStore is the part of emotes.Store the collector uses.
type EmoteStore interface {
	FindByName(ctx context.Context, name string) (*emotes.Emote, error)
	AddOne(ctx context.Context, name, imageURL string) (bool, error)
}

// Replier posts text back to the channel a message came from.
type Replier func(ctx context.Context, text string) error

// Collector routes chat messages to the emote store and guild.
type Collector struct {
	store EmoteStore

	// writeMu serializes AddOne calls from every chat source.
	writeMu sync.Mutex
	// uploadMu serializes the guild lookup and upload of emote requests, since discordgo
	// dispatches each message on its own goroutine.
	uploadMu sync.Mutex
}

// NewCollector returns a Collector writing to store.
func NewCollector(store EmoteStore) *Collector {
	return &Collector{store: store}
}

// TwitchEmoteURL is the CDN asset for a Twitch emote id.
func TwitchEmoteURL(id string) string {
	return fmt.Sprintf("https://static-cdn.jtvnw.net/emoticons/v2/%s/default/dark/3.0", id)
}

// HandleDiscordMessage saves the custom emotes referenced in content, then answers an emote
// request if content is one. The returned error is the first failure answering the request;
// harvest failures are only logged.
func (c *Collector) HandleDiscordMessage(ctx context.Context, content string, server guild.Server, reply Replier) error {
	for _, ref := range scanner.References(content) {
		if ref.Name == "" || ref.ID == "" {
			continue
		}
		c.harvest(ctx, ref.Name, guild.EmojiURL(ref.ID, false))
	}

	name, ok := scanner.IsEmoteRequest(content)
	if !ok || name == "" {
		return nil
	}
	return c.answerRequest(ctx, name, server, reply)
}

// requestOutcome is what answering an emote request resolved to, before replying.
type requestOutcome struct {
	text      string
	uploadErr error
}

func (c *Collector) answerRequest(ctx context.Context, name string, server guild.Server, reply Replier) error {
	log := telemetry.LoggerWithCorr(ctx).With(slog.String("component", "chat"), slog.String("emote", name))

	out, err := c.resolveRequest(ctx, name, server)
	if err != nil {
		telemetry.IncLabel(telemetry.EmoteRequests, "error")
		return err
	}
	if out.uploadErr != nil {
		log.Warn("emote upload failed", slog.Any("err", out.uploadErr))
		if rerr := reply(ctx, out.text); rerr != nil {
			log.Error("reply failed", slog.Any("err", rerr))
		}
		return out.uploadErr
	}
	return reply(ctx, out.text)
}

// resolveRequest finds or uploads the emote while holding uploadMu. Replies are sent by the
// caller after the lock is released.
func (c *Collector) resolveRequest(ctx context.Context, name string, server guild.Server) (out requestOutcome, err error) {
	c.uploadMu.Lock()
	defer c.uploadMu.Unlock()

	ctx, span := telemetry.StartEmoteSpan(ctx, "chat", "EmoteRequest", name)
	defer func() {
		spanErr := err
		if spanErr == nil {
			spanErr = out.uploadErr
		}
		telemetry.EndSpan(span, spanErr)
	}()

	existing, found, err := guild.Find(ctx, server, name)
	if err != nil {
		return requestOutcome{}, fmt.Errorf("list guild emotes: %w", err)
	}
	if found {
		telemetry.IncLabel(telemetry.EmoteRequests, "server")
		return requestOutcome{text: existing.MessageFormat()}, nil
	}

	stored, err := c.store.FindByName(ctx, name)
	if err != nil {
		return requestOutcome{}, err
	}
	if stored == nil {
		telemetry.IncLabel(telemetry.EmoteRequests, "unknown")
		return requestOutcome{text: fmt.Sprintf("I don't know :%s: yet.", name)}, nil
	}

	created, err := guild.AddEmote(ctx, server, name, stored.Image)
	if err != nil {
		telemetry.IncLabel(telemetry.EmoteUploads, "error")
		telemetry.IncLabel(telemetry.EmoteRequests, "error")
		return requestOutcome{text: fmt.Sprintf("Couldn't add :%s: to this server.", name), uploadErr: err}, nil
	}
	telemetry.IncLabel(telemetry.EmoteUploads, "success")
	telemetry.IncLabel(telemetry.EmoteRequests, "uploaded")
	telemetry.LoggerWithCorr(ctx).Info("emote uploaded to guild",
		slog.String("emote", name),
		slog.String("emote_id", created.ID),
		slog.String("component", "chat"))
	return requestOutcome{text: created.MessageFormat()}, nil
}

// HandleTwitchMessage saves every emote used in msg.
func (c *Collector) HandleTwitchMessage(ctx context.Context, msg twitch.PrivateMessage) {
	for _, e := range msg.Emotes {
		if e == nil || e.Name == "" || e.ID == "" {
			continue
		}
		c.harvest(ctx, e.Name, TwitchEmoteURL(e.ID))
	}
}

func (c *Collector) harvest(ctx context.Context, name, url string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.store.AddOne(ctx, name, url); err != nil {
		telemetry.LoggerWithCorr(ctx).Warn("failed to save emote",
			slog.String("emote", name),
			slog.String("url", url),
			slog.Any("err", err),
			slog.String("component", "chat"))
	}
}
