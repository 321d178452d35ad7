// Package guild reads and creates custom emotes on a chat server.
//
// Server is the minimal capability set the bot needs from a platform guild. Discord
// implements it over a discordgo session; tests use in-memory fakes.
package guild

import (
	"context"
	"fmt"
)

// Emote is a custom emoji as the platform reports it.
type Emote struct {
	ID       string
	Name     string
	URL      string
	Animated bool
}

// MessageFormat renders the emote the way it is written in a chat message.
func (e Emote) MessageFormat() string {
	if e.Animated {
		return fmt.Sprintf("<a:%s:%s>", e.Name, e.ID)
	}
	return fmt.Sprintf("<:%s:%s>", e.Name, e.ID)
}

// Server is a guild that owns a set of custom emotes.
type Server interface {
	// Emojis returns the guild's current emotes in platform order.
	Emojis(ctx context.Context) ([]Emote, error)
	// CreateEmoji uploads image as a new emote named name.
	CreateEmoji(ctx context.Context, name string, image []byte) (Emote, error)
}

// ListEmotes returns every emote on server, in the order the platform gives them.
func ListEmotes(ctx context.Context, server Server) ([]Emote, error) {
	emojis, err := server.Emojis(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Emote, 0, len(emojis))
	out = append(out, emojis...)
	return out, nil
}

// Find returns the first emote on server named name.
func Find(ctx context.Context, server Server, name string) (Emote, bool, error) {
	emojis, err := ListEmotes(ctx, server)
	if err != nil {
		return Emote{}, false, err
	}
	for _, e := range emojis {
		if e.Name == name {
			return e, true, nil
		}
	}
	return Emote{}, false, nil
}

// ToDict projects an emote to its name and asset URL.
//
// id and animated are deliberately not included; consumers only ever read name and url.
func ToDict(e Emote) map[string]string {
	return map[string]string{
		"name": e.Name,
		"url":  e.URL,
	}
}

// AddEmote creates a new emote on server. Platform errors (name collisions, payload too
// large, missing permissions) are returned as-is so callers can inspect them.
func AddEmote(ctx context.Context, server Server, name string, image []byte) (Emote, error) {
	return server.CreateEmoji(ctx, name, image)
}
