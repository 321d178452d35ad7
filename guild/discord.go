package guild

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// Discord is a Server backed by a discordgo session.
type Discord struct {
	Session *discordgo.Session
	GuildID string
}

var _ Server = Discord{}

// Emojis prefers the session's state cache and falls back to the REST API.
func (d Discord) Emojis(ctx context.Context) ([]Emote, error) {
	if d.Session.State != nil {
		if g, err := d.Session.State.Guild(d.GuildID); err == nil && g.Emojis != nil {
			return fromDiscord(g.Emojis), nil
		}
	}
	emojis, err := d.Session.GuildEmojis(d.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return fromDiscord(emojis), nil
}

// CreateEmoji uploads image as a data URI. Errors come back unwrapped, usually as
// *discordgo.RESTError.
func (d Discord) CreateEmoji(ctx context.Context, name string, image []byte) (Emote, error) {
	e, err := d.Session.GuildEmojiCreate(d.GuildID, &discordgo.EmojiParams{
		Name:  name,
		Image: DataURI(image),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return Emote{}, err
	}
	// Record the emoji right away; the GUILD_EMOJIS_UPDATE event may arrive after the next lookup.
	if d.Session.State != nil {
		_ = d.Session.State.EmojiAdd(d.GuildID, e)
	}
	return FromDiscord(e), nil
}

// DataURI encodes image the way the Discord emoji endpoint expects it.
func DataURI(image []byte) string {
	return "data:" + http.DetectContentType(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// EmojiURL returns the CDN asset URL for a custom emoji id.
func EmojiURL(id string, animated bool) string {
	if animated {
		return discordgo.EndpointEmojiAnimated(id)
	}
	return discordgo.EndpointEmoji(id)
}

// FromDiscord converts a discordgo emoji.
func FromDiscord(e *discordgo.Emoji) Emote {
	return Emote{
		ID:       e.ID,
		Name:     e.Name,
		URL:      EmojiURL(e.ID, e.Animated),
		Animated: e.Animated,
	}
}

func fromDiscord(emojis []*discordgo.Emoji) []Emote {
	out := make([]Emote, 0, len(emojis))
	for _, e := range emojis {
		if e == nil {
			continue
		}
		out = append(out, FromDiscord(e))
	}
	return out
}
