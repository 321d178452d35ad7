// Package scanner parses chat message text for emote syntax.
//
// Two forms are recognised:
//   - an emote request, a message that is nothing but ":name:";
//   - custom emote references as Discord renders them, "<:name:id>".
package scanner

import (
	"regexp"
	"strings"
	"unicode"
)

// Reference is a custom emote found in message text.
type Reference struct {
	Name string
	ID   string
}

// referencePattern uses RE2 classes, so \w and \d are ASCII only: "<:café:1>" and
// "<:x:١٢>" are not references. Discord limits custom emoji names to [A-Za-z0-9_] and
// ids are ASCII snowflakes.
var referencePattern = regexp.MustCompile(`<:\w*:\d*>`)

// IsEmoteRequest returns the name between the enclosing colons when text starts and ends
// with ':' and holds no whitespace.
//
// "::" and ":" both yield an empty name with ok=true; callers decide whether an empty
// request means anything.
func IsEmoteRequest(text string) (name string, ok bool) {
	if !strings.HasPrefix(text, ":") || !strings.HasSuffix(text, ":") {
		return "", false
	}
	if strings.IndexFunc(text, unicode.IsSpace) >= 0 {
		return "", false
	}
	if len(text) < 2 {
		return "", true
	}
	return text[1 : len(text)-1], true
}

// ExtractEmoteReferences returns the names and ids of every "<:name:id>" in text, as two
// parallel slices in order of appearance. Duplicates are kept. Names and ids are matched
// as ASCII word characters and digits only.
func ExtractEmoteReferences(text string) (names, ids []string) {
	refs := References(text)
	names = make([]string, 0, len(refs))
	ids = make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
		ids = append(ids, r.ID)
	}
	return names, ids
}

// References is ExtractEmoteReferences as name/id pairs.
func References(text string) []Reference {
	matches := referencePattern.FindAllString(text, -1)
	refs := make([]Reference, 0, len(matches))
	for _, m := range matches {
		parts := strings.Split(m, ":")
		refs = append(refs, Reference{
			Name: parts[1],
			ID:   strings.TrimSuffix(parts[2], ">"),
		})
	}
	return refs
}
