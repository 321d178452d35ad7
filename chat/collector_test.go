package chat

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	twitch "github.com/gempir/go-twitch-irc/v4"

	"github.com/onnwee/emote-tender/backend/emotes"
	"github.com/onnwee/emote-tender/backend/guild"
)

type addCall struct{ name, url string }

type fakeStore struct {
	emotes map[string]*emotes.Emote
	adds   []addCall
	addErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{emotes: map[string]*emotes.Emote{}}
}

func (f *fakeStore) FindByName(ctx context.Context, name string) (*emotes.Emote, error) {
	return f.emotes[name], nil
}

func (f *fakeStore) AddOne(ctx context.Context, name, url string) (bool, error) {
	f.adds = append(f.adds, addCall{name, url})
	if f.addErr != nil {
		return false, f.addErr
	}
	if _, ok := f.emotes[name]; ok {
		return false, nil
	}
	f.emotes[name] = &emotes.Emote{ID: int64(len(f.emotes) + 1), Name: name, Image: []byte("img:" + name)}
	return true, nil
}

type fakeGuild struct {
	emojis    []guild.Emote
	createErr error
	uploads   map[string][]byte
}

func (f *fakeGuild) Emojis(ctx context.Context) ([]guild.Emote, error) {
	return f.emojis, nil
}

func (f *fakeGuild) CreateEmoji(ctx context.Context, name string, image []byte) (guild.Emote, error) {
	if f.createErr != nil {
		return guild.Emote{}, f.createErr
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[name] = image
	e := guild.Emote{ID: "777", Name: name}
	f.emojis = append(f.emojis, e)
	return e, nil
}

type replies []string

func (r *replies) reply(ctx context.Context, text string) error {
	*r = append(*r, text)
	return nil
}

func TestHandleDiscordMessageHarvestsReferences(t *testing.T) {
	store := newFakeStore()
	c := NewCollector(store)
	var out replies

	err := c.HandleDiscordMessage(context.Background(), "hi <:cat:123> and <:dog:456>", &fakeGuild{}, out.reply)
	if err != nil {
		t.Fatalf("HandleDiscordMessage() error = %v", err)
	}
	if len(store.adds) != 2 {
		t.Fatalf("AddOne called %d times, want 2", len(store.adds))
	}
	if store.adds[0].name != "cat" || !strings.HasSuffix(store.adds[0].url, "emojis/123.png") {
		t.Errorf("first add = %+v", store.adds[0])
	}
	if store.adds[1].name != "dog" || !strings.HasSuffix(store.adds[1].url, "emojis/456.png") {
		t.Errorf("second add = %+v", store.adds[1])
	}
	if len(out) != 0 {
		t.Errorf("unexpected replies %v", out)
	}
}

func TestHandleDiscordMessageHarvestErrorIsLogged(t *testing.T) {
	store := newFakeStore()
	store.addErr = &emotes.FetchError{URL: "x", StatusCode: 404}
	c := NewCollector(store)

	if err := c.HandleDiscordMessage(context.Background(), "<:cat:1>", &fakeGuild{}, (&replies{}).reply); err != nil {
		t.Errorf("harvest failure should not be returned, got %v", err)
	}
}

func TestHandleDiscordMessageRequestAlreadyOnServer(t *testing.T) {
	store := newFakeStore()
	g := &fakeGuild{emojis: []guild.Emote{{ID: "1", Name: "cat"}}}
	var out replies

	if err := NewCollector(store).HandleDiscordMessage(context.Background(), ":cat:", g, out.reply); err != nil {
		t.Fatalf("HandleDiscordMessage() error = %v", err)
	}
	if !reflect.DeepEqual([]string(out), []string{"<:cat:1>"}) {
		t.Errorf("replies = %v", out)
	}
	if len(g.uploads) != 0 {
		t.Errorf("unexpected upload %v", g.uploads)
	}
}

func TestHandleDiscordMessageRequestUploadsFromStore(t *testing.T) {
	store := newFakeStore()
	store.emotes["cat"] = &emotes.Emote{ID: 1, Name: "cat", Image: []byte("png")}
	g := &fakeGuild{}
	var out replies

	if err := NewCollector(store).HandleDiscordMessage(context.Background(), ":cat:", g, out.reply); err != nil {
		t.Fatalf("HandleDiscordMessage() error = %v", err)
	}
	if string(g.uploads["cat"]) != "png" {
		t.Errorf("uploaded %q, want stored image", g.uploads["cat"])
	}
	if !reflect.DeepEqual([]string(out), []string{"<:cat:777>"}) {
		t.Errorf("replies = %v", out)
	}
}

func TestHandleDiscordMessageRequestUnknown(t *testing.T) {
	var out replies
	if err := NewCollector(newFakeStore()).HandleDiscordMessage(context.Background(), ":nope:", &fakeGuild{}, out.reply); err != nil {
		t.Fatalf("HandleDiscordMessage() error = %v", err)
	}
	if len(out) != 1 || !strings.Contains(out[0], ":nope:") {
		t.Errorf("replies = %v", out)
	}
}

func TestHandleDiscordMessageUploadErrorPropagates(t *testing.T) {
	store := newFakeStore()
	store.emotes["cat"] = &emotes.Emote{ID: 1, Name: "cat", Image: []byte("png")}
	platformErr := errors.New("Maximum number of emojis reached (50)")
	var out replies

	err := NewCollector(store).HandleDiscordMessage(context.Background(), ":cat:", &fakeGuild{createErr: platformErr}, out.reply)
	if err != platformErr {
		t.Errorf("error = %v, want platform error unchanged", err)
	}
	if len(out) != 1 {
		t.Errorf("expected one failure reply, got %v", out)
	}
}

// slowGuild widens the window between listing and creating emojis, and counts creates.
type slowGuild struct {
	mu      sync.Mutex
	emojis  []guild.Emote
	creates int
}

func (g *slowGuild) Emojis(ctx context.Context) ([]guild.Emote, error) {
	g.mu.Lock()
	out := append([]guild.Emote(nil), g.emojis...)
	g.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	return out, nil
}

func (g *slowGuild) CreateEmoji(ctx context.Context, name string, image []byte) (guild.Emote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creates++
	e := guild.Emote{ID: "777", Name: name}
	g.emojis = append(g.emojis, e)
	return e, nil
}

func TestHandleDiscordMessageConcurrentRequestsUploadOnce(t *testing.T) {
	store := newFakeStore()
	store.emotes["cat"] = &emotes.Emote{ID: 1, Name: "cat", Image: []byte("png")}
	c := NewCollector(store)
	g := &slowGuild{}

	var (
		mu  sync.Mutex
		out []string
		wg  sync.WaitGroup
	)
	reply := func(ctx context.Context, text string) error {
		mu.Lock()
		defer mu.Unlock()
		out = append(out, text)
		return nil
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.HandleDiscordMessage(context.Background(), ":cat:", g, reply); err != nil {
				t.Errorf("HandleDiscordMessage() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if g.creates != 1 {
		t.Errorf("CreateEmoji calls = %d, want 1", g.creates)
	}
	if len(g.emojis) != 1 {
		t.Errorf("guild emojis = %d, want 1", len(g.emojis))
	}
	for _, text := range out {
		if text != "<:cat:777>" {
			t.Errorf("reply = %q, want <:cat:777>", text)
		}
	}
	if len(out) != 4 {
		t.Errorf("replies = %d, want 4", len(out))
	}
}

func TestHandleDiscordMessageIgnoresPlainText(t *testing.T) {
	store := newFakeStore()
	var out replies
	for _, text := range []string{"hello", "::", ":a b:", ""} {
		if err := NewCollector(store).HandleDiscordMessage(context.Background(), text, &fakeGuild{}, out.reply); err != nil {
			t.Fatalf("HandleDiscordMessage(%q) error = %v", text, err)
		}
	}
	if len(out) != 0 || len(store.adds) != 0 {
		t.Errorf("replies=%v adds=%v, want none", out, store.adds)
	}
}

func TestHandleTwitchMessage(t *testing.T) {
	store := newFakeStore()
	msg := twitch.PrivateMessage{
		Message: "Kappa Kappa PogChamp",
		Emotes: []*twitch.Emote{
			{Name: "Kappa", ID: "25", Count: 2},
			nil,
			{Name: "PogChamp", ID: "305954156", Count: 1},
		},
	}

	NewCollector(store).HandleTwitchMessage(context.Background(), msg)

	want := []addCall{
		{"Kappa", "https://static-cdn.jtvnw.net/emoticons/v2/25/default/dark/3.0"},
		{"PogChamp", "https://static-cdn.jtvnw.net/emoticons/v2/305954156/default/dark/3.0"},
	}
	if !reflect.DeepEqual(store.adds, want) {
		t.Errorf("adds = %+v, want %+v", store.adds, want)
	}
}
