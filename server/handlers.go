package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/emote-tender/backend/emotes"
	"github.com/onnwee/emote-tender/backend/guild"
	"github.com/onnwee/emote-tender/backend/telemetry"
)

// EmoteStore is the read side of emotes.Store used by the HTTP API.
type EmoteStore interface {
	Ping(ctx context.Context) error
	FindByName(ctx context.Context, name string) (*emotes.Emote, error)
	List(ctx context.Context) ([]string, error)
}

// Handlers holds dependencies for all HTTP handlers.
type Handlers struct {
	store EmoteStore
	guild guild.Server
}

// NewHandlers creates a new Handlers instance with the given dependencies.
func NewHandlers(store EmoteStore, guildServer guild.Server) *Handlers {
	return &Handlers{store: store, guild: guildServer}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// HandleEmotesList returns the names of all stored emotes.
func (h *Handlers) HandleEmotesList(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	names, err := h.store.List(r.Context())
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("list emotes failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"emotes": names, "count": len(names)})
}

// HandleEmoteImage serves the stored image for /emotes/{name}.
func (h *Handlers) HandleEmoteImage(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/emotes/")
	if name == "" || strings.Contains(name, "/") {
		http.NotFound(w, r)
		return
	}
	e, err := h.store.FindByName(r.Context(), name)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("find emote failed", slog.String("emote", name), slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if e == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(e.Image))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(e.Image)
	}
}

// HandleGuildEmotes lists the configured guild's emotes as name/url pairs.
func (h *Handlers) HandleGuildEmotes(w http.ResponseWriter, r *http.Request) {
	if !allowRead(w, r) {
		return
	}
	if h.guild == nil {
		http.NotFound(w, r)
		return
	}
	list, err := guild.ListEmotes(r.Context(), h.guild)
	if err != nil {
		telemetry.LoggerWithCorr(r.Context()).Error("list guild emotes failed", slog.Any("err", err), slog.String("component", "http"))
		http.Error(w, "upstream error", http.StatusBadGateway)
		return
	}
	out := make([]map[string]string, 0, len(list))
	for _, e := range list {
		out = append(out, guild.ToDict(e))
	}
	writeJSON(w, http.StatusOK, out)
}
