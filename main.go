// Command backend is the main entrypoint for the emote bot and its HTTP API.
// It:
//   - Loads configuration and initializes structured logging.
//   - Connects to Postgres and runs idempotent migrations.
//   - Starts the Discord bot (when DISCORD_TOKEN is set) and the Twitch emote
//     collector (when TWITCH_CHANNEL is set).
//   - Exposes a minimal HTTP server with /healthz, /readyz, /metrics and emote lookups.
//   - Re-opens the database connection on SIGHUP.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/onnwee/emote-tender/backend/chat"
	"github.com/onnwee/emote-tender/backend/config"
	"github.com/onnwee/emote-tender/backend/db"
	"github.com/onnwee/emote-tender/backend/emotes"
	"github.com/onnwee/emote-tender/backend/guild"
	"github.com/onnwee/emote-tender/backend/server"
	"github.com/onnwee/emote-tender/backend/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	format := strings.ToLower(os.Getenv("LOG_FORMAT")) // text | json
	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialized", slog.String("level", lvl.String()), slog.String("format", map[bool]string{true: "json", false: "text"}[format == "json"]))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// Initialize OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	traceOpts := telemetry.TracingOptionsFromEnv()
	traceOpts.ServiceVersion = "1.0.0"
	traceOpts.TwitchChannel = cfg.TwitchChannel
	traceOpts.DiscordGuildID = cfg.DiscordGuildID
	shutdown, err := telemetry.InitTracing(traceOpts)
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdown()

	// Versioned migrations first; fall back to the embedded statements for databases that
	// predate schema_migrations.
	slog.Info("running database migrations", slog.String("component", "db_migrate"))
	if err := db.RunMigrations(cfg.DBDsn); err != nil {
		slog.Warn("versioned migrations failed, attempting fallback to embedded SQL",
			slog.Any("err", err),
			slog.String("component", "db_migrate"))
		if err := migrateEmbedded(cfg.DBDsn); err != nil {
			slog.Error("failed to migrate db (both versioned and embedded SQL failed)", slog.Any("err", err))
			os.Exit(1)
		}
	}

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := emotes.Connect(connectCtx, cfg.DBDsn, emotes.HTTPFetcher{Client: &http.Client{Timeout: cfg.FetchTimeout}})
	cancelConnect()
	if err != nil {
		slog.Error("failed to open emote store", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close emote store", slog.Any("err", err))
		}
	}()

	// Root context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := chat.NewCollector(store)
	g, gctx := errgroup.WithContext(ctx)

	// Optional guild used by /guild/emotes; the bot itself serves every guild it is in.
	var guildServer guild.Server
	if err := cfg.ValidateDiscordReady(); err == nil {
		if cfg.DiscordGuildID != "" {
			session, err := discordgo.New("Bot " + cfg.DiscordToken)
			if err != nil {
				slog.Error("failed to create discord REST session", slog.Any("err", err))
				os.Exit(1)
			}
			guildServer = guild.Discord{Session: session, GuildID: cfg.DiscordGuildID}
		}
		g.Go(func() error { return chat.StartDiscordBot(gctx, collector, cfg.DiscordToken) })
	} else {
		slog.Info("discord bot disabled", slog.Any("reason", err))
	}

	g.Go(func() error {
		chat.StartTwitchEmoteCollector(gctx, collector, cfg.TwitchChannel)
		return nil
	})
	g.Go(func() error { return server.Start(gctx, store, guildServer, cfg.HTTPAddr) })

	// SIGHUP re-opens the database connection; there is no automatic reconnect.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				rctx, cancel := context.WithTimeout(gctx, 10*time.Second)
				if err := store.Reconnect(rctx); err != nil {
					slog.Error("manual reconnect failed", slog.Any("err", err))
				}
				cancel()
			}
		}
	})

	if err := g.Wait(); err != nil {
		slog.Error("worker exited with error", slog.Any("err", err))
		stop()
		shutdown()
		os.Exit(1)
	}
	slog.Info("shutting down")
}

func migrateEmbedded(dsn string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn, err := db.Connect(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := db.Migrate(ctx, conn); err != nil {
		return err
	}
	slog.Info("embedded SQL migration completed", slog.String("component", "db_migrate"))
	return nil
}
