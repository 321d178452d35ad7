package telemetry

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTracingOptionsFromEnv(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "false")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.25")

	opts := TracingOptionsFromEnv()
	if opts.Endpoint != "collector:4317" {
		t.Errorf("Endpoint = %q", opts.Endpoint)
	}
	if opts.Insecure {
		t.Error("Insecure = true, want false")
	}
	if opts.SampleRatio != 0.25 {
		t.Errorf("SampleRatio = %v, want 0.25", opts.SampleRatio)
	}
}

func TestTracingOptionsDefaults(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "not-a-number")

	opts := TracingOptionsFromEnv()
	if !opts.Insecure || opts.SampleRatio != 0 || opts.Endpoint != "" {
		t.Errorf("defaults = %+v", opts)
	}
}

func TestTracingSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "AlwaysOnSampler"},
		{1, "AlwaysOnSampler"},
		{0.25, "TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		desc := TracingOptions{SampleRatio: tt.ratio}.sampler().Description()
		if !strings.Contains(desc, tt.want) {
			t.Errorf("ratio %v: sampler = %q, want it to contain %q", tt.ratio, desc, tt.want)
		}
	}
}

func TestTracingResourceAttrs(t *testing.T) {
	attrs := TracingOptions{ServiceVersion: "test", TwitchChannel: "forsen", DiscordGuildID: "g1"}.resourceAttrs()
	got := map[attribute.Key]string{}
	for _, a := range attrs {
		got[a.Key] = a.Value.Emit()
	}
	want := map[attribute.Key]string{
		"service.name":           ServiceName,
		"service.version":        "test",
		"emote.twitch_channel":   "forsen",
		"emote.discord_guild_id": "g1",
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %q, want %q", k, got[k], v)
		}
	}

	bare := TracingOptions{ServiceVersion: "test"}.resourceAttrs()
	if len(bare) != 2 {
		t.Errorf("expected only service attrs without chat targets, got %v", bare)
	}
}

func TestInitTracingDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracing(TracingOptions{})
	if err != nil {
		t.Fatalf("InitTracing() error = %v", err)
	}
	shutdown()

	_, span := StartEmoteSpan(context.Background(), "test", "AddOne", "cat")
	defer span.End()
	if span.IsRecording() {
		t.Error("span should be a no-op without an exporter")
	}
}

func TestEndSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	tracer := tp.Tracer("test")

	_, failed := tracer.Start(context.Background(), "failed")
	EndSpan(failed, errors.New("fetch failed"))
	_, ok := tracer.Start(context.Background(), "ok")
	EndSpan(ok, nil)

	ended := sr.Ended()
	if len(ended) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(ended))
	}
	if st := ended[0].Status(); st.Code != codes.Error || st.Description != "fetch failed" {
		t.Errorf("failed span status = %+v", st)
	}
	if len(ended[0].Events()) == 0 {
		t.Error("expected recorded error event")
	}
	if st := ended[1].Status(); st.Code != codes.Ok {
		t.Errorf("ok span status = %+v", st)
	}
}
