package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/cd-Crypton/anistream/pkg/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "info", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("started", "addr", "127.0.0.1:8080")

	m := decodeLine(t, &buf)
	if m["msg"] != "started" || m["addr"] != "127.0.0.1:8080" {
		t.Errorf("unexpected record: %v", m)
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info logged at warn level: %q", buf.String())
	}
	logger.Warn("shown")
	if buf.Len() == 0 {
		t.Error("warn not logged")
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Format: "text"}, &buf)
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Errorf("text output = %q", buf.String())
	}
}

func TestNew_Invalid(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}, nil); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(config.LoggingConfig{Format: "xml"}, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRedaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{Level: "debug"}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	const token = "eyJhbGciOiJIUzI1NiJ9.payload.sig"

	logger.Info("upstream call",
		"authorization", "Bearer "+token,
		"header_dump", "Accept: application/json, Authorization: Bearer "+token,
		"url", "https://example.test/3/tv?api_key="+token+"&page=1",
		"error", errors.New("dial failed with bearer "+token),
		"path", "/discover/tv",
	)

	out := buf.String()
	if strings.Contains(out, token) {
		t.Fatalf("token leaked into log: %s", out)
	}

	m := decodeLine(t, &buf)
	if m["authorization"] != Redacted {
		t.Errorf("authorization = %v", m["authorization"])
	}
	if m["path"] != "/discover/tv" {
		t.Errorf("path = %v", m["path"])
	}
	if !strings.Contains(m["url"].(string), "page=1") {
		t.Errorf("url lost non-secret parts: %v", m["url"])
	}
}

func TestContextRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LoggingConfig{}, &buf)
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "req-123")
	logger.With("component", "test").InfoContext(ctx, "handled")

	m := decodeLine(t, &buf)
	if m["request_id"] != "req-123" {
		t.Errorf("request_id = %v", m["request_id"])
	}
	if m["component"] != "test" {
		t.Errorf("component = %v", m["component"])
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetRoute(ctx) != "" {
		t.Error("empty context returned values")
	}

	ctx = WithRoute(WithRequestID(ctx, "abc"), "api")
	if GetRequestID(ctx) != "abc" {
		t.Errorf("GetRequestID() = %q", GetRequestID(ctx))
	}
	if GetRoute(ctx) != "api" {
		t.Errorf("GetRoute() = %q", GetRoute(ctx))
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
