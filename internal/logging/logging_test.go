package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestNewJSONWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(String("component", "test")).Info(context.Background(), "hello",
		Int("count", 3), Bool("ok", true), Err(errors.New("boom")))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "hello" || rec["component"] != "test" || rec["error"] != "boom" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["count"] != float64(3) || rec["ok"] != true {
		t.Fatalf("unexpected typed fields %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "warn", Format: "text", Output: &buf})
	log.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record written at warn level: %q", buf.String())
	}
	log.Warn(context.Background(), "kept")
	if buf.Len() == 0 {
		t.Fatalf("warn record missing")
	}
}

func TestRequestAndSessionContext(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if id == "" || RequestIDFromContext(ctx) != id {
		t.Fatalf("request id not stored: %q", id)
	}
	ctx2, id2 := EnsureRequestID(ctx)
	if id2 != id || ctx2 != ctx {
		t.Fatalf("EnsureRequestID replaced existing id %q with %q", id, id2)
	}

	ctx = ContextWithSessionID(ctx, "sess-1")
	if got := SessionIDFromContext(ctx); got != "sess-1" {
		t.Fatalf("SessionIDFromContext = %q, want sess-1", got)
	}

	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})
	FromContext(ctx, base).Info(ctx, "scoped")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["request_id"] != id || rec["session_id"] != "sess-1" {
		t.Fatalf("scoped fields missing: %v", rec)
	}
}

func TestFromContextPrefersStoredLogger(t *testing.T) {
	stored := Noop()
	ctx := ContextWithLogger(context.Background(), stored)
	if got := FromContext(ctx, nil); got != stored {
		t.Fatalf("FromContext did not return stored logger")
	}
	if got := FromContext(context.Background(), nil); got == nil {
		t.Fatalf("FromContext returned nil without base")
	}
}
