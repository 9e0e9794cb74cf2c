package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  component  ", Value: "  matcher  "},
		StringField{Key: "ignored", Value: "   "},
		StringField{Key: "   ", Value: "empty key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}

	if fields[0].Key != "component" || fields[0].String != "matcher" {
		t.Fatalf("unexpected component field: %+v", fields[0])
	}

	empty := StringFields()
	if len(empty) != 0 {
		t.Fatalf("expected empty fields, got %d", len(empty))
	}
}

func TestWithFields(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	enriched := WithFields(logger, zap.String("foo", "bar"))
	enriched.Info("test log")

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx["foo"] != "bar" {
		t.Fatalf("expected field to be bar, got %q", ctx["foo"])
	}

	enriched = WithFields(nil, zap.String("baz", "qux"))
	if enriched == nil {
		t.Fatalf("expected fallback logger when nil provided")
	}

	// Ensure logging with the fallback logger does not panic.
	enriched.Info("another log")
}

func TestForComponent(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)

	ForComponent(zap.New(core), "embedcache", "hashing-384").Info("test log", Stage("encode"))

	entries := observed.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	ctx := entries[0].ContextMap()
	if ctx[FieldComponent] != "embedcache" {
		t.Fatalf("expected component field to be embedcache, got %q", ctx[FieldComponent])
	}
	if ctx[FieldEncoderModel] != "hashing-384" {
		t.Fatalf("expected model field, got %q", ctx[FieldEncoderModel])
	}
	if ctx[FieldStage] != "encode" {
		t.Fatalf("expected stage field, got %q", ctx[FieldStage])
	}

	if fields := ComponentFields("matcher", ""); len(fields) != 1 {
		t.Fatalf("expected empty model to be dropped, got %d fields", len(fields))
	}
}
