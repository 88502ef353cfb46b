package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestStringFields(t *testing.T) {
	fields := StringFields(
		StringField{Key: "  " + FieldVersion + "  ", Value: "  skills-v1  "},
		StringField{Key: FieldRunID, Value: "   "},
		StringField{Key: "   ", Value: "no key"},
	)

	if len(fields) != 1 {
		t.Fatalf("expected 1 field, got %d", len(fields))
	}
	if fields[0].Key != FieldVersion || fields[0].String != "skills-v1" {
		t.Fatalf("unexpected version field: %+v", fields[0])
	}
	if len(StringFields()) != 0 {
		t.Fatal("expected no fields")
	}
}

func TestCommonFields(t *testing.T) {
	fields := CommonFields("  gemini  ", "")
	if len(fields) != 1 || fields[0].Key != FieldProvider || fields[0].String != "gemini" {
		t.Fatalf("expected only the provider field, got %+v", fields)
	}
	if len(CommonFields("", "")) != 0 {
		t.Fatal("expected empty fields")
	}
}

func TestEnrichedLoggers(t *testing.T) {
	tests := []struct {
		name   string
		enrich func(*zap.Logger) *zap.Logger
		want   map[string]any
	}{
		{
			name:   "with fields",
			enrich: func(l *zap.Logger) *zap.Logger { return WithFields(l, zap.String(FieldVersion, "skills-v2")) },
			want:   map[string]any{FieldVersion: "skills-v2"},
		},
		{
			name:   "with common fields",
			enrich: func(l *zap.Logger) *zap.Logger { return WithCommonFields(l, "gemini", "gemini-2.5-flash") },
			want:   map[string]any{FieldProvider: "gemini", FieldModel: "gemini-2.5-flash"},
		},
		{
			name:   "with job fields",
			enrich: func(l *zap.Logger) *zap.Logger { return WithFields(l, JobFields(42, " run-1 ")...) },
			want:   map[string]any{FieldJobID: int64(42), FieldRunID: "run-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, observed := observer.New(zapcore.InfoLevel)
			tt.enrich(zap.New(core)).Info("entry")

			entries := observed.All()
			if len(entries) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(entries))
			}
			ctx := entries[0].ContextMap()
			for k, v := range tt.want {
				if ctx[k] != v {
					t.Fatalf("field %s: expected %v, got %v", k, v, ctx[k])
				}
			}

			// nil loggers fall back to a no-op logger
			tt.enrich(nil).Info("dropped")
		})
	}
}

func TestJobFieldsOmitsEmptyRun(t *testing.T) {
	if fields := JobFields(7, ""); len(fields) != 1 {
		t.Fatalf("expected run id to be omitted when empty, got %d fields", len(fields))
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("expected no-op logger")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Fatal("expected the same logger back")
	}
}
