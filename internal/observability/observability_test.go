package observability

import (
	"context"
	"errors"
	"testing"
)

func TestStartSpan(t *testing.T) {
	tests := []struct {
		name     string
		spanName string
		data     map[string]any
	}{
		{
			name:     "span with nil data",
			spanName: "generate",
			data:     nil,
		},
		{
			name:     "span with string data",
			spanName: "session.save",
			data: map[string]any{
				"chat_id":  "2024-01-15_10-30-00",
				"messages": 4,
			},
		},
		{
			name:     "span with mixed data types",
			spanName: "generate",
			data: map[string]any{
				"provider": "openai",
				"chunks":   int64(42),
				"partial":  false,
				"elapsed":  3.14,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, span := StartSpan(context.Background(), tt.spanName, tt.data)

			if span == nil {
				t.Fatal("StartSpan returned nil span")
			}
			if ctx == nil {
				t.Fatal("StartSpan returned nil context")
			}
			if span.Name() != tt.spanName {
				t.Errorf("span.Name() = %v, want %v", span.Name(), tt.spanName)
			}
			if span.IsEnded() {
				t.Error("new span should not be ended")
			}
		})
	}
}

func TestSpanEnd(t *testing.T) {
	_, span := StartSpan(context.Background(), "generate", nil)

	span.End()
	if !span.IsEnded() {
		t.Error("span should be ended after End()")
	}

	// Repeated End must not panic.
	span.End()
	span.End()
}

func TestSpanAttributesAndError(t *testing.T) {
	_, span := StartSpan(context.Background(), "generate", nil)
	defer span.End()

	span.SetAttribute("provider", "gemini")
	span.SetAttribute("chunks", 7)
	span.SetError(errors.New("stream interrupted"))
	span.SetError(nil)
}

func TestSpanZeroValue(t *testing.T) {
	var span Span
	span.End()
	span.SetAttribute("k", "v")
	span.SetError(errors.New("x"))
}

func TestInitDisabled(t *testing.T) {
	if err := Init(Config{Enabled: false}); err != nil {
		t.Fatalf("Init with disabled config: %v", err)
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]string
	}{
		{"", nil},
		{"Authorization=Bearer abc", map[string]string{"Authorization": "Bearer abc"}},
		{"a=1,b=2", map[string]string{"a": "1", "b": "2"}},
		{"noequals", map[string]string{}},
	}
	for _, tt := range tests {
		got := parseHeaders(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("parseHeaders(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for k, v := range tt.want {
			if got[k] != v {
				t.Errorf("parseHeaders(%q)[%q] = %q, want %q", tt.in, k, got[k], v)
			}
		}
	}
}
