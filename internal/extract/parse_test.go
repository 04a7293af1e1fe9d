package extract

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]any
	}{
		{
			name:    "fenced block",
			content: "Here you go:\n```json\n{\"surname\": \"Mustermann\"}\n```",
			want:    map[string]any{"surname": "Mustermann"},
		},
		{
			name:    "fenced blocks merged in order",
			content: "```json\n{\"a\": 1, \"b\": \"x\"}\n```\ntext\n```json\n{\"b\": \"y\"}\n```",
			want:    map[string]any{"a": float64(1), "b": "y"},
		},
		{
			name:    "brace substring",
			content: `The result is {"category": "Livelihood", "confidence": 0.9} as requested.`,
			want:    map[string]any{"category": "Livelihood", "confidence": 0.9},
		},
		{
			name:    "nested object in prose",
			content: `Result: {"outer": {"inner": "}"}} done`,
			want:    map[string]any{"outer": map[string]any{"inner": "}"}},
		},
		{
			name:    "broken fence falls back to braces",
			content: "```json\n{broken}\n```\n{\"ok\": true}",
			want:    map[string]any{"ok": true},
		},
		{
			name:    "whole body",
			content: "  {\"valid_until\": null}  ",
			want:    map[string]any{"valid_until": nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.content)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(tt.want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("got %s, want %s", gotJSON, wantJSON)
			}
		})
	}
}

func TestParseResponse_Failure(t *testing.T) {
	for _, content := range []string{"I cannot read this document.", "[1, 2, 3]", "null", ""} {
		_, err := ParseResponse(content)
		var pf *ParseFailure
		if !errors.As(err, &pf) {
			t.Fatalf("%q: expected *ParseFailure, got %v", content, err)
		}
		if pf.RawContent != content {
			t.Errorf("expected raw content %q, got %q", content, pf.RawContent)
		}
	}
}

func TestParseFailure_JSON(t *testing.T) {
	pf := &ParseFailure{Message: "invalid character", RawContent: "oops"}
	data, err := json.Marshal(pf)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"error":"invalid character","raw_content":"oops"}` {
		t.Errorf("unexpected JSON: %s", data)
	}
	if pf.Fields()["raw_content"] != "oops" {
		t.Error("expected raw content in field map")
	}
}
