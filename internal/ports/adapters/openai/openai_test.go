package openai

import (
	"strings"
	"testing"
	"time"

	"github.com/Siddharth-vip/teasergen/internal/domain/highlights"
	"github.com/Siddharth-vip/teasergen/internal/types"
)

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantSub string
		wantErr bool
	}{
		{"raw", `{"highlights":[{"idx":0,"start_sec":0,"end_sec":1,"title":"t","summary":"s","tags":[],"reason":"r"}]}`, `"highlights"`, false},
		{"fenced", "```json\n{\"highlights\":[]}\n```", `"highlights"`, false},
		{"preface", "sure! {\"highlights\":[]} thanks", `"highlights"`, false},
		{"empty", "   ", "", true},
		{"nojson", "hello", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractJSONObject(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantSub != "" && !strings.Contains(got, tt.wantSub) {
				t.Fatalf("expected %q to contain %q", got, tt.wantSub)
			}
		})
	}
}

func TestRedactSecrets(t *testing.T) {
	apiKey := "sk-super-secret"
	in := `status 401; Authorization: Bearer sk-super-secret; api_key=sk-super-secret`
	got := redactSecrets(in, apiKey)

	if strings.Contains(got, apiKey) {
		t.Fatalf("expected API key to be redacted, got: %q", got)
	}
	if !strings.Contains(got, "Authorization: [REDACTED]") {
		t.Fatalf("expected authorization header to be redacted, got: %q", got)
	}
	if !strings.Contains(got, "api_key=[REDACTED]") {
		t.Fatalf("expected api_key field to be redacted, got: %q", got)
	}
}

func TestParseHighlights_DropsInvalidEntries(t *testing.T) {
	top := []types.Candidate{
		{Start: 0, End: 30 * time.Second, Text: "A", InfoScore: 5},
		{Start: 60 * time.Second, End: 90 * time.Second, Text: "B", InfoScore: 4},
	}
	content := `{"highlights":[
		{"idx":0,"start_sec":0,"end_sec":30,"title":"first","summary":"s1"},
		{"idx":1,"start_sec":-5,"end_sec":-1,"title":"bad","summary":"falls back to candidate"},
		{"idx":99,"start_sec":0,"end_sec":0,"title":"unusable","summary":""}
	]}`

	out := parseHighlights(content, top, 5, 10*time.Second, 60*time.Second, highlights.Timing{})
	if len(out) != 2 {
		t.Fatalf("expected 2 highlights, got %d: %+v", len(out), out)
	}
	if out[0].Title != "first" {
		t.Fatalf("title = %q", out[0].Title)
	}
	if out[1].Start != 60*time.Second {
		t.Fatalf("expected idx fallback to candidate start, got %v", out[1].Start)
	}
}

func TestParseHighlights_GarbageContent(t *testing.T) {
	if out := parseHighlights("not json at all", nil, 3, time.Second, time.Minute, highlights.Timing{}); out != nil {
		t.Fatalf("expected nil, got %+v", out)
	}
}

func TestFallbackCaption_PerTone(t *testing.T) {
	seen := map[string]bool{}
	for _, tone := range types.Tones() {
		c := FallbackCaption(tone)
		if c == "" {
			t.Fatalf("empty caption for tone %s", tone)
		}
		if seen[c] {
			t.Fatalf("duplicate caption for tone %s", tone)
		}
		seen[c] = true
	}
}
