package types

import (
	"testing"
	"time"
)

func TestParseTone(t *testing.T) {
	tests := []struct {
		in      string
		want    Tone
		wantErr bool
	}{
		{"professional", ToneProfessional, false},
		{"  Exciting ", ToneExciting, false},
		{"EDUCATIONAL", ToneEducational, false},
		{"inspirational", ToneInspirational, false},
		{"", ToneProfessional, false},
		{"sarcastic", "", true},
	}
	for _, tt := range tests {
		got, err := ParseTone(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseTone(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseTone(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseTone(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestTeaserPlanDuration(t *testing.T) {
	plan := TeaserPlan{Segments: []PlanSegment{
		{Start: 10 * time.Second, End: 15 * time.Second},
		{Start: 40 * time.Second, End: 48 * time.Second},
	}}
	if got := plan.Duration(); got != 13*time.Second {
		t.Fatalf("duration = %v, want 13s", got)
	}
}
