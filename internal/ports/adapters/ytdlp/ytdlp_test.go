package ytdlp

import (
	"errors"
	"testing"
	"time"
)

func TestPermanentFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"age restricted", errors.New("ERROR: Sign in to confirm your age. This video may be age restricted"), true},
		{"private", errors.New("ERROR: Private video"), true},
		{"unavailable", errors.New("ERROR: Video unavailable"), true},
		{"sign in", errors.New("ERROR: Sign in to confirm you're not a bot"), true},
		{"network", errors.New("read tcp: connection reset by peer"), false},
		{"timeout", errors.New("context deadline exceeded"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := permanentFailure(tt.err)
			if got != tt.want {
				t.Fatalf("permanentFailure(%v) = %v, want %v", tt.err, got, tt.want)
			}
			if got && reason == "" {
				t.Fatalf("expected a reason for permanent failure")
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	a := New(0, nil)
	if a.attempts != 3 {
		t.Fatalf("attempts = %d, want 3", a.attempts)
	}
	if a.baseDelay != 5*time.Second {
		t.Fatalf("baseDelay = %v, want 5s", a.baseDelay)
	}

	if got := New(7, nil).attempts; got != 7 {
		t.Fatalf("attempts = %d, want 7", got)
	}
}
