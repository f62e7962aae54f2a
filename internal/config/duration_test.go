package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want time.Duration
		err  string
	}{
		{name: "empty means unset", raw: "", want: 0},
		{name: "whitespace means unset", raw: "  ", want: 0},
		{name: "seconds", raw: "90s", want: 90 * time.Second},
		{name: "composite", raw: "1h30m", want: 90 * time.Minute},
		{name: "garbage", raw: "soon", err: "github.timeout"},
		{name: "negative", raw: "-5s", err: "negative"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := ParseDuration("github.timeout", c.raw)
			if c.err != "" {
				if err == nil || !strings.Contains(err.Error(), c.err) {
					t.Fatalf("expected error containing %q, got %v", c.err, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q): %v", c.raw, err)
			}
			if got != c.want {
				t.Fatalf("ParseDuration(%q) = %v, want %v", c.raw, got, c.want)
			}
		})
	}
}
