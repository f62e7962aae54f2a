package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDuration parses an optional Go duration string from the config.
// Empty or whitespace means unset and yields zero; each caller applies
// its own default for zero. Negative durations are a config error.
func ParseDuration(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a duration: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: negative durations are not allowed", path)
	}
	return d, nil
}
