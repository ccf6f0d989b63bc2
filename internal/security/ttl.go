package security

import (
	"regexp"
	"strconv"
	"time"
)

const defaultTTL = 900 * time.Second

var (
	ttlPattern    = regexp.MustCompile(`^(\d+)([smhd])$`)
	leadingDigits = regexp.MustCompile(`^\d+`)
)

// ParseTTL : "900", "15m", "30d"; anything else falls back to its leading integer, then to 900s
func ParseTTL(raw string) time.Duration {
	if seconds, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if match := ttlPattern.FindStringSubmatch(raw); match != nil {
		amount, _ := strconv.ParseInt(match[1], 10, 64)
		switch match[2] {
		case "s":
			return time.Duration(amount) * time.Second
		case "m":
			return time.Duration(amount) * time.Minute
		case "h":
			return time.Duration(amount) * time.Hour
		case "d":
			return time.Duration(amount) * 24 * time.Hour
		}
	}

	if prefix := leadingDigits.FindString(raw); prefix != "" {
		if seconds, err := strconv.ParseInt(prefix, 10, 64); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	return defaultTTL
}
