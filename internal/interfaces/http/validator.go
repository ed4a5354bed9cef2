package http

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Input validation constants
const (
	MaxInstanceNameLength = 64
	MaxMessageLength      = 4096
	MaxSearchTermLength   = 100
	MaxProductLimit       = 200
)

var (
	instanceNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	uuidPattern         = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

// ValidInstanceName checks that a gateway instance name is safe to put in a URL path.
func ValidInstanceName(s string) bool {
	return s != "" && len(s) <= MaxInstanceNameLength && instanceNamePattern.MatchString(s)
}

func ValidUUID(s string) bool {
	return uuidPattern.MatchString(s)
}

// SanitizeString removes null bytes and invalid UTF-8
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")

	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for _, r := range s {
			if r != utf8.RuneError {
				v = append(v, r)
			}
		}
		s = string(v)
	}
	return s
}

// TruncateString truncates to maxLen bytes without splitting a rune.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	for maxLen > 0 && !utf8.RuneStart(s[maxLen]) {
		maxLen--
	}
	return s[:maxLen]
}

// ParseLimit reads a positive limit, capped at max. Anything unparsable is 0.
func ParseLimit(s string, max int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
