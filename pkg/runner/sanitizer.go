package runner

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize is the byte limit for one learner message.
const DefaultMaxInputSize = 4096

// EnvMaxInputSize overrides DefaultMaxInputSize for SanitizeInput.
const EnvMaxInputSize = "LOGICLOOM_MAX_INPUT_SIZE"

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// ansiSequence matches CSI escapes such as colour codes and cursor moves.
var ansiSequence = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)

// SanitizeInput applies SanitizeInputLimit with the limit taken from
// LOGICLOOM_MAX_INPUT_SIZE, falling back to DefaultMaxInputSize.
func SanitizeInput(input string) (string, error) {
	limit := DefaultMaxInputSize
	if v, err := strconv.Atoi(os.Getenv(EnvMaxInputSize)); err == nil && v > 0 {
		limit = v
	}
	return SanitizeInputLimit(input, limit)
}

// SanitizeInputLimit rejects input longer than limit bytes or not valid UTF-8,
// then removes terminal escape sequences and control characters.
// Newline, tab and carriage return survive so pasted code keeps its layout.
// Oversized input is an error, never truncated.
func SanitizeInputLimit(input string, limit int) (string, error) {
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	if strings.IndexFunc(input, unsafeControl) < 0 {
		return input, nil
	}

	input = ansiSequence.ReplaceAllString(input, "")
	return strings.Map(func(r rune) rune {
		if unsafeControl(r) {
			return -1
		}
		return r
	}, input), nil
}

func unsafeControl(r rune) bool {
	switch r {
	case '\n', '\t', '\r':
		return false
	}
	return unicode.IsControl(r)
}
