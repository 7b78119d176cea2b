// Package extract isolates the text of one JSON string field from a live, arbitrarily
// chunked model output stream.
package extract

import (
	"regexp"
	"strings"
)

// DefaultField is the envelope field holding user-visible prose.
const DefaultField = "response"

// State is the position of an Extractor in its field scan.
type State int

const (
	// SeekingKey accumulates input until `"<field>"\s*:\s*"` is seen.
	SeekingKey State = iota
	// InValue emits decoded string content until the closing quote.
	InValue
	// Done is terminal: trailing JSON (other fields) is never emitted.
	Done
)

func (s State) String() string {
	switch s {
	case SeekingKey:
		return "seeking_key"
	case InValue:
		return "in_value"
	case Done:
		return "done"
	}
	return "unknown"
}

// jsonSpace is the set matched by \s in KeyPattern.
const jsonSpace = " \t\n\f\r"

// Extractor is a three-state incremental parser for one JSON string field.
// It is not safe for concurrent use; fragments must be fed in arrival order.
type Extractor struct {
	field   string
	pattern *regexp.Regexp
	state   State
	buf     strings.Builder // SeekingKey accumulation
	pending string          // InValue escape sequence cut at a fragment boundary
}

// KeyPattern returns the regular expression matching the opening of field's string value.
func KeyPattern(field string) *regexp.Regexp {
	return regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"`)
}

// New creates an Extractor for field. An empty field selects DefaultField.
func New(field string) *Extractor {
	if field == "" {
		field = DefaultField
	}
	return &Extractor{field: field, pattern: KeyPattern(field)}
}

// State reports the current scan state.
func (e *Extractor) State() State {
	return e.state
}

// Reset returns the extractor to SeekingKey with an empty buffer.
// Each new completion call starts from a reset extractor.
func (e *Extractor) Reset() {
	e.state = SeekingKey
	e.buf.Reset()
	e.pending = ""
}

// Feed consumes the next fragment and returns the newly available field text, if any.
func (e *Extractor) Feed(fragment string) string {
	switch e.state {
	case SeekingKey:
		e.buf.WriteString(fragment)
		acc := e.buf.String()
		loc := e.pattern.FindStringIndex(acc)
		if loc == nil {
			e.buf.Reset()
			e.buf.WriteString(acc[e.keyStart(acc):])
			return ""
		}
		e.state = InValue
		e.buf.Reset()
		return e.consume(acc[loc[1]:])
	case InValue:
		return e.consume(fragment)
	default:
		return ""
	}
}

// keyStart returns the earliest offset where a key match may still begin once more
// input arrives, or len(acc) when none can. An unfinished match holds at most two
// quotes, so only the last two quotes are candidates.
func (e *Extractor) keyStart(acc string) int {
	last := strings.LastIndexByte(acc, '"')
	if last < 0 {
		return len(acc)
	}
	if prev := strings.LastIndexByte(acc[:last], '"'); prev >= 0 && e.partialKey(acc[prev+1:]) {
		return prev
	}
	if e.partialKey(acc[last+1:]) {
		return last
	}
	return len(acc)
}

// partialKey reports whether s, the text after an opening quote, is a prefix of
// `field"`, whitespace, a colon and whitespace.
func (e *Extractor) partialKey(s string) bool {
	if len(s) <= len(e.field) {
		return strings.HasPrefix(e.field, s)
	}
	if !strings.HasPrefix(s, e.field+`"`) {
		return false
	}
	s = strings.TrimLeft(s[len(e.field)+1:], jsonSpace)
	if s == "" {
		return true
	}
	return s[0] == ':' && strings.TrimLeft(s[1:], jsonSpace) == ""
}

func (e *Extractor) consume(chunk string) string {
	s := e.pending + chunk
	e.pending = ""

	text, n, closed := ScanString(s)
	if closed {
		e.state = Done
		return text
	}
	e.pending = s[n:]
	return text
}
