// Package envelope decodes the JSON envelope a model is asked to reply with.
//
// Model output is not guaranteed to be well formed, so decoding never fails: it walks
// strict JSON, a ```json fenced block and the outermost {...} span, and when none of
// them yields an object it salvages the "response" string or keeps the raw text.
package envelope

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/aretw0/logicloom/pkg/extract"
	"github.com/mitchellh/mapstructure"
)

// Envelope is either Structured or Salvaged.
type Envelope interface {
	envelope()
}

// Structured is a reply that decoded to a non-empty JSON object.
type Structured struct {
	Fields map[string]any
	Raw    string
}

// Salvaged is a reply with no usable structure.
// Matched reports whether Text came from a "response" field rather than the raw reply.
type Salvaged struct {
	Text    string
	Raw     string
	Matched bool
}

func (Structured) envelope() {}
func (Salvaged) envelope()   {}

var (
	fencedJSON   = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	outermost    = regexp.MustCompile(`(?s)\{.*\}`)
	responseOpen = extract.KeyPattern(extract.DefaultField)
)

// Decode applies the fallback chain to raw model output.
func Decode(raw string) Envelope {
	text := StripThinkBlocks(raw)

	if fields, ok := object(text); ok {
		return Structured{Fields: fields, Raw: raw}
	}
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		if fields, ok := object(m[1]); ok {
			return Structured{Fields: fields, Raw: raw}
		}
	}
	if span := outermost.FindString(text); span != "" {
		if fields, ok := object(span); ok {
			return Structured{Fields: fields, Raw: raw}
		}
	}
	return Salvage(raw)
}

// Salvage recovers the "response" string value from malformed output.
// The value may be unterminated; it then runs to the end of the text.
// With no "response" key in sight, the raw text is returned verbatim.
func Salvage(raw string) Salvaged {
	loc := responseOpen.FindStringIndex(raw)
	if loc == nil {
		return Salvaged{Text: raw, Raw: raw}
	}
	text, _, _ := extract.ScanString(raw[loc[1]:])
	return Salvaged{Text: text, Raw: raw, Matched: true}
}

// object decodes s as a JSON object. Empty objects count as no structure.
func object(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, false
	}
	return fields, len(fields) > 0
}

// Has reports whether the envelope carries key.
func (s Structured) Has(key string) bool {
	_, ok := s.Fields[key]
	return ok
}

// Text returns the string value of key, or def when absent or not a string.
func (s Structured) Text(key, def string) string {
	if v, ok := s.Fields[key].(string); ok {
		return v
	}
	return def
}

// Decode copies the envelope fields into out, a pointer to a struct with mapstructure tags.
// Typing is weak: models routinely send "3" for 3 or 1 for true.
func (s Structured) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return dec.Decode(s.Fields)
}
