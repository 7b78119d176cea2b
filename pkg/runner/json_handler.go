package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/aretw0/logicloom/pkg/domain"
)

// JSONHandler implements the IOHandler interface for structured JSON-Lines communication.
// Each output line is one event: {"type":"token"|"final"|"system", ...}. The final
// event carries the turn result fields at the top level, as the SSE transport does.
type JSONHandler struct {
	Reader  *bufio.Reader
	Writer  io.Writer
	Encoder *json.Encoder
}

type jsonEvent struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type jsonFinal struct {
	Type string `json:"type"`
	domain.TurnResult
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		Reader:  bufio.NewReader(r),
		Writer:  w,
		Encoder: json.NewEncoder(w),
	}
}

// Input reads one line. A JSON string literal is unquoted; anything else is taken verbatim.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := h.Reader.ReadString('\n')
	if err != nil && (err != io.EOF || text == "") {
		return "", err
	}
	text = strings.TrimSpace(text)

	var val string
	if err := json.Unmarshal([]byte(text), &val); err == nil {
		text = val
	}
	return SanitizeInput(text)
}

func (h *JSONHandler) Token(ctx context.Context, fragment string) error {
	return h.Encoder.Encode(jsonEvent{Type: string(domain.EventToken), Content: fragment})
}

func (h *JSONHandler) Reply(ctx context.Context, res domain.TurnResult) error {
	return h.Encoder.Encode(jsonFinal{Type: string(domain.EventFinal), TurnResult: res})
}

func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.Encoder.Encode(jsonEvent{Type: "system", Content: msg})
}
