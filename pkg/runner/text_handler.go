package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/muesli/termenv"
)

// TextHandler implements the standard text-based interface.
// Without a Renderer, fragments are written as they arrive; with one, the final
// reply is rendered as a whole and fragments only advance a progress marker.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	out       *termenv.Output
	streamed  bool
	inputChan chan inputResult
	startOnce sync.Once
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the content renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		out:    termenv.NewOutput(w),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

// pump reads lines in the background so Input can return on cancellation.
func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')
		if text != "" {
			h.inputChan <- inputResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				h.inputChan <- inputResult{err: err}
			}
			close(h.inputChan)
			return
		}
	}
}

func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.initPump()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
			fmt.Fprint(h.Writer, "> ")
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case res, ok := <-h.inputChan:
			if !ok {
				return "", io.EOF
			}
			if res.err != nil {
				return "", res.err
			}

			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}
			return clean, nil
		}
	}
}

func (h *TextHandler) Token(ctx context.Context, fragment string) error {
	h.streamed = true
	if h.Renderer != nil {
		return nil
	}
	_, err := fmt.Fprint(h.Writer, fragment)
	return err
}

func (h *TextHandler) Reply(ctx context.Context, res domain.TurnResult) error {
	streamed := h.streamed
	h.streamed = false

	switch {
	case h.Renderer != nil:
		output := res.ActiveResponse
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
		fmt.Fprintln(h.Writer, strings.TrimRight(output, "\n"))
	case streamed:
		fmt.Fprintln(h.Writer)
	default:
		fmt.Fprintln(h.Writer, strings.TrimSpace(res.ActiveResponse))
	}

	fmt.Fprintln(h.Writer, h.out.String("["+StageLabel(res.Stage, res)+"]").Faint())
	if len(res.Suggestions) > 0 {
		fmt.Fprintln(h.Writer, h.out.String("Suggestions:").Bold())
		for i, s := range res.Suggestions {
			fmt.Fprintf(h.Writer, "  %d. %s\n", i+1, s)
		}
	}
	return nil
}

func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	if h.streamed {
		fmt.Fprintln(h.Writer)
		h.streamed = false
	}
	_, err := fmt.Fprintf(h.Writer, "\n%s %s\n", h.out.String("[System]").Faint(), msg)
	return err
}
