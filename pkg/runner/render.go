package runner

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// ContentRenderer transforms reply markdown before it is written.
// This allows TUI rendering (markdown to ANSI) without coupling the loop to glamour.
type ContentRenderer func(string) (string, error)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewMarkdownRenderer returns a glamour renderer that wraps at the terminal width when known.
func NewMarkdownRenderer(w io.Writer) (ContentRenderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithAutoStyle()}
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			opts = append(opts, glamour.WithWordWrap(width))
		}
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r.Render, nil
}

var bannerLines = []struct {
	text  string
	color string
}{
	{"  _                _      _", "#818cf8"},
	{" | |    ___   __ _(_) ___| |    ___   ___  _ __ ___", "#a78bfa"},
	{" | |   / _ \\ / _` | |/ __| |   / _ \\ / _ \\| '_ ` _ \\", "#c084fc"},
	{" | |__| (_) | (_| | | (__| |__| (_) | (_) | | | | | |", "#e879f9"},
	{" |_____\\___/ \\__, |_|\\___|_____\\___/ \\___/|_| |_| |_|", "#f472b6"},
	{"             |___/", "#fb7185"},
}

// PrintBanner writes the LogicLoom banner, in color when w supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// StageLabel names the stage of res together with the sub-stage that stage owns.
func StageLabel(stage domain.Stage, res domain.TurnResult) string {
	var sub string
	switch stage {
	case domain.StageScenario:
		sub = string(res.ScenarioSubStage)
	case domain.StageLogic, domain.StageCoding:
		sub = string(res.CodingSubStage)
		if res.CodingPOEState != "" && res.CodingPOEState != domain.POENone {
			sub += "/" + string(res.CodingPOEState)
		}
	case domain.StageAssessment:
		sub = string(res.ReflectionSubStage)
	case domain.StageTransfer:
		sub = fmt.Sprintf("%s #%d", res.TransferSubStage, res.TransferQuizIndex)
	}
	if strings.TrimSpace(sub) == "" {
		return string(stage)
	}
	return string(stage) + " · " + sub
}
