package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/internal/presentation/graph"
	"github.com/aretw0/logicloom/pkg/domain"
)

// DefaultMaxCodeSize bounds code accepted by /run.
const DefaultMaxCodeSize = 64 * 1024

const helpText = `Commands:
  /stage <name>   switch stage (scenario, knowledge, logic, coding, assessment, transfer)
  /state          show the current stage and sub-stage
  /code           enter code line by line, finish with /end
  /run [a, b]     run the current code with optional stdin lines
  /map            show the lesson map as a Mermaid flowchart
  /help           show this help
  exit, quit      leave`

// ErrNoResult is returned when a stream ends without a final or error event.
var ErrNoResult = errors.New("turn ended without a result")

// Runner drives the tutor from a terminal: read a line, stream a turn, print the reply.
// It carries the returned sub-stage fields into the next request, so the lesson
// state lives in the runner between turns.
type Runner struct {
	engine      Engine
	handler     IOHandler
	logger      *slog.Logger
	code        CodeRunner
	interceptor CodeInterceptor
	headless    bool

	next    domain.TurnRequest
	last    *domain.TurnResult
	visited []domain.Stage
}

// New creates a Runner for engine. Without options it talks to Stdin/Stdout and starts
// at the scenario stage.
func New(engine Engine, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		logger: logging.NewNop(),
		next:   domain.TurnRequest{Stage: domain.StageScenario},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Next returns the request template for the coming turn.
func (r *Runner) Next() domain.TurnRequest {
	return r.next
}

// Run executes the chat loop until input ends, the user exits or ctx is done.
// Ctrl+C during a turn abandons that turn; at the prompt it ends the loop.
func (r *Runner) Run(ctx context.Context) error {
	handler := r.resolveHandler()
	interceptor := r.resolveInterceptor(handler)

	signals := NewSignalManager(ctx)
	defer signals.Stop()

	for {
		line, err := handler.Input(signals.Context())
		if err != nil {
			if errors.Is(err, io.EOF) || signals.Interrupted() {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("input error: %w", err)
		}

		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		if strings.HasPrefix(line, "/") {
			if err := r.command(signals.Context(), handler, interceptor, line); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				if signals.Interrupted() {
					signals.Reset()
					continue
				}
				return err
			}
			continue
		}

		if err := r.turn(signals.Context(), handler, line); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if signals.Interrupted() {
				r.logger.Debug("turn interrupted", "stage", r.next.Stage)
				_ = handler.SystemOutput(ctx, "turn interrupted")
				signals.Reset()
				continue
			}
			r.logger.Warn("turn failed", "stage", r.next.Stage, "err", err)
			if err := handler.SystemOutput(ctx, "error: "+err.Error()); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
	}
}

// turn streams one turn and, when it completes, advances the request template.
func (r *Runner) turn(ctx context.Context, handler IOHandler, input string) error {
	req := r.next
	req.UserInput = input

	var final *domain.TurnResult
	var failure error
	err := r.engine.Stream(ctx, req, func(ev domain.Event) error {
		switch ev.Type {
		case domain.EventToken:
			return handler.Token(ctx, ev.Content)
		case domain.EventFinal:
			final = ev.Result
		case domain.EventError:
			failure = errors.New(ev.Content)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if failure != nil {
		return failure
	}
	if final == nil {
		return ErrNoResult
	}

	r.advance(*final)
	if err := handler.Reply(ctx, *final); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

// advance copies the state a client must echo back into the next request.
func (r *Runner) advance(res domain.TurnResult) {
	r.last = &res
	if n := len(r.visited); n == 0 || r.visited[n-1] != res.Stage {
		r.visited = append(r.visited, res.Stage)
	}
	r.next.Stage = res.Stage
	if res.ConversationID != "" {
		r.next.ConversationID = res.ConversationID
	}
	if res.UserID != "" && r.next.UserID == "" {
		r.next.UserID = res.UserID
	}
	r.next.ScenarioSubStage = ptr(res.ScenarioSubStage)
	r.next.ScenarioTurnCount = ptr(res.ScenarioTurnCount)
	r.next.CodingSubStage = ptr(res.CodingSubStage)
	r.next.CodingPOEState = ptr(res.CodingPOEState)
	r.next.CodingCurrentCode = ptr(res.CodingCurrentCode)
	r.next.ReflectionSubStage = ptr(res.ReflectionSubStage)
	r.next.TransferSubStage = ptr(res.TransferSubStage)
	r.next.TransferQuizIndex = ptr(res.TransferQuizIndex)
}

func ptr[T any](v T) *T {
	return &v
}

func (r *Runner) command(ctx context.Context, handler IOHandler, interceptor CodeInterceptor, line string) error {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/help":
		return handler.SystemOutput(ctx, helpText)

	case "/state":
		res := domain.TurnResult{Stage: r.next.Stage}
		if r.last != nil {
			res = *r.last
			res.Stage = r.next.Stage
		}
		return handler.SystemOutput(ctx, "stage: "+StageLabel(res.Stage, res))

	case "/stage":
		stage := domain.ParseStage(arg)
		if !stage.Known() {
			return handler.SystemOutput(ctx, fmt.Sprintf("unknown stage %q", arg))
		}
		r.next.Stage = stage
		r.logger.Debug("stage switched", "stage", stage)
		return handler.SystemOutput(ctx, "stage: "+string(stage))

	case "/code":
		return r.readCode(ctx, handler)

	case "/map":
		overlay := &graph.Overlay{Visited: r.visited, Current: r.next.Stage}
		if r.last != nil && r.last.Stage == r.next.Stage {
			if _, sub, ok := strings.Cut(StageLabel(r.last.Stage, *r.last), " · "); ok {
				overlay.CurrentLabel = sub
			}
		}
		return handler.SystemOutput(ctx, "```mermaid\n"+graph.StageMap(overlay)+"```")

	case "/run":
		return r.runCode(ctx, handler, interceptor, arg)

	default:
		return handler.SystemOutput(ctx, fmt.Sprintf("unknown command %s, try /help", name))
	}
}

func (r *Runner) readCode(ctx context.Context, handler IOHandler) error {
	if err := handler.SystemOutput(ctx, "enter code, finish with /end"); err != nil {
		return err
	}
	var lines []string
	for {
		line, err := handler.Input(ctx)
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "/end" {
			break
		}
		lines = append(lines, line)
	}
	code := strings.Join(lines, "\n")
	r.next.CodingCurrentCode = &code
	return handler.SystemOutput(ctx, fmt.Sprintf("code updated (%d lines)", len(lines)))
}

func (r *Runner) runCode(ctx context.Context, handler IOHandler, interceptor CodeInterceptor, arg string) error {
	if r.code == nil {
		return handler.SystemOutput(ctx, "code execution is not configured")
	}
	var code string
	if r.next.CodingCurrentCode != nil {
		code = *r.next.CodingCurrentCode
	}
	if strings.TrimSpace(code) == "" {
		return handler.SystemOutput(ctx, "no code yet, use /code first")
	}

	allowed, err := interceptor(ctx, code)
	if err != nil {
		return fmt.Errorf("code interceptor error: %w", err)
	}
	if !allowed {
		return handler.SystemOutput(ctx, "execution denied")
	}

	var inputs []string
	if arg != "" {
		for _, in := range strings.Split(arg, ",") {
			inputs = append(inputs, strings.TrimSpace(in))
		}
	}
	res, err := r.code.Run(ctx, code, inputs)
	if err != nil {
		return err
	}
	if res.Failed {
		return handler.SystemOutput(ctx, res.Error)
	}
	return handler.SystemOutput(ctx, "output:\n"+res.Output)
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.handler != nil {
		return r.handler
	}
	var opts []TextHandlerOption
	if !r.headless && IsTerminal(os.Stdout) {
		PrintBanner(os.Stdout)
		if renderer, err := NewMarkdownRenderer(os.Stdout); err == nil {
			opts = append(opts, WithTextHandlerRenderer(renderer))
		} else {
			r.logger.Warn("markdown rendering disabled", "err", err)
		}
	}
	r.handler = NewTextHandler(os.Stdin, os.Stdout, opts...)
	return r.handler
}

// resolveInterceptor returns the configured or default interceptor.
func (r *Runner) resolveInterceptor(h IOHandler) CodeInterceptor {
	if r.interceptor != nil {
		return r.interceptor
	}
	if r.headless {
		return MaxCodeSize(DefaultMaxCodeSize)
	}
	return MultiInterceptor(MaxCodeSize(DefaultMaxCodeSize), ConfirmationMiddleware(h))
}
