// Package sandbox runs student Python snippets in a child interpreter with a hard time limit.
//
// It is not a security boundary: code runs with the server's privileges. Deploy behind
// a container or a dedicated user when exposed to untrusted callers.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/aretw0/logicloom/internal/logging"
)

const (
	// DefaultTimeout is the wall-clock limit of one execution.
	DefaultTimeout = 5 * time.Second
	// DefaultPython is the interpreter looked up on PATH.
	DefaultPython = "python3"

	// TimeoutMessage is reported when a run exceeds its limit.
	TimeoutMessage = "错误：代码运行超时（限时 5 秒）。"
	// execFailurePrefix precedes errors that prevented the run altogether.
	execFailurePrefix = "执行出错："
)

// Result is the outcome of one execution. Failed is set when the interpreter
// exited non-zero, timed out or could not start; Error then carries stderr or a message.
type Result struct {
	Output string
	Error  string
	Failed bool
}

// SyntaxReport is the outcome of a syntax check.
type SyntaxReport struct {
	Valid  bool
	Errors []string
}

// Runner executes Python code.
type Runner struct {
	python    string
	timeout   time.Duration
	waitDelay time.Duration
	tempDir   string
	logger    *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithPython sets the interpreter command.
func WithPython(path string) Option {
	return func(r *Runner) {
		if path != "" {
			r.python = path
		}
	}
}

// WithTimeout sets the execution limit.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithTempDir sets where snippet files are written.
func WithTempDir(dir string) Option {
	return func(r *Runner) {
		r.tempDir = dir
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		python:    DefaultPython,
		timeout:   DefaultTimeout,
		waitDelay: time.Second,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Python returns the configured interpreter.
func (r *Runner) Python() string {
	return r.python
}

// Run writes code to a temporary .py file and executes it. Inputs are joined with
// newlines and fed to stdin, with a trailing newline; no inputs means empty stdin.
// The returned error is non-nil only when ctx itself was cancelled.
func (r *Runner) Run(ctx context.Context, code string, inputs []string) (Result, error) {
	f, err := os.CreateTemp(r.tempDir, "snippet-*.py")
	if err != nil {
		return failure(err), nil
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(code); err != nil {
		_ = f.Close()
		return failure(err), nil
	}
	if err := f.Close(); err != nil {
		return failure(err), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.python, path)
	cmd.WaitDelay = r.waitDelay
	cmd.Env = append(os.Environ(), "PYTHONIOENCODING=utf-8")
	if len(inputs) > 0 {
		cmd.Stdin = strings.NewReader(strings.Join(inputs, "\n") + "\n")
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("snippet executed", "duration", time.Since(start), "err", err)

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return Result{Error: TimeoutMessage, Failed: true}, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return Result{Output: stdout.String()}, nil
	case errors.As(err, &exitErr):
		return Result{Output: stdout.String(), Error: stderr.String(), Failed: true}, nil
	default:
		return failure(err), nil
	}
}

func failure(err error) Result {
	return Result{Error: execFailurePrefix + err.Error(), Failed: true}
}

const syntaxScript = `import ast, json, sys
src = sys.stdin.buffer.read().decode("utf-8")
try:
    ast.parse(src)
except SyntaxError as e:
    print(json.dumps({"lineno": e.lineno, "msg": e.msg}))
except Exception as e:
    print(json.dumps({"error": str(e)}))
`

type syntaxResult struct {
	Lineno *int   `json:"lineno"`
	Msg    string `json:"msg"`
	Error  string `json:"error"`
}

// CheckSyntax parses code with the interpreter's ast module without running it.
// Syntax errors are reported as "第 N 行语法错误: msg".
func (r *Runner) CheckSyntax(ctx context.Context, code string) (SyntaxReport, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, r.python, "-c", syntaxScript)
	cmd.WaitDelay = r.waitDelay
	cmd.Stdin = strings.NewReader(code)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return SyntaxReport{}, ctx.Err()
		}
		return SyntaxReport{}, fmt.Errorf("syntax check: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return SyntaxReport{Valid: true, Errors: []string{}}, nil
	}

	var res syntaxResult
	if err := json.Unmarshal(out, &res); err != nil {
		return SyntaxReport{}, fmt.Errorf("syntax check: decode result: %w", err)
	}
	if res.Error != "" {
		return SyntaxReport{Errors: []string{res.Error}}, nil
	}
	line := "None"
	if res.Lineno != nil {
		line = fmt.Sprint(*res.Lineno)
	}
	return SyntaxReport{Errors: []string{fmt.Sprintf("第 %s 行语法错误: %s", line, res.Msg)}}, nil
}
