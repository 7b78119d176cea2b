// Package mcp exposes the tutoring engine as Model Context Protocol tools and resources.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/logicloom"
	"github.com/aretw0/logicloom/internal/agents"
	"github.com/aretw0/logicloom/internal/logging"
	"github.com/aretw0/logicloom/internal/presentation/graph"
	"github.com/aretw0/logicloom/pkg/adapters/sandbox"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/aretw0/logicloom/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// QuizBankURI lists the transfer quiz bank without answers.
	QuizBankURI = "logicloom://quiz_bank"
	// DiagramURI serves the full-course concept diagram as mermaid source.
	DiagramURI = "logicloom://concept_diagram"
	// StageMapURI serves the stage flow as a mermaid flowchart.
	StageMapURI = "logicloom://stage_map"
)

// Engine is the tutoring core as seen by the MCP server.
type Engine interface {
	Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error)
}

// Sandbox runs and checks student code.
type Sandbox interface {
	Run(ctx context.Context, code string, inputs []string) (sandbox.Result, error)
	CheckSyntax(ctx context.Context, code string) (sandbox.SyntaxReport, error)
}

// TurnArgs are the arguments of the tutor_turn tool. Optional sub-state fields
// are only applied when present.
type TurnArgs struct {
	Stage              string  `json:"stage"`
	UserInput          string  `json:"user_input"`
	ConversationID     string  `json:"conversation_id,omitempty"`
	UserID             string  `json:"user_id,omitempty"`
	StudentID          string  `json:"student_id,omitempty"`
	Group              string  `json:"group,omitempty"`
	Context            string  `json:"context,omitempty"`
	CurrentTask        string  `json:"current_task,omitempty"`
	ScenarioSubStage   *string `json:"agent_a_sub_stage,omitempty"`
	ScenarioTurnCount  *int    `json:"agent_a_turn_count,omitempty"`
	CodingSubStage     *string `json:"agent_c_sub_stage,omitempty"`
	CodingPOEState     *string `json:"agent_c_poe_state,omitempty"`
	CodingCurrentCode  *string `json:"agent_c_current_code,omitempty"`
	ReflectionSubStage *string `json:"agent_d_reflection_sub_stage,omitempty"`
	TransferSubStage   *string `json:"agent_e_sub_stage,omitempty"`
	TransferQuizIndex  *int    `json:"agent_e_quiz_index,omitempty"`
}

// Request converts the tool arguments into an engine request.
func (a TurnArgs) Request() domain.TurnRequest {
	req := domain.TurnRequest{
		ConversationID:    a.ConversationID,
		UserID:            a.UserID,
		StudentID:         a.StudentID,
		Group:             a.Group,
		Stage:             domain.ParseStage(a.Stage),
		UserInput:         a.UserInput,
		Context:           a.Context,
		CurrentTask:       a.CurrentTask,
		ScenarioTurnCount: a.ScenarioTurnCount,
		CodingCurrentCode: a.CodingCurrentCode,
		TransferQuizIndex: a.TransferQuizIndex,
	}
	req.ScenarioSubStage = convert[domain.ScenarioSubStage](a.ScenarioSubStage)
	req.CodingSubStage = convert[domain.CodingSubStage](a.CodingSubStage)
	req.CodingPOEState = convert[domain.POEState](a.CodingPOEState)
	req.ReflectionSubStage = convert[domain.ReflectionSubStage](a.ReflectionSubStage)
	req.TransferSubStage = convert[domain.TransferSubStage](a.TransferSubStage)
	return req
}

func convert[T ~string](s *string) *T {
	if s == nil {
		return nil
	}
	v := T(*s)
	return &v
}

// CodeArgs are the arguments of the run_code and check_syntax tools.
type CodeArgs struct {
	Code   string   `json:"code"`
	Inputs []string `json:"inputs,omitempty"`
}

// CodeResult is the structured output of run_code.
type CodeResult struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
	Failed bool   `json:"failed"`
}

// SyntaxResult is the structured output of check_syntax.
type SyntaxResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	prompts   ports.PromptSource
	sandbox   Sandbox
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithSandbox registers the run_code and check_syntax tools.
func WithSandbox(sb Sandbox) Option {
	return func(s *Server) {
		s.sandbox = sb
	}
}

// WithPromptSource enables the quiz bank resource.
func WithPromptSource(p ports.PromptSource) Option {
	return func(s *Server) {
		s.prompts = p
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("logicloom-mcp", logicloom.Version, server.WithRecovery()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sse.SSEHandler())
	mux.Handle("/message", sse.MessageHandler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop mcp server gracefully: %w", err)
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerTools() {
	turnTool := mcp.NewTool("tutor_turn",
		mcp.WithDescription("Run one tutoring turn. Send back the agent_* fields of the result on the next call, or pass conversation_id to let the server keep them."),
		mcp.WithString("stage", mcp.Required(), mcp.Description("Current stage: scenario, knowledge, logic, coding, assessment or transfer")),
		mcp.WithString("user_input", mcp.Required(), mcp.Description("The learner's message")),
		mcp.WithString("conversation_id", mcp.Description("Conversation to load and save server-side (optional)")),
		mcp.WithString("user_id", mcp.Description("UUID used for turn logging (optional)")),
		mcp.WithString("student_id", mcp.Description("Student identifier for turn logging (optional)")),
		mcp.WithString("group", mcp.Description("Study group for turn logging: experimental (default) or control")),
		mcp.WithString("context", mcp.Description("Free-form context (optional)")),
		mcp.WithString("current_task", mcp.Description("The task being worked on (optional)")),
		mcp.WithString("agent_a_sub_stage", mcp.Description("Scenario sub-stage")),
		mcp.WithNumber("agent_a_turn_count", mcp.Description("Scenario turn count")),
		mcp.WithString("agent_c_sub_stage", mcp.Description("Coding sub-stage")),
		mcp.WithString("agent_c_poe_state", mcp.Description("Predict-observe-explain state")),
		mcp.WithString("agent_c_current_code", mcp.Description("The learner's current code")),
		mcp.WithString("agent_d_reflection_sub_stage", mcp.Description("Assessment reflection sub-stage")),
		mcp.WithString("agent_e_sub_stage", mcp.Description("Transfer sub-stage")),
		mcp.WithNumber("agent_e_quiz_index", mcp.Description("Transfer quiz index")),
		mcp.WithOutputSchema[domain.TurnResult](),
	)
	s.mcpServer.AddTool(turnTool, mcp.NewStructuredToolHandler(s.handleTurn))

	if s.sandbox == nil {
		return
	}

	runTool := mcp.NewTool("run_code",
		mcp.WithDescription("Run a Python snippet with optional stdin lines. Execution is limited to a few seconds."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Python source")),
		mcp.WithArray("inputs", mcp.Description("Lines fed to stdin"), mcp.WithStringItems()),
		mcp.WithOutputSchema[CodeResult](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRun))

	syntaxTool := mcp.NewTool("check_syntax",
		mcp.WithDescription("Check a Python snippet for syntax errors without running it."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Python source")),
		mcp.WithOutputSchema[SyntaxResult](),
	)
	s.mcpServer.AddTool(syntaxTool, mcp.NewStructuredToolHandler(s.handleSyntax))
}

func (s *Server) handleTurn(ctx context.Context, _ mcp.CallToolRequest, args TurnArgs) (domain.TurnResult, error) {
	clean, err := runner.SanitizeInput(args.UserInput)
	if err != nil {
		s.logger.Warn("mcp turn: input rejected", "err", err, "size", len(args.UserInput))
		return domain.TurnResult{}, fmt.Errorf("input rejected: %w", err)
	}
	args.UserInput = clean

	res, err := s.engine.Turn(ctx, args.Request())
	if err != nil {
		s.logger.Error("mcp turn failed", "conversation_id", args.ConversationID, "stage", args.Stage, "err", err)
		return domain.TurnResult{}, fmt.Errorf("turn failed: %w", err)
	}
	return res, nil
}

func (s *Server) handleRun(ctx context.Context, _ mcp.CallToolRequest, args CodeArgs) (CodeResult, error) {
	res, err := s.sandbox.Run(ctx, args.Code, args.Inputs)
	if err != nil {
		return CodeResult{}, err
	}
	return CodeResult{Output: res.Output, Error: res.Error, Failed: res.Failed}, nil
}

func (s *Server) handleSyntax(ctx context.Context, _ mcp.CallToolRequest, args CodeArgs) (SyntaxResult, error) {
	rep, err := s.sandbox.CheckSyntax(ctx, args.Code)
	if err != nil {
		return SyntaxResult{}, err
	}
	errs := rep.Errors
	if errs == nil {
		errs = []string{}
	}
	return SyntaxResult{IsValid: rep.Valid, Errors: errs}, nil
}

// quizView is a quiz entry as published to clients: no answer, no explanation.
type quizView struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(DiagramURI, "Course Concept Diagram",
		mcp.WithMIMEType("text/plain"),
	), s.readDiagram)

	s.mcpServer.AddResource(mcp.NewResource(StageMapURI, "Lesson Stage Map",
		mcp.WithMIMEType("text/plain"),
	), s.readStageMap)

	if s.prompts == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource(QuizBankURI, "Transfer Quiz Bank",
		mcp.WithMIMEType("application/json"),
	), s.readQuizBank)
}

func (s *Server) readDiagram(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: DiagramURI, MIMEType: "text/plain", Text: agents.FullCourseDiagram},
	}, nil
}

func (s *Server) readStageMap(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: StageMapURI, MIMEType: "text/plain", Text: graph.StageMap(nil)},
	}, nil
}

func (s *Server) readQuizBank(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	cfg, err := s.prompts.Prompt(string(domain.HandlerTransfer))
	if err != nil {
		return nil, fmt.Errorf("failed to load quiz bank: %w", err)
	}
	views := make([]quizView, 0, len(cfg.Quizzes))
	for _, q := range cfg.Quizzes {
		views = append(views, quizView{ID: q.ID, Type: q.Type, Question: q.Question, Options: q.Options})
	}
	data, err := json.Marshal(views)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: QuizBankURI, MIMEType: "application/json", Text: string(data)},
	}, nil
}
