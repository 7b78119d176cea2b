package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/logicloom/internal/agents"
	"github.com/aretw0/logicloom/internal/testutils"
	"github.com/aretw0/logicloom/pkg/adapters/sandbox"
	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEngine struct {
	got domain.TurnRequest
	err error
}

func (f *fakeEngine) Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	f.got = req
	if f.err != nil {
		return domain.TurnResult{}, f.err
	}
	return domain.TurnResult{ActiveResponse: "reply", Stage: req.Stage, Suggestions: []string{}}, nil
}

type panickingEngine struct{}

func (panickingEngine) Turn(ctx context.Context, req domain.TurnRequest) (domain.TurnResult, error) {
	panic("boom")
}

type fakeSandbox struct{}

func (fakeSandbox) Run(ctx context.Context, code string, inputs []string) (sandbox.Result, error) {
	return sandbox.Result{Output: code + ":" + strings.Join(inputs, ",")}, nil
}

func (fakeSandbox) CheckSyntax(ctx context.Context, code string) (sandbox.SyntaxReport, error) {
	if code == "bad" {
		return sandbox.SyntaxReport{Errors: []string{"第 1 行语法错误: invalid syntax"}}, nil
	}
	return sandbox.SyntaxReport{Valid: true}, nil
}

func listTools(t *testing.T, s *Server) string {
	t.Helper()
	msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return string(data)
}

func TestServer_ToolsRegistered(t *testing.T) {
	withoutSandbox := listTools(t, NewServer(&fakeEngine{}))
	assert.Contains(t, withoutSandbox, "tutor_turn")
	assert.NotContains(t, withoutSandbox, "run_code")

	withSandbox := listTools(t, NewServer(&fakeEngine{}, WithSandbox(fakeSandbox{})))
	assert.Contains(t, withSandbox, "run_code")
	assert.Contains(t, withSandbox, "check_syntax")
}

func TestServer_ToolPanicBecomesError(t *testing.T) {
	s := NewServer(panickingEngine{})
	call := `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"tutor_turn","arguments":{"stage":"transfer","user_input":"A"}}}`

	var data []byte
	require.NotPanics(t, func() {
		msg := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(call))
		var err error
		data, err = json.Marshal(msg)
		require.NoError(t, err)
	})
	assert.Contains(t, string(data), "boom")
}

func TestServer_HandleTurn(t *testing.T) {
	engine := &fakeEngine{}
	s := NewServer(engine)

	sub := "quiz"
	idx := 2
	res, err := s.handleTurn(context.Background(), mcp.CallToolRequest{}, TurnArgs{
		Stage:             "transfer",
		UserInput:         "A\x07",
		ConversationID:    "c1",
		Group:             "control",
		TransferSubStage:  &sub,
		TransferQuizIndex: &idx,
	})
	require.NoError(t, err)
	assert.Equal(t, "reply", res.ActiveResponse)

	assert.Equal(t, domain.StageTransfer, engine.got.Stage)
	assert.Equal(t, "A", engine.got.UserInput, "control characters are stripped")
	assert.Equal(t, "c1", engine.got.ConversationID)
	assert.Equal(t, "control", engine.got.Group)
	require.NotNil(t, engine.got.TransferSubStage)
	assert.Equal(t, domain.TransferQuiz, *engine.got.TransferSubStage)
	assert.Equal(t, 2, *engine.got.TransferQuizIndex)
	assert.Nil(t, engine.got.CodingSubStage)
}

func TestServer_HandleTurnErrors(t *testing.T) {
	engine := &fakeEngine{err: errors.New("upstream 503")}
	s := NewServer(engine)

	_, err := s.handleTurn(context.Background(), mcp.CallToolRequest{}, TurnArgs{Stage: "scenario", UserInput: "hi"})
	assert.ErrorContains(t, err, "upstream 503")

	_, err = s.handleTurn(context.Background(), mcp.CallToolRequest{}, TurnArgs{Stage: "scenario", UserInput: "\xff"})
	assert.ErrorContains(t, err, "input rejected")
}

func TestServer_SandboxTools(t *testing.T) {
	s := NewServer(&fakeEngine{}, WithSandbox(fakeSandbox{}))

	run, err := s.handleRun(context.Background(), mcp.CallToolRequest{}, CodeArgs{Code: "print", Inputs: []string{"1", "2"}})
	require.NoError(t, err)
	assert.Equal(t, "print:1,2", run.Output)
	assert.False(t, run.Failed)

	ok, err := s.handleSyntax(context.Background(), mcp.CallToolRequest{}, CodeArgs{Code: "x = 1"})
	require.NoError(t, err)
	assert.True(t, ok.IsValid)
	assert.NotNil(t, ok.Errors)
	assert.Empty(t, ok.Errors)

	bad, err := s.handleSyntax(context.Background(), mcp.CallToolRequest{}, CodeArgs{Code: "bad"})
	require.NoError(t, err)
	assert.False(t, bad.IsValid)
	assert.Len(t, bad.Errors, 1)
}

func TestServer_Resources(t *testing.T) {
	s := NewServer(&fakeEngine{}, WithPromptSource(testutils.PromptSet(t)))

	diagram, err := s.readDiagram(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, diagram, 1)
	assert.Equal(t, agents.FullCourseDiagram, diagram[0].(mcp.TextResourceContents).Text)

	stageMap, err := s.readStageMap(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	assert.Contains(t, stageMap[0].(mcp.TextResourceContents).Text, "scenario --> knowledge")

	bank, err := s.readQuizBank(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, bank, 1)
	text := bank[0].(mcp.TextResourceContents).Text
	assert.Contains(t, text, "Q1?")
	assert.NotContains(t, text, "answer", "answers are never published")
}
