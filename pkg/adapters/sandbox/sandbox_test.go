package sandbox_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/aretw0/logicloom/pkg/adapters/sandbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRunner(t *testing.T, opts ...sandbox.Option) *sandbox.Runner {
	t.Helper()
	r := sandbox.New(opts...)
	if _, err := exec.LookPath(r.Python()); err != nil {
		t.Skipf("%s not available: %v", r.Python(), err)
	}
	return r
}

func TestRun(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		code       string
		inputs     []string
		wantOutput string
		wantFailed bool
		wantErr    string
	}{
		{
			name:       "Prints",
			code:       "print('hi')",
			wantOutput: "hi\n",
		},
		{
			name:       "Reads Stdin Lines",
			code:       "a = input()\nb = input()\nprint(int(a) + int(b))",
			inputs:     []string{"2", "40"},
			wantOutput: "42\n",
		},
		{
			name:       "Unicode Output",
			code:       "print('温度')",
			wantOutput: "温度\n",
		},
		{
			name:       "Runtime Error Keeps Stdout",
			code:       "print('before')\nraise ValueError('boom')",
			wantOutput: "before\n",
			wantFailed: true,
			wantErr:    "ValueError: boom",
		},
		{
			name:       "Input Without Stdin",
			code:       "input()",
			wantFailed: true,
			wantErr:    "EOFError",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Run(ctx, tt.code, tt.inputs)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOutput, res.Output)
			assert.Equal(t, tt.wantFailed, res.Failed)
			if tt.wantErr != "" {
				assert.Contains(t, res.Error, tt.wantErr)
			} else {
				assert.Empty(t, res.Error)
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	r := newRunner(t, sandbox.WithTimeout(300*time.Millisecond))

	start := time.Now()
	res, err := r.Run(context.Background(), "while True:\n    pass", nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
	assert.True(t, res.Failed)
	assert.Equal(t, "", res.Output)
	assert.Equal(t, sandbox.TimeoutMessage, res.Error)
}

func TestRun_MissingInterpreter(t *testing.T) {
	r := sandbox.New(sandbox.WithPython("definitely-not-a-python-binary"))
	res, err := r.Run(context.Background(), "print(1)", nil)
	require.NoError(t, err)
	assert.True(t, res.Failed)
	assert.Contains(t, res.Error, "执行出错：")
}

func TestRun_CallerCancelled(t *testing.T) {
	r := newRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, "print(1)", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheckSyntax(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()

	ok, err := r.CheckSyntax(ctx, "x = 1\nif x > 0:\n    print(x)\n")
	require.NoError(t, err)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)

	bad, err := r.CheckSyntax(ctx, "x = 1\nif x > 0\n    print(x)\n")
	require.NoError(t, err)
	assert.False(t, bad.Valid)
	require.Len(t, bad.Errors, 1)
	assert.Regexp(t, `^第 2 行语法错误: `, bad.Errors[0])
}
