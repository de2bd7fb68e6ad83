package executor

import (
	"context"
	"strings"
	"testing"
)

// TestClaude_BuildArgs verifies the CLI invocation shape.
func TestClaude_BuildArgs(t *testing.T) {
	c, err := NewClaude("claude", Config{Type: "claude"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClaude failed: %v", err)
	}

	req := Request{TaskID: "task-1", Description: "Build the login page"}
	args := c.buildArgs(req, "session-abc")

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--dangerously-skip-permissions") {
		t.Error("args missing --dangerously-skip-permissions")
	}
	if !strings.Contains(joined, "--session-id session-abc") {
		t.Errorf("args missing session id: %v", args)
	}
	if strings.Contains(joined, "--model") {
		t.Error("args should omit --model when no model configured")
	}

	// Prompt follows -p
	for i, a := range args {
		if a == "-p" {
			if i+1 >= len(args) || !strings.Contains(args[i+1], "Build the login page") {
				t.Errorf("-p not followed by prompt: %v", args)
			}
		}
	}
}

// TestClaude_BuildArgs_ModelOverride verifies the optional model flag.
func TestClaude_BuildArgs_ModelOverride(t *testing.T) {
	c, err := NewClaude("claude", Config{Type: "claude", Model: "sonnet"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClaude failed: %v", err)
	}

	args := c.buildArgs(Request{Description: "x"}, "s")
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--model sonnet") {
		t.Errorf("args missing model override: %v", args)
	}
}

// TestClaude_Run_SuccessCapturesOutput runs the executor against a
// stand-in binary and verifies the success path.
func TestClaude_Run_SuccessCapturesOutput(t *testing.T) {
	c, err := NewClaude("claude", Config{Type: "claude", Command: "echo"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClaude failed: %v", err)
	}

	res, err := c.Run(context.Background(), Request{
		TaskID:      "task-1",
		Description: "Say hello",
		Workspace:   t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !res.Success {
		t.Errorf("Expected success, got failure: %s", res.ErrorText)
	}
	// echo prints its args, which include the rendered prompt
	if !strings.Contains(res.Output, "Say hello") {
		t.Errorf("Output missing prompt text: %q", res.Output)
	}
}

// TestClaude_Run_NonZeroExitIsFailureResult verifies a nonzero exit comes
// back as a Result, not an error.
func TestClaude_Run_NonZeroExitIsFailureResult(t *testing.T) {
	c, err := NewClaude("claude", Config{Type: "claude", Command: "false"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClaude failed: %v", err)
	}

	res, err := c.Run(context.Background(), Request{TaskID: "task-1", Description: "x", Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("Expected failure Result, got error: %v", err)
	}
	if res.Success {
		t.Error("Expected Success=false for nonzero exit")
	}
	if res.ErrorText == "" {
		t.Error("Expected non-empty ErrorText for nonzero exit")
	}
}

// TestClaude_Run_SpawnFailureIsError verifies a missing binary surfaces as
// a transport error.
func TestClaude_Run_SpawnFailureIsError(t *testing.T) {
	c, err := NewClaude("claude", Config{Type: "claude", Command: "/nonexistent/claude-binary"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClaude failed: %v", err)
	}

	res, err := c.Run(context.Background(), Request{TaskID: "task-1", Description: "x", Workspace: t.TempDir()})
	if err == nil {
		t.Fatalf("Expected transport error, got result: %+v", res)
	}
}

// TestClaude_Run_FreshSessionPerDispatch verifies two dispatches never
// share a session ID.
func TestClaude_Run_FreshSessionPerDispatch(t *testing.T) {
	c, err := NewClaude("claude", Config{Type: "claude", Command: "echo"}, nil, nil)
	if err != nil {
		t.Fatalf("NewClaude failed: %v", err)
	}

	req := Request{TaskID: "task-1", Description: "x", Workspace: t.TempDir()}

	res1, err := c.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("first Run failed: %v", err)
	}
	res2, err := c.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	s1 := sessionFromEcho(t, res1.Output)
	s2 := sessionFromEcho(t, res2.Output)
	if s1 == s2 {
		t.Errorf("Expected distinct session IDs, both were %q", s1)
	}
}

// sessionFromEcho extracts the --session-id value from echoed args.
func sessionFromEcho(t *testing.T, output string) string {
	t.Helper()
	fields := strings.Fields(output)
	for i, f := range fields {
		if f == "--session-id" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	t.Fatalf("no --session-id in output: %q", output)
	return ""
}
