package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type scriptedCompleter struct {
	responses []string
	calls     int
}

func (s *scriptedCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	if s.calls >= len(s.responses) {
		return "", errors.New("no scripted response left")
	}
	r := s.responses[s.calls]
	s.calls++
	return r, nil
}

func testRegistry(t *testing.T, executed *[]string) *Registry {
	t.Helper()
	r, err := NewRegistry(
		Action{
			Name:        "lookup",
			Description: "look something up",
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				*executed = append(*executed, "lookup")
				return map[string]any{"rows": 2}, nil
			},
		},
		Action{
			Name:        ActionReply,
			Description: "final answer",
			Parameters: ObjectSchema(map[string]Property{
				"message": {Type: "string"},
			}, "message"),
			Terminal: true,
			Handler: func(ctx context.Context, args map[string]any) (any, error) {
				*executed = append(*executed, ActionReply)
				return args["message"], nil
			},
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return r
}

func TestRunStopsOnTerminalAction(t *testing.T) {
	var executed []string
	llm := &scriptedCompleter{responses: []string{
		`{"tool": "lookup", "args": {}}`,
		`{"tool": "reply", "args": {"message": "All done."}}`,
	}}
	a := New(DefaultGoals(), testRegistry(t, &executed), llm)

	mem, err := a.Run(context.Background(), "what did I spend?", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(executed) != 2 || executed[0] != "lookup" || executed[1] != ActionReply {
		t.Errorf("executed = %v, want [lookup reply]", executed)
	}

	wantKinds := []string{
		MemoryUser,
		MemoryAssistant, MemoryEnvironment,
		MemoryAssistant, MemoryEnvironment,
	}
	entries := mem.Entries()
	if len(entries) != len(wantKinds) {
		t.Fatalf("memory has %d entries, want %d", len(entries), len(wantKinds))
	}
	for i, e := range entries {
		if e.Kind != wantKinds[i] {
			t.Errorf("entry %d kind = %q, want %q", i, e.Kind, wantKinds[i])
		}
	}
	last := entries[len(entries)-1].Content
	if !strings.Contains(last, "All done.") {
		t.Errorf("final environment entry = %q, want it to carry the reply", last)
	}
}

func TestRunStopsAtMaxIterations(t *testing.T) {
	var executed []string
	llm := &scriptedCompleter{responses: []string{
		`{"tool": "lookup", "args": {}}`,
		`{"tool": "lookup", "args": {}}`,
		`{"tool": "lookup", "args": {}}`,
		`{"tool": "lookup", "args": {}}`,
	}}
	a := New(DefaultGoals(), testRegistry(t, &executed), llm)
	a.MaxIterations = 3

	if _, err := a.Run(context.Background(), "loop forever", nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(executed) != 3 {
		t.Errorf("executed %d actions, want 3", len(executed))
	}
}

func TestRunStopsOnUnknownTool(t *testing.T) {
	var executed []string
	llm := &scriptedCompleter{responses: []string{
		`{"tool": "transfer_funds", "args": {}}`,
	}}
	a := New(DefaultGoals(), testRegistry(t, &executed), llm)

	mem, err := a.Run(context.Background(), "move my money", nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(executed) != 0 {
		t.Errorf("executed = %v, want nothing", executed)
	}
	// The raw response stays in memory for the caller to inspect.
	entries := mem.Entries()
	if entries[len(entries)-1].Kind != MemoryAssistant {
		t.Errorf("last entry kind = %q, want assistant", entries[len(entries)-1].Kind)
	}
}

func TestRunTreatsProseAsReply(t *testing.T) {
	var executed []string
	llm := &scriptedCompleter{responses: []string{
		"You spent about fifty euros on groceries.",
	}}
	a := New(DefaultGoals(), testRegistry(t, &executed), llm)

	if _, err := a.Run(context.Background(), "groceries?", nil); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(executed) != 1 || executed[0] != ActionReply {
		t.Errorf("executed = %v, want [reply]", executed)
	}
}

func TestParseToolCall(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantTool string
	}{
		{
			name:     "plain json",
			raw:      `{"tool": "budget_summary", "args": {"month": "2025-04"}}`,
			wantTool: "budget_summary",
		},
		{
			name:     "fenced json",
			raw:      "```json\n{\"tool\": \"reply\", \"args\": {\"message\": \"hi\"}}\n```",
			wantTool: "reply",
		},
		{
			name:     "json with surrounding prose",
			raw:      `Sure, calling the tool now: {"tool": "spending_summary", "args": {}}`,
			wantTool: "spending_summary",
		},
		{
			name:     "prose only",
			raw:      "I cannot help with that.",
			wantTool: ActionReply,
		},
		{
			name:     "json without tool field",
			raw:      `{"action": "noop"}`,
			wantTool: ActionReply,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			call := parseToolCall(tt.raw)
			if call.Tool != tt.wantTool {
				t.Errorf("parseToolCall(%q).Tool = %q, want %q", tt.raw, call.Tool, tt.wantTool)
			}
			if call.Args == nil {
				t.Errorf("parseToolCall(%q).Args = nil, want initialized map", tt.raw)
			}
		})
	}
}

func TestGoalsSortedByPriority(t *testing.T) {
	goals := []Goal{
		{Priority: 3, Name: "c"},
		{Priority: 1, Name: "a"},
		{Priority: 2, Name: "b"},
	}
	a := New(goals, mustRegistry(t), &scriptedCompleter{})

	for i, want := range []string{"a", "b", "c"} {
		if a.goals[i].Name != want {
			t.Errorf("goals[%d] = %q, want %q", i, a.goals[i].Name, want)
		}
	}
}

func mustRegistry(t *testing.T) *Registry {
	t.Helper()
	var executed []string
	return testRegistry(t, &executed)
}
