package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Asker answers one-off questions through the agent loop. The action set
// is static; only the asking user is bound per question.
type Asker struct {
	svc Services
	llm Completer
}

// NewAsker validates the action set once so registration mistakes fail
// at startup instead of on the first message.
func NewAsker(svc Services, llm Completer) (*Asker, error) {
	if _, err := NewRegistry(NewActions(svc, "startup-check")...); err != nil {
		return nil, fmt.Errorf("validating action registry: %w", err)
	}
	return &Asker{svc: svc, llm: llm}, nil
}

// Ask runs a fresh conversation for the user and returns the final reply.
func (a *Asker) Ask(ctx context.Context, userID, text string) (string, error) {
	registry, err := NewRegistry(NewActions(a.svc, userID)...)
	if err != nil {
		return "", fmt.Errorf("building action registry: %w", err)
	}

	mem, err := New(DefaultGoals(), registry, a.llm).Run(ctx, text, nil)
	if err != nil {
		return "", err
	}

	reply := FinalReply(mem)
	if reply == "" {
		return "", errors.New("agent produced no reply")
	}
	return reply, nil
}

// FinalReply pulls the user-facing answer out of a finished run: the
// message of the most recent successfully executed action, else the
// model's last plain-text response.
func FinalReply(mem *Memory) string {
	entries := mem.Entries()

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind != MemoryEnvironment {
			continue
		}
		var res struct {
			ToolExecuted bool           `json:"tool_executed"`
			Result       map[string]any `json:"result"`
		}
		if err := json.Unmarshal([]byte(entries[i].Content), &res); err != nil || !res.ToolExecuted {
			continue
		}
		if msg, ok := res.Result["message"].(string); ok && strings.TrimSpace(msg) != "" {
			return strings.TrimSpace(msg)
		}
	}

	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Kind != MemoryAssistant {
			continue
		}
		content := strings.TrimSpace(entries[i].Content)
		if content != "" && !strings.HasPrefix(content, "{") {
			return content
		}
	}
	return ""
}
