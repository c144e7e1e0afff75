// Package agent implements the conversational loop behind the chat
// front-ends. An agent holds goals, a validated action registry and a
// memory of the conversation; each turn it asks the model for one tool
// call, executes it in the environment, and feeds the result back until
// a terminal action ends the run.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/vchukka/finsense/internal/logger"
)

// DefaultMaxIterations bounds how many tool calls a single run may make.
const DefaultMaxIterations = 5

// Goal is one standing objective, lowest priority number first.
type Goal struct {
	Priority    int
	Name        string
	Description string
}

// Completer asks the model for the next tool call.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Agent drives one user's budgeting conversations.
type Agent struct {
	goals    []Goal
	registry *Registry
	env      *Environment
	llm      Completer

	// MaxIterations caps tool calls per Run.
	MaxIterations int
}

// New creates an agent. Goals are kept in priority order.
func New(goals []Goal, registry *Registry, llm Completer) *Agent {
	gs := make([]Goal, len(goals))
	copy(gs, goals)
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Priority < gs[j].Priority })

	return &Agent{
		goals:         gs,
		registry:      registry,
		env:           NewEnvironment(),
		llm:           llm,
		MaxIterations: DefaultMaxIterations,
	}
}

// DefaultGoals are the standing objectives for budgeting conversations.
func DefaultGoals() []Goal {
	return []Goal{
		{Priority: 1, Name: "Track and analyze monthly spending",
			Description: "Build a structured view of the user's spending from imported statements and logged expenses."},
		{Priority: 2, Name: "Apply the 50/30/20 budgeting rule",
			Description: "Evaluate current month spending against the split of 50% needs, 30% wants, 20% savings."},
		{Priority: 3, Name: "Detect over-budget categories",
			Description: "Warn the user when spending exceeds the planned amount for Needs, Wants or Savings."},
		{Priority: 4, Name: "Summarize budget health",
			Description: "Present a clean summary of categorized spending and highlight savings potential."},
		{Priority: 5, Name: "Assist in goal-based planning",
			Description: "When the user expresses a goal such as a purchase or a savings target, recommend changes that achieve it."},
	}
}

// Run handles one user input. It appends to mem when given, otherwise
// starts a fresh memory, and returns the memory with the full exchange.
func (a *Agent) Run(ctx context.Context, userInput string, mem *Memory) (*Memory, error) {
	if mem == nil {
		mem = NewMemory()
	}
	mem.Add(MemoryUser, userInput)
	log := logger.FromContext(ctx)

	for i := 0; i < a.MaxIterations; i++ {
		raw, err := a.llm.Complete(ctx, a.buildPrompt(mem))
		if err != nil {
			return mem, fmt.Errorf("asking model for next action: %w", err)
		}
		mem.Add(MemoryAssistant, raw)

		call := parseToolCall(raw)
		action, ok := a.registry.Get(call.Tool)
		if !ok {
			log.Warn().Str("tool", call.Tool).Msg("model picked unknown tool, stopping run")
			return mem, nil
		}
		log.Debug().Str("tool", call.Tool).Msg("executing action")

		result := a.env.Execute(ctx, action, call.Args)
		payload, err := json.Marshal(result)
		if err != nil {
			payload = []byte(fmt.Sprintf(`{"tool_executed":false,"error":%q}`, err.Error()))
		}
		mem.Add(MemoryEnvironment, string(payload))

		if action.Terminal {
			return mem, nil
		}
	}

	log.Warn().Int("iterations", a.MaxIterations).Msg("run ended without a terminal action")
	return mem, nil
}

type toolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  Schema `json:"parameters"`
}

func (a *Agent) buildPrompt(mem *Memory) string {
	var b strings.Builder

	b.WriteString("You are FinSense, a personal budgeting assistant.\n\n")

	b.WriteString("GOALS (highest priority first):\n")
	for _, g := range a.goals {
		fmt.Fprintf(&b, "%d. %s: %s\n", g.Priority, g.Name, g.Description)
	}

	b.WriteString("\nTOOLS (one JSON spec per line):\n")
	for _, action := range a.registry.Actions() {
		spec, err := json.Marshal(toolSpec{
			Name:        action.Name,
			Description: action.Description,
			Parameters:  action.Parameters,
		})
		if err != nil {
			continue
		}
		b.Write(spec)
		b.WriteString("\n")
	}

	b.WriteString("\nRULES:\n")
	b.WriteString("1. Respond with a single JSON object of the form {\"tool\": \"<name>\", \"args\": {...}} and nothing else.\n")
	b.WriteString("2. Use the tools to complete the task whenever possible.\n")
	b.WriteString("3. When updating a transaction, assume the most recent match is correct unless the user says otherwise.\n")
	fmt.Fprintf(&b, "4. When the task is done, call %q with the final message for the user.\n", ActionReply)

	b.WriteString("\nCONVERSATION SO FAR:\n")
	for _, e := range mem.Entries() {
		fmt.Fprintf(&b, "[%s] %s\n", e.Kind, e.Content)
	}
	b.WriteString("\nNext tool call:")

	return b.String()
}

type toolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// parseToolCall reads the model response as a tool call. Responses that
// do not parse become a reply carrying the raw text.
func parseToolCall(raw string) toolCall {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "{"); i >= 0 {
		if j := strings.LastIndex(s, "}"); j > i {
			var call toolCall
			if err := json.Unmarshal([]byte(s[i:j+1]), &call); err == nil && call.Tool != "" {
				if call.Args == nil {
					call.Args = map[string]any{}
				}
				return call
			}
		}
	}
	return toolCall{Tool: ActionReply, Args: map[string]any{"message": raw}}
}
