package agent

import (
	"context"
	"fmt"
	"time"
)

// Result is the outcome of one action execution, shaped for the
// conversation memory.
type Result struct {
	ToolExecuted bool   `json:"tool_executed"`
	Result       any    `json:"result,omitempty"`
	Error        string `json:"error,omitempty"`
	Timestamp    string `json:"timestamp"`
}

// Environment runs actions on behalf of the agent and shields the loop
// from handler failures.
type Environment struct {
	now func() time.Time
}

func NewEnvironment() *Environment {
	return &Environment{now: time.Now}
}

// Execute runs the action and wraps the outcome. Handler errors and
// panics become error results rather than ending the run.
func (e *Environment) Execute(ctx context.Context, action Action, args map[string]any) (res Result) {
	res.Timestamp = e.now().Format("2006-01-02T15:04:05")
	defer func() {
		if r := recover(); r != nil {
			res.ToolExecuted = false
			res.Result = nil
			res.Error = fmt.Sprintf("action %s panicked: %v", action.Name, r)
		}
	}()

	out, err := action.Handler(ctx, args)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.ToolExecuted = true
	res.Result = out
	return res
}
