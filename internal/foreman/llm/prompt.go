package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/foreman/internal/foreman"
)

const plannerInstructions = `You are a planning assistant. Break the user's request into tool tasks.

Respond with JSON only, no prose, in this shape:
{
  "tasks": [
    {"id": "t1", "tool": "<tool name>", "description": "<what to do>", "depends_on": []}
  ],
  "reasoning": "<one sentence>",
  "needs_clarification": false,
  "clarification_question": ""
}

Rules:
- Use only the tools listed below.
- Give every task a short unique id.
- depends_on lists ids of tasks whose results this task needs.
- A task may reference an earlier result with {{ref:<task id>}} in its description.
- If the request is too vague to plan, set needs_clarification to true and ask one question instead of emitting tasks.`

const replanInstructions = `Some tasks from the previous plan failed. Produce a new plan that reaches the user's goal another way.

Do not reuse task ids from earlier plans. Work that already succeeded does not need to be repeated; reference it with {{ref:<task id>}} where useful.`

// BuildPlannerPrompt renders the system prompt for a planning call.
func BuildPlannerPrompt(req foreman.PlanRequest, now time.Time) string {
	var b strings.Builder
	b.WriteString(plannerInstructions)
	b.WriteString("\n\nCurrent time: ")
	b.WriteString(now.Format(time.RFC1123))

	b.WriteString("\n\nAvailable tools:\n")
	for _, tool := range req.Tools {
		fmt.Fprintf(&b, "- %s: %s", tool.Name, tool.Description)
		if tool.UseWhen != "" {
			fmt.Fprintf(&b, " Use when: %s", tool.UseWhen)
		}
		if tool.Example != "" {
			fmt.Fprintf(&b, " Example: %s", tool.Example)
		}
		b.WriteString("\n")
	}

	if req.Replan {
		b.WriteString("\n")
		b.WriteString(replanInstructions)

		if len(req.Failures) > 0 {
			b.WriteString("\n\nFailed tasks:\n")
			for _, f := range req.Failures {
				fmt.Fprintf(&b, "- %s (%s): %s\n", f.TaskID, f.Tool, f.ErrorMessage)
			}
		}
		for _, gen := range req.Archive {
			if gen.Plan == nil {
				continue
			}
			b.WriteString("\nEarlier plan:\n")
			for _, t := range gen.Plan.Tasks {
				fmt.Fprintf(&b, "- %s (%s, %s): %s\n", t.ID, t.Tool, t.Status, t.Description)
			}
		}
	}

	return b.String()
}

const responderInstructions = `You are the final voice of an assistant that just finished running tools for the user. Write the reply to the user's last message.

Base your answer only on the conversation and the tool results below. Be direct and concise. Do not mention tools, tasks, or plans.`

// BuildResponderPrompt renders the system prompt for a response call.
func BuildResponderPrompt(req foreman.RespondRequest) string {
	var b strings.Builder
	b.WriteString(responderInstructions)

	if len(req.Tasks) > 0 {
		b.WriteString("\n\nCompleted work:\n")
		byID := make(map[string]string, len(req.Executions))
		for _, e := range req.Executions {
			if e.Success {
				byID[e.TaskID] = string(e.Output)
			} else if _, ok := byID[e.TaskID]; !ok {
				byID[e.TaskID] = "failed: " + e.ErrorMessage
			}
		}
		for _, t := range req.Tasks {
			fmt.Fprintf(&b, "- %s: %s\n", t.Description, byID[t.ID])
		}
	}

	return b.String()
}
