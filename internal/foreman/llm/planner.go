package llm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/rs/zerolog"
)

// Planner asks a chat model for a task graph.
type Planner struct {
	client *Client
	log    zerolog.Logger
	now    func() time.Time
}

var _ foreman.Planner = (*Planner)(nil)

// NewPlanner creates a planner on top of a chat completion client.
func NewPlanner(client *Client) *Planner {
	return &Planner{
		client: client,
		log:    logging.Component("planner"),
		now:    time.Now,
	}
}

// Plan requests a task graph for the conversation. A reply that cannot be
// parsed as a plan comes back as a clarification request rather than an
// error, so the user sees a question instead of a stack trace.
func (p *Planner) Plan(ctx context.Context, req foreman.PlanRequest) (*plan.Plan, error) {
	system := BuildPlannerPrompt(req, p.now())

	reply, err := p.client.Complete(ctx, system, req.Messages)
	if err != nil {
		return nil, err
	}

	parsed, err := ParsePlan(reply)
	if err != nil {
		p.log.Warn().Ctx(ctx).Err(err).Msg("planner returned unparseable plan")
		return &plan.Plan{
			NeedsClarification:    true,
			ClarificationQuestion: "I couldn't work out a plan for that. Could you rephrase your request?",
		}, nil
	}
	return parsed, nil
}

// ParsePlan decodes a planner reply. Markdown code fences around the JSON
// are tolerated; anything else unparseable is an error.
func ParsePlan(reply string) (*plan.Plan, error) {
	cleaned := StripFences(reply)

	var p plan.Plan
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, err
	}
	for i := range p.Tasks {
		if p.Tasks[i].Status == "" {
			p.Tasks[i].Status = plan.StatusPending
		}
	}
	return &p, nil
}

// StripFences removes a surrounding markdown code fence, with or without a
// language tag.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		// drop the language tag line (e.g. "json")
		first := strings.TrimSpace(s[:idx])
		if first == "" || !strings.ContainsAny(first, "{}[]") {
			s = s[idx+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
