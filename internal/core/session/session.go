// Package session defines conversation session domain types and interfaces.
package session

import (
	"time"

	"github.com/colonyops/foreman/internal/core/plan"
)

// Role identifies who produced a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of conversation history.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Generation is a retired plan together with the execution records that
// accumulated under it. Replanning archives the current generation so a
// session keeps a full account of how it got where it is.
type Generation struct {
	Plan       *plan.Plan       `json:"plan"`
	Executions []plan.Execution `json:"executions"`
	ArchivedAt time.Time        `json:"archived_at"`
}

// Session is the durable state of one conversation: its history, the plan
// currently being worked, the execution records for that plan, and the
// archive of earlier plan generations. Version implements optimistic
// concurrency in the store.
type Session struct {
	ID         string           `json:"id"`
	Messages   []Message        `json:"messages"`
	Plan       *plan.Plan       `json:"plan,omitempty"`
	Executions []plan.Execution `json:"executions,omitempty"`
	Generation int              `json:"generation"`
	Archive    []Generation     `json:"archive,omitempty"`
	RetryCount int              `json:"retry_count"`

	// LastResponse is the most recent assistant reply or clarification
	// question, kept for quick inspection without replaying Messages.
	LastResponse string `json:"last_response,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty session with the given id.
func New(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendMessage adds a message to the conversation history.
func (s *Session) AppendMessage(role Role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}

// RecentMessages returns up to limit of the newest messages, oldest first.
// A non-positive limit returns the full history.
func (s *Session) RecentMessages(limit int) []Message {
	if limit <= 0 || len(s.Messages) <= limit {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-limit:]
}

// UsedTaskIDs collects every task id with a recorded execution, current or
// archived. New plans may not reuse them; ids that were planned but never
// ran may reappear, since planners tend to re-emit the same step names.
func (s *Session) UsedTaskIDs() map[string]bool {
	used := make(map[string]bool)
	for _, e := range s.AllExecutions() {
		used[e.TaskID] = true
	}
	return used
}

// AllExecutions returns every execution record the session has accumulated,
// archived generations first, then the current plan's. References in a new
// plan can point at work done under an earlier one.
func (s *Session) AllExecutions() []plan.Execution {
	if len(s.Archive) == 0 {
		return s.Executions
	}
	var all []plan.Execution
	for _, gen := range s.Archive {
		all = append(all, gen.Executions...)
	}
	return append(all, s.Executions...)
}

// ReplacePlan installs a new plan. The outgoing plan, if any, is archived
// with its executions, its still-pending tasks marked abandoned first.
func (s *Session) ReplacePlan(p *plan.Plan) {
	if s.Plan != nil {
		for i := range s.Plan.Tasks {
			if s.Plan.Tasks[i].Status == plan.StatusPending {
				s.Plan.Tasks[i].Status = plan.StatusAbandoned
			}
		}
		s.Archive = append(s.Archive, Generation{
			Plan:       s.Plan,
			Executions: s.Executions,
			ArchivedAt: time.Now().UTC(),
		})
		s.Generation++
	}
	s.Plan = p
	s.Executions = nil
}
