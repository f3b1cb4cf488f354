package llm

import (
	"context"
	"strings"

	"github.com/colonyops/foreman/internal/foreman"
)

// Responder turns completed work into a user-facing reply via a chat model.
type Responder struct {
	client *Client
}

var _ foreman.Responder = (*Responder)(nil)

// NewResponder creates a responder on top of a chat completion client.
func NewResponder(client *Client) *Responder {
	return &Responder{client: client}
}

// Respond asks the model for the final reply to the conversation.
func (r *Responder) Respond(ctx context.Context, req foreman.RespondRequest) (string, error) {
	system := BuildResponderPrompt(req)

	reply, err := r.client.Complete(ctx, system, req.Messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}
