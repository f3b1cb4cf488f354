// Package webhook dispatches tool invocations as HTTP POSTs to configured
// endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/colonyops/foreman/internal/core/config"
	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/foreman"
	"github.com/rs/zerolog"
)

// endpoint is a resolved dispatch target for one tool.
type endpoint struct {
	url        string
	payloadKey string
	timeout    time.Duration
}

// Executor posts tool inputs to webhooks. Tool-specific config wins over
// route patterns; routes are matched in declaration order.
type Executor struct {
	endpoints map[string]endpoint
	client    *http.Client
	log       zerolog.Logger
}

var _ foreman.Executor = (*Executor)(nil)

// NewExecutor resolves every configured tool to its endpoint.
func NewExecutor(cfg *config.Config) (*Executor, error) {
	endpoints := make(map[string]endpoint, len(cfg.Tools))
	for _, tool := range cfg.Tools {
		ep := endpoint{
			url:        tool.URL,
			payloadKey: tool.PayloadKey,
			timeout:    tool.Timeout.Std(),
		}
		if ep.url == "" {
			route := matchRoute(cfg.Routes, tool.Name)
			if route == nil {
				return nil, fmt.Errorf("tool %q has no url and matches no route", tool.Name)
			}
			ep.url = route.URL
			ep.payloadKey = route.PayloadKey
			ep.timeout = route.Timeout.Std()
		}
		if ep.payloadKey == "" {
			ep.payloadKey = "query"
		}
		if ep.timeout == 0 {
			ep.timeout = 30 * time.Second
		}
		endpoints[tool.Name] = ep
	}

	return &Executor{
		endpoints: endpoints,
		client:    &http.Client{},
		log:       logging.Component("webhook"),
	}, nil
}

func matchRoute(routes []config.RouteConfig, name string) *config.RouteConfig {
	for i := range routes {
		if ok, err := doublestar.Match(routes[i].Pattern, name); err == nil && ok {
			return &routes[i]
		}
	}
	return nil
}

// Known reports whether a tool has a dispatch target.
func (e *Executor) Known(tool string) bool {
	_, ok := e.endpoints[tool]
	return ok
}

// Execute posts the input to the tool's endpoint. Transport errors, non-2xx
// statuses, and timeouts all come back as failed results so the scheduler
// can replan around them.
func (e *Executor) Execute(ctx context.Context, tool, input string) foreman.ExecResult {
	ep, ok := e.endpoints[tool]
	if !ok {
		return failure(fmt.Sprintf("no endpoint for tool %q", tool))
	}

	ctx, cancel := context.WithTimeout(ctx, ep.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{ep.payloadKey: input})
	if err != nil {
		return failure(fmt.Sprintf("encode payload: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.url, bytes.NewReader(payload))
	if err != nil {
		return failure(fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		e.log.Warn().Ctx(ctx).Str("tool", tool).Err(err).Msg("webhook request failed")
		return failure(fmt.Sprintf("request failed: %v", err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return failure(fmt.Sprintf("read response: %v", err))
	}

	e.log.Debug().Ctx(ctx).
		Str("tool", tool).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("webhook dispatched")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failure(fmt.Sprintf("endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 500)))
	}

	return foreman.ExecResult{Success: true, Output: extractOutput(body)}
}

// extractOutput unwraps common envelope keys. A JSON object with a
// "response" or "output" field yields that field; anything else passes
// through as-is, wrapped as a JSON string when the body isn't valid JSON.
func extractOutput(body []byte) json.RawMessage {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err == nil {
		if v, ok := envelope["response"]; ok {
			return v
		}
		if v, ok := envelope["output"]; ok {
			return v
		}
	}
	if json.Valid(body) {
		return body
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return json.RawMessage(`""`)
	}
	return quoted
}

func failure(msg string) foreman.ExecResult {
	return foreman.ExecResult{Success: false, ErrorMessage: msg}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
