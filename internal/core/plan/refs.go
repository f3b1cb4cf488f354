package plan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Placeholders of the form {{ref:taskID}} splice a prior task's output into
// a task description. An optional #path selects inside JSON output, with
// dot-separated object keys and array indices: {{ref:t1#items.0.name}}.
var refPattern = regexp.MustCompile(`\{\{ref:([a-zA-Z0-9_-]+)(?:#([a-zA-Z0-9_.\-]+))?\}\}`)

// UnresolvedRefError is returned when a placeholder names a task with no
// successful output, a path that does not exist in that output, or is
// malformed enough that it cannot be parsed at all.
type UnresolvedRefError struct {
	Ref    string
	Reason string
}

func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("unresolved reference %q: %s", e.Ref, e.Reason)
}

// ResolveRefs replaces every placeholder in text with output from the given
// executions. Only successful executions are candidates. Any placeholder
// that cannot be resolved fails the whole resolution.
func ResolveRefs(text string, execs []Execution) (string, error) {
	if !strings.Contains(text, "{{ref:") {
		return text, nil
	}

	outputs := make(map[string]json.RawMessage, len(execs))
	for i := range execs {
		if execs[i].Success {
			outputs[execs[i].TaskID] = execs[i].Output
		}
	}

	var resolveErr error
	resolved := refPattern.ReplaceAllStringFunc(text, func(match string) string {
		if resolveErr != nil {
			return match
		}
		groups := refPattern.FindStringSubmatch(match)
		id, path := groups[1], groups[2]

		raw, ok := outputs[id]
		if !ok {
			resolveErr = &UnresolvedRefError{Ref: match, Reason: fmt.Sprintf("no successful output for task %q", id)}
			return match
		}
		val, err := extract(raw, path)
		if err != nil {
			resolveErr = &UnresolvedRefError{Ref: match, Reason: err.Error()}
			return match
		}
		return val
	})
	if resolveErr != nil {
		return "", resolveErr
	}

	// A leftover {{ref: means the placeholder did not match the grammar.
	if idx := strings.Index(resolved, "{{ref:"); idx >= 0 {
		end := strings.Index(resolved[idx:], "}}")
		ref := resolved[idx:]
		if end >= 0 {
			ref = resolved[idx : idx+end+2]
		}
		return "", &UnresolvedRefError{Ref: ref, Reason: "malformed reference"}
	}
	return resolved, nil
}

// extract pulls a value out of raw JSON output. An empty path renders the
// whole output; a string leaf is spliced without quotes.
func extract(raw json.RawMessage, path string) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("task produced no output")
	}

	var val any
	if err := json.Unmarshal(raw, &val); err != nil {
		if path == "" {
			return string(raw), nil
		}
		return "", fmt.Errorf("output is not JSON, cannot apply path %q", path)
	}

	if path != "" {
		for _, part := range strings.Split(path, ".") {
			switch node := val.(type) {
			case map[string]any:
				next, ok := node[part]
				if !ok {
					return "", fmt.Errorf("key %q not found", part)
				}
				val = next
			case []any:
				idx, err := strconv.Atoi(part)
				if err != nil || idx < 0 || idx >= len(node) {
					return "", fmt.Errorf("index %q out of range", part)
				}
				val = node[idx]
			default:
				return "", fmt.Errorf("cannot descend into %T with %q", node, part)
			}
		}
	}

	switch leaf := val.(type) {
	case string:
		return leaf, nil
	case nil:
		return "null", nil
	default:
		out, err := json.Marshal(leaf)
		if err != nil {
			return "", fmt.Errorf("render value: %w", err)
		}
		return string(out), nil
	}
}
