package plan

import (
	"fmt"
	"strings"
)

// BuildInput assembles the final input for a task: its description with all
// placeholders resolved, followed by the outputs of its direct dependencies
// so the tool sees what earlier steps produced.
func BuildInput(t *Task, execs []Execution) (string, error) {
	resolved, err := ResolveRefs(t.Description, execs)
	if err != nil {
		return "", fmt.Errorf("build input for task %q: %w", t.ID, err)
	}
	if len(t.DependsOn) == 0 {
		return resolved, nil
	}

	latest := make(map[string]*Execution, len(execs))
	for i := range execs {
		if execs[i].Success {
			latest[execs[i].TaskID] = &execs[i]
		}
	}

	var b strings.Builder
	b.WriteString(resolved)
	b.WriteString("\n\nResults from earlier steps:\n")
	for _, dep := range t.DependsOn {
		exec, ok := latest[dep]
		if !ok {
			return "", fmt.Errorf("build input for task %q: dependency %q has no successful output", t.ID, dep)
		}
		fmt.Fprintf(&b, "- %s: %s\n", dep, string(exec.Output))
	}
	return b.String(), nil
}
