package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrEmptyPlan = errors.New("plan has no tasks")

// DuplicateIDError is returned when a plan reuses a task id, either within
// itself or against an id that already carries an execution record.
type DuplicateIDError struct {
	ID string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate task id %q", e.ID)
}

// CycleError names the tasks stuck in a dependency cycle.
type CycleError struct {
	IDs []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle involving tasks [%s]", strings.Join(e.IDs, ", "))
}

// InvalidTaskError flags a structurally broken task.
type InvalidTaskError struct {
	ID     string
	Reason string
}

func (e *InvalidTaskError) Error() string {
	return fmt.Sprintf("invalid task %q: %s", e.ID, e.Reason)
}

// Validate checks that a plan is executable: non-empty, ids unique and not
// colliding with already-executed ids, every dependency resolvable within
// the plan, and the dependency graph acyclic. It is called before a plan is
// accepted; a validation failure means the plan is rejected wholesale.
func Validate(p *Plan, usedIDs map[string]bool) error {
	if len(p.Tasks) == 0 {
		return ErrEmptyPlan
	}

	ids := make(map[string]bool, len(p.Tasks))
	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.ID == "" {
			return &InvalidTaskError{ID: t.ID, Reason: "missing id"}
		}
		if ids[t.ID] {
			return &DuplicateIDError{ID: t.ID}
		}
		if usedIDs[t.ID] {
			return &DuplicateIDError{ID: t.ID}
		}
		ids[t.ID] = true
	}

	for i := range p.Tasks {
		t := &p.Tasks[i]
		if t.Tool == "" {
			return &InvalidTaskError{ID: t.ID, Reason: "missing tool"}
		}
		for _, dep := range t.DependsOn {
			if dep == t.ID {
				return &InvalidTaskError{ID: t.ID, Reason: "depends on itself"}
			}
			if !ids[dep] {
				return &InvalidTaskError{ID: t.ID, Reason: fmt.Sprintf("unknown dependency %q", dep)}
			}
		}
	}

	if cycle := findCycle(p.Tasks); len(cycle) > 0 {
		return &CycleError{IDs: cycle}
	}
	return nil
}

// findCycle runs Kahn's algorithm and returns the ids that could not be
// topologically ordered, sorted for stable error messages.
func findCycle(tasks []Task) []string {
	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		indegree[t.ID] += 0
		for _, dep := range t.DependsOn {
			indegree[t.ID]++
			dependents[dep] = append(dependents[dep], t.ID)
		}
	}

	queue := make([]string, 0, len(tasks))
	for i := range tasks {
		if indegree[tasks[i].ID] == 0 {
			queue = append(queue, tasks[i].ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if visited == len(tasks) {
		return nil
	}
	var cycle []string
	for id, deg := range indegree {
		if deg > 0 {
			cycle = append(cycle, id)
		}
	}
	sort.Strings(cycle)
	return cycle
}
