package foreman

import "github.com/colonyops/foreman/internal/core/plan"

// Decision is the scheduler's next move after inspecting plan state.
type Decision int

const (
	// DecisionExecute means at least one task is ready to run.
	DecisionExecute Decision = iota
	// DecisionRespond means every task has succeeded.
	DecisionRespond
	// DecisionReplan means progress is impossible: a task failed, or
	// nothing is ready while work remains.
	DecisionReplan
)

func (d Decision) String() string {
	switch d {
	case DecisionExecute:
		return "execute"
	case DecisionRespond:
		return "respond"
	case DecisionReplan:
		return "replan"
	default:
		return "unknown"
	}
}

// Check inspects the plan and its executions and decides the next move.
// Pure function of its inputs; the precedence is respond over execute over
// replan, so a fully succeeded plan always responds.
func Check(p *plan.Plan, execs []plan.Execution) Decision {
	if p.AllDone(execs) {
		return DecisionRespond
	}
	if p.AnyFailed() {
		return DecisionReplan
	}
	if p.NextReady(execs) != nil {
		return DecisionExecute
	}
	// pending work remains but nothing can run
	return DecisionReplan
}
