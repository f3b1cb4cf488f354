package plan

// Succeeded builds the set of task ids with at least one successful
// execution record.
func Succeeded(execs []Execution) map[string]bool {
	done := make(map[string]bool, len(execs))
	for i := range execs {
		if execs[i].Success {
			done[execs[i].TaskID] = true
		}
	}
	return done
}

// NextReady returns the first pending task whose dependencies have all
// succeeded, scanning in plan order. Nil means nothing is ready, which is
// not the same as the plan being finished.
func (p *Plan) NextReady(execs []Execution) *Task {
	done := Succeeded(execs)
	for i := range p.Tasks {
		if ready(&p.Tasks[i], done) {
			return &p.Tasks[i]
		}
	}
	return nil
}

// ReadyTasks returns every pending task whose dependencies have all
// succeeded, in plan order.
func (p *Plan) ReadyTasks(execs []Execution) []*Task {
	done := Succeeded(execs)
	var out []*Task
	for i := range p.Tasks {
		if ready(&p.Tasks[i], done) {
			out = append(out, &p.Tasks[i])
		}
	}
	return out
}

func ready(t *Task, done map[string]bool) bool {
	if t.Status != StatusPending {
		return false
	}
	for _, dep := range t.DependsOn {
		if !done[dep] {
			return false
		}
	}
	return true
}

// AllDone reports whether every task in the plan has succeeded.
func (p *Plan) AllDone(execs []Execution) bool {
	done := Succeeded(execs)
	for i := range p.Tasks {
		if !done[p.Tasks[i].ID] {
			return false
		}
	}
	return true
}

// AnyFailed reports whether any task is marked failed.
func (p *Plan) AnyFailed() bool {
	for i := range p.Tasks {
		if p.Tasks[i].Status == StatusFailed {
			return true
		}
	}
	return false
}
