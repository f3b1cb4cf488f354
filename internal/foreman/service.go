package foreman

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/colonyops/foreman/internal/core/logging"
	"github.com/colonyops/foreman/internal/core/plan"
	"github.com/colonyops/foreman/internal/core/run"
	"github.com/colonyops/foreman/internal/core/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Options tunes the turn loop.
type Options struct {
	// ReplanLimit is how many replans a single turn may consume.
	ReplanLimit int
	// HistoryLimit caps the conversation window sent to the planner and
	// responder.
	HistoryLimit int
	// Parallel dispatches all ready tasks of a step concurrently instead
	// of one at a time.
	Parallel bool
}

// Turn is the outcome of one scheduler turn.
type Turn struct {
	RunID         string        `json:"run_id"`
	SessionID     string        `json:"session_id"`
	Response      string        `json:"response"`
	Clarification bool          `json:"clarification"`
	Duration      time.Duration `json:"duration"`
}

// Service orchestrates conversation turns. Turns for the same session are
// serialized; different sessions run independently.
type Service struct {
	sessions  session.Store
	audit     run.Store
	planner   Planner
	responder Responder
	executor  Executor
	tools     []ToolInfo
	opts      Options
	log       zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService wires the scheduler. audit may be nil to disable the trail.
func NewService(
	sessions session.Store,
	audit run.Store,
	planner Planner,
	responder Responder,
	executor Executor,
	tools []ToolInfo,
	opts Options,
) *Service {
	if opts.ReplanLimit <= 0 {
		opts.ReplanLimit = 3
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	return &Service{
		sessions:  sessions,
		audit:     audit,
		planner:   planner,
		responder: responder,
		executor:  executor,
		tools:     tools,
		opts:      opts,
		log:       logging.Component("foreman"),
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *Service) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[id] = lock
	}
	return lock
}

// RunTurn processes one user message for a session and returns the reply.
// The session is created on first use.
func (s *Service) RunTurn(ctx context.Context, sessionID, message string, source run.Source) (*Turn, error) {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(logging.WithSessionID(ctx, sessionID), runID)

	sess, err := s.sessions.Load(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		sess = session.New(sessionID)
	} else if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	s.auditStart(ctx, run.Run{ID: runID, SessionID: sessionID, Source: source, Message: message, StartedAt: start.UTC()})

	// Tallies cover this turn only; the session carries earlier turns too.
	basePlanned := plannedTasks(sess)
	baseExecuted := len(sess.AllExecutions())

	turn, err := s.runTurn(ctx, runID, sess, message)

	out := run.Outcome{
		TasksPlanned:  plannedTasks(sess) - basePlanned,
		TasksExecuted: len(sess.AllExecutions()) - baseExecuted,
		Replans:       sess.RetryCount,
	}
	for _, e := range sess.AllExecutions()[baseExecuted:] {
		if !e.Success {
			out.TasksFailed++
		}
	}

	if err != nil {
		out.Status = run.StatusFailed
		out.Error = err.Error()
		s.auditFinish(ctx, runID, out)
		return nil, err
	}

	out.Status = run.StatusCompleted
	if turn.Clarification {
		out.Status = run.StatusClarification
	}
	out.Response = turn.Response
	s.auditFinish(ctx, runID, out)

	turn.RunID = runID
	turn.SessionID = sessionID
	turn.Duration = time.Since(start)
	return turn, nil
}

func (s *Service) runTurn(ctx context.Context, runID string, sess *session.Session, message string) (*Turn, error) {
	if s.resumable(sess) {
		s.log.Info().Ctx(ctx).
			Int("generation", sess.Generation).
			Int("executions", len(sess.Executions)).
			Msg("resuming checkpointed plan")
		s.auditLog(ctx, runID, "info", "resumed unfinished plan from checkpoint")
		if sess.Messages[len(sess.Messages)-1].Content != message {
			sess.AppendMessage(session.RoleUser, message)
			if err := s.checkpoint(ctx, sess, "user message"); err != nil {
				return nil, err
			}
		}
		return s.loop(ctx, runID, sess)
	}

	sess.AppendMessage(session.RoleUser, message)
	sess.RetryCount = 0
	if err := s.checkpoint(ctx, sess, "user message"); err != nil {
		return nil, err
	}

	p, err := s.planner.Plan(ctx, PlanRequest{
		Messages: sess.RecentMessages(s.opts.HistoryLimit),
		Tools:    s.tools,
	})
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}

	if p.NeedsClarification {
		return s.clarify(ctx, runID, sess, p.ClarificationQuestion)
	}
	if err := s.acceptPlan(ctx, runID, sess, p); err != nil {
		return nil, err
	}
	return s.loop(ctx, runID, sess)
}

// resumable reports whether the session holds a plan whose turn never
// reached a terminal state. Terminal states append an assistant message,
// so a trailing user message means the previous turn was cut short and
// its completed work must not be replayed.
func (s *Service) resumable(sess *session.Session) bool {
	if sess.Plan == nil || len(sess.Messages) == 0 {
		return false
	}
	return sess.Messages[len(sess.Messages)-1].Role == session.RoleUser
}

func (s *Service) loop(ctx context.Context, runID string, sess *session.Session) (*Turn, error) {
	for {
		decision := Check(sess.Plan, sess.Executions)
		s.log.Debug().Ctx(ctx).
			Stringer("decision", decision).
			Int("generation", sess.Generation).
			Msg("checked plan state")

		switch decision {
		case DecisionRespond:
			return s.respond(ctx, sess)

		case DecisionExecute:
			if err := s.executeStep(ctx, runID, sess); err != nil {
				return nil, err
			}

		case DecisionReplan:
			turn, err := s.replan(ctx, runID, sess)
			if err != nil {
				return nil, err
			}
			if turn != nil {
				return turn, nil
			}
		}
	}
}

// acceptPlan validates and installs a fresh plan, archiving the previous one.
func (s *Service) acceptPlan(ctx context.Context, runID string, sess *session.Session, p *plan.Plan) error {
	if err := plan.Validate(p, sess.UsedTaskIDs()); err != nil {
		return fmt.Errorf("validate plan: %w", err)
	}
	for i := range p.Tasks {
		if !s.executor.Known(p.Tasks[i].Tool) {
			return fmt.Errorf("task %q: %w: %s", p.Tasks[i].ID, ErrUnknownTool, p.Tasks[i].Tool)
		}
		if p.Tasks[i].Status == "" {
			p.Tasks[i].Status = plan.StatusPending
		}
	}

	sess.ReplacePlan(p)
	if err := s.checkpoint(ctx, sess, "plan accepted"); err != nil {
		return err
	}

	s.log.Info().Ctx(ctx).
		Int("tasks", len(p.Tasks)).
		Int("generation", sess.Generation).
		Msg("plan accepted")
	s.auditPlan(ctx, runID, sess)
	s.auditLog(ctx, runID, "info", fmt.Sprintf("accepted plan of %d tasks, generation %d", len(p.Tasks), sess.Generation))
	return nil
}

// executeStep runs the next ready task, or every ready task when parallel
// dispatch is on, and checkpoints the results.
func (s *Service) executeStep(ctx context.Context, runID string, sess *session.Session) error {
	var tasks []*plan.Task
	if s.opts.Parallel {
		tasks = sess.Plan.ReadyTasks(sess.Executions)
	} else {
		tasks = []*plan.Task{sess.Plan.NextReady(sess.Executions)}
	}

	prior := sess.AllExecutions()
	inputs := make([]string, len(tasks))
	for i, task := range tasks {
		input, err := plan.BuildInput(task, prior)
		if err != nil {
			return err
		}
		inputs[i] = input
		task.Status = plan.StatusRunning
	}

	results := make([]plan.Execution, len(tasks))
	if len(tasks) == 1 {
		results[0] = s.executeOne(ctx, tasks[0], inputs[0])
	} else {
		// siblings run to completion even when one fails; the failures
		// all land in the same replan decision
		g, gctx := errgroup.WithContext(ctx)
		for i, task := range tasks {
			g.Go(func() error {
				results[i] = s.executeOne(gctx, task, inputs[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	for i, task := range tasks {
		if results[i].Success {
			task.Status = plan.StatusDone
		} else {
			task.Status = plan.StatusFailed
		}
		sess.Executions = append(sess.Executions, results[i])
	}
	if err := s.checkpoint(ctx, sess, "execution"); err != nil {
		return err
	}
	for i := range results {
		s.auditExecution(ctx, runID, results[i])
		if !results[i].Success {
			s.auditLog(ctx, runID, "warn", fmt.Sprintf("task %s failed: %s", results[i].TaskID, results[i].ErrorMessage))
		}
	}
	return nil
}

func (s *Service) executeOne(ctx context.Context, task *plan.Task, input string) plan.Execution {
	started := time.Now().UTC()
	s.log.Info().Ctx(ctx).
		Str("task_id", task.ID).
		Str("tool", task.Tool).
		Msg("executing task")

	res := s.executor.Execute(ctx, task.Tool, input)

	exec := plan.Execution{
		TaskID:       task.ID,
		Tool:         task.Tool,
		Input:        input,
		Output:       res.Output,
		Success:      res.Success,
		ErrorMessage: res.ErrorMessage,
		StartedAt:    started,
		CompletedAt:  time.Now().UTC(),
	}
	if !res.Success {
		s.log.Warn().Ctx(ctx).
			Str("task_id", task.ID).
			Str("tool", task.Tool).
			Str("error", res.ErrorMessage).
			Msg("task failed")
	}
	return exec
}

// replan asks the planner for a new graph after a dead end. Returns a Turn
// only when the planner asks for clarification instead.
func (s *Service) replan(ctx context.Context, runID string, sess *session.Session) (*Turn, error) {
	sess.RetryCount++
	if sess.RetryCount > s.opts.ReplanLimit {
		// Retire the exhausted plan so a later message plans fresh instead
		// of resuming into the same dead end.
		sess.ReplacePlan(nil)
		if err := s.checkpoint(ctx, sess, "replan limit"); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w (%d)", ErrReplanLimit, s.opts.ReplanLimit)
	}

	var failures []plan.Execution
	for i := range sess.Executions {
		if !sess.Executions[i].Success {
			failures = append(failures, sess.Executions[i])
		}
	}

	s.log.Info().Ctx(ctx).
		Int("attempt", sess.RetryCount).
		Int("failures", len(failures)).
		Msg("replanning")
	s.auditLog(ctx, runID, "info", fmt.Sprintf("replanning, attempt %d of %d", sess.RetryCount, s.opts.ReplanLimit))

	p, err := s.planner.Plan(ctx, PlanRequest{
		Messages: sess.RecentMessages(s.opts.HistoryLimit),
		Tools:    s.tools,
		Replan:   true,
		Failures: failures,
		Archive:  sess.Archive,
	})
	if err != nil {
		return nil, fmt.Errorf("replan: %w", err)
	}

	if p.NeedsClarification {
		return s.clarify(ctx, runID, sess, p.ClarificationQuestion)
	}
	if err := s.acceptPlan(ctx, runID, sess, p); err != nil {
		return nil, err
	}
	return nil, nil
}

// respond summarizes the completed work into the final reply. Only tasks
// that actually ran are shown to the responder.
func (s *Service) respond(ctx context.Context, sess *session.Session) (*Turn, error) {
	execs := sess.AllExecutions()
	executed := make(map[string]bool, len(execs))
	for i := range execs {
		executed[execs[i].TaskID] = true
	}

	var tasks []plan.Task
	collect := func(p *plan.Plan) {
		if p == nil {
			return
		}
		for i := range p.Tasks {
			if executed[p.Tasks[i].ID] {
				tasks = append(tasks, p.Tasks[i])
			}
		}
	}
	for _, gen := range sess.Archive {
		collect(gen.Plan)
	}
	collect(sess.Plan)

	reply, err := s.responder.Respond(ctx, RespondRequest{
		Messages:   sess.RecentMessages(s.opts.HistoryLimit),
		Tasks:      tasks,
		Executions: execs,
	})
	if err != nil {
		return nil, fmt.Errorf("respond: %w", err)
	}

	sess.AppendMessage(session.RoleAssistant, reply)
	sess.LastResponse = reply
	if err := s.checkpoint(ctx, sess, "response"); err != nil {
		return nil, err
	}
	return &Turn{Response: reply}, nil
}

// clarify short-circuits the turn with a question back to the user.
func (s *Service) clarify(ctx context.Context, runID string, sess *session.Session, question string) (*Turn, error) {
	if question == "" {
		question = "Could you clarify what you need?"
	}
	sess.AppendMessage(session.RoleAssistant, question)
	sess.LastResponse = question
	if err := s.checkpoint(ctx, sess, "clarification"); err != nil {
		return nil, err
	}
	s.log.Info().Ctx(ctx).Msg("turn needs clarification")
	s.auditLog(ctx, runID, "info", "asked for clarification")
	return &Turn{Response: question, Clarification: true}, nil
}

// plannedTasks counts every task planned for the session across generations.
func plannedTasks(sess *session.Session) int {
	n := 0
	if sess.Plan != nil {
		n = len(sess.Plan.Tasks)
	}
	for _, gen := range sess.Archive {
		if gen.Plan != nil {
			n += len(gen.Plan.Tasks)
		}
	}
	return n
}

// checkpoint saves the session. Failure is fatal for the turn.
func (s *Service) checkpoint(ctx context.Context, sess *session.Session, op string) error {
	if err := s.sessions.Save(ctx, sess); err != nil {
		s.log.Error().Ctx(ctx).Err(err).Str("op", op).Msg("checkpoint failed")
		return &CheckpointError{Op: op, Err: err}
	}
	return nil
}

// Audit writes never abort a turn; errors are logged and dropped.

func (s *Service) auditStart(ctx context.Context, r run.Run) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Create(ctx, r); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("audit create failed")
	}
}

func (s *Service) auditFinish(ctx context.Context, runID string, out run.Outcome) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Finish(ctx, runID, out); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("audit finish failed")
	}
}

func (s *Service) auditLog(ctx context.Context, runID, level, message string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AppendLog(ctx, runID, level, message); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("audit log failed")
	}
}

func (s *Service) auditPlan(ctx context.Context, runID string, sess *session.Session) {
	if s.audit == nil {
		return
	}
	rec := run.PlanRecord{
		Generation: sess.Generation,
		Reasoning:  sess.Plan.Reasoning,
		Tasks:      sess.Plan.Tasks,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audit.AppendPlan(ctx, runID, rec); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("audit plan failed")
	}
}

func (s *Service) auditExecution(ctx context.Context, runID string, exec plan.Execution) {
	if s.audit == nil {
		return
	}
	if err := s.audit.AppendExecution(ctx, runID, exec); err != nil {
		s.log.Warn().Ctx(ctx).Err(err).Msg("audit execution failed")
	}
}
