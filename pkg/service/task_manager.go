package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/cohesivestack/valgo"
	"github.com/google/uuid"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
	"github.com/theapemachine/a2a-srv/pkg/metrics"
	"github.com/theapemachine/a2a-srv/pkg/stores"
)

/*
TaskHandler is the user-supplied producer of task updates.  The engine drives
it once per client message: the handler yields status and artifact updates
through the context, each of which is merged into persisted state before the
yield returns.  A non-nil error (or a panic) marks the run failed.
*/
type TaskHandler func(ctx context.Context, tc *TaskContext) error

/*
TaskContext is the handler's window onto one task run.  Task and History are
deep copies refreshed after every yield; the stored state is never exposed
directly.
*/
type TaskContext struct {
	// Task is a snapshot of the task as of the most recent merge.
	Task a2a.Task
	// UserMessage is the client message that triggered this run.
	UserMessage a2a.Message
	// History is a snapshot of the full message history.
	History []a2a.Message

	yield     func(a2a.TaskYieldUpdate) *errors.RpcError
	cancelled func() bool
}

// Yield merges one update into the task, persists the new snapshot and, for
// streaming requests, emits the corresponding SSE event.  Handlers should
// stop on a non-nil return.
func (tc *TaskContext) Yield(update a2a.TaskYieldUpdate) error {
	if rpcErr := tc.yield(update); rpcErr != nil {
		return rpcErr
	}
	return nil
}

// Cancelled reports whether a cancel has been requested for this task.
// Cancellation is cooperative: the engine never preempts a handler.
func (tc *TaskContext) Cancelled() bool {
	return tc.cancelled()
}

/*
TaskManager is the task lifecycle engine: it loads or creates tasks, drives
the handler, persists every merged update, maintains the process-wide
cancellation set and synthesizes a failed state when the handler fails and a
completed state when a streaming run returns without a final event (unary
runs keep the last persisted state).  Runs for the same task id are
serialized; runs for distinct
ids are independent.
*/
type TaskManager struct {
	store   stores.TaskStore
	handler TaskHandler
	metrics *metrics.Metrics

	cancels sync.Map // task id → struct{} while a cancel is pending
	active  sync.Map // task id → struct{} while a handler run is in flight
	runs    sync.Map // task id → *sync.Mutex serializing runs
}

type TaskManagerOption func(*TaskManager)

func WithMetrics(m *metrics.Metrics) TaskManagerOption {
	return func(tm *TaskManager) {
		tm.metrics = m
	}
}

func NewTaskManager(store stores.TaskStore, handler TaskHandler, options ...TaskManagerOption) *TaskManager {
	manager := &TaskManager{
		store:   store,
		handler: handler,
	}

	for _, option := range options {
		option(manager)
	}

	return manager
}

func validateSendParams(params a2a.TaskSendParams) *errors.RpcError {
	v := valgo.Is(
		valgo.String(params.ID, "id").Not().Blank(),
		valgo.String(params.Message.Role, "message.role").Not().Blank(),
	)

	if !v.Valid() {
		return errors.ErrInvalidParams.WithData(v.Error())
	}

	if params.Message.Parts == nil {
		return errors.ErrInvalidParams.WithMessagef("message must contain a parts array")
	}

	return nil
}

// SendTask runs the handler to completion and returns the final persisted
// task, history included.  A handler failure leaves the task in failed and
// surfaces as an internal error carrying the handler's message.
func (manager *TaskManager) SendTask(
	ctx context.Context, params a2a.TaskSendParams,
) (*a2a.Task, *errors.RpcError) {
	if rpcErr := validateSendParams(params); rpcErr != nil {
		return nil, rpcErr
	}

	unlock := manager.lockRun(params.ID)
	defer unlock()

	data, rpcErr := manager.loadOrCreate(ctx, params)
	if rpcErr != nil {
		return nil, rpcErr
	}

	final, runErr := manager.run(ctx, data, params, nil)
	if runErr != nil {
		return nil, runErr
	}

	task := final.Task.Clone()
	task.History = a2a.CloneMessages(final.History)
	return task, nil
}

// StreamTask validates and prepares the task synchronously, so protocol
// errors surface before any SSE headers are written, then drives the handler
// in the background.  The returned channel carries status and artifact
// events in yield order and is closed by the engine after the final event.
func (manager *TaskManager) StreamTask(
	ctx context.Context, params a2a.TaskSendParams,
) (<-chan any, *errors.RpcError) {
	if rpcErr := validateSendParams(params); rpcErr != nil {
		return nil, rpcErr
	}

	unlock := manager.lockRun(params.ID)

	data, rpcErr := manager.loadOrCreate(ctx, params)
	if rpcErr != nil {
		unlock()
		return nil, rpcErr
	}

	events := make(chan any, 8)

	go func() {
		defer unlock()
		defer close(events)

		_, _ = manager.run(ctx, data, params, func(evt any) {
			select {
			case events <- evt:
			case <-ctx.Done():
			}
		})
	}()

	return events, nil
}

// GetTask returns the task without its history.  historyLength is accepted
// on the wire but advisory and currently ignored.
func (manager *TaskManager) GetTask(
	ctx context.Context, id string, historyLength int,
) (*a2a.Task, *errors.RpcError) {
	if id == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("task id must not be empty")
	}

	data, rpcErr := manager.store.Load(ctx, id)
	if rpcErr != nil {
		return nil, rpcErr
	}

	task := data.Task.Clone()
	task.History = nil
	return task, nil
}

// CancelTask requests cooperative cancellation.  A terminal task is returned
// unchanged; otherwise the task id enters the cancellation set, a canceled
// status is merged and persisted, and the updated task is returned without
// waiting for the running handler to observe anything.
func (manager *TaskManager) CancelTask(
	ctx context.Context, id string,
) (*a2a.Task, *errors.RpcError) {
	if id == "" {
		return nil, errors.ErrInvalidParams.WithMessagef("task id must not be empty")
	}

	data, rpcErr := manager.store.Load(ctx, id)
	if rpcErr != nil {
		return nil, rpcErr
	}

	if data.Task.Status.State.IsTerminal() {
		log.Info("cancel requested for task already in terminal state",
			"task_id", id, "state", data.Task.Status.State)
		return data.Task.Clone(), nil
	}

	manager.cancels.Store(id, struct{}{})

	update := a2a.StatusUpdate(
		a2a.TaskStateCanceled,
		a2a.NewTextMessage(a2a.RoleAgent, "Task cancelled by request."),
	)

	next := applyUpdate(data, update)

	if saveErr := manager.store.Save(ctx, next); saveErr != nil {
		manager.cancels.Delete(id)
		return nil, saveErr.WithTaskID(id)
	}

	// When no run is in flight there is nothing left to observe the flag;
	// an active run clears it itself once it terminates.
	if _, running := manager.active.Load(id); !running {
		manager.cancels.Delete(id)
	}

	log.Info("task cancelled", "task_id", id)
	return next.Task.Clone(), nil
}

// loadOrCreate fetches the task-and-history pair or initializes a new one in
// submitted state, appends the incoming user message, applies the reopen
// transitions for terminal and input-required tasks, and persists.
func (manager *TaskManager) loadOrCreate(
	ctx context.Context, params a2a.TaskSendParams,
) (*a2a.TaskAndHistory, *errors.RpcError) {
	userMsg := params.Message
	data, loadErr := manager.store.Load(ctx, params.ID)

	switch {
	case loadErr != nil && loadErr.Code == errors.ErrTaskNotFound.Code:
		sessionID := params.SessionID
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		log.Info("creating new task", "task_id", params.ID, "session_id", sessionID)

		data = &a2a.TaskAndHistory{
			Task: &a2a.Task{
				ID:        params.ID,
				SessionID: sessionID,
				Status: a2a.TaskStatus{
					State:     a2a.TaskStateSubmitted,
					Timestamp: a2a.Now(),
				},
				Artifacts: []a2a.Artifact{},
				Metadata:  params.Metadata,
			},
			History: []a2a.Message{*userMsg.Clone()},
		}

	case loadErr != nil:
		return nil, loadErr

	default:
		data.History = append(data.History, *userMsg.Clone())

		switch {
		case data.Task.Status.State.IsTerminal():
			log.Warn("received message for task in terminal state, resetting",
				"task_id", data.Task.ID, "state", data.Task.Status.State)
			data = applyUpdate(data, a2a.StatusUpdate(a2a.TaskStateSubmitted, nil))
			data.Task.Status.Message = nil

		case data.Task.Status.State == a2a.TaskStateInputReq:
			data = applyUpdate(data, a2a.StatusUpdate(a2a.TaskStateWorking, nil))
		}
	}

	if saveErr := manager.store.Save(ctx, data); saveErr != nil {
		return nil, saveErr.WithTaskID(params.ID)
	}

	return data, nil
}

// runState tracks one handler run: the latest persisted snapshot, whether a
// terminal status was merged (after which nothing further from this run is
// merged), and whether a final event went out on the stream.
type runState struct {
	current   *a2a.TaskAndHistory
	terminal  bool
	finalSent bool
}

func (manager *TaskManager) run(
	ctx context.Context,
	data *a2a.TaskAndHistory,
	params a2a.TaskSendParams,
	emit func(any),
) (*a2a.TaskAndHistory, *errors.RpcError) {
	taskID := params.ID

	manager.active.Store(taskID, struct{}{})
	defer func() {
		manager.active.Delete(taskID)
		manager.cancels.Delete(taskID)
	}()

	state := &runState{current: data}

	tc := &TaskContext{
		Task:        *data.Task.Clone(),
		UserMessage: *params.Message.Clone(),
		History:     a2a.CloneMessages(data.History),
		cancelled: func() bool {
			_, ok := manager.cancels.Load(taskID)
			return ok
		},
	}

	tc.yield = func(update a2a.TaskYieldUpdate) *errors.RpcError {
		if state.terminal {
			return errors.ErrInternal.WithMessagef(
				"task %s already reached a terminal state in this run", taskID,
			).WithTaskID(taskID)
		}

		next := applyUpdate(state.current, update)

		if saveErr := manager.store.Save(ctx, next); saveErr != nil {
			return saveErr.WithTaskID(taskID)
		}

		state.current = next
		tc.Task = *next.Task.Clone()
		tc.History = a2a.CloneMessages(next.History)

		switch u := update.(type) {
		case a2a.TaskStatus:
			manager.metrics.ObserveUpdate("status")
			if next.Task.Status.State.IsTerminal() {
				state.terminal = true
			}
			manager.emitStatus(state, emit, next)

		case a2a.Artifact:
			manager.metrics.ObserveUpdate("artifact")
			manager.emitArtifact(state, emit, next.Task.ID, u)
		}

		return nil
	}

	handlerErr := manager.invokeHandler(ctx, tc)

	if handlerErr != nil {
		log.Error("task handler failed", "task_id", taskID, "error", handlerErr)

		if !state.terminal {
			failed := a2a.StatusUpdate(
				a2a.TaskStateFailed,
				a2a.NewTextMessage(a2a.RoleAgent, fmt.Sprintf("Handler failed: %s", handlerErr)),
			)

			next := applyUpdate(state.current, failed)

			if saveErr := manager.store.Save(ctx, next); saveErr != nil {
				log.Error("failed to persist failure status",
					"task_id", taskID, "error", saveErr)
			} else {
				state.current = next
				state.terminal = true
				manager.emitStatus(state, emit, next)
			}
		}

		return state.current, errors.ErrInternal.WithMessagef("%s", handlerErr).WithTaskID(taskID)
	}

	// Handler returned without a terminal yield.  Streaming responses still
	// owe the client exactly one final event.
	if emit != nil && !state.finalSent {
		if _, ok := manager.cancels.Load(taskID); ok {
			// A cancel landed during the run; pick up its persisted state so
			// the final event reflects it.
			if fresh, loadErr := manager.store.Load(ctx, taskID); loadErr == nil {
				state.current = fresh
			}
		}

		if !state.current.Task.Status.State.IsFinal() {
			next := applyUpdate(state.current, a2a.StatusUpdate(a2a.TaskStateCompleted, nil))

			if saveErr := manager.store.Save(ctx, next); saveErr != nil {
				log.Error("failed to persist synthesized completion",
					"task_id", taskID, "error", saveErr)
				return state.current, saveErr.WithTaskID(taskID)
			}

			state.current = next
		}

		manager.emitStatus(state, emit, state.current)
	}

	return state.current, nil
}

// invokeHandler shields the engine from handler panics: a panicking handler
// is indistinguishable from one returning its error.
func (manager *TaskManager) invokeHandler(ctx context.Context, tc *TaskContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	return manager.handler(ctx, tc)
}

func (manager *TaskManager) emitStatus(state *runState, emit func(any), data *a2a.TaskAndHistory) {
	if emit == nil || state.finalSent {
		return
	}

	evt := a2a.TaskStatusUpdateEvent{
		ID:     data.Task.ID,
		Status: data.Task.Status.Clone(),
		Final:  data.Task.Status.State.IsFinal(),
	}

	emit(evt)

	if evt.Final {
		state.finalSent = true
	}
}

func (manager *TaskManager) emitArtifact(state *runState, emit func(any), taskID string, artifact a2a.Artifact) {
	if emit == nil || state.finalSent {
		return
	}

	emit(a2a.TaskArtifactUpdateEvent{
		ID:       taskID,
		Artifact: artifact.Clone(),
		Final:    false,
	})
}

func (manager *TaskManager) lockRun(id string) func() {
	muAny, _ := manager.runs.LoadOrStore(id, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
