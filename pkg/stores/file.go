package stores

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
)

// DefaultTaskDir is the hidden sub-directory of the working directory used
// when no base directory is configured.
const DefaultTaskDir = ".a2a-tasks"

/*
FileTaskStore persists each task as two JSON files under a base directory:
<safeId>.json for the task and <safeId>.history.json for the history wrapped
as {"messageHistory": [...]}.  The two writes are not crash-atomic; a
post-crash load may observe old history alongside a new task, which the
system tolerates.
*/
type FileTaskStore struct {
	mu      sync.Mutex
	baseDir string
}

func NewFileTaskStore(baseDir string) *FileTaskStore {
	if baseDir == "" {
		baseDir = DefaultTaskDir
	}

	return &FileTaskStore{baseDir: baseDir}
}

func (store *FileTaskStore) taskPath(safeID string) string {
	return filepath.Join(store.baseDir, safeID+".json")
}

func (store *FileTaskStore) historyPath(safeID string) string {
	return filepath.Join(store.baseDir, safeID+".history.json")
}

func (store *FileTaskStore) Load(
	ctx context.Context, id string,
) (*a2a.TaskAndHistory, *errors.RpcError) {
	safeID, rpcErr := SafeID(id)
	if rpcErr != nil {
		return nil, rpcErr
	}

	buf, err := os.ReadFile(store.taskPath(safeID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ErrTaskNotFound.WithTaskID(id)
		}
		return nil, errors.ErrInternal.WithMessagef(
			"failed to read task file: %v", err,
		).WithTaskID(id)
	}

	var task a2a.Task
	if err := json.Unmarshal(buf, &task); err != nil {
		return nil, errors.ErrInternal.WithMessagef(
			"failed to parse task file: %v", err,
		).WithTaskID(id)
	}

	// History is best-effort: a missing or malformed history file degrades to
	// an empty history, never an error.
	history := []a2a.Message{}

	histBuf, err := os.ReadFile(store.historyPath(safeID))
	switch {
	case err != nil && os.IsNotExist(err):
		log.Warn("task history file missing, starting with empty history", "task_id", id)
	case err != nil:
		log.Warn("failed to read task history file", "task_id", id, "error", err)
	default:
		var wrapped a2a.TaskHistory
		if err := json.Unmarshal(histBuf, &wrapped); err != nil {
			log.Warn("malformed task history file, starting with empty history", "task_id", id, "error", err)
		} else if wrapped.MessageHistory != nil {
			history = wrapped.MessageHistory
		}
	}

	return &a2a.TaskAndHistory{Task: &task, History: history}, nil
}

func (store *FileTaskStore) Save(
	ctx context.Context, data *a2a.TaskAndHistory,
) *errors.RpcError {
	if data == nil || data.Task == nil {
		return errors.ErrInvalidParams.WithMessagef("cannot save a nil task")
	}

	safeID, rpcErr := SafeID(data.Task.ID)
	if rpcErr != nil {
		return rpcErr
	}

	task := data.Task.Clone()
	task.History = nil // history lives in its own file

	taskBuf, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return errors.ErrInternal.WithMessagef(
			"failed to marshal task: %v", err,
		).WithTaskID(task.ID)
	}

	history := data.History
	if history == nil {
		history = []a2a.Message{}
	}

	histBuf, err := json.MarshalIndent(a2a.TaskHistory{MessageHistory: history}, "", "  ")
	if err != nil {
		return errors.ErrInternal.WithMessagef(
			"failed to marshal task history: %v", err,
		).WithTaskID(task.ID)
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if err := os.MkdirAll(store.baseDir, 0o755); err != nil {
		return errors.ErrInternal.WithMessagef(
			"failed to create task directory: %v", err,
		).WithTaskID(task.ID)
	}

	// The two files carry independent halves of the pair; write order is
	// irrelevant, so both go out in parallel.
	grp, _ := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return os.WriteFile(store.taskPath(safeID), taskBuf, 0o644)
	})
	grp.Go(func() error {
		return os.WriteFile(store.historyPath(safeID), histBuf, 0o644)
	})

	if err := grp.Wait(); err != nil {
		return errors.ErrInternal.WithMessagef(
			"failed to write task files: %v", err,
		).WithTaskID(task.ID)
	}

	return nil
}
