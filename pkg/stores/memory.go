package stores

import (
	"context"
	"sync"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
)

/*
InMemoryTaskStore is the default TaskStore: a mutex-guarded map living for
the lifetime of the process.  Perfectly sufficient for dev & unit tests;
deployments wanting durability swap in the file or S3 store.
*/
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.TaskAndHistory
}

func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*a2a.TaskAndHistory),
	}
}

func (store *InMemoryTaskStore) Load(
	ctx context.Context, id string,
) (*a2a.TaskAndHistory, *errors.RpcError) {
	store.mu.RLock()
	data, ok := store.tasks[id]
	store.mu.RUnlock()

	if !ok {
		return nil, errors.ErrTaskNotFound.WithTaskID(id)
	}

	return data.Clone(), nil
}

func (store *InMemoryTaskStore) Save(
	ctx context.Context, data *a2a.TaskAndHistory,
) *errors.RpcError {
	if data == nil || data.Task == nil || data.Task.ID == "" {
		return errors.ErrInvalidParams.WithMessagef("cannot save a task without an id")
	}

	store.mu.Lock()
	store.tasks[data.Task.ID] = data.Clone()
	store.mu.Unlock()

	return nil
}
