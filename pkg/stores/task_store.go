package stores

import (
	"context"
	"strings"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
)

/*
TaskStore persists (Task, History) pairs keyed by task id.  Load returns
ErrTaskNotFound for unknown ids.  Both operations exchange deep copies so
callers can never mutate stored state.  Save calls for the same task id are
serialized by every implementation; beyond that, stores are single-process
abstractions and do not coordinate across processes.
*/
type TaskStore interface {
	Load(ctx context.Context, id string) (*a2a.TaskAndHistory, *errors.RpcError)
	Save(ctx context.Context, data *a2a.TaskAndHistory) *errors.RpcError
}

/*
SafeID validates a task id for use as a storage key.  Ids containing path
separators or parent references would escape the store's namespace and are
rejected with an invalid-params error.
*/
func SafeID(id string) (string, *errors.RpcError) {
	if id == "" {
		return "", errors.ErrInvalidParams.WithMessagef("task id must not be empty")
	}

	if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", errors.ErrInvalidParams.WithMessagef(
			"invalid task id %q: path separators and parent references are not allowed", id,
		)
	}

	return id, nil
}
