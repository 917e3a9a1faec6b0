package tasks

import (
	"context"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
)

/*
TaskManager is the engine surface the RPC method handlers dispatch into.
*/
type TaskManager interface {
	SendTask(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, *errors.RpcError)
	GetTask(ctx context.Context, id string, historyLength int) (*a2a.Task, *errors.RpcError)
	CancelTask(ctx context.Context, id string) (*a2a.Task, *errors.RpcError)

	// StreamTask starts processing the task and returns a read-only channel
	// from which the caller receives TaskStatusUpdateEvent or
	// TaskArtifactUpdateEvent values until the run finishes (the final flag
	// is set on the last status event).  The engine closes the channel.
	StreamTask(ctx context.Context, params a2a.TaskSendParams) (<-chan any, *errors.RpcError)
}
