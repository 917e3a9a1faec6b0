package service

import (
	"context"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
)

/*
EchoHandler is a trivial reference handler that echoes the incoming text
back as an artifact.  It demonstrates the handler contract and makes the
out-of-the-box server experience pleasant.
*/
func EchoHandler(ctx context.Context, tc *TaskContext) error {
	if err := tc.Yield(a2a.StatusUpdate(
		a2a.TaskStateWorking,
		a2a.NewTextMessage(a2a.RoleAgent, "working"),
	)); err != nil {
		return err
	}

	if tc.Cancelled() {
		return tc.Yield(a2a.StatusUpdate(a2a.TaskStateCanceled, nil))
	}

	name := "echo.txt"
	index := 0

	if err := tc.Yield(a2a.Artifact{
		Name:  &name,
		Index: &index,
		Parts: []a2a.Part{a2a.NewTextPart(tc.UserMessage.String())},
	}); err != nil {
		return err
	}

	return tc.Yield(a2a.StatusUpdate(
		a2a.TaskStateCompleted,
		a2a.NewTextMessage(a2a.RoleAgent, "done"),
	))
}
