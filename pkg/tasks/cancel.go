package tasks

import (
	"context"
	"encoding/json"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
)

func Cancel(
	ctx context.Context,
	raw json.RawMessage,
	tm TaskManager,
) (any, *errors.RpcError) {
	var params a2a.TaskCancelParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.ErrInvalidParams.WithData(err.Error())
	}

	task, rpcErr := tm.CancelTask(ctx, params.ID)

	if rpcErr != nil {
		return nil, rpcErr
	}

	return task, nil
}
