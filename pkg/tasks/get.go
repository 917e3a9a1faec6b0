package tasks

import (
	"context"
	"encoding/json"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
)

func Get(
	ctx context.Context,
	raw json.RawMessage,
	tm TaskManager,
) (any, *errors.RpcError) {
	var params a2a.TaskGetParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.ErrInvalidParams.WithData(err.Error())
	}

	task, rpcErr := tm.GetTask(ctx, params.ID, params.HistoryLength)

	if rpcErr != nil {
		return nil, rpcErr
	}

	return task, nil
}
