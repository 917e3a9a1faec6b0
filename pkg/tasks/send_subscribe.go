package tasks

import (
	"context"
	"encoding/json"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
)

func SendSubscribe(
	ctx context.Context,
	raw json.RawMessage,
	tm TaskManager,
) (<-chan any, *errors.RpcError) {
	var params a2a.TaskSendParams

	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, errors.ErrInvalidParams.WithData(err.Error())
	}

	stream, rpcErr := tm.StreamTask(ctx, params)

	if rpcErr != nil {
		return nil, rpcErr
	}

	return stream, nil
}
