package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/errors"
	"github.com/theapemachine/a2a-srv/pkg/stores"
)

/*
Store is a TaskStore backed by S3-compatible object storage.  It mirrors the
file store's layout: per task id one <safeId>.json object and one
<safeId>.history.json object in a single bucket.
*/
type Store struct {
	mu     sync.Mutex
	conn   *Conn
	bucket string
}

/*
NewStore creates an S3-based task store on the given connection, ensuring
the bucket exists.
*/
func NewStore(ctx context.Context, conn *Conn, bucket string) (*Store, error) {
	if err := conn.EnsureBucket(ctx, bucket); err != nil {
		return nil, err
	}

	return &Store{conn: conn, bucket: bucket}, nil
}

func (store *Store) Load(
	ctx context.Context, id string,
) (*a2a.TaskAndHistory, *errors.RpcError) {
	safeID, rpcErr := stores.SafeID(id)
	if rpcErr != nil {
		return nil, rpcErr
	}

	buf, err := store.conn.Get(ctx, store.bucket, safeID+".json")
	if err != nil {
		if isNoSuchKey(err) {
			return nil, errors.ErrTaskNotFound.WithTaskID(id)
		}
		return nil, errors.ErrInternal.WithMessagef(
			"failed to get task object: %v", err,
		).WithTaskID(id)
	}

	var task a2a.Task
	if err := json.Unmarshal(buf, &task); err != nil {
		return nil, errors.ErrInternal.WithMessagef(
			"failed to unmarshal task object: %v", err,
		).WithTaskID(id)
	}

	history := []a2a.Message{}

	histBuf, err := store.conn.Get(ctx, store.bucket, safeID+".history.json")
	switch {
	case err != nil && isNoSuchKey(err):
		log.Warn("task history object missing, starting with empty history", "task_id", id)
	case err != nil:
		log.Warn("failed to get task history object", "task_id", id, "error", err)
	default:
		var wrapped a2a.TaskHistory
		if err := json.Unmarshal(histBuf, &wrapped); err != nil {
			log.Warn("malformed task history object, starting with empty history", "task_id", id, "error", err)
		} else if wrapped.MessageHistory != nil {
			history = wrapped.MessageHistory
		}
	}

	return &a2a.TaskAndHistory{Task: &task, History: history}, nil
}

func (store *Store) Save(
	ctx context.Context, data *a2a.TaskAndHistory,
) *errors.RpcError {
	if data == nil || data.Task == nil {
		return errors.ErrInvalidParams.WithMessagef("cannot save a nil task")
	}

	safeID, rpcErr := stores.SafeID(data.Task.ID)
	if rpcErr != nil {
		return rpcErr
	}

	task := data.Task.Clone()
	task.History = nil

	taskBuf, err := json.Marshal(task)
	if err != nil {
		return errors.ErrInternal.WithMessagef(
			"failed to marshal task: %v", err,
		).WithTaskID(task.ID)
	}

	history := data.History
	if history == nil {
		history = []a2a.Message{}
	}

	histBuf, err := json.Marshal(a2a.TaskHistory{MessageHistory: history})
	if err != nil {
		return errors.ErrInternal.WithMessagef(
			"failed to marshal task history: %v", err,
		).WithTaskID(task.ID)
	}

	// Save calls are serialized so a cancel's save and a handler's save can
	// never interleave their two object writes for the same task.
	store.mu.Lock()
	defer store.mu.Unlock()

	grp, grpCtx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return store.conn.Put(grpCtx, store.bucket, safeID+".json", bytes.NewReader(taskBuf), int64(len(taskBuf)))
	})
	grp.Go(func() error {
		return store.conn.Put(grpCtx, store.bucket, safeID+".history.json", bytes.NewReader(histBuf), int64(len(histBuf)))
	})

	if err := grp.Wait(); err != nil {
		log.Error("failed to store task objects", "task_id", task.ID, "error", err)
		return errors.ErrInternal.WithMessagef(
			"failed to store task objects: %v", err,
		).WithTaskID(task.ID)
	}

	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
