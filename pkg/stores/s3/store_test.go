package s3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
)

// newOfflineStore builds a store around an unconnected client: only the
// paths that fail before reaching object storage can be exercised without a
// live endpoint, matching how the other stores' validation is tested.
func newOfflineStore(t *testing.T) *Store {
	t.Helper()

	conn, err := NewConn("localhost:9000", "access", "secret", false)
	require.NoError(t, err)

	return &Store{conn: conn, bucket: "a2a-tasks"}
}

func TestNewConn(t *testing.T) {
	conn, err := NewConn("localhost:9000", "access", "secret", false)

	require.NoError(t, err)
	assert.NotNil(t, conn.client)
}

func TestS3StoreRejectsTraversalIDs(t *testing.T) {
	store := newOfflineStore(t)

	_, rpcErr := store.Load(context.Background(), "../escape")
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)

	data := &a2a.TaskAndHistory{
		Task: &a2a.Task{
			ID: "../escape",
			Status: a2a.TaskStatus{
				State:     a2a.TaskStateSubmitted,
				Timestamp: a2a.Now(),
			},
		},
		History: []a2a.Message{},
	}

	saveErr := store.Save(context.Background(), data)
	require.NotNil(t, saveErr)
	assert.Equal(t, -32602, saveErr.Code)
}

func TestS3StoreRejectsNilTask(t *testing.T) {
	store := newOfflineStore(t)

	saveErr := store.Save(context.Background(), nil)
	require.NotNil(t, saveErr)
	assert.Equal(t, -32602, saveErr.Code)

	saveErr = store.Save(context.Background(), &a2a.TaskAndHistory{})
	require.NotNil(t, saveErr)
	assert.Equal(t, -32602, saveErr.Code)
}

func TestIsNoSuchKey(t *testing.T) {
	assert.False(t, isNoSuchKey(nil))
	assert.False(t, isNoSuchKey(context.Canceled))
}
