package stores

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
)

func sampleData(id string) *a2a.TaskAndHistory {
	name := "out.txt"
	idx := 1

	return &a2a.TaskAndHistory{
		Task: &a2a.Task{
			ID:        id,
			SessionID: "session-1",
			Status: a2a.TaskStatus{
				State:     a2a.TaskStateWorking,
				Message:   a2a.NewTextMessage(a2a.RoleAgent, "busy"),
				Timestamp: a2a.Now(),
			},
			Artifacts: []a2a.Artifact{
				{
					Name:  &name,
					Index: &idx,
					Parts: []a2a.Part{a2a.NewTextPart("chunk")},
				},
			},
			Metadata: map[string]any{"origin": "test"},
		},
		History: []a2a.Message{
			*a2a.NewTextMessage(a2a.RoleUser, "hi"),
			*a2a.NewTextMessage(a2a.RoleAgent, "busy"),
		},
	}
}

func TestInMemoryStoreLoadNotFound(t *testing.T) {
	store := NewInMemoryTaskStore()

	_, rpcErr := store.Load(context.Background(), "missing")

	require.NotNil(t, rpcErr)
	assert.Equal(t, -32001, rpcErr.Code)
}

func TestInMemoryStoreRoundTrip(t *testing.T) {
	store := NewInMemoryTaskStore()
	data := sampleData("t1")

	require.Nil(t, store.Save(context.Background(), data))

	loaded, rpcErr := store.Load(context.Background(), "t1")
	require.Nil(t, rpcErr)

	if diff := cmp.Diff(data, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestInMemoryStoreReturnsCopies(t *testing.T) {
	store := NewInMemoryTaskStore()
	data := sampleData("t2")

	require.Nil(t, store.Save(context.Background(), data))

	// mutating what the caller handed in must not reach stored state
	data.Task.Status.State = a2a.TaskStateFailed
	data.History[0].Parts[0].Text = "tampered"

	loaded, rpcErr := store.Load(context.Background(), "t2")
	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateWorking, loaded.Task.Status.State)
	assert.Equal(t, "hi", loaded.History[0].Parts[0].Text)

	// and mutating a loaded copy must not reach stored state either
	loaded.Task.Artifacts[0].Parts[0].Text = "tampered"

	again, rpcErr := store.Load(context.Background(), "t2")
	require.Nil(t, rpcErr)
	assert.Equal(t, "chunk", again.Task.Artifacts[0].Parts[0].Text)
}

func TestInMemoryStoreSaveOverwrites(t *testing.T) {
	store := NewInMemoryTaskStore()

	first := sampleData("t3")
	require.Nil(t, store.Save(context.Background(), first))

	second := sampleData("t3")
	second.Task.Status.State = a2a.TaskStateCompleted
	require.Nil(t, store.Save(context.Background(), second))

	loaded, rpcErr := store.Load(context.Background(), "t3")
	require.Nil(t, rpcErr)
	assert.Equal(t, a2a.TaskStateCompleted, loaded.Task.Status.State)
}

func TestSafeIDRejectsTraversal(t *testing.T) {
	for _, id := range []string{"../escape", "a/b", `a\b`, "..", "nested/../up"} {
		_, rpcErr := SafeID(id)

		require.NotNil(t, rpcErr, "id %q should be rejected", id)
		assert.Equal(t, -32602, rpcErr.Code)
	}

	for _, id := range []string{"t1", "task-42", "UUID.v4", "a.b.c"} {
		safe, rpcErr := SafeID(id)

		require.Nil(t, rpcErr, "id %q should be accepted", id)
		assert.Equal(t, id, safe)
	}
}
