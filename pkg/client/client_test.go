package client

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
	"github.com/theapemachine/a2a-srv/pkg/auth"
	"github.com/theapemachine/a2a-srv/pkg/service"
	"github.com/theapemachine/a2a-srv/pkg/stores"
)

func newEchoServer(t *testing.T, options ...service.ServerOption) *httptest.Server {
	t.Helper()

	manager := service.NewTaskManager(stores.NewInMemoryTaskStore(), service.EchoHandler)

	server := service.NewA2AServer(a2a.AgentCard{
		Name:    "Echo",
		URL:     "http://localhost/",
		Version: "0.0.1",
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
	}, manager, options...)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func sendParams(id, text string) a2a.TaskSendParams {
	return a2a.TaskSendParams{
		ID:      id,
		Message: *a2a.NewTextMessage(a2a.RoleUser, text),
	}
}

func TestClientSendTask(t *testing.T) {
	ts := newEchoServer(t)
	c := New(ts.URL)

	task, err := c.SendTask(sendParams("c1", "hello"))
	require.NoError(t, err)

	assert.Equal(t, "c1", task.ID)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	require.Len(t, task.Artifacts, 1)
	assert.Equal(t, "hello", task.Artifacts[0].Parts[0].Text)
}

func TestClientGetTask(t *testing.T) {
	ts := newEchoServer(t)
	c := New(ts.URL)

	_, err := c.SendTask(sendParams("c2", "hello"))
	require.NoError(t, err)

	task, err := c.GetTask("c2")
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	assert.Empty(t, task.History)
}

func TestClientErrorsSurfaceAsRpcErrors(t *testing.T) {
	ts := newEchoServer(t)
	c := New(ts.URL)

	_, err := c.GetTask("does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-32001")
}

func TestClientSendTaskSubscribe(t *testing.T) {
	ts := newEchoServer(t)
	c := New(ts.URL)

	var events []StreamEvent

	err := c.SendTaskSubscribe(context.Background(), sendParams("c3", "stream me"),
		func(evt StreamEvent) {
			events = append(events, evt)
		})
	require.NoError(t, err)

	require.NotEmpty(t, events)

	last := events[len(events)-1]
	assert.True(t, last.Final)
	require.NotNil(t, last.Status)
	assert.Equal(t, a2a.TaskStateCompleted, last.Status.State)

	sawArtifact := false
	for _, evt := range events {
		if evt.Artifact != nil {
			sawArtifact = true
			assert.Equal(t, "stream me", evt.Artifact.Parts[0].Text)
		}
	}
	assert.True(t, sawArtifact)
}

func TestClientSignerPassesGate(t *testing.T) {
	gate := auth.NewGate()
	ts := newEchoServer(t, service.WithGate(gate))

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	unsigned := New(ts.URL)
	_, err = unsigned.SendTask(sendParams("c4", "hi"))
	require.Error(t, err)

	signed := New(ts.URL, WithSigner(NewSigner(priv)))
	task, err := signed.SendTask(sendParams("c4", "hi"))
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
}
