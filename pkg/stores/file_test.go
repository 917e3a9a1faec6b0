package stores

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileTaskStore(t.TempDir())
	data := sampleData("t1")

	require.Nil(t, store.Save(context.Background(), data))

	loaded, rpcErr := store.Load(context.Background(), "t1")
	require.Nil(t, rpcErr)

	if diff := cmp.Diff(data, loaded); diff != "" {
		t.Errorf("round trip mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestFileStoreWritesTwoFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTaskStore(dir)

	require.Nil(t, store.Save(context.Background(), sampleData("t2")))

	taskBuf, err := os.ReadFile(filepath.Join(dir, "t2.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(taskBuf), "messageHistory")

	histBuf, err := os.ReadFile(filepath.Join(dir, "t2.history.json"))
	require.NoError(t, err)
	assert.Contains(t, string(histBuf), "messageHistory")
}

func TestFileStoreLoadNotFound(t *testing.T) {
	store := NewFileTaskStore(t.TempDir())

	_, rpcErr := store.Load(context.Background(), "missing")

	require.NotNil(t, rpcErr)
	assert.Equal(t, -32001, rpcErr.Code)
}

func TestFileStoreRejectsTraversalIDs(t *testing.T) {
	store := NewFileTaskStore(t.TempDir())

	_, rpcErr := store.Load(context.Background(), "../escape")
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32602, rpcErr.Code)

	data := sampleData("ok")
	data.Task.ID = "../escape"

	saveErr := store.Save(context.Background(), data)
	require.NotNil(t, saveErr)
	assert.Equal(t, -32602, saveErr.Code)
}

func TestFileStoreMissingHistoryYieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTaskStore(dir)

	require.Nil(t, store.Save(context.Background(), sampleData("t3")))
	require.NoError(t, os.Remove(filepath.Join(dir, "t3.history.json")))

	loaded, rpcErr := store.Load(context.Background(), "t3")
	require.Nil(t, rpcErr)
	assert.Empty(t, loaded.History)
	assert.Equal(t, "t3", loaded.Task.ID)
}

func TestFileStoreMalformedHistoryYieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTaskStore(dir)

	require.Nil(t, store.Save(context.Background(), sampleData("t4")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "t4.history.json"), []byte("{nope"), 0o644))

	loaded, rpcErr := store.Load(context.Background(), "t4")
	require.Nil(t, rpcErr)
	assert.Empty(t, loaded.History)
}

func TestFileStoreCreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "tasks")
	store := NewFileTaskStore(dir)

	require.Nil(t, store.Save(context.Background(), sampleData("t5")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
