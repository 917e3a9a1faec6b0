package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
)

func seedData() *a2a.TaskAndHistory {
	return &a2a.TaskAndHistory{
		Task: &a2a.Task{
			ID: "t1",
			Status: a2a.TaskStatus{
				State:     a2a.TaskStateSubmitted,
				Timestamp: a2a.Now(),
			},
			Artifacts: []a2a.Artifact{},
		},
		History: []a2a.Message{
			*a2a.NewTextMessage(a2a.RoleUser, "hi"),
		},
	}
}

func TestApplyStatusUpdate(t *testing.T) {
	data := seedData()

	next := applyUpdate(data, a2a.StatusUpdate(
		a2a.TaskStateWorking,
		a2a.NewTextMessage(a2a.RoleAgent, "working"),
	))

	assert.Equal(t, a2a.TaskStateWorking, next.Task.Status.State)
	assert.Len(t, next.History, 2)
	assert.Equal(t, a2a.RoleAgent, next.History[1].Role)
	assert.Equal(t, "working", next.History[1].String())

	// original snapshot untouched
	assert.Equal(t, a2a.TaskStateSubmitted, data.Task.Status.State)
	assert.Len(t, data.History, 1)
}

func TestApplyStatusUpdateUserMessageNotAppended(t *testing.T) {
	data := seedData()

	next := applyUpdate(data, a2a.StatusUpdate(
		a2a.TaskStateWorking,
		a2a.NewTextMessage(a2a.RoleUser, "still me"),
	))

	assert.Len(t, next.History, 1)
}

func TestApplyStatusUpdateRefreshesTimestamp(t *testing.T) {
	data := seedData()
	before := data.Task.Status.Timestamp

	next := applyUpdate(data, a2a.StatusUpdate(a2a.TaskStateWorking, nil))

	assert.False(t, next.Task.Status.Timestamp.Before(before.Time))
}

func TestApplyStatusUpdateKeepsMessageWhenAbsent(t *testing.T) {
	data := seedData()
	data.Task.Status.Message = a2a.NewTextMessage(a2a.RoleAgent, "previous")

	next := applyUpdate(data, a2a.StatusUpdate(a2a.TaskStateWorking, nil))

	assert.NotNil(t, next.Task.Status.Message)
	assert.Equal(t, "previous", next.Task.Status.Message.String())
}

func TestMergerIsPure(t *testing.T) {
	left := seedData()
	right := seedData()
	// pin the timestamps so the two snapshots are value-equal
	right.Task.Status.Timestamp = left.Task.Status.Timestamp

	update := a2a.StatusUpdate(a2a.TaskStateWorking, a2a.NewTextMessage(a2a.RoleAgent, "x"))

	a := applyUpdate(left, update)
	b := applyUpdate(right, update)

	// equal inputs, equal outputs modulo the refreshed timestamp
	b.Task.Status.Timestamp = a.Task.Status.Timestamp

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("merger produced different snapshots (-a +b):\n%s", diff)
	}
}

func TestArtifactAppendByIndex(t *testing.T) {
	data := seedData()

	name := "out.txt"
	idx := 0
	appendFlag := true
	lastChunk := true

	data = applyUpdate(data, a2a.Artifact{
		Name:  &name,
		Index: &idx,
		Parts: []a2a.Part{a2a.NewTextPart("A")},
	})

	data = applyUpdate(data, a2a.Artifact{
		Name:      &name,
		Index:     &idx,
		Append:    &appendFlag,
		LastChunk: &lastChunk,
		Parts:     []a2a.Part{a2a.NewTextPart("B")},
	})

	assert.Len(t, data.Task.Artifacts, 1)

	artifact := data.Task.Artifacts[0]
	assert.Equal(t, "out.txt", *artifact.Name)
	assert.Len(t, artifact.Parts, 2)
	assert.Equal(t, "A", artifact.Parts[0].Text)
	assert.Equal(t, "B", artifact.Parts[1].Text)
	assert.True(t, *artifact.LastChunk)
}

func TestArtifactReplaceByIndex(t *testing.T) {
	data := seedData()

	idx := 0
	data = applyUpdate(data, a2a.Artifact{
		Index: &idx,
		Parts: []a2a.Part{a2a.NewTextPart("old")},
	})
	data = applyUpdate(data, a2a.Artifact{
		Index: &idx,
		Parts: []a2a.Part{a2a.NewTextPart("new")},
	})

	assert.Len(t, data.Task.Artifacts, 1)
	assert.Equal(t, "new", data.Task.Artifacts[0].Parts[0].Text)
}

func TestArtifactReplaceByName(t *testing.T) {
	data := seedData()

	name := "report"
	data = applyUpdate(data, a2a.Artifact{
		Name:  &name,
		Parts: []a2a.Part{a2a.NewTextPart("v1")},
	})
	// no index: out-of-bounds path falls through to the name match
	data = applyUpdate(data, a2a.Artifact{
		Name:  &name,
		Parts: []a2a.Part{a2a.NewTextPart("v2")},
	})

	assert.Len(t, data.Task.Artifacts, 1)
	assert.Equal(t, "v2", data.Task.Artifacts[0].Parts[0].Text)
}

func TestArtifactsSortedByIndexAfterMerge(t *testing.T) {
	data := seedData()

	two := 2
	zero := 0

	nameA := "a"
	nameB := "b"
	nameC := "c"

	data = applyUpdate(data, a2a.Artifact{Name: &nameA, Index: &two, Parts: []a2a.Part{a2a.NewTextPart("a")}})
	data = applyUpdate(data, a2a.Artifact{Name: &nameB, Parts: []a2a.Part{a2a.NewTextPart("b")}})
	data = applyUpdate(data, a2a.Artifact{Name: &nameC, Index: &zero, Parts: []a2a.Part{a2a.NewTextPart("c")}})

	for i := 1; i < len(data.Task.Artifacts); i++ {
		assert.LessOrEqual(t,
			data.Task.Artifacts[i-1].SortIndex(),
			data.Task.Artifacts[i].SortIndex(),
		)
	}
}

func TestHistoryIsAppendOnly(t *testing.T) {
	data := seedData()

	next := applyUpdate(data, a2a.StatusUpdate(
		a2a.TaskStateWorking,
		a2a.NewTextMessage(a2a.RoleAgent, "step"),
	))

	assert.GreaterOrEqual(t, len(next.History), len(data.History))

	for i := range data.History {
		if diff := cmp.Diff(data.History[i], next.History[i]); diff != "" {
			t.Errorf("history prefix rewritten at %d:\n%s", i, diff)
		}
	}
}
