package service

import (
	"sort"

	"github.com/theapemachine/a2a-srv/pkg/a2a"
)

/*
applyUpdate merges one handler yield into a (Task, History) snapshot and
returns a new snapshot.  Inputs are never mutated; Status.Timestamp is
refreshed on every merge.

Status path: the new status is the old status overlaid with the update's
fields, and an agent-role message is appended to history.  Artifact path:
an in-bounds index appends to or replaces the slot, a matching name
replaces, anything else appends; whenever any artifact carries an explicit
index the list is re-sorted ascending (missing indices sort as 0).
*/
func applyUpdate(current *a2a.TaskAndHistory, update a2a.TaskYieldUpdate) *a2a.TaskAndHistory {
	next := current.Clone()

	switch u := update.(type) {
	case a2a.TaskStatus:
		status := next.Task.Status
		status.State = u.State

		if u.Message != nil {
			status.Message = u.Message.Clone()

			if u.Message.Role == a2a.RoleAgent {
				next.History = append(next.History, *u.Message.Clone())
			}
		}

		status.Timestamp = a2a.Now()
		next.Task.Status = status

	case a2a.Artifact:
		mergeArtifact(next.Task, u)
	}

	return next
}

func mergeArtifact(task *a2a.Task, update a2a.Artifact) {
	u := update.Clone()

	if u.Index != nil && *u.Index >= 0 && *u.Index < len(task.Artifacts) {
		slot := *u.Index

		if u.Append != nil && *u.Append {
			existing := task.Artifacts[slot].Clone()
			existing.Parts = append(existing.Parts, u.Parts...)

			if len(u.Metadata) > 0 {
				if existing.Metadata == nil {
					existing.Metadata = make(map[string]any, len(u.Metadata))
				}
				for k, v := range u.Metadata {
					existing.Metadata[k] = v
				}
			}
			if u.LastChunk != nil {
				existing.LastChunk = u.LastChunk
			}
			if u.Description != nil {
				existing.Description = u.Description
			}

			task.Artifacts[slot] = existing
			return
		}

		task.Artifacts[slot] = u
		return
	}

	if u.Name != nil {
		for i := range task.Artifacts {
			if task.Artifacts[i].Name != nil && *task.Artifacts[i].Name == *u.Name {
				task.Artifacts[i] = u
				return
			}
		}
	}

	task.Artifacts = append(task.Artifacts, u)

	for i := range task.Artifacts {
		if task.Artifacts[i].Index != nil {
			sort.SliceStable(task.Artifacts, func(a, b int) bool {
				return task.Artifacts[a].SortIndex() < task.Artifacts[b].SortIndex()
			})
			return
		}
	}
}
