package a2a

import (
	"encoding/json"
	"time"
)

/*
TaskState enumerates the mutually-exclusive states a task may be in.  The
zero value is the empty string; "unknown" is spelled out as TaskStateUnknown.
*/
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateInputReq  TaskState = "input-required"
	TaskStateCompleted TaskState = "completed"
	TaskStateCanceled  TaskState = "canceled"
	TaskStateFailed    TaskState = "failed"
	TaskStateUnknown   TaskState = "unknown"
)

// IsTerminal reports whether the state ends a task run for good.
func (s TaskState) IsTerminal() bool {
	return s == TaskStateCompleted || s == TaskStateCanceled || s == TaskStateFailed
}

// IsFinal reports whether the state closes a stream.  input-required is
// quasi-terminal: it terminates the stream but a subsequent client message
// reopens the task.
func (s TaskState) IsFinal() bool {
	return s.IsTerminal() || s == TaskStateInputReq
}

type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp Timestamp `json:"timestamp,omitempty"`
}

func (status TaskStatus) Clone() TaskStatus {
	out := status
	out.Message = status.Message.Clone()
	return out
}

/*
Timestamp is a wall-clock instant serialized as ISO-8601 UTC with millisecond
precision.
*/
type Timestamp struct {
	time.Time
}

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Now returns the current instant truncated to millisecond precision.
func Now() Timestamp {
	return Timestamp{time.Now().UTC().Truncate(time.Millisecond)}
}

// Equal reports whether two timestamps denote the same instant.
func (t Timestamp) Equal(u Timestamp) bool {
	return t.Time.Equal(u.Time)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(timestampLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(timestampLayout, raw)
	if err != nil {
		// Tolerate full RFC 3339 stamps written by other implementations.
		if parsed, err = time.Parse(time.RFC3339Nano, raw); err != nil {
			return err
		}
	}
	t.Time = parsed.UTC()
	return nil
}
