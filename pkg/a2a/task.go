package a2a

/*
Task is the unit of work tracked by the server.  History is populated on
tasks/send responses only; the persisted task and its history travel as a
TaskAndHistory pair.
*/
type Task struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId,omitempty"`
	Status    TaskStatus     `json:"status"`
	History   []Message      `json:"history,omitempty"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func (task *Task) Clone() *Task {
	if task == nil {
		return nil
	}

	out := *task
	out.Status = task.Status.Clone()
	out.History = CloneMessages(task.History)
	out.Artifacts = CloneArtifacts(task.Artifacts)
	out.Metadata = cloneMetadata(task.Metadata)
	return &out
}

/*
TaskAndHistory is the atomic unit of persistence: stores load and save the
pair together.
*/
type TaskAndHistory struct {
	Task    *Task
	History []Message
}

func (data *TaskAndHistory) Clone() *TaskAndHistory {
	if data == nil {
		return nil
	}

	return &TaskAndHistory{
		Task:    data.Task.Clone(),
		History: CloneMessages(data.History),
	}
}

// TaskHistory is the on-disk wrapper for a task's message history.
type TaskHistory struct {
	// MessageHistory is the list of messages in chronological order.
	MessageHistory []Message `json:"messageHistory"`
}

// TaskSendParams represents the parameters for tasks/send and
// tasks/sendSubscribe.
type TaskSendParams struct {
	// ID is the unique identifier for the task being initiated or continued.
	ID string `json:"id"`
	// SessionID is an optional identifier for the session this task belongs to.
	SessionID string `json:"sessionId,omitempty"`
	// Message is the message content to send to the agent for processing.
	Message Message `json:"message"`
	// Metadata is optional metadata associated with sending this message.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskGetParams represents the parameters for tasks/get.  HistoryLength is
// advisory and currently ignored.
type TaskGetParams struct {
	ID            string         `json:"id"`
	HistoryLength int            `json:"historyLength,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// TaskCancelParams represents the parameters for tasks/cancel.
type TaskCancelParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
