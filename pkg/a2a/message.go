package a2a

import "strings"

const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

/*
Message represents all non-artifact communication between client & agent.
*/
type Message struct {
	Role     string         `json:"role"` // "user" or "agent"
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func NewTextMessage(role string, text string) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeText, Text: text},
		},
	}
}

func NewFileMessage(role string, file *FilePart) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeFile, File: file},
		},
	}
}

func NewDataMessage(role string, data map[string]any) *Message {
	return &Message{
		Role: role,
		Parts: []Part{
			{Type: PartTypeData, Data: data},
		},
	}
}

func (msg *Message) String() string {
	var sb strings.Builder

	for _, part := range msg.Parts {
		sb.WriteString(part.Text)
	}

	return sb.String()
}

func (msg *Message) Clone() *Message {
	if msg == nil {
		return nil
	}

	out := *msg
	out.Parts = CloneParts(msg.Parts)
	out.Metadata = cloneMetadata(msg.Metadata)
	return &out
}

// CloneMessages deep-copies a message slice, preserving nil.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}

	out := make([]Message, len(msgs))
	for i := range msgs {
		out[i] = *msgs[i].Clone()
	}
	return out
}
