package a2a

import "encoding/base64"

/*
Part is a discriminated union over Text, File and Data parts.  We keep it
simple by embedding all optional fields in a single struct – this avoids
heavy custom JSON marshalling logic while remaining spec-compliant.

Exactly ONE of Text, File, or Data should be populated according to the Type
field.  This is not enforced at the struct level, and incoming parts reach
the handler without being checked against their Type; the engine only
requires the message to carry a parts array.
*/
type Part struct {
	Type PartType `json:"type"`

	// Exactly one of the following should be populated depending on Type.
	Text string         `json:"text,omitempty"`
	File *FilePart      `json:"file,omitempty"`
	Data map[string]any `json:"data,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

// PartType is the discriminator for a Part union.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeFile PartType = "file"
	PartTypeData PartType = "data"
)

/*
FilePart carries file content either inline (base64 bytes) or by URI.
*/
type FilePart struct {
	Name     *string `json:"name,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`
	Bytes    string  `json:"bytes,omitempty"`
	URI      string  `json:"uri,omitempty"`
}

func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

func NewFilePart(name string, mimeType string, data []byte) Part {
	return Part{
		Type: PartTypeFile,
		File: &FilePart{
			Name:     &name,
			MimeType: &mimeType,
			Bytes:    base64.StdEncoding.EncodeToString(data),
		},
	}
}

func NewDataPart(data map[string]any) Part {
	return Part{
		Type: PartTypeData,
		Data: data,
	}
}

func (part Part) Clone() Part {
	out := part

	if part.File != nil {
		file := *part.File
		if part.File.Name != nil {
			name := *part.File.Name
			file.Name = &name
		}
		if part.File.MimeType != nil {
			mime := *part.File.MimeType
			file.MimeType = &mime
		}
		out.File = &file
	}

	out.Data = cloneMetadata(part.Data)
	out.Metadata = cloneMetadata(part.Metadata)
	return out
}

// CloneParts deep-copies a part slice, preserving nil.
func CloneParts(parts []Part) []Part {
	if parts == nil {
		return nil
	}

	out := make([]Part, len(parts))
	for i := range parts {
		out[i] = parts[i].Clone()
	}
	return out
}

// cloneMetadata deep-copies free-form JSON-shaped metadata.  Nested maps and
// slices are copied recursively; scalars are shared (they are immutable).
func cloneMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return nil
	}

	out := make(map[string]any, len(meta))
	for k, v := range meta {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMetadata(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
