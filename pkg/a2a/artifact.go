package a2a

/*
Artifact is the output of a task.  Index positions the artifact for merges;
artifacts without an index sort as index 0.
*/
type Artifact struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Index       *int           `json:"index,omitempty"`
	Append      *bool          `json:"append,omitempty"`
	LastChunk   *bool          `json:"lastChunk,omitempty"`
}

func NewTextArtifact(name string, text string) Artifact {
	return Artifact{
		Name:  &name,
		Parts: []Part{{Type: PartTypeText, Text: text}},
	}
}

func NewFileArtifact(name string, mimeType string, data string) Artifact {
	return Artifact{
		Name: &name,
		Parts: []Part{
			{
				Type: PartTypeFile,
				File: &FilePart{
					MimeType: &mimeType,
					Bytes:    data,
				},
			},
		},
	}
}

func (artifact Artifact) Clone() Artifact {
	out := artifact

	if artifact.Name != nil {
		name := *artifact.Name
		out.Name = &name
	}
	if artifact.Description != nil {
		desc := *artifact.Description
		out.Description = &desc
	}
	if artifact.Index != nil {
		idx := *artifact.Index
		out.Index = &idx
	}
	if artifact.Append != nil {
		app := *artifact.Append
		out.Append = &app
	}
	if artifact.LastChunk != nil {
		last := *artifact.LastChunk
		out.LastChunk = &last
	}

	out.Parts = CloneParts(artifact.Parts)
	out.Metadata = cloneMetadata(artifact.Metadata)
	return out
}

// SortIndex is the position used when ordering artifacts: the explicit index
// when present, 0 otherwise.
func (artifact Artifact) SortIndex() int {
	if artifact.Index == nil {
		return 0
	}
	return *artifact.Index
}

// CloneArtifacts deep-copies an artifact slice, preserving nil.
func CloneArtifacts(artifacts []Artifact) []Artifact {
	if artifacts == nil {
		return nil
	}

	out := make([]Artifact, len(artifacts))
	for i := range artifacts {
		out[i] = artifacts[i].Clone()
	}
	return out
}
