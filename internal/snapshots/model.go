package snapshots

import (
	"encoding/json"
	"time"
)

// Resume is the live, editable resume as held by the content store.
type Resume struct {
	ID         string
	UserID     string
	Content    json.RawMessage
	TemplateID string
	Theme      json.RawMessage
	UpdatedAt  time.Time
}

// Snapshot is an immutable copy of a resume taken at export time. Template
// metadata is frozen with the content so a later template switch cannot change
// what an in-flight render produces.
type Snapshot struct {
	ID         string          `json:"id"`
	ResumeID   string          `json:"resumeId"`
	UserID     string          `json:"userId"`
	Content    json.RawMessage `json:"content"`
	TemplateID string          `json:"templateId,omitempty"`
	Theme      json.RawMessage `json:"theme,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}
