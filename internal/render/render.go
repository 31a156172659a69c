// Package render turns a resume snapshot into PDF bytes.
package render

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrRenderFailure wraps every failure of the render pipeline.
var ErrRenderFailure = errors.New("render failed")

// Input is what the rendering engine needs from a snapshot.
type Input struct {
	SnapshotID string          `json:"snapshotId"`
	ResumeID   string          `json:"resumeId"`
	Content    json.RawMessage `json:"content"`
	TemplateID string          `json:"templateId,omitempty"`
	Theme      json.RawMessage `json:"theme,omitempty"`
}

// Renderer produces a PDF for in. Implementations return errors wrapping
// ErrRenderFailure.
type Renderer interface {
	Render(ctx context.Context, in Input) ([]byte, error)
}
