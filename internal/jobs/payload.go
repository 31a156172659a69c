package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
)

const (
	// TypeExportRender renders one export snapshot to PDF.
	TypeExportRender = "export:render"
	// QueueExports is the asynq queue export tasks run on.
	QueueExports = "exports"
)

// Payload is the body of an export:render task.
type Payload struct {
	ExportID   string `json:"exportId"`
	SnapshotID string `json:"snapshotId"`
	UserID     string `json:"userId"`
	// RequestID ties worker logs back to the API request that queued the job.
	RequestID string `json:"requestId,omitempty"`
}

// Encode returns the JSON form of the payload.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// MessageMeta captures details useful for logging a bad payload.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body []byte) MessageMeta {
	if len(body) == 0 {
		return MessageMeta{}
	}
	sum := sha256.Sum256(body)
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty task payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty task payload" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode payload"
	}
	return "decode payload: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrMissingField indicates a payload without a required id.
type ErrMissingField struct {
	Meta  MessageMeta
	Field string
}

func (e ErrMissingField) Error() string { return "missing " + e.Field }

// DecodePayload parses and validates a task body.
func DecodePayload(body []byte) (Payload, error) {
	meta := ComputeMeta(body)
	if len(strings.TrimSpace(string(body))) == 0 {
		return Payload{}, ErrEmptyBody{Meta: meta}
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Payload{}, ErrDecode{Meta: meta, Err: err}
	}
	p.ExportID = strings.TrimSpace(p.ExportID)
	p.SnapshotID = strings.TrimSpace(p.SnapshotID)
	p.UserID = strings.TrimSpace(p.UserID)
	switch {
	case p.ExportID == "":
		return Payload{}, ErrMissingField{Meta: meta, Field: "exportId"}
	case p.SnapshotID == "":
		return Payload{}, ErrMissingField{Meta: meta, Field: "snapshotId"}
	case p.UserID == "":
		return Payload{}, ErrMissingField{Meta: meta, Field: "userId"}
	}
	return p, nil
}
