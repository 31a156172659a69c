package bootstrap

import (
	"encoding/json"
	"time"

	"resume-export/internal/snapshots"
)

// Dev identity with a resume to export when running without Postgres.
const (
	DevUserID   = "guest:demo"
	DevResumeID = "demo-resume"
)

func seedDevResume(m *snapshots.MemoryResumes) {
	m.Put(snapshots.Resume{
		ID:         DevResumeID,
		UserID:     DevUserID,
		TemplateID: "classic",
		Content: json.RawMessage(`{"name":"Ada Lovelace","headline":"Analyst","summary":"Writes programs for engines that do not exist yet.",` +
			`"experience":[{"company":"Analytical Engine","title":"Programmer"}]}`),
		Theme:     json.RawMessage(`{"accent":"#1f6feb"}`),
		UpdatedAt: time.Now().UTC(),
	})
}
