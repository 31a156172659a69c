package exports

import (
	"fmt"
	"net/url"
	"strings"

	"resume-export/internal/shared/util"
)

// StorageKey is where the artifact for exportID is stored. User ids are
// hashed so keys never carry raw identifiers.
func StorageKey(userID, exportID string) string {
	return fmt.Sprintf("exports/%s/%s.pdf", util.OwnerKey(userID), exportID)
}

// ArtifactURL is the API route that streams a READY export.
func ArtifactURL(baseURL, resumeID, exportID string) string {
	return fmt.Sprintf("%s/resumes/%s/exports/%s/file",
		strings.TrimRight(baseURL, "/"), url.PathEscape(resumeID), url.PathEscape(exportID))
}

func downloadFileName(resumeID string) string {
	return util.AttachmentName("resume-"+resumeID, ".pdf")
}

func contentDisposition(fileName string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, fileName)
}
