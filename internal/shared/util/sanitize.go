package util

import "strings"

const maxAttachmentStem = 80

// AttachmentName builds a Content-Disposition safe file name from stem and
// ext. Each run of bytes outside [A-Za-z0-9_] collapses to one '-', so nothing
// that could break the quoted header value survives.
func AttachmentName(stem, ext string) string {
	var b strings.Builder
	dash := false
	for _, r := range stem {
		ok := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_'
		if !ok {
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = true
			continue
		}
		b.WriteRune(r)
		dash = false
	}
	s := strings.Trim(b.String(), "-")
	if len(s) > maxAttachmentStem {
		s = strings.TrimRight(s[:maxAttachmentStem], "-")
	}
	if s == "" {
		s = "resume"
	}
	return s + ext
}
