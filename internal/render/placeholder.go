package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Placeholder renders a plain one-page PDF listing the resume's top-level
// fields. Used in dev when no rendering service is configured.
type Placeholder struct{}

var _ Renderer = Placeholder{}

func (Placeholder) Render(ctx context.Context, in Input) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines, err := summaryLines(in)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	return Finalize(simplePDF(lines))
}

func summaryLines(in Input) ([]string, error) {
	lines := []string{"Resume " + in.ResumeID}
	if in.TemplateID != "" {
		lines = append(lines, "Template: "+in.TemplateID)
	}
	if len(in.Content) == 0 {
		return lines, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(in.Content, &fields); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %v", k, fields[k]))
	}
	return lines, nil
}

// simplePDF writes a minimal single-page PDF with Helvetica text.
func simplePDF(lines []string) []byte {
	var content bytes.Buffer
	content.WriteString("BT /F1 11 Tf 50 790 Td 14 TL\n")
	for _, l := range lines {
		if len(l) > 90 {
			l = l[:90]
		}
		fmt.Fprintf(&content, "(%s) Tj T*\n", escapePDF(l))
	}
	content.WriteString("ET")

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func escapePDF(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\r", " ", "\n", " ")
	var b strings.Builder
	for _, ch := range r.Replace(s) {
		if ch > 126 {
			b.WriteByte('?')
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
