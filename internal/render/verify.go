package render

import (
	"bytes"
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const mimePDF = "application/pdf"

func init() {
	// pdfcpu otherwise writes a config dir under the user's home.
	pdfapi.DisableConfigDir()
}

// Verify checks that data is a readable PDF with at least one page and
// returns the page count.
func Verify(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty output", ErrRenderFailure)
	}
	if mt := mimetype.Detect(data); !mt.Is(mimePDF) {
		return 0, fmt.Errorf("%w: output is %s, not a pdf", ErrRenderFailure, mt.String())
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("%w: parse pdf: %v", ErrRenderFailure, err)
	}
	pages := r.NumPage()
	if pages < 1 {
		return 0, fmt.Errorf("%w: pdf has no pages", ErrRenderFailure)
	}
	return pages, nil
}

// Optimize rewrites data with pdfcpu, dropping redundant objects. The input is
// returned unchanged when optimization fails or does not shrink it.
func Optimize(data []byte) []byte {
	var out bytes.Buffer
	conf := model.NewDefaultConfiguration()
	if err := pdfapi.Optimize(bytes.NewReader(data), &out, conf); err != nil {
		return data
	}
	if out.Len() == 0 || out.Len() >= len(data) {
		return data
	}
	return out.Bytes()
}

// Finalize verifies and optimizes rendered bytes.
func Finalize(data []byte) ([]byte, error) {
	if _, err := Verify(data); err != nil {
		return nil, err
	}
	return Optimize(data), nil
}
