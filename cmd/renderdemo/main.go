package main

// Render a sample resume to PDF and check the output:
//   go run ./cmd/renderdemo -out ./out/sample_resume.pdf
//   go run ./cmd/renderdemo -renderer http://localhost:3000/render

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"resume-export/internal/render"
)

func main() {
	outPath := flag.String("out", "./out/sample_resume.pdf", "output path for the generated PDF")
	rendererURL := flag.String("renderer", "", "rendering service URL; empty uses the built-in placeholder")
	timeout := flag.Duration("timeout", 60*time.Second, "render timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	r, err := newRenderer(ctx, *rendererURL, *timeout)
	if err != nil {
		fmt.Fprintf(os.Stderr, "renderer setup failed: %v\n", err)
		os.Exit(1)
	}

	pdf, err := r.Render(ctx, sampleInput())
	if err != nil {
		fmt.Fprintf(os.Stderr, "render failed: %v\n", err)
		os.Exit(1)
	}

	pages, err := render.Verify(pdf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "render validation failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outPath, pdf, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OK: wrote %s (%d bytes, %d pages)\n", *outPath, len(pdf), pages)
}

func newRenderer(ctx context.Context, url string, timeout time.Duration) (render.Renderer, error) {
	if url == "" {
		return render.Placeholder{}, nil
	}
	return render.NewHTTPRenderer(ctx, render.HTTPConfig{URL: url, Timeout: timeout})
}

func sampleInput() render.Input {
	content := map[string]any{
		"name":     "Jordan Lee",
		"headline": "Senior Backend Engineer",
		"email":    "jordan.lee@example.com",
		"location": "Austin, TX",
		"summary":  "Backend engineer with 8+ years of experience building resilient APIs and data services.",
		"experience": []map[string]any{
			{"company": "Acme Logistics", "title": "Senior Backend Engineer", "start": "2021-04"},
			{"company": "Blue Harbor Systems", "title": "Backend Engineer", "start": "2018-01", "end": "2021-03"},
		},
	}
	raw, _ := json.Marshal(content)
	return render.Input{
		SnapshotID: "demo-snapshot",
		ResumeID:   "demo-resume",
		Content:    raw,
		TemplateID: "classic",
		Theme:      json.RawMessage(`{"accent":"#1f6feb"}`),
	}
}
