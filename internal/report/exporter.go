package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"marketintel/pkg/errors"
	"marketintel/pkg/logger"
)

// Artifacts maps an export format ("markdown", "json", "pdf", "docx") to
// the file path it was written to
type Artifacts map[string]string

// ExportRequest is one report ready for export
type ExportRequest struct {
	Dir       string
	Title     string
	Markdown  string
	Charts    []string
	Dashboard interface{}
}

// Exporter persists a rendered report in one or more formats. The markdown
// and JSON artifacts are mandatory; rich formats are best effort.
type Exporter interface {
	Export(ctx context.Context, req ExportRequest) (Artifacts, error)
}

// RenderFunc converts markdown to a rich document at outPath. Optional
// renderers are pluggable so the pipeline does not depend on any
// particular document toolchain.
type RenderFunc func(ctx context.Context, markdown string, charts []string, title string, outPath string) error

var _ Exporter = (*FileExporter)(nil)

// FileExporter writes report artifacts into the run's report directory
type FileExporter struct {
	PDF  RenderFunc
	DOCX RenderFunc

	log *logger.Logger
}

// NewFileExporter creates an exporter. pdf and docx may be nil, in which
// case those formats are skipped.
func NewFileExporter(pdf, docx RenderFunc) *FileExporter {
	return &FileExporter{
		PDF:  pdf,
		DOCX: docx,
		log:  logger.Get().With("component", "exporter"),
	}
}

// Export writes markdown and the JSON dashboard, then attempts the rich
// formats. Rich format failures are logged and the format omitted from the
// result; only the mandatory artifacts can fail the export.
func (e *FileExporter) Export(ctx context.Context, req ExportRequest) (Artifacts, error) {
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create report directory")
	}

	base := SanitizeFilename(req.Title)
	out := Artifacts{}

	mdPath := filepath.Join(req.Dir, base+".md")
	if err := os.WriteFile(mdPath, []byte(req.Markdown), 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write markdown report")
	}
	out["markdown"] = mdPath

	if req.Dashboard != nil {
		data, err := json.MarshalIndent(req.Dashboard, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal dashboard data")
		}
		jsonPath := filepath.Join(req.Dir, "dashboard_data.json")
		if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
			return nil, errors.Wrap(err, "failed to write dashboard data")
		}
		out["json"] = jsonPath
	}

	if e.PDF != nil {
		pdfPath := filepath.Join(req.Dir, base+".pdf")
		if err := e.PDF(ctx, req.Markdown, req.Charts, req.Title, pdfPath); err != nil {
			e.log.Warnf("PDF export failed, skipping: %v", err)
		} else {
			out["pdf"] = pdfPath
		}
	}

	if e.DOCX != nil {
		docxPath := filepath.Join(req.Dir, base+".docx")
		if err := e.DOCX(ctx, req.Markdown, req.Charts, req.Title, docxPath); err != nil {
			e.log.Warnf("DOCX export failed, skipping: %v", err)
		} else {
			out["docx"] = docxPath
		}
	}

	return out, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w\s-]`)

// SanitizeFilename turns an arbitrary title into a safe snake_case filename
func SanitizeFilename(title string) string {
	s := unsafeFilenameChars.ReplaceAllString(title, "")
	s = strings.Join(strings.Fields(s), "_")
	s = strings.ToLower(s)
	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		s = "report"
	}
	return s
}
