package report

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketintel/pkg/errors"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Healthcare Market Intelligence Report", "healthcare_market_intelligence_report"},
		{"Q1/Q2: $5B opportunity!", "q1q2_5b_opportunity"},
		{"  spaced   out  ", "spaced_out"},
		{"", "report"},
		{"!!!", "report"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), "input %q", tc.in)
	}
}

func TestSanitizeFilename_Caps(t *testing.T) {
	long := ""
	for i := 0; i < 30; i++ {
		long += "word "
	}
	got := SanitizeFilename(long)
	assert.LessOrEqual(t, len(got), 60)
}

func TestFileExporter_WritesMandatoryArtifacts(t *testing.T) {
	dir := t.TempDir()
	exporter := NewFileExporter(nil, nil)

	artifacts, err := exporter.Export(context.Background(), ExportRequest{
		Dir:       dir,
		Title:     "Fintech Market Intelligence Report",
		Markdown:  "# Report\n\nbody",
		Dashboard: map[string]int{"total_trends": 2},
	})
	require.NoError(t, err)

	mdPath, ok := artifacts["markdown"]
	require.True(t, ok)
	content, err := os.ReadFile(mdPath)
	require.NoError(t, err)
	assert.Equal(t, "# Report\n\nbody", string(content))
	assert.Equal(t, "fintech_market_intelligence_report.md", filepath.Base(mdPath))

	jsonPath, ok := artifacts["json"]
	require.True(t, ok)
	data, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	var dashboard map[string]int
	require.NoError(t, json.Unmarshal(data, &dashboard))
	assert.Equal(t, 2, dashboard["total_trends"])

	_, hasPDF := artifacts["pdf"]
	assert.False(t, hasPDF, "nil renderer skips the format")
}

func TestFileExporter_NoDashboardSkipsJSON(t *testing.T) {
	exporter := NewFileExporter(nil, nil)

	artifacts, err := exporter.Export(context.Background(), ExportRequest{
		Dir:      t.TempDir(),
		Title:    "t",
		Markdown: "m",
	})
	require.NoError(t, err)

	_, ok := artifacts["json"]
	assert.False(t, ok)
}

func TestFileExporter_RichFormatFailureOmitted(t *testing.T) {
	var pdfCalled bool
	pdf := func(ctx context.Context, markdown string, charts []string, title string, outPath string) error {
		pdfCalled = true
		return errors.ErrInternal
	}
	docx := func(ctx context.Context, markdown string, charts []string, title string, outPath string) error {
		return os.WriteFile(outPath, []byte("docx"), 0o644)
	}
	exporter := NewFileExporter(pdf, docx)

	artifacts, err := exporter.Export(context.Background(), ExportRequest{
		Dir:      t.TempDir(),
		Title:    "t",
		Markdown: "m",
	})
	require.NoError(t, err, "rich format failures never fail the export")

	assert.True(t, pdfCalled)
	_, hasPDF := artifacts["pdf"]
	assert.False(t, hasPDF)
	docxPath, hasDOCX := artifacts["docx"]
	require.True(t, hasDOCX)
	assert.FileExists(t, docxPath)
}
