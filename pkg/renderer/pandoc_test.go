package renderer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nikogura/resume-analyzer/pkg/scorer"
)

func sampleResult() scorer.AnalysisResult {
	return scorer.AnalysisResult{
		OverallScore:     72,
		ATSCompatibility: 80,
		ContentQuality:   65,
		KeywordDensity:   40,
		SectionScores: map[string]int{
			scorer.SectionContact:    90,
			scorer.SectionExperience: 70,
			"volunteering":           10,
		},
		Strengths:        []string{"Contact Information"},
		ImprovementAreas: []string{"Professional Summary"},
		Recommendations:  []string{"Add a professional summary"},
		Metadata: scorer.AnalysisMetadata{
			Source:    scorer.SourceModel,
			ModelUsed: "gpt-4o-mini",
			Timestamp: time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC),
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown("jane.pdf", sampleResult())

	wants := []string{
		"# Resume Analysis: jane.pdf",
		"**Overall score:** 72/100",
		"| ATS compatibility | 80 |",
		"| Contact Information | 90 |",
		"## Strengths\n\n- Contact Information",
		"## Recommendations\n\n- Add a professional summary",
		"Analysis source: model (gpt-4o-mini), 2026-04-02 09:30 UTC",
	}
	for _, want := range wants {
		if !strings.Contains(md, want) {
			t.Errorf("Expected report to contain '%s', got:\n%s", want, md)
		}
	}

	if strings.Contains(md, "## Keywords Found") {
		t.Error("Expected empty lists to be omitted")
	}

	contact := strings.Index(md, "Contact Information | 90")
	experience := strings.Index(md, "Work Experience | 70")
	extra := strings.Index(md, "volunteering")
	if !(contact < experience && experience < extra) {
		t.Errorf("Expected known sections in order before unknown ones, got %d %d %d", contact, experience, extra)
	}
}

func TestWriteReportMarkdown(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "report.md")

	err := WriteReport(context.Background(), "# Report", out)
	if err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	if string(data) != "# Report" {
		t.Errorf("Expected '# Report', got '%s'", data)
	}
}

func TestWriteMarkdown(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.md")
	testContent := "# Test Markdown\n\nThis is a test."

	err := WriteMarkdown(testContent, testFile)
	if err != nil {
		t.Fatalf("Failed to write markdown: %v", err)
	}

	data, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}

	if string(data) != testContent {
		t.Errorf("Expected content '%s', got '%s'", testContent, string(data))
	}
}

func TestCleanupMarkdown(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test1.md")

	err := os.WriteFile(testFile, []byte("test"), 0600)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	err = CleanupMarkdown(testFile)
	if err != nil {
		t.Fatalf("Failed to cleanup: %v", err)
	}

	_, err = os.Stat(testFile)
	if !os.IsNotExist(err) {
		t.Error("File was not deleted")
	}

	err = CleanupMarkdown(filepath.Join(tmpDir, "missing.md"))
	if err == nil {
		t.Error("Expected error cleaning up nonexistent file, got nil")
	}
}

func TestValidateFiles(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	err := os.WriteFile(existingFile, []byte("test"), 0600)
	if err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	err = validateFiles(existingFile)
	if err != nil {
		t.Errorf("Expected no error for existing file, got %v", err)
	}

	err = validateFiles(existingFile, "/nonexistent/file.txt")
	if err == nil {
		t.Error("Expected error when one file doesn't exist, got nil")
	}
}

func TestRenderPDF(t *testing.T) {
	ctx := context.Background()
	if err := checkPandocExists(ctx); err != nil {
		t.Skip("Pandoc not installed, skipping test")
	}

	err := RenderPDF(ctx, "/nonexistent/report.md", filepath.Join(t.TempDir(), "r.pdf"))
	if err == nil {
		t.Error("Expected error for missing markdown, got nil")
	}
}
