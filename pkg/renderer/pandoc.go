package renderer

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// WriteReport writes the markdown report to outputPath. A .pdf path is rendered through
// pandoc from a temporary markdown file, anything else is written as markdown.
func WriteReport(ctx context.Context, md, outputPath string) (err error) {
	if !strings.EqualFold(filepath.Ext(outputPath), ".pdf") {
		err = WriteMarkdown(md, outputPath)
		return err
	}

	mdPath := strings.TrimSuffix(outputPath, filepath.Ext(outputPath)) + ".md"
	err = WriteMarkdown(md, mdPath)
	if err != nil {
		return err
	}

	err = RenderPDF(ctx, mdPath, outputPath)
	if err != nil {
		return err
	}

	err = CleanupMarkdown(mdPath)
	return err
}

// RenderPDF converts markdown to PDF using pandoc.
func RenderPDF(ctx context.Context, markdownPath, outputPath string) (err error) {
	err = checkPandocExists(ctx)
	if err != nil {
		return err
	}

	err = validateFiles(markdownPath)
	if err != nil {
		return err
	}

	outputDir := filepath.Dir(outputPath)
	err = os.MkdirAll(outputDir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", outputDir)
		return err
	}

	cmd := exec.CommandContext(ctx,
		"pandoc",
		"-f", "markdown",
		"-t", "pdf",
		"-o", outputPath,
		"-V", "geometry:margin=1in",
		markdownPath,
	)

	var output []byte
	output, err = cmd.CombinedOutput()
	if err != nil {
		err = errors.Wrapf(err, "pandoc failed: %s", string(output))
		return err
	}

	return err
}

// checkPandocExists verifies pandoc is installed.
func checkPandocExists(ctx context.Context) (err error) {
	err = exec.CommandContext(ctx, "pandoc", "--version").Run()
	if err != nil {
		err = errors.New("pandoc not found in PATH (install pandoc to render PDF reports)")
		return err
	}
	return err
}

// validateFiles checks that required files exist.
func validateFiles(paths ...string) (err error) {
	for _, path := range paths {
		_, err = os.Stat(path)
		if os.IsNotExist(err) {
			err = errors.Errorf("file not found: %s", path)
			return err
		}
	}
	return err
}

// WriteMarkdown writes markdown content to a file, creating its directory.
func WriteMarkdown(content, outputPath string) (err error) {
	outputDir := filepath.Dir(outputPath)
	err = os.MkdirAll(outputDir, 0750)
	if err != nil {
		err = errors.Wrapf(err, "failed to create output directory: %s", outputDir)
		return err
	}

	err = os.WriteFile(outputPath, []byte(content), 0600)
	if err != nil {
		err = errors.Wrapf(err, "failed to write markdown file: %s", outputPath)
		return err
	}

	return err
}

// CleanupMarkdown removes intermediate markdown files.
func CleanupMarkdown(paths ...string) (err error) {
	for _, path := range paths {
		err = os.Remove(path)
		if err != nil {
			err = errors.Wrapf(err, "failed to remove markdown file: %s", path)
			return err
		}
	}
	return err
}
