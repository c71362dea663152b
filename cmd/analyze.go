package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nikogura/resume-analyzer/pkg/config"
	"github.com/nikogura/resume-analyzer/pkg/extractor"
	"github.com/nikogura/resume-analyzer/pkg/renderer"
	"github.com/nikogura/resume-analyzer/pkg/scorer"
	"github.com/nikogura/resume-analyzer/pkg/storage"
	"github.com/nikogura/resume-analyzer/pkg/validation"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var showText bool

//nolint:gochecknoglobals // Cobra boilerplate
var reportPath string

//nolint:gochecknoglobals // Cobra boilerplate
var analyzeCmd = &cobra.Command{
	Use:   "analyze <file-or-url>",
	Short: "Extract and score a single resume",
	Long: `Extracts text from a local PDF or DOCX file (or one served over http/https),
scores it, and prints the extraction metadata and analysis as JSON.

Nothing is published and no dedup store is consulted.

Example:
  resume-analyzer analyze ~/Documents/resume.pdf
  resume-analyzer analyze https://example.com/cv.docx --show-text
  resume-analyzer analyze resume.docx --report report.pdf

--report also writes a readable report. A .pdf path is rendered with pandoc,
any other path gets markdown.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().BoolVar(&showText, "show-text", false, "Include the extracted text in the output")
	analyzeCmd.Flags().StringVar(&reportPath, "report", "", "Also write a markdown or PDF report to this path")
}

type analyzeOutput struct {
	File       string                 `json:"file"`
	Extraction map[string]interface{} `json:"extraction"`
	Text       string                 `json:"extracted_text,omitempty"`
	Analysis   scorer.AnalysisResult  `json:"analysis"`
}

func runAnalyze(cmd *cobra.Command, args []string) (err error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	input := args[0]

	var content []byte
	var name string
	content, name, err = storage.Open(ctx, input, cfg.Processing.MaxFileSize)
	if err != nil {
		return err
	}

	format := extractor.FormatFromKey(name)
	err = validation.CheckSignature(content, format)
	if err != nil {
		err = errors.Wrapf(err, "%s does not look like a %s file", name, format)
		return err
	}

	var extraction extractor.Result
	extraction, err = extractor.New(cfg.Processing.MaxFileSize, logger).Extract(content, format)
	if err != nil {
		return err
	}

	var result scorer.AnalysisResult
	result, err = analyzeWithProgress(ctx, cfg, logger, extraction.ExtractedText, name)
	if err != nil {
		return err
	}

	out := analyzeOutput{
		File:       input,
		Extraction: extraction.Metadata(),
		Analysis:   result,
	}
	if showText {
		out.Text = extraction.ExtractedText
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	err = enc.Encode(out)
	if err != nil {
		err = errors.Wrap(err, "failed to write analysis")
		return err
	}

	if reportPath != "" {
		err = renderer.WriteReport(ctx, renderer.Markdown(name, result), reportPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", reportPath)
	}

	if getVerbose() {
		fmt.Fprintf(cmd.ErrOrStderr(), "Overall score %d (%s)\n", result.OverallScore, result.Metadata.Source)
	}

	return err
}

// analyzeWithProgress runs the analysis chain, showing a spinner unless verbose.
func analyzeWithProgress(ctx context.Context, cfg config.Config, logger *slog.Logger, text, fileKey string) (result scorer.AnalysisResult, err error) {
	var progress *spinner
	if !getVerbose() {
		progress = newSpinner(rootCmd.ErrOrStderr(), "Analyzing resume...")
		progress.start()
	}

	result, err = newAnalyzer(cfg, logger).Analyze(ctx, text, fileKey)

	if progress != nil {
		progress.stopSpinner()
	}

	if err != nil {
		err = errors.Wrap(err, "analysis failed")
		return result, err
	}

	return result, err
}
