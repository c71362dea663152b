package cmd

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nikogura/resume-analyzer/pkg/pipeline"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var lambdaCmd = &cobra.Command{
	Use:   "lambda",
	Short: "Run as the AWS Lambda handler for S3 upload events",
	Long: `Starts the AWS Lambda runtime loop. Each invocation receives an S3 event,
processes its records in order and returns a batch summary whose statusCode is
200 when every record succeeded or was skipped, 207 on partial failure and 500
when all records failed.`,
	RunE: runLambda,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(lambdaCmd)
}

func runLambda(cmd *cobra.Command, args []string) (err error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()

	var a *app
	a, err = newApp(ctx, cfg, logger, appOptions{})
	if err != nil {
		return err
	}
	// lambda.Start never returns, so the store lives as long as the process.

	for name, check := range a.checks {
		if checkErr := check.Check(ctx); checkErr != nil {
			logger.Warn("dependency check failed", "dependency", name, "error", checkErr.Error())
		}
	}

	lambda.Start(lambdaHandler(a, logger))

	return err
}

// lambdaHandler adapts the processor to the Lambda S3 event signature.
func lambdaHandler(a *app, logger *slog.Logger) func(context.Context, events.S3Event) (pipeline.BatchResponse, error) {
	return func(ctx context.Context, event events.S3Event) (resp pipeline.BatchResponse, err error) {
		logger.Info("lambda invoked", "records", len(event.Records))
		resp = a.processor.ProcessS3Event(ctx, event)
		logger.Info("lambda execution completed", "status_code", resp.StatusCode)
		return resp, err
	}
}
