package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var eventFile string

//nolint:gochecknoglobals // Cobra boilerplate
var localRoot string

//nolint:gochecknoglobals // Cobra boilerplate
var emitEvents bool

//nolint:gochecknoglobals // Cobra boilerplate
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process a saved S3 event",
	Long: `Runs the full pipeline over a saved S3 event notification.

Objects are downloaded from S3 unless --local-root is given, in which case
<local-root>/<bucket>/<key> is read instead. Result events go to the configured
SNS topic, or are written to stdout as JSON lines with --emit-events.

Example:
  resume-analyzer process --event event.json
  resume-analyzer process --event event.json --local-root ./testdata --emit-events`,
	RunE: runProcess,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&eventFile, "event", "", "S3 event JSON file")
	processCmd.Flags().StringVar(&localRoot, "local-root", "", "read objects from this directory instead of S3")
	processCmd.Flags().BoolVar(&emitEvents, "emit-events", false, "write result events to stdout instead of SNS")
	_ = processCmd.MarkFlagRequired("event")
}

func runProcess(cmd *cobra.Command, args []string) (err error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	var raw []byte
	raw, err = os.ReadFile(eventFile)
	if err != nil {
		err = errors.Wrapf(err, "failed to read event file: %s", eventFile)
		return err
	}

	var event events.S3Event
	err = json.Unmarshal(raw, &event)
	if err != nil {
		err = errors.Wrapf(err, "failed to parse S3 event: %s", eventFile)
		return err
	}

	ctx := context.Background()

	opts := appOptions{localRoot: localRoot}
	if emitEvents {
		opts.events = cmd.OutOrStdout()
	}

	var a *app
	a, err = newApp(ctx, cfg, logger, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.processor.ProcessS3Event(ctx, event)

	if !emitEvents {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		err = enc.Encode(resp)
		if err != nil {
			err = errors.Wrap(err, "failed to write batch summary")
			return err
		}
	}

	if getVerbose() {
		fmt.Fprintln(cmd.ErrOrStderr(), resp.Message)
	}

	if resp.Failed > 0 {
		err = errors.Errorf("batch finished with status %d: %s", resp.StatusCode, resp.Message)
		return err
	}

	return err
}
