package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/verity/verity/internal/pipeline"
)

var (
	checkOut     string
	checkTimeout time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <application-id>",
	Short: "Verify one application from the document source",
	Long: `Check resolves an application through the document source, processes
every submitted document and prints the validation report as JSON.

Example:
  verity check 42
  verity check 42 --source-url http://db:8080/api/internal --out report.json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkOut, "out", "", "write the report to this path instead of stdout")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Minute, "overall timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	applicationID := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	defer p.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Checking application %s\n", applicationID)
		fmt.Fprintf(os.Stderr, "Backend: %s (%s)\n", cfg.Backend.Provider, cfg.Backend.BaseURL)
		fmt.Fprintln(os.Stderr)
	}

	report, err := p.Check(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("check failed: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if checkOut == "" {
		fmt.Println(string(data))
	} else if err := os.WriteFile(checkOut, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ %s: %s (%d failed checks)\n", applicationID, report.OverallResult, len(report.Checks))
	return nil
}
