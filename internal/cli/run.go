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
	runOut     string
	runTimeout time.Duration
)

// runCmd represents the offline directory mode
var runCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Verify every document in a local directory",
	Long: `Run processes every PDF and image directly inside a directory as one
applicant's documents, without a document source, and writes a batch report
with the extracted data, graph statistics and alerts.

Example:
  verity run ./samples
  verity run ./samples --out report.json --documents 4`,
	Args: cobra.ExactArgs(1),
	RunE: runDirectory,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runOut, "out", "report.json", "output JSON path")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 30*time.Minute, "overall timeout")
}

func runDirectory(cmd *cobra.Command, args []string) error {
	dir := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, cancel := context.WithTimeout(cmd.Context(), runTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Verity Directory Run\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Directory:     %s\n", dir)
	fmt.Fprintf(os.Stderr, "  Backend:       %s/%s\n", cfg.Backend.Provider, cfg.Backend.Model)
	fmt.Fprintf(os.Stderr, "  Render pool:   %d\n", cfg.Concurrency.RenderWorkers)
	fmt.Fprintf(os.Stderr, "  Documents:     %d in flight\n", cfg.Concurrency.Documents)
	fmt.Fprintf(os.Stderr, "  Output:        %s\n", runOut)
	fmt.Fprintf(os.Stderr, "\n")

	p, err := pipeline.NewPipeline(cfg, pipeline.WithLogger(logger))
	if err != nil {
		return err
	}
	defer p.Close()

	start := time.Now()
	report, err := p.RunDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(runOut, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Run Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Documents:  %d extracted\n", len(report.ExtractedData))
	fmt.Fprintf(os.Stderr, "  Graph:      %d nodes, %d edges\n", report.GraphStats.Nodes, report.GraphStats.Edges)
	fmt.Fprintf(os.Stderr, "  Alerts:     %d\n", len(report.Alerts))
	fmt.Fprintf(os.Stderr, "  Status:     %s\n", report.Status)
	fmt.Fprintf(os.Stderr, "  Duration:   %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")

	for _, a := range report.Alerts {
		fmt.Fprintf(os.Stderr, "✗ [%s] %s: %s\n", a.Severity, a.Check, a.Message)
	}

	return nil
}
