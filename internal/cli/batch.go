package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/claims-intake/constants"
	"github.com/joseph-ayodele/claims-intake/internal/app"
	"github.com/joseph-ayodele/claims-intake/internal/ingest"
)

var (
	batchDir           string
	batchOut           string
	batchIncludeHidden bool
)

// BatchSummary is printed at the end of a batch run.
type BatchSummary struct {
	Scanned   int    `json:"scanned"`
	Admitted  int    `json:"admitted"`
	Rejected  int    `json:"rejected"`
	Completed int    `json:"completed"`
	Errored   int    `json:"errored"`
	Output    string `json:"output"`
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process every claim form in a directory and export the results to XLSX",
	Example: `  claims-intake batch --dir ./scans
  claims-intake batch --dir ./scans --out ./claims.xlsx`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		sess, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer sess.Close(context.WithoutCancel(ctx))

		ing := ingest.New(sess.Intake, logger, ingest.WithMaxBytes(cfg.Intake.MaxUploadBytes))
		sum, err := runBatch(ctx, sess, ing, batchDir, batchOut, !batchIncludeHidden)
		if err != nil {
			return err
		}
		printSummary(cmd.OutOrStdout(), sum)
		return nil
	},
}

// runBatch admits the directory, waits for every item to settle and writes the workbook.
func runBatch(ctx context.Context, sess *app.Session, ing *ingest.Ingestor, dir, out string, skipHidden bool) (BatchSummary, error) {
	if out == "" {
		out = filepath.Join(filepath.Dir(filepath.Clean(dir)), "claims.xlsx")
	}
	_, stats, err := ing.IngestDirectory(ctx, dir, skipHidden)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("ingest %s: %w", dir, err)
	}
	if err := sess.Queue.Wait(ctx); err != nil {
		return BatchSummary{}, fmt.Errorf("wait for processing: %w", err)
	}

	items, err := sess.Store.List(ctx)
	if err != nil {
		return BatchSummary{}, err
	}
	sum := BatchSummary{
		Scanned:  int(stats.Scanned),
		Admitted: int(stats.Admitted),
		Rejected: int(stats.Rejected),
		Output:   out,
	}
	for _, it := range items {
		switch it.Status {
		case constants.ItemStatusCompleted:
			sum.Completed++
		case constants.ItemStatusError:
			sum.Errored++
		}
	}

	xlsx, err := sess.Export.ExportItemsXLSX(ctx)
	if err != nil {
		return sum, err
	}
	if err := os.WriteFile(out, xlsx, 0o644); err != nil {
		return sum, fmt.Errorf("write %s: %w", out, err)
	}
	return sum, nil
}

func printSummary(w io.Writer, s BatchSummary) {
	fmt.Fprintf(w, "scanned:   %d\n", s.Scanned)
	fmt.Fprintf(w, "admitted:  %d\n", s.Admitted)
	fmt.Fprintf(w, "rejected:  %d\n", s.Rejected)
	fmt.Fprintf(w, "completed: %d\n", s.Completed)
	fmt.Fprintf(w, "errored:   %d\n", s.Errored)
	fmt.Fprintf(w, "output:    %s\n", s.Output)
}

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchDir, "dir", "", "directory of claim forms (required)")
	f.StringVar(&batchOut, "out", "", "output XLSX path (default: <dir>/../claims.xlsx)")
	f.BoolVar(&batchIncludeHidden, "include-hidden", false, "also process hidden files and directories")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}
