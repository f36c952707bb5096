package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/shelfimport/internal/importfile"
	"github.com/lehigh-university-libraries/shelfimport/internal/reconcile"
	"github.com/lehigh-university-libraries/shelfimport/internal/report"
)

func newImportCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Preview and confirm book imports",
		Long: `Two-step import of a book batch into the library.

"preview" classifies each imported row as matched, conflict, possible_match, new,
already_in_library or invalid and writes the classifications to a file. Review the
possible matches and conflicts, record accept/reject decisions keyed by the existing
book ID (or "row:N" when a row disagrees with earlier row N of the same batch), then
run "confirm" with both files.`,
	}

	cmd.AddCommand(newImportPreviewCmd(v))
	cmd.AddCommand(newImportConfirmCmd(v))

	return cmd
}

func newImportPreviewCmd(v *viper.Viper) *cobra.Command {
	var format string
	var outPath string

	cmd := &cobra.Command{
		Use:   "preview FILE",
		Short: "Classify an import file against the library",
		Example: `  # Show a table of classifications
  shelfimport import preview books.csv --db ./library.db

  # Save classifications for review and confirm
  shelfimport import preview books.parquet --db ./library.db --out preview.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			records, err := importfile.NewLoader(args[0]).Load()
			if err != nil {
				return err
			}

			engine, store, _, err := openEngine(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer store.Close()

			classifications, err := engine.Preview(cmd.Context(), records)
			if err != nil {
				return err
			}
			preview := report.NewPreview(classifications)

			if outPath != "" {
				if err := savePreview(outPath, preview); err != nil {
					return err
				}
			}

			return report.WritePreview(cmd.OutOrStdout(), outFormat, preview)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, csv, yaml)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Also save the preview to this .json or .yaml file for confirm")

	return cmd
}

func newImportConfirmCmd(v *viper.Viper) *cobra.Command {
	var format string
	var previewPath string
	var decisionsPath string

	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Apply reviewed decisions to the library",
		Long: `Applies a saved preview to the library. Decisions are read from a JSON/YAML mapping
of existing book ID (or "row:N" for a conflict with an earlier row) to "accept" or
"reject", or a CSV with book_id and decision columns. Possible matches and conflicts
without a decision are rejected.`,
		Example: `  shelfimport import confirm --classifications preview.json --decisions decisions.yaml --db ./library.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			preview, err := report.ReadPreview(previewPath)
			if err != nil {
				return err
			}

			decisions := reconcile.Decisions{}
			if decisionsPath != "" {
				decisions, err = report.ReadDecisions(decisionsPath)
				if err != nil {
					return err
				}
			}

			engine, store, _, err := openEngine(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := engine.Confirm(cmd.Context(), preview.Classifications, decisions)
			if result == nil {
				return err
			}

			if werr := report.WriteResult(cmd.OutOrStdout(), outFormat, result); werr != nil {
				return errors.Join(err, werr)
			}
			if err != nil {
				return fmt.Errorf("%d of %d records failed: %w", result.Failed, len(result.Outcomes), err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, csv, yaml)")
	cmd.Flags().StringVar(&previewPath, "classifications", "", "Preview file written by 'import preview --out' (required)")
	cmd.Flags().StringVar(&decisionsPath, "decisions", "", "Decisions file (.json, .yaml or .csv)")
	_ = cmd.MarkFlagRequired("classifications")

	return cmd
}

func savePreview(path string, preview report.Preview) error {
	format := report.FormatJSON
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		format = report.FormatYAML
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create preview file: %w", err)
	}

	if err := report.WritePreview(file, format, preview); err != nil {
		file.Close()
		return fmt.Errorf("failed to write preview file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close preview file: %w", err)
	}

	absPath, _ := filepath.Abs(path)
	slog.Info("Preview saved", "path", absPath, "records", len(preview.Classifications))
	return nil
}
