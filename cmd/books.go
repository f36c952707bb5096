package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/shelfimport/internal/models"
	"github.com/lehigh-university-libraries/shelfimport/internal/report"
)

func newBooksCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List or add library books",
	}

	cmd.AddCommand(newBooksListCmd(v))
	cmd.AddCommand(newBooksAddCmd(v))

	return cmd
}

func newBooksListCmd(v *viper.Viper) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every book in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			_, store, _, err := openEngine(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer store.Close()

			books, err := store.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			return report.WriteBooks(cmd.OutOrStdout(), outFormat, books)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format (text, json, csv, yaml)")

	return cmd
}

func newBooksAddCmd(v *viper.Viper) *cobra.Command {
	var record models.ImportRecord
	var level string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a single book to the library",
		Example: `  shelfimport books add --db ./library.db --title "Charlotte's Web" --author "E.B. White" --level 4.0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			record.ReadingLevel = models.Level(level)

			_, store, _, err := openEngine(cmd.Context(), v)
			if err != nil {
				return err
			}
			defer store.Close()

			book, err := store.Create(cmd.Context(), models.NewBookFromRecord(record))
			if err != nil {
				return err
			}
			return report.WriteBooks(cmd.OutOrStdout(), report.FormatText, []models.LibraryBook{book})
		},
	}

	cmd.Flags().StringVar(&record.Title, "title", "", "Book title (required)")
	cmd.Flags().StringVar(&record.Author, "author", "", "Author")
	cmd.Flags().StringVar(&level, "level", "", "Reading level")
	cmd.Flags().StringVar(&record.ISBN, "isbn", "", "ISBN")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}
