package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/user-admin-api/internal/csvimport"
)

// parseSummary is what parse-csv prints
type parseSummary struct {
	File     string             `json:"file"`
	Rows     int                `json:"rows"`
	Accepted int                `json:"accepted"`
	Skipped  int                `json:"skipped"`
	Coerced  int                `json:"coerced"`
	Notices  []csvimport.Notice `json:"notices,omitempty"`
}

func newParseCSVCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "parse-csv <file>",
		Short: "Parse a user CSV file and print what an import would do",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParseCSV(cmd.OutOrStdout(), args[0], quiet)
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Omit per-row notices")
	return cmd
}

func runParseCSV(out io.Writer, path string, quiet bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	result, err := csvimport.ParseReader(file)
	if err != nil {
		var ferr *csvimport.FormatError
		if errors.As(err, &ferr) {
			return withCode(exitInvalid, err)
		}
		return err
	}

	summary := parseSummary{
		File:     path,
		Rows:     result.Rows,
		Accepted: len(result.Users),
		Skipped:  result.Skipped,
		Coerced:  result.Coerced,
	}
	if !quiet {
		summary.Notices = result.Notices
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
