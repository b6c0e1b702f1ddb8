package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"drillcut/internal/deck"
	"drillcut/internal/fileutil"
)

func newDeckCommand() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:         "deck <words.csv>",
		Short:       "Convert a vocabulary CSV into the JSON card deck",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			in, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer in.Close()

			cards, err := deck.ReadCSV(in)
			if err != nil {
				return fmt.Errorf("%s: %w", input, err)
			}

			target := strings.TrimSpace(outputPath)
			if target == "-" {
				return deck.WriteJSON(cmd.OutOrStdout(), cards)
			}
			if target == "" {
				target = filepath.Join(filepath.Dir(input), fileutil.Stem(input)+".json")
			}
			if err := writeDeckFile(target, func(w io.Writer) error { return deck.WriteJSON(w, cards) }); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cards to %s\n", len(cards), target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output JSON path (- for stdout; default: next to the CSV)")
	return cmd
}

// writeDeckFile writes through a sibling temp file so a failed conversion
// never leaves a partial deck behind.
func writeDeckFile(target string, write func(io.Writer) error) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp deck: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp deck: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod deck: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return fmt.Errorf("write deck: %w", err)
	}
	return nil
}
