package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pippora/pippora/internal/output"
)

type outputSink struct {
	writer io.Writer
	close  func() error
	path   string
}

var nonFilename = regexp.MustCompile(`[^a-z0-9._-]+`)

func sanitizeFilename(value string) string {
	clean := strings.ToLower(strings.TrimSpace(value))
	clean = nonFilename.ReplaceAllString(clean, "-")
	clean = strings.Trim(clean, "-.")
	if clean == "" {
		return "output"
	}
	return clean
}

func addOutputFlags(cmd *cobra.Command, formats string) {
	cmd.Flags().String("output-format", string(output.FormatTable), "Output format: "+formats)
	cmd.Flags().String("out", "", "Write output to a file (default stdout)")
	cmd.Flags().String("out-dir", "", "Write output to a directory")
}

func resolveOutputFormat(cmd *cobra.Command) (output.Format, error) {
	value, err := cmd.Flags().GetString("output-format")
	if err != nil {
		return "", err
	}
	return output.ParseFormat(value)
}

// resolveOutputPath picks the destination: --out as given, or
// <out-dir>/<name>.<ext>. Empty means stdout.
func resolveOutputPath(cmd *cobra.Command, name string, format output.Format) (string, error) {
	outPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return "", err
	}
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return "", err
	}
	outPath, outDir = strings.TrimSpace(outPath), strings.TrimSpace(outDir)
	if outPath != "" && outDir != "" {
		return "", fmt.Errorf("--out and --out-dir are mutually exclusive")
	}
	if outDir == "" {
		return outPath, nil
	}
	dir, err := ensureOutDir(outDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sanitizeFilename(name)+"."+format.Extension()), nil
}

func openSink(path string) (*outputSink, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || trimmed == "-" {
		return &outputSink{writer: os.Stdout, close: func() error { return nil }, path: "-"}, nil
	}

	if err := os.MkdirAll(filepath.Dir(trimmed), 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	file, err := os.Create(trimmed)
	if err != nil {
		return nil, err
	}
	return &outputSink{writer: file, close: file.Close, path: trimmed}, nil
}

// writeOutput renders to the resolved destination with a trailing newline.
func writeOutput(cmd *cobra.Command, name string, format output.Format, rendered string) error {
	path, err := resolveOutputPath(cmd, name, format)
	if err != nil {
		return err
	}
	sink, err := openSink(path)
	if err != nil {
		return err
	}
	defer func() { _ = sink.close() }()

	if _, err := fmt.Fprintln(sink.writer, strings.TrimRight(rendered, "\n")); err != nil {
		return err
	}
	if sink.path != "-" {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", sink.path)
	}
	return nil
}

func ensureOutDir(dir string) (string, error) {
	clean := strings.TrimSpace(dir)
	if clean == "" {
		return "", nil
	}
	if err := os.MkdirAll(clean, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	abs, err := filepath.Abs(clean)
	if err != nil {
		return clean, nil
	}
	return abs, nil
}
