package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yuanying/flat2opc/internal/converter"
)

const defaultOutputExt = ".docx"

// cliOptions holds the fully resolved command-line configuration.
type cliOptions struct {
	InputPath  string
	OutputPath string
	Logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flat2opc INPUT",
		Short: "Convert Flat OPC documents to OPC packages",
		Long: `flat2opc converts a Microsoft Office document stored in Flat OPC
format (a single XML file embedding every package part) into a regular
OPC package: a zip archive with one file per part plus a generated
[Content_Types].xml manifest.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}

			opts.Logger.Info("converting", "input", opts.InputPath, "output", opts.OutputPath)

			p := converter.NewPipeline(converter.ConvertOptions{
				Input:      opts.InputPath,
				OutputPath: opts.OutputPath,
				Logger:     opts.Logger,
			})
			if err := p.Convert(); err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}

			opts.Logger.Info("done", "output", opts.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file path (default: input with "+defaultOutputExt+" extension)")
	cmd.Flags().String("log-level", "info", "Log level: debug, info, warn or error")
	cmd.Flags().String("log-format", "text", "Log format: text or json")
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging (overrides --log-level)")

	return cmd
}

// readCLIOptions validates the parsed flags and resolves them into options.
func readCLIOptions(cmd *cobra.Command, args []string) (cliOptions, error) {
	inputPath := args[0]

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath)
	}

	level, _ := cmd.Flags().GetString("log-level")
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	if !isValidLogLevel(level) {
		return cliOptions{}, fmt.Errorf("invalid --log-level %q: must be debug, info, warn or error", level)
	}

	format, _ := cmd.Flags().GetString("log-format")
	if !isValidLogFormat(format) {
		return cliOptions{}, fmt.Errorf("invalid --log-format %q: must be text or json", format)
	}

	return cliOptions{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Logger:     buildLogger(cmd.ErrOrStderr(), level, format),
	}, nil
}

// buildLogger creates an slog logger writing to w. level and format must
// already be validated; unknown values fall back to info/text.
func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// defaultOutputPath derives the output path from the input path by
// swapping its extension.
func defaultOutputPath(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + defaultOutputExt
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}

func isValidLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	}
	return false
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
