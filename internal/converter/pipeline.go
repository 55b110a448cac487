package converter

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/yuanying/flat2opc/internal/flatopc"
	"github.com/yuanying/flat2opc/internal/opc"
)

// ConvertOptions holds options for the conversion pipeline.
type ConvertOptions struct {
	// Input is a path to a flat-package XML file, or the document text
	// itself when no file exists at that path.
	Input string
	// OutputPath is where the OPC package is written.
	OutputPath string
	// Logger receives per-part progress at debug level. Optional.
	Logger *slog.Logger
}

// Pipeline orchestrates the flat-package to OPC conversion.
type Pipeline struct {
	Options ConvertOptions
}

// NewPipeline creates a new conversion pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Pipeline{Options: opts}
}

// Convert executes the conversion and writes the OPC package to the
// configured output path. On failure the partially written file is left
// in place; callers must not treat it as a usable package.
func (p *Pipeline) Convert() error {
	f, err := os.Create(p.Options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	if err := p.writeTo(f); err != nil {
		return err
	}
	return f.Close()
}

// ConvertToBytes executes the conversion and returns the OPC package as an
// in-memory byte sequence.
func ConvertToBytes(source string) ([]byte, error) {
	var buf bytes.Buffer
	p := NewPipeline(ConvertOptions{Input: source})
	if err := p.writeTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTo drives the part scanner once, streaming every part into the
// package and finishing with the content-types manifest. Any failure
// aborts the conversion; nothing is retried or rolled back.
func (p *Pipeline) writeTo(w io.Writer) error {
	scanner, err := flatopc.NewScanner(p.Options.Input)
	if err != nil {
		return err
	}

	pkg := opc.NewPackageWriter(w)
	for scanner.Scan() {
		part := scanner.Part()
		p.Options.Logger.Debug("writing part",
			"uri", part.URI,
			"contentType", part.ContentType,
			"size", len(part.Data))
		if err := pkg.WritePart(part.URI, part.ContentType, part.Data); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	return pkg.Close()
}
