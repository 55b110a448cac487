package opc

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInvalidPartURI is returned when a part URI does not begin with "/".
var ErrInvalidPartURI = errors.New(`opc: part URI must begin with "/"`)

// PackageWriter streams package parts into a zip archive and appends the
// content-types manifest as the final entry on Close.
//
// A PackageWriter is single-use and not safe for concurrent use. Entries
// appear in the archive in the order WritePart was called.
type PackageWriter struct {
	zw    *zip.Writer
	types *ContentTypes
}

// NewPackageWriter creates a PackageWriter that writes the archive to w.
func NewPackageWriter(w io.Writer) *PackageWriter {
	return &PackageWriter{
		zw:    zip.NewWriter(w),
		types: NewContentTypes(),
	}
}

// WritePart registers the part's content type and writes its data verbatim
// as a zip entry named after the URI with the leading slash removed.
func (pw *PackageWriter) WritePart(uri, contentType string, data []byte) error {
	if !strings.HasPrefix(uri, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPartURI, uri)
	}

	pw.types.AddContent(uri, contentType)

	f, err := pw.zw.Create(uri[1:])
	if err != nil {
		return fmt.Errorf("opc: failed to create entry for %s: %w", uri, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("opc: failed to write entry for %s: %w", uri, err)
	}
	return nil
}

// Close serializes the accumulated content types, writes them as the
// terminal "[Content_Types].xml" entry and finalizes the archive so the
// central directory is written.
func (pw *PackageWriter) Close() error {
	data, err := pw.types.XMLData()
	if err != nil {
		return fmt.Errorf("opc: failed to serialize content types: %w", err)
	}

	f, err := pw.zw.Create(ContentTypesName)
	if err != nil {
		return fmt.Errorf("opc: failed to create %s entry: %w", ContentTypesName, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("opc: failed to write %s entry: %w", ContentTypesName, err)
	}

	if err := pw.zw.Close(); err != nil {
		return fmt.Errorf("opc: failed to finalize archive: %w", err)
	}
	return nil
}
