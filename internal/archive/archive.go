// Package archive extracts rule-set archives into a flat directory.
//
// Every regular file in an archive is written to the destination under its
// base name; directory structure inside the archive is dropped. Supported
// containers are tar+gzip, tar+zstd and zip.
package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Format names an archive container.
type Format string

const (
	FormatTarGzip Format = "tar.gz"
	FormatZip     Format = "zip"
	FormatTarZstd Format = "tar.zst"
)

// DefaultFormats is the fallback order used by TryUnpack.
func DefaultFormats() []Format {
	return []Format{FormatTarGzip, FormatZip, FormatTarZstd}
}

// Extractor unpacks archives on a filesystem.
type Extractor struct {
	fs     afero.Fs
	logger zerolog.Logger
}

// NewExtractor creates an extractor operating on fs.
func NewExtractor(fs afero.Fs) *Extractor {
	return &Extractor{fs: fs, logger: zerolog.Nop()}
}

// WithLogger sets the logger used for per-entry debug output.
func (e *Extractor) WithLogger(logger zerolog.Logger) *Extractor {
	e.logger = logger
	return e
}

// Extract unpacks archive into dest using a single format.
func (e *Extractor) Extract(ctx context.Context, format Format, archive, dest string) error {
	switch format {
	case FormatTarGzip:
		return e.untarGzip(ctx, archive, dest)
	case FormatZip:
		return e.unzip(ctx, archive, dest)
	case FormatTarZstd:
		return e.untarZstd(ctx, archive, dest)
	default:
		return fmt.Errorf("unsupported archive format: %s", format)
	}
}

// TryUnpack attempts each format in order and stops at the first success.
// When every format fails the returned error carries all causes.
// With no formats given, DefaultFormats is used.
func (e *Extractor) TryUnpack(ctx context.Context, archive, dest string, formats ...Format) error {
	if len(formats) == 0 {
		formats = DefaultFormats()
	}

	var result *multierror.Error
	for _, format := range formats {
		err := e.Extract(ctx, format, archive, dest)
		if err == nil {
			e.logger.Debug().Str("archive", archive).Str("format", string(format)).Msg("unpacked")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		result = multierror.Append(result, fmt.Errorf("%s: %w", format, err))
	}

	return result.ErrorOrNil()
}

// writeEntry copies r into dest under the base name of entryName.
// Names that reduce to nothing usable are skipped.
func (e *Extractor) writeEntry(dest, entryName string, r io.Reader) error {
	name := path.Base(filepath.ToSlash(entryName))
	if name == "." || name == "/" || name == ".." || name == "" {
		return nil
	}

	target := filepath.Join(dest, name)
	f, err := e.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}

	e.logger.Debug().Str("file", target).Msg("extracted")
	return nil
}

func (e *Extractor) prepare(dest string) error {
	if err := e.fs.MkdirAll(dest, 0755); err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	return nil
}
