package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func (e *Extractor) untarGzip(ctx context.Context, archive, dest string) error {
	file, err := e.fs.Open(archive)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	gr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("gzip: %w", err)
	}
	defer func() { _ = gr.Close() }()

	return e.untar(ctx, tar.NewReader(gr), dest)
}

func (e *Extractor) untarZstd(ctx context.Context, archive, dest string) error {
	file, err := e.fs.Open(archive)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	zr, err := zstd.NewReader(file, zstd.WithDecoderLowmem(true))
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	defer zr.Close()

	return e.untar(ctx, tar.NewReader(zr), dest)
}

// untar writes every regular file of tr into dest.
// The archive is validated by reading its first header before dest is touched.
func (e *Extractor) untar(ctx context.Context, tr *tar.Reader, dest string) error {
	prepared := false
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tar: %w", err)
		}

		if header.Typeflag != tar.TypeReg {
			continue
		}

		if !prepared {
			if err := e.prepare(dest); err != nil {
				return err
			}
			prepared = true
		}

		if err := e.writeEntry(dest, header.Name, tr); err != nil {
			return err
		}
	}
}
