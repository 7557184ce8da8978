package archive

import (
	"context"
	"fmt"

	"github.com/klauspost/compress/zip"
)

func (e *Extractor) unzip(ctx context.Context, archive, dest string) error {
	file, err := e.fs.Open(archive)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	reader, err := zip.NewReader(file, info.Size())
	if err != nil {
		return fmt.Errorf("zip: %w", err)
	}

	if err := e.prepare(dest); err != nil {
		return err
	}

	for _, entry := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.FileInfo().IsDir() {
			continue
		}

		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("zip: %w", err)
		}
		err = e.writeEntry(dest, entry.Name, rc)
		_ = rc.Close()
		if err != nil {
			return err
		}
	}

	return nil
}
