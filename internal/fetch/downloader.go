package fetch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"
)

// partSuffix marks an in-flight download next to its destination.
const partSuffix = ".part"

// progressInterval limits how often a ProgressFunc fires during a transfer.
const progressInterval = 100 * time.Millisecond

// ProgressFunc receives the bytes written so far and the expected total
// (-1 when the server sent no length). It is always called once at the end.
type ProgressFunc func(written, total int64)

// Download streams url into dst, creating parent directories. The body goes
// to dst+".part" first and replaces dst only once the transfer completed, so
// a failed download leaves an existing dst untouched.
func (c *Client) Download(ctx context.Context, url, dst string, progress ProgressFunc) error {
	req, err := c.newRequest(ctx, url)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	if err := c.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	part := dst + partSuffix
	f, err := c.fs.OpenFile(part, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	var w io.Writer = f
	var pw *progressWriter
	if progress != nil {
		pw = &progressWriter{
			w:       f,
			total:   resp.ContentLength,
			fn:      progress,
			limiter: rate.NewLimiter(rate.Every(progressInterval), 1),
		}
		w = pw
	}

	_, copyErr := io.Copy(w, resp.Body)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = c.fs.Remove(part)
		return fmt.Errorf("failed to download %s: %w", url, copyErr)
	}

	if err := c.fs.Rename(part, dst); err != nil {
		_ = c.fs.Remove(part)
		return &fs.PathError{Op: "rename", Path: dst, Err: err}
	}

	if pw != nil {
		pw.fn(pw.written, pw.total)
	}

	c.logger.Debug().Str("url", url).Str("file", dst).Msg("downloaded")
	return nil
}

// progressWriter counts bytes and reports them at most once per interval.
type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      ProgressFunc
	limiter *rate.Limiter
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.limiter.Allow() {
		p.fn(p.written, p.total)
	}
	return n, err
}
