package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

const progressBarWidth = 30

// Progress renders update progress. On a terminal it draws a bar; otherwise
// it prints a line whenever the label changes.
type Progress struct {
	mu    sync.Mutex
	w     io.Writer
	tty   bool
	bar   *progressbar.ProgressBar
	label string
}

// NewProgress creates a renderer writing to w.
func NewProgress(w io.Writer, tty bool) *Progress {
	return &Progress{w: w, tty: tty}
}

// Percent shows progress in percent under label.
func (p *Progress) Percent(label string, percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tty {
		if label != p.label {
			_, _ = fmt.Fprintf(p.w, "%s...\n", label)
			p.label = label
		}
		return
	}

	if p.bar == nil {
		p.bar = p.newBar(100, label, false)
	}
	if label != p.label {
		p.bar.Describe("[cyan]" + label + "[reset]")
		p.label = label
	}
	_ = p.bar.Set(int(percent))
}

// Bytes returns a callback tracking a transfer of unknown or known size.
func (p *Progress) Bytes(label string) func(written, total int64) {
	return func(written, total int64) {
		p.mu.Lock()
		defer p.mu.Unlock()

		if !p.tty {
			if label != p.label {
				_, _ = fmt.Fprintf(p.w, "%s...\n", label)
				p.label = label
			}
			return
		}

		if p.bar == nil {
			p.bar = p.newBar(total, label, true)
			p.label = label
		}
		_ = p.bar.Set64(written)
	}
}

// Done finishes and clears the bar.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		_ = p.bar.Finish()
		_, _ = fmt.Fprintln(p.w)
	}
	p.bar = nil
	p.label = ""
}

func (p *Progress) newBar(max int64, label string, bytes bool) *progressbar.ProgressBar {
	opts := []progressbar.Option{
		progressbar.OptionSetWriter(p.w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(progressBarWidth),
		progressbar.OptionSetDescription("[cyan]" + label + "[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionSetPredictTime(false),
	}
	if bytes {
		opts = append(opts, progressbar.OptionShowBytes(true))
	} else {
		opts = append(opts, progressbar.OptionShowCount())
	}
	return progressbar.NewOptions64(max, opts...)
}
