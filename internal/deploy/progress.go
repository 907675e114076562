package deploy

import (
	"fmt"
	"io"
)

// Progress prints numbered, user-facing step messages.
type Progress struct {
	w     io.Writer
	total int
}

func NewProgress(w io.Writer) *Progress {
	if w == nil {
		w = io.Discard
	}
	return &Progress{w: w, total: len(Steps)}
}

func (p *Progress) Step(n int, format string, args ...any) {
	fmt.Fprintf(p.w, "[%d/%d] %s\n", n, p.total, fmt.Sprintf(format, args...))
}

func (p *Progress) Note(format string, args ...any) {
	fmt.Fprintf(p.w, "      %s\n", fmt.Sprintf(format, args...))
}

func (p *Progress) Done(dir, interpreter string) {
	fmt.Fprintf(p.w, "Deployment complete: %s (python: %s)\n", dir, interpreter)
}
