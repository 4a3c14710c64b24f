package download

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"

	"github.com/go-fetchassets/pkg/utils"
)

const progressRedrawInterval = 100 * time.Millisecond

// TerminalProgress returns f when it is attached to a terminal, nil otherwise.
// The result is meant for Client.SetProgressOutput.
func TerminalProgress(f *os.File) io.Writer {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return f
}

// progressWriter counts bytes passing through it. With a terminal attached it
// redraws a one-line meter, otherwise it emits a debug line every 10%.
type progressWriter struct {
	total   int64 // -1 when the server sent no Content-Length
	written int64

	out      io.Writer
	logger   *utils.Logger
	lastStep int64
	lastDraw time.Time
	now      func() time.Time
}

func newProgressWriter(total int64, out io.Writer, logger *utils.Logger) *progressWriter {
	return &progressWriter{
		total:  total,
		out:    out,
		logger: logger,
		now:    time.Now,
	}
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))

	if p.out != nil {
		if now := p.now(); now.Sub(p.lastDraw) >= progressRedrawInterval {
			p.lastDraw = now
			p.draw()
		}
		return len(b), nil
	}

	if p.total > 0 && p.logger.DebugEnabled() {
		step := p.written * 10 / p.total
		if step > p.lastStep {
			p.lastStep = step
			p.logger.Debug("Downloaded %s of %s (%d%%)",
				humanize.Bytes(uint64(p.written)), humanize.Bytes(uint64(p.total)), step*10)
		}
	}
	return len(b), nil
}

// finish draws the final state and ends the meter line
func (p *progressWriter) finish() {
	if p.out == nil {
		return
	}
	p.draw()
	fmt.Fprintln(p.out)
}

func (p *progressWriter) draw() {
	if p.total > 0 {
		fmt.Fprintf(p.out, "\r%s / %s (%3d%%)",
			humanize.Bytes(uint64(p.written)), humanize.Bytes(uint64(p.total)), p.written*100/p.total)
		return
	}
	fmt.Fprintf(p.out, "\r%s", humanize.Bytes(uint64(p.written)))
}
