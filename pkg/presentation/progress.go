package presentation

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/boz/go-throttle"
	"github.com/dustin/go-humanize"
)

// Progress counts bytes flowing through a transfer and reports them at most
// once per interval
type Progress struct {
	label   string
	total   int64
	out     io.Writer
	count   atomic.Int64
	started time.Time

	throttle throttle.Throttle
	stopped  chan struct{}
}

// NewProgress reports to out. A total of zero or less means unknown.
func NewProgress(out io.Writer, label string, total int64, interval time.Duration) *Progress {
	p := &Progress{
		label:    label,
		total:    total,
		out:      out,
		started:  time.Now(),
		throttle: throttle.NewThrottle(interval, true),
		stopped:  make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for p.throttle.Next() {
			p.report()
		}
	}()

	return p
}

// Write counts b and triggers a report. It never fails so it can sit in an
// io.MultiWriter or io.TeeReader.
func (p *Progress) Write(b []byte) (int, error) {
	p.count.Add(int64(len(b)))
	p.throttle.Trigger()
	return len(b), nil
}

func (p *Progress) Count() int64 {
	return p.count.Load()
}

// Done stops reporting and prints a final line
func (p *Progress) Done() {
	p.throttle.Stop()
	<-p.stopped
	fmt.Fprintf(p.out, "%s: %s in %s\n", p.label, humanize.IBytes(uint64(p.Count())), time.Since(p.started).Round(time.Millisecond))
}

func (p *Progress) report() {
	count := p.Count()
	if p.total > 0 {
		fmt.Fprintf(p.out, "%s: %s / %s (%d%%)\n", p.label, humanize.IBytes(uint64(count)), humanize.IBytes(uint64(p.total)), count*100/p.total)
		return
	}
	fmt.Fprintf(p.out, "%s: %s\n", p.label, humanize.IBytes(uint64(count)))
}
