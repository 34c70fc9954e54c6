package kubefs

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/christophe-duc/podfs/pkg/channel"
)

// Transfer moves file contents in and out of a container with dd
type Transfer struct {
	Executor *Executor
}

func NewTransfer(executor *Executor) *Transfer {
	return &Transfer{Executor: executor}
}

// Download streams the contents of path into sink and returns how many bytes
// were written to it
func (t *Transfer) Download(ctx context.Context, target channel.Target, path string, sink io.Writer) (int64, error) {
	counter := &countingWriter{writer: sink}
	_, err := t.Executor.Exec(ctx, target, []string{"dd", "if=" + path, "status=none"}, nil, counter)
	return counter.Count(), err
}

// Upload streams source into path, replacing whatever was there, and returns
// how many bytes were read from source
func (t *Transfer) Upload(ctx context.Context, target channel.Target, path string, source io.Reader) (int64, error) {
	counter := &countingReader{reader: source}
	_, err := t.Executor.Exec(ctx, target, []string{"dd", "of=" + path, "status=none", "bs=10M"}, counter, nil)
	return counter.Count(), err
}

type countingWriter struct {
	writer io.Writer
	count  atomic.Int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.writer.Write(p)
	w.count.Add(int64(n))
	return n, err
}

func (w *countingWriter) Count() int64 {
	return w.count.Load()
}

type countingReader struct {
	reader io.Reader
	count  atomic.Int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.count.Add(int64(n))
	return n, err
}

func (r *countingReader) Count() int64 {
	return r.count.Load()
}
