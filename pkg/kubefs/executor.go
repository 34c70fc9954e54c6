package kubefs

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

// Executor runs one command per call through a channel and settles each call
// exactly once
type Executor struct {
	Log     *logrus.Entry
	Channel channel.Channel

	// Timeout bounds every call on top of whatever deadline the caller's
	// context already carries. Zero means no extra bound.
	Timeout time.Duration
}

func NewExecutor(log *logrus.Entry, ch channel.Channel, timeout time.Duration) *Executor {
	return &Executor{
		Log:     log,
		Channel: ch,
		Timeout: timeout,
	}
}

// WithTimeout returns a copy of the executor bounded by timeout instead
func (e *Executor) WithTimeout(timeout time.Duration) *Executor {
	copied := *e
	copied.Timeout = timeout
	return &copied
}

// Run executes argv and returns everything it printed to stdout
func (e *Executor) Run(ctx context.Context, target channel.Target, argv []string) (string, error) {
	return e.Exec(ctx, target, argv, nil, nil)
}

// Exec executes argv inside target.
//
// Without stdin or stdout the remote stdout is buffered and returned as text
// once the process ends. With stdout, bytes are forwarded as they arrive and
// Success is returned when the process ends. With stdin, the call settles
// with Success as soon as stdin is exhausted. Any stderr output fails the
// call with a RemoteCommandError holding that output; anything going wrong
// with the channel, including the deadline, fails it with a TransportError.
func (e *Executor) Exec(ctx context.Context, target channel.Target, argv []string, stdin io.Reader, stdout io.Writer) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	log := e.Log.WithFields(logrus.Fields{
		"target":  target.String(),
		"command": argv,
	})
	before := time.Now()
	log.Debug("exec")

	c := newCall(stdout, stdin != nil)
	req := channel.Request{
		Target:  target,
		Command: argv,
		Stdout:  &callStdout{call: c},
		Stderr:  &callStderr{call: c},
		// a tty would mangle binary payloads going through dd
		TTY: false,
	}
	if stdin != nil {
		req.Stdin = &callStdin{call: c, source: stdin}
	}

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	done := make(chan error, 1)
	go func() {
		done <- e.Channel.Stream(streamCtx, req)
	}()

	streamDone := false
	select {
	case err := <-done:
		streamDone = true
		c.finish(err)
	case <-c.settled:
	case <-ctx.Done():
		c.settle("", TransportError(ctx.Err()))
	}

	output, stdinDrained, err := c.result()

	if !streamDone {
		// stdin running dry leaves the remote process to finish what it was
		// given; every other settlement tears the stream down
		if !stdinDrained {
			cancelStream()
		}
		select {
		case <-done:
		case <-ctx.Done():
			cancelStream()
			<-done
		}
	}

	if err != nil {
		log.WithField("elapsed", time.Since(before).String()).Warnf("exec failed: %v", err)
	} else {
		log.WithField("elapsed", time.Since(before).String()).Debug("exec done")
	}

	return output, err
}

// call holds the state of one Exec invocation. Every write and read coming
// from the channel goes through it so that nothing is delivered after it has
// settled.
type call struct {
	mutex deadlock.Mutex

	sink     io.Writer
	buffer   bytes.Buffer
	hasStdin bool

	settled      chan struct{}
	isSettled    bool
	stdinDrained bool
	output       string
	err          error
}

func newCall(sink io.Writer, hasStdin bool) *call {
	return &call{
		sink:     sink,
		hasStdin: hasStdin,
		settled:  make(chan struct{}),
	}
}

// settle records the outcome unless one was already recorded. The caller
// must not hold the mutex.
func (c *call) settle(output string, err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.settleLocked(output, err)
}

func (c *call) settleLocked(output string, err error) {
	if c.isSettled {
		return
	}
	c.isSettled = true
	c.output = output
	c.err = err
	close(c.settled)
}

// finish settles with whatever the end of the stream means for this call
func (c *call) finish(streamErr error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	switch {
	case streamErr != nil:
		c.settleLocked("", TransportError(streamErr))
	case c.sink != nil || c.hasStdin:
		c.settleLocked(Success, nil)
	default:
		c.settleLocked(c.buffer.String(), nil)
	}
}

func (c *call) result() (string, bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.output, c.stdinDrained, c.err
}

type callStdout struct {
	call *call
}

func (w *callStdout) Write(p []byte) (int, error) {
	c := w.call
	c.mutex.Lock()

	// late output is swallowed so the channel doesn't report a broken pipe
	if c.isSettled {
		c.mutex.Unlock()
		return len(p), nil
	}
	if c.sink == nil {
		defer c.mutex.Unlock()
		return c.buffer.Write(p)
	}
	c.mutex.Unlock()

	// the sink can be slow (an HTTP client, a disk) so it's written unlocked
	return c.sink.Write(p)
}

type callStderr struct {
	call *call
}

func (w *callStderr) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	w.call.settle("", RemoteCommandError(string(p)))
	return len(p), nil
}

type callStdin struct {
	call   *call
	source io.Reader
}

func (r *callStdin) Read(p []byte) (int, error) {
	c := r.call
	c.mutex.Lock()
	settled := c.isSettled
	c.mutex.Unlock()
	if settled {
		return 0, io.EOF
	}

	n, err := r.source.Read(p)
	if err == io.EOF {
		c.mutex.Lock()
		if !c.isSettled {
			c.stdinDrained = true
		}
		c.settleLocked(Success, nil)
		c.mutex.Unlock()
	}
	return n, err
}
