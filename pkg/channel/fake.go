package channel

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sasha-s/go-deadlock"
)

// Fake is an in-memory Channel for tests in this and other packages. Replies
// are looked up by the space-joined command line. dd reads and writes
// against Files so that transfers can be exercised end to end. Commands with
// no reply behave like a missing binary.
type Fake struct {
	// StreamFunc, when set, answers every request and bypasses the replies
	StreamFunc func(ctx context.Context, req Request) error

	Files map[string][]byte

	replies map[string]func(ctx context.Context, req Request) error
	calls   []FakeCall
	mutex   deadlock.Mutex
}

// FakeCall records one invocation for assertions
type FakeCall struct {
	Target  Target
	Command []string
	Stdin   bool
}

func NewFake() *Fake {
	return &Fake{
		Files:   map[string][]byte{},
		replies: map[string]func(ctx context.Context, req Request) error{},
	}
}

// Reply answers the command line with the given stdout and a zero exit
func (f *Fake) Reply(commandLine string, stdout string) *Fake {
	return f.ReplyFunc(commandLine, func(_ context.Context, req Request) error {
		_, err := io.WriteString(req.Stdout, stdout)
		return err
	})
}

// ReplyError answers the command line by writing stderr and exiting with 1
func (f *Fake) ReplyError(commandLine string, stderr string) *Fake {
	return f.ReplyFunc(commandLine, func(_ context.Context, req Request) error {
		if _, err := io.WriteString(req.Stderr, stderr); err != nil {
			return err
		}
		return &ExitError{Code: 1}
	})
}

func (f *Fake) ReplyFunc(commandLine string, fn func(ctx context.Context, req Request) error) *Fake {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.replies[commandLine] = fn
	return f
}

// Calls returns a copy of the recorded invocations
func (f *Fake) Calls() []FakeCall {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]FakeCall{}, f.calls...)
}

// CommandLines returns the recorded invocations as space-joined strings
func (f *Fake) CommandLines() []string {
	calls := f.Calls()
	lines := make([]string, len(calls))
	for i, call := range calls {
		lines[i] = strings.Join(call.Command, " ")
	}
	return lines
}

func (f *Fake) Stream(ctx context.Context, req Request) error {
	commandLine := strings.Join(req.Command, " ")

	f.mutex.Lock()
	f.calls = append(f.calls, FakeCall{
		Target:  req.Target,
		Command: append([]string{}, req.Command...),
		Stdin:   req.Stdin != nil,
	})
	streamFunc := f.StreamFunc
	reply, ok := f.replies[commandLine]
	f.mutex.Unlock()

	if streamFunc != nil {
		return streamFunc(ctx, req)
	}
	if ok {
		return reply(ctx, req)
	}
	if len(req.Command) > 0 && req.Command[0] == "dd" {
		return f.dd(req)
	}

	name := ""
	if len(req.Command) > 0 {
		name = req.Command[0]
	}
	fmt.Fprintf(req.Stderr, "sh: %s: not found\n", name)
	return &ExitError{Code: 127}
}

func (f *Fake) dd(req Request) error {
	var input, output string
	for _, arg := range req.Command[1:] {
		switch {
		case strings.HasPrefix(arg, "if="):
			input = strings.TrimPrefix(arg, "if=")
		case strings.HasPrefix(arg, "of="):
			output = strings.TrimPrefix(arg, "of=")
		}
	}

	if input != "" {
		f.mutex.Lock()
		content, ok := f.Files[input]
		f.mutex.Unlock()
		if !ok {
			fmt.Fprintf(req.Stderr, "dd: failed to open '%s': No such file or directory\n", input)
			return &ExitError{Code: 1}
		}
		_, err := io.Copy(req.Stdout, bytes.NewReader(content))
		return err
	}

	if output != "" && req.Stdin != nil {
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, req.Stdin); err != nil {
			return err
		}
		f.mutex.Lock()
		f.Files[output] = buf.Bytes()
		f.mutex.Unlock()
		return nil
	}

	fmt.Fprintln(req.Stderr, "dd: missing operand")
	return &ExitError{Code: 1}
}
