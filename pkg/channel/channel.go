package channel

import (
	"context"
	"fmt"
	"io"

	"github.com/samber/lo"
)

// Target identifies the container a command runs in. Runtimes that have no
// notion of a namespace or pod ignore the fields they don't need.
type Target struct {
	Namespace string
	Pod       string
	Container string
}

func (t Target) String() string {
	if t.Namespace == "" {
		return fmt.Sprintf("%s/%s", t.Pod, t.Container)
	}
	return fmt.Sprintf("%s/%s/%s", t.Namespace, t.Pod, t.Container)
}

// Request describes one process to spawn inside a target container
type Request struct {
	Target  Target
	Command []string

	// Stdin is nil when the process gets no input
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	TTY bool
}

// Channel is a way of running a command inside a container with its stdio
// attached. Stream blocks until the remote process has exited and all of its
// output has been written. It returns nil on a zero exit status, an
// *ExitError on a non-zero exit status, and any other error when the
// connection itself could not be established or broke mid-stream.
type Channel interface {
	Stream(ctx context.Context, req Request) error
}

// Func adapts a plain function to the Channel interface
type Func func(ctx context.Context, req Request) error

func (f Func) Stream(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// ExitError reports a remote process that exited with a non-zero status
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command terminated with non-zero exit code: %d", e.Code)
}

// Kind names a supported channel provider
type Kind string

const (
	KindKube   Kind = "kube"
	KindDocker Kind = "docker"
	KindPodman Kind = "podman"
	KindSSH    Kind = "ssh"
	KindLocal  Kind = "local"
)

// Kinds lists every provider in the order we document them
var Kinds = []Kind{KindKube, KindDocker, KindPodman, KindSSH, KindLocal}

// IsValidKind tells us whether the given string names a provider
func IsValidKind(kind string) bool {
	return lo.Contains(Kinds, Kind(kind))
}
