package channel

import (
	"bufio"
	"context"
	"io"

	"github.com/containers/podman/v5/pkg/api/handlers"
	"github.com/containers/podman/v5/pkg/bindings"
	"github.com/containers/podman/v5/pkg/bindings/containers"
	dockerContainer "github.com/docker/docker/api/types/container"
	"github.com/sirupsen/logrus"
)

// PodmanChannel runs commands through Podman's REST API bindings. Like the
// docker channel it addresses containers by name and ignores namespaces.
type PodmanChannel struct {
	Log  *logrus.Entry
	conn context.Context
}

// NewPodmanChannel connects to a socket path of the form
// "unix:///path/to/podman.sock"
func NewPodmanChannel(log *logrus.Entry, socketPath string) (*PodmanChannel, error) {
	conn, err := bindings.NewConnection(context.Background(), socketPath)
	if err != nil {
		return nil, err
	}
	return &PodmanChannel{Log: log, conn: conn}, nil
}

func (p *PodmanChannel) Stream(ctx context.Context, req Request) error {
	containerID := req.Target.Container
	if containerID == "" {
		containerID = req.Target.Pod
	}

	// the bindings read their connection out of the context, so we derive
	// from it and tie its lifetime to the caller's context
	execCtx, cancel := context.WithCancel(p.conn)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	sessionID, err := containers.ExecCreate(execCtx, containerID, &handlers.ExecCreateConfig{
		ExecOptions: dockerContainer.ExecOptions{
			AttachStdin:  req.Stdin != nil,
			AttachStdout: true,
			AttachStderr: true,
			Tty:          req.TTY,
			Cmd:          req.Command,
		},
	})
	if err != nil {
		return p.contextError(ctx, err)
	}

	attach := true
	var stdout io.Writer = req.Stdout
	var stderr io.Writer = req.Stderr
	options := &containers.ExecStartAndAttachOptions{
		OutputStream: &stdout,
		ErrorStream:  &stderr,
		AttachOutput: &attach,
		AttachError:  &attach,
	}
	if req.Stdin != nil {
		options.InputStream = bufio.NewReader(req.Stdin)
		options.AttachInput = &attach
	}

	if err := containers.ExecStartAndAttach(execCtx, sessionID, options); err != nil {
		return p.contextError(ctx, err)
	}

	inspect, err := containers.ExecInspect(execCtx, sessionID, nil)
	if err != nil {
		return p.contextError(ctx, err)
	}
	if inspect.ExitCode != 0 {
		return &ExitError{Code: inspect.ExitCode}
	}

	return nil
}

// contextError prefers the caller's cancellation over whatever error the
// bindings produced while being torn down
func (p *PodmanChannel) contextError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
