package channel

import (
	"context"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/sirupsen/logrus"
)

// DockerChannel runs commands through the Docker Engine exec API. Docker has
// no pods, so the container name wins and the pod name is used when no
// container was given.
type DockerChannel struct {
	Log    *logrus.Entry
	Client *client.Client
}

// NewDockerChannel connects to the given host, or to whatever DOCKER_HOST
// points at when host is empty
func NewDockerChannel(log *logrus.Entry, host string) (*DockerChannel, error) {
	cli, err := newDockerClient(host)
	if err != nil {
		return nil, err
	}

	return &DockerChannel{
		Log:    log,
		Client: cli,
	}, nil
}

// newDockerClient deliberately avoids client.FromEnv, which pins the API
// version to DOCKER_API_VERSION and disables negotiation
func newDockerClient(host string) (*client.Client, error) {
	opts := []client.Opt{
		client.WithTLSClientConfigFromEnv(),
		client.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	} else {
		opts = append(opts, client.WithHostFromEnv())
	}

	return client.NewClientWithOpts(opts...)
}

func (d *DockerChannel) Stream(ctx context.Context, req Request) error {
	containerID := req.Target.Container
	if containerID == "" {
		containerID = req.Target.Pod
	}

	created, err := d.Client.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		AttachStdin:  req.Stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
		Tty:          req.TTY,
		Cmd:          req.Command,
	})
	if err != nil {
		return err
	}

	resp, err := d.Client.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{Tty: req.TTY})
	if err != nil {
		return err
	}
	defer resp.Close()

	outDone := d.streamOut(resp, req)
	if req.Stdin != nil {
		d.streamIn(resp, req.Stdin)
	}

	select {
	case err := <-outDone:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	exitCode, err := waitForExit(ctx, func(ctx context.Context) (container.ExecInspect, error) {
		return d.Client.ContainerExecInspect(ctx, created.ID)
	})
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return &ExitError{Code: exitCode}
	}

	return nil
}

// execPollInterval is how long we wait between inspections of an exec that
// has closed its output but not yet been reaped
var execPollInterval = 50 * time.Millisecond

// waitForExit inspects the exec until the engine no longer reports it as
// running. The output stream can close before the exit code is recorded.
func waitForExit(ctx context.Context, inspect func(context.Context) (container.ExecInspect, error)) (int, error) {
	for {
		result, err := inspect(ctx)
		if err != nil {
			return 0, err
		}
		if !result.Running {
			return result.ExitCode, nil
		}

		select {
		case <-time.After(execPollInterval):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

func (d *DockerChannel) streamOut(resp types.HijackedResponse, req Request) <-chan error {
	done := make(chan error, 1)

	go func() {
		var err error
		if req.TTY {
			_, err = io.Copy(req.Stdout, resp.Reader)
		} else {
			// without a tty the engine multiplexes both streams onto one connection
			_, err = stdcopy.StdCopy(req.Stdout, req.Stderr, resp.Reader)
		}
		done <- err
	}()

	return done
}

func (d *DockerChannel) streamIn(resp types.HijackedResponse, stdin io.Reader) {
	go func() {
		if _, err := io.Copy(resp.Conn, stdin); err != nil {
			d.Log.Errorf("in stream error: %s", err)
			return
		}

		if err := resp.CloseWrite(); err != nil {
			d.Log.Errorf("close response error: %s", err)
		}
	}()
}

func (d *DockerChannel) Close() error {
	return d.Client.Close()
}
