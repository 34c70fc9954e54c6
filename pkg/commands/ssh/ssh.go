package ssh

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/exec"
	"path"
	"time"
)

// we only need these two methods from our OSCommand struct, for killing commands
type CmdKiller interface {
	Kill(cmd *exec.Cmd) error
	PrepareForChildren(cmd *exec.Cmd)
}

// SSHHandler forwards a container engine socket on a remote machine to a
// local unix socket, so that ssh:// hosts work with API clients that only
// speak unix and tcp
type SSHHandler struct {
	oSCommand CmdKiller

	dialContext func(ctx context.Context, network, addr string) (io.Closer, error)
	startCmd    func(*exec.Cmd) error
	tempDir     func(dir string, pattern string) (name string, err error)
}

func NewSSHHandler(oSCommand CmdKiller) *SSHHandler {
	return &SSHHandler{
		oSCommand: oSCommand,

		dialContext: func(ctx context.Context, network, addr string) (io.Closer, error) {
			return (&net.Dialer{}).DialContext(ctx, network, addr)
		},
		startCmd: func(cmd *exec.Cmd) error { return cmd.Start() },
		tempDir:  os.MkdirTemp,
	}
}

// TunnelHost returns host unchanged unless its scheme is ssh, in which case
// the remote socket is forwarded and the local socket's unix:// URL is
// returned instead. The path of an ssh URL names the remote socket; without
// one defaultRemoteSocket is used. Closing the returned closer tears the
// tunnel down.
func (self *SSHHandler) TunnelHost(host string, defaultRemoteSocket string) (string, io.Closer, error) {
	u, err := url.Parse(host)
	if err != nil || u.Scheme != "ssh" {
		// anything that isn't an ssh URL is for the API client to make sense of
		return host, noopCloser{}, nil
	}

	remoteSocket := defaultRemoteSocket
	if u.Path != "" && u.Path != "/" {
		remoteSocket = u.Path
	}

	tunnel, err := self.createTunnel(context.Background(), u, remoteSocket)
	if err != nil {
		return "", noopCloser{}, fmt.Errorf("tunnel ssh host: %w", err)
	}

	return tunnel.socketPath, tunnel, nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

type tunneledHost struct {
	socketPath string
	cmd        *exec.Cmd
	oSCommand  CmdKiller
}

var _ io.Closer = (*tunneledHost)(nil)

func (t *tunneledHost) Close() error {
	return t.oSCommand.Kill(t.cmd)
}

func (self *SSHHandler) createTunnel(ctx context.Context, remote *url.URL, remoteSocket string) (*tunneledHost, error) {
	socketDir, err := self.tempDir("/tmp", "podfs-sshtunnel-")
	if err != nil {
		return nil, fmt.Errorf("create ssh tunnel tmp file: %w", err)
	}
	localSocket := path.Join(socketDir, "engine.sock")

	cmd, err := self.tunnelSSH(ctx, remote, localSocket, remoteSocket)
	if err != nil {
		return nil, fmt.Errorf("tunnel socket over ssh: %w", err)
	}

	// set a reasonable timeout, then wait for the socket to dial successfully
	// before handing it out
	const socketTunnelTimeout = 8 * time.Second
	ctx, cancel := context.WithTimeout(ctx, socketTunnelTimeout)
	defer cancel()

	err = self.retrySocketDial(ctx, localSocket)
	if err != nil {
		_ = self.oSCommand.Kill(cmd)
		return nil, fmt.Errorf("ssh tunneled socket never became available: %w", err)
	}

	newHostURL := url.URL{Scheme: "unix", Path: localSocket}
	return &tunneledHost{
		socketPath: newHostURL.String(),
		cmd:        cmd,
		oSCommand:  self.oSCommand,
	}, nil
}

// Attempt to dial the socket until it becomes available.
// The retry loop will continue until the parent context is canceled.
func (self *SSHHandler) retrySocketDial(ctx context.Context, socketPath string) error {
	t := time.NewTicker(250 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
		if err := self.tryDial(ctx, socketPath); err != nil {
			continue
		}
		return nil
	}
}

// Try to dial the specified unix socket, immediately close the connection if successfully created.
func (self *SSHHandler) tryDial(ctx context.Context, socketPath string) error {
	conn, err := self.dialContext(ctx, "unix", socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()
	return nil
}

func (self *SSHHandler) tunnelSSH(ctx context.Context, remote *url.URL, localSocket string, remoteSocket string) (*exec.Cmd, error) {
	args := []string{"-L", localSocket + ":" + remoteSocket}
	if port := remote.Port(); port != "" {
		args = append(args, "-p", port)
	}
	destination := remote.Hostname()
	if remote.User != nil && remote.User.Username() != "" {
		destination = remote.User.Username() + "@" + destination
	}
	args = append(args, destination, "-N")

	cmd := exec.CommandContext(ctx, "ssh", args...)
	self.oSCommand.PrepareForChildren(cmd)
	err := self.startCmd(cmd)
	if err != nil {
		return nil, err
	}
	return cmd, nil
}
