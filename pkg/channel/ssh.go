package channel

import (
	"context"
	"errors"
	"strings"

	"github.com/alexhunt7/ssher"
	"github.com/christophe-duc/podfs/pkg/commands"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SSHChannel runs commands directly on a remote host. The target's pod name
// is the ssh destination (anything ~/.ssh/config understands) and the
// namespace and container are ignored.
type SSHChannel struct {
	Log            *logrus.Entry
	User           string
	KnownHostsFile string

	dial         func(target string) (*ssh.Client, error)
	clientConfig func(target string, configPath string) (*ssh.ClientConfig, string, error)
}

func NewSSHChannel(log *logrus.Entry, user string, knownHostsFile string) *SSHChannel {
	s := &SSHChannel{
		Log:            log,
		User:           user,
		KnownHostsFile: knownHostsFile,
	}
	s.dial = s.openSSH
	s.clientConfig = ssher.ClientConfig
	return s
}

// resolveConfig reads ~/.ssh/config for target. ssher already checks host
// keys against ~/.ssh/known_hosts (or UserKnownHostsFile); a configured
// KnownHostsFile replaces that.
func (s *SSHChannel) resolveConfig(target string) (*ssh.ClientConfig, string, error) {
	sshConfig, hostPort, err := s.clientConfig(target, "")
	if err != nil {
		return nil, "", err
	}

	if s.KnownHostsFile != "" {
		callback, err := knownhosts.New(s.KnownHostsFile)
		if err != nil {
			return nil, "", err
		}
		sshConfig.HostKeyCallback = callback
	}

	return sshConfig, hostPort, nil
}

func (s *SSHChannel) openSSH(target string) (*ssh.Client, error) {
	sshConfig, hostPort, err := s.resolveConfig(target)
	if err != nil {
		return nil, err
	}

	return ssh.Dial("tcp", hostPort, sshConfig)
}

func (s *SSHChannel) destination(target Target) string {
	if s.User == "" || strings.Contains(target.Pod, "@") {
		return target.Pod
	}
	return s.User + "@" + target.Pod
}

func (s *SSHChannel) Stream(ctx context.Context, req Request) error {
	client, err := s.dial(s.destination(req.Target))
	if err != nil {
		return err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return err
	}
	defer session.Close()

	session.Stdin = req.Stdin
	session.Stdout = req.Stdout
	session.Stderr = req.Stderr

	if req.TTY {
		if err := session.RequestPty("xterm", 40, 80, ssh.TerminalModes{}); err != nil {
			return err
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- session.Run(ShellJoin(req.Command))
	}()

	select {
	case err := <-done:
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitStatus()}
		}
		return err
	case <-ctx.Done():
		if err := session.Signal(ssh.SIGKILL); err != nil {
			s.Log.Warnf("could not signal remote process: %v", err)
		}
		// closing the client unblocks Run
		client.Close()
		<-done
		return ctx.Err()
	}
}

// ShellJoin quotes each argument for a POSIX shell and joins them with spaces.
// An ssh session only carries a single command string, so this is where argv
// gets flattened.
func ShellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func shellQuote(arg string) string {
	if arg != "" && !strings.ContainsAny(arg, " \t\n\"'\\$`!*?[]{}()<>|&;#~") {
		return arg
	}
	return commands.ShellQuote(arg)
}
