package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/christophe-duc/podfs/pkg/commands"
	"github.com/christophe-duc/podfs/pkg/commands/ssh"
	"github.com/christophe-duc/podfs/pkg/config"
	"github.com/christophe-duc/podfs/pkg/kubefs"
	"github.com/christophe-duc/podfs/pkg/log"
	"github.com/christophe-duc/podfs/pkg/utils"
	"github.com/sirupsen/logrus"
)

// App struct
type App struct {
	closers []io.Closer

	Config    *config.AppConfig
	Log       *logrus.Entry
	OSCommand *commands.OSCommand
	Channel   channel.Channel
	FS        *kubefs.FileSystem
}

// NewApp bootstrap a new application, connecting to the runtime named in the
// user config
func NewApp(config *config.AppConfig) (*App, error) {
	if err := config.UserConfig.Validate(); err != nil {
		return nil, err
	}

	logger, err := log.NewLogger(config)
	if err != nil {
		return nil, err
	}
	osCommand := commands.NewOSCommand(logger, config)

	ch, closers, err := newChannel(logger, osCommand, &config.UserConfig.Runtime)
	if err != nil {
		_ = utils.CloseMany(closers)
		return nil, err
	}

	app, err := NewAppWithChannel(config, logger, ch)
	if err != nil {
		_ = utils.CloseMany(closers)
		return nil, err
	}
	app.closers = append(app.closers, closers...)
	return app, nil
}

// NewAppWithChannel builds an app on top of an existing channel. If the
// channel is an io.Closer it gets closed along with the app.
func NewAppWithChannel(config *config.AppConfig, logger *logrus.Entry, ch channel.Channel) (*App, error) {
	location, err := config.UserConfig.Location()
	if err != nil {
		return nil, err
	}

	app := &App{
		closers:   []io.Closer{},
		Config:    config,
		Log:       logger,
		OSCommand: commands.NewOSCommand(logger, config),
		Channel:   ch,
		FS:        kubefs.NewFileSystem(logger, ch, config.UserConfig.Exec.Timeout, config.UserConfig.Transfer.Timeout, location),
	}
	if closer, ok := ch.(io.Closer); ok {
		app.closers = append(app.closers, closer)
	}

	return app, nil
}

const (
	remoteDockerSocket = "/var/run/docker.sock"
	remotePodmanSocket = "/run/podman/podman.sock"
)

// newChannel connects to the configured runtime. The closers are tunnels
// that have to outlive the channel.
func newChannel(log *logrus.Entry, osCommand *commands.OSCommand, runtime *config.RuntimeConfig) (channel.Channel, []io.Closer, error) {
	closers := []io.Closer{}
	sshHandler := ssh.NewSSHHandler(osCommand)

	switch channel.Kind(runtime.Kind) {
	case channel.KindKube:
		ch, err := channel.NewKubeChannel(log, runtime.Kubeconfig, runtime.Context)
		if err != nil {
			return nil, closers, err
		}
		return ch, closers, nil

	case channel.KindDocker:
		host := runtime.DockerHost
		if host == "" {
			detected, detectedRuntime, err := commands.DetectDockerHost(log)
			if err != nil {
				return nil, closers, err
			}
			log.Debugf("using %s socket %s", detectedRuntime, detected)
			host = detected
		}
		host, tunnel, err := sshHandler.TunnelHost(host, remoteDockerSocket)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, tunnel)

		ch, err := channel.NewDockerChannel(log, host)
		if err != nil {
			return nil, closers, err
		}
		return ch, closers, nil

	case channel.KindPodman:
		socket := runtime.PodmanSocket
		if socket == "" {
			detected, err := commands.DetectPodmanSocket(log, osCommand)
			if err != nil {
				return nil, closers, err
			}
			socket = detected
		}
		socket, tunnel, err := sshHandler.TunnelHost(socket, remotePodmanSocket)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, tunnel)

		ch, err := channel.NewPodmanChannel(log, socket)
		if err != nil {
			return nil, closers, err
		}
		return ch, closers, nil

	case channel.KindSSH:
		return channel.NewSSHChannel(log, runtime.SSHUser, runtime.KnownHostsFile), closers, nil

	case channel.KindLocal:
		return channel.NewLocalChannel(log, osCommand), closers, nil
	}

	return nil, closers, fmt.Errorf("unsupported runtime '%s'", runtime.Kind)
}

func (app *App) Close() error {
	return utils.CloseMany(app.closers)
}

type errorMapping struct {
	originalError string
	newError      string
}

// KnownError takes an error and tells us whether it's an error that we know about where we can print a nicely formatted version of it rather than panicking with a stack trace
func (app *App) KnownError(err error) (string, bool) {
	if commands.HasErrorCode(err, commands.NoSocketFound) {
		return err.Error(), true
	}

	errorMessage := err.Error()

	mappings := []errorMapping{
		{
			originalError: "Got permission denied while trying to connect to the Docker daemon socket",
			newError:      "Can't access the docker socket. Try adding yourself to the docker group, or set runtime.dockerHost in your config",
		},
		{
			originalError: "no configuration has been provided",
			newError:      "No kubeconfig found. Set runtime.kubeconfig in your config or the KUBECONFIG environment variable",
		},
		{
			originalError: "Cannot connect to the Docker daemon",
			newError:      "Can't connect to the docker daemon. Is it running?",
		},
	}

	for _, mapping := range mappings {
		if strings.Contains(errorMessage, mapping.originalError) {
			return mapping.newError, true
		}
	}

	return "", false
}
