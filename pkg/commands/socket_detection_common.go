package commands

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/docker/docker/client"
	"github.com/sirupsen/logrus"
)

// Timeout for validating socket connectivity
const socketValidationTimeout = 3 * time.Second

// ContainerRuntime says which engine sits behind a socket
type ContainerRuntime string

const (
	RuntimeDocker  ContainerRuntime = "docker"
	RuntimePodman  ContainerRuntime = "podman"
	RuntimeUnknown ContainerRuntime = "unknown"
)

// Cache for socket detection results
var (
	cachedDockerHost string
	cachedRuntime    ContainerRuntime
	dockerHostOnce   sync.Once
	dockerHostErr    error
)

// swapped out in tests
var (
	validateSocketFunc = validateSocket
	statFunc           = os.Stat
)

// DetectDockerHost finds a working Docker API socket. Podman's compat socket
// counts, since it speaks the same API.
// Results are cached after first detection
func DetectDockerHost(log *logrus.Entry) (string, ContainerRuntime, error) {
	dockerHostOnce.Do(func() {
		cachedDockerHost, cachedRuntime, dockerHostErr = detectDockerHostInternal(log)
	})
	return cachedDockerHost, cachedRuntime, dockerHostErr
}

// ResetDockerHostCache forgets the cached detection result
func ResetDockerHostCache() {
	dockerHostOnce = sync.Once{}
	cachedDockerHost = ""
	cachedRuntime = ""
	dockerHostErr = nil
}

func detectDockerHostInternal(log *logrus.Entry) (string, ContainerRuntime, error) {
	if dockerHost := os.Getenv("DOCKER_HOST"); dockerHost != "" {
		log.Debugf("Using DOCKER_HOST from environment: %s", dockerHost)
		if !strings.HasPrefix(dockerHost, "ssh://") {
			ctx, cancel := context.WithTimeout(context.Background(), socketValidationTimeout)
			defer cancel()
			if err := validateSocketFunc(ctx, dockerHost); err != nil {
				log.Warnf("DOCKER_HOST=%s is set but not accessible: %v", dockerHost, err)
			}
		}
		return dockerHost, RuntimeUnknown, nil
	}

	return detectPlatformCandidates(log)
}

// DetectPodmanSocket finds the socket of the Podman REST API. It checks
// CONTAINER_HOST, then the well known socket paths, and finally asks the
// podman CLI where its socket lives.
func DetectPodmanSocket(log *logrus.Entry, osCommand *OSCommand) (string, error) {
	if host := os.Getenv("CONTAINER_HOST"); host != "" {
		log.Debugf("Using CONTAINER_HOST from environment: %s", host)
		return host, nil
	}

	for _, candidate := range getSocketCandidates() {
		if candidate.Runtime != RuntimePodman {
			continue
		}
		if _, err := statFunc(strings.TrimPrefix(candidate.Path, DockerSocketSchema)); err == nil {
			return candidate.Path, nil
		}
	}

	output, err := osCommand.RunCommandWithOutput(`podman info --format "{{.Host.RemoteSocket.Path}}"`)
	if err != nil {
		log.Debugf("podman info failed: %v", err)
		return "", NewComplexError(NoSocketFound, "no podman socket found: is the podman service running?")
	}

	socketPath := strings.TrimSpace(output)
	if socketPath == "" {
		return "", NewComplexError(NoSocketFound, "no podman socket found: is the podman service running?")
	}
	if !strings.Contains(socketPath, "://") {
		socketPath = DockerSocketSchema + socketPath
	}

	return socketPath, nil
}

// validateSocket attempts to connect to the Docker API at the given host
func validateSocket(ctx context.Context, host string) error {
	cli, err := client.NewClientWithOpts(client.WithHost(host), client.WithAPIVersionNegotiation())
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer cli.Close()

	_, err = cli.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	return nil
}
