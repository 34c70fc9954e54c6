//go:build windows

package commands

import (
	"context"

	"github.com/sirupsen/logrus"
)

const (
	DockerSocketSchema = "npipe://"
	DockerSocketPath   = "//./pipe/docker_engine"
)

// SocketCandidate represents a potential socket to try
type SocketCandidate struct {
	Path    string
	Runtime ContainerRuntime
}

func getSocketCandidates() []SocketCandidate {
	return []SocketCandidate{
		{Path: DockerSocketSchema + DockerSocketPath, Runtime: RuntimeDocker},
		{Path: "npipe:////./pipe/podman-machine-default", Runtime: RuntimePodman},
	}
}

func detectPlatformCandidates(log *logrus.Entry) (string, ContainerRuntime, error) {
	for _, candidate := range getSocketCandidates() {
		ctx, cancel := context.WithTimeout(context.Background(), socketValidationTimeout)
		err := validateSocketFunc(ctx, candidate.Path)
		cancel()

		if err == nil {
			return candidate.Path, candidate.Runtime, nil
		}
		log.Debugf("Pipe %s validation failed: %v", candidate.Path, err)
	}

	// Fallback to default Docker host
	return DockerSocketSchema + DockerSocketPath, RuntimeDocker, nil
}
