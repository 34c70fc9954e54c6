//go:build !windows

package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	DockerSocketSchema = "unix://"
	DockerSocketPath   = "/var/run/docker.sock"
)

// SocketCandidate represents a potential socket to try
type SocketCandidate struct {
	Path    string
	Runtime ContainerRuntime
}

// getSocketCandidates returns all possible socket paths in priority order.
// Docker sockets come first since they're the common case.
func getSocketCandidates() []SocketCandidate {
	xdgRuntime := os.Getenv("XDG_RUNTIME_DIR")
	home, _ := os.UserHomeDir()
	userRun := filepath.Join("/run", "user", strconv.Itoa(os.Getuid()))

	type candidate struct {
		base    string
		parts   []string
		runtime ContainerRuntime
	}

	all := []candidate{
		{"/", []string{"var", "run", "docker.sock"}, RuntimeDocker},
		{xdgRuntime, []string{"docker.sock"}, RuntimeDocker},
		{home, []string{".docker", "run", "docker.sock"}, RuntimeDocker},
		{home, []string{".docker", "desktop", "docker.sock"}, RuntimeDocker},
		{userRun, []string{"docker.sock"}, RuntimeDocker},
		{home, []string{".colima", "default", "docker.sock"}, RuntimeDocker},
		{home, []string{".orbstack", "run", "docker.sock"}, RuntimeDocker},
		{home, []string{".rd", "docker.sock"}, RuntimeDocker},
		{xdgRuntime, []string{"podman", "podman.sock"}, RuntimePodman},
		{userRun, []string{"podman", "podman.sock"}, RuntimePodman},
		{home, []string{".local", "share", "containers", "podman", "podman.sock"}, RuntimePodman},
		{"/", []string{"run", "podman", "podman.sock"}, RuntimePodman},
	}

	candidates := make([]SocketCandidate, 0, len(all))
	for _, c := range all {
		// an unset XDG_RUNTIME_DIR or home must not turn into a relative path
		if c.base == "" {
			continue
		}
		candidates = append(candidates, SocketCandidate{
			Path:    DockerSocketSchema + filepath.Join(append([]string{c.base}, c.parts...)...),
			Runtime: c.runtime,
		})
	}

	return candidates
}

func detectPlatformCandidates(log *logrus.Entry) (string, ContainerRuntime, error) {
	var lastErr error
	candidates := getSocketCandidates()

	for _, candidate := range candidates {
		socketPath := strings.TrimPrefix(candidate.Path, DockerSocketSchema)

		// Fast path: check if socket file exists
		if _, err := statFunc(socketPath); err != nil {
			continue
		}

		// Validate by actually connecting
		ctx, cancel := context.WithTimeout(context.Background(), socketValidationTimeout)
		err := validateSocketFunc(ctx, candidate.Path)
		cancel()

		if err != nil {
			log.Debugf("Socket %s exists but validation failed: %v", candidate.Path, err)
			if strings.Contains(err.Error(), "permission denied") {
				lastErr = fmt.Errorf("%s: permission denied (are you in the docker group?)", candidate.Path)
			} else {
				lastErr = fmt.Errorf("%s: %w", candidate.Path, err)
			}
			continue
		}

		log.Infof("Connected to %s runtime via %s", candidate.Runtime, candidate.Path)
		return candidate.Path, candidate.Runtime, nil
	}

	// All candidates failed - provide actionable error
	if lastErr != nil {
		return "", RuntimeUnknown, NewComplexError(NoSocketFound, fmt.Sprintf("no working Docker/Podman socket found: last error: %v", lastErr))
	}

	return "", RuntimeUnknown, NewComplexError(NoSocketFound, "no working Docker/Podman socket found: ensure Docker or Podman is running")
}
