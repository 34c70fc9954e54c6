package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// RuntimeKinds lists the values accepted for runtime.kind
var RuntimeKinds = []string{"kube", "docker", "podman", "ssh", "local"}

// Validate validates the user config
func (config *UserConfig) Validate() error {
	if !lo.Contains(RuntimeKinds, config.Runtime.Kind) {
		return fmt.Errorf("Unrecognized runtime kind '%s'. Expected one of: %s",
			config.Runtime.Kind, strings.Join(RuntimeKinds, ", "))
	}

	if config.Exec.Timeout <= 0 {
		return fmt.Errorf("exec.timeout must be positive, got %s", config.Exec.Timeout)
	}

	if config.Transfer.Timeout < 0 {
		return fmt.Errorf("transfer.timeout must not be negative, got %s", config.Transfer.Timeout)
	}

	if config.Transfer.Concurrency < 1 {
		return fmt.Errorf("transfer.concurrency must be at least 1, got %d", config.Transfer.Concurrency)
	}

	if config.Log.Level != "" {
		if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
	}

	if _, err := config.Location(); err != nil {
		return fmt.Errorf("listing.timeLocation: %w", err)
	}

	return nil
}

// Location returns the zone busybox timestamps should be read in
func (config *UserConfig) Location() (*time.Location, error) {
	if config.Listing.TimeLocation == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(config.Listing.TimeLocation)
}
