package config

import (
	"time"
)

// UserConfig holds all of the user-configurable options. The fields here are all in PascalCase but in your actual config.yml they'll be in camelCase. You can view the default config with `podfs --config`.
type UserConfig struct {
	// Runtime decides which exec channel commands are sent through and how to reach it
	Runtime RuntimeConfig `yaml:"runtime,omitempty"`

	// Exec holds settings that apply to every remote command
	Exec ExecConfig `yaml:"exec,omitempty"`

	// Listing configures directory listings
	Listing ListingConfig `yaml:"listing,omitempty"`

	// Transfer configures uploads, downloads and bulk checksums
	Transfer TransferConfig `yaml:"transfer,omitempty"`

	// Server configures `podfs serve`
	Server ServerConfig `yaml:"server,omitempty"`

	// Gui is for configuring how listings are rendered in the terminal
	Gui GuiConfig `yaml:"gui,omitempty"`

	// Log configures what podfs logs and where
	Log LogConfig `yaml:"log,omitempty"`
}

// RuntimeConfig determines which exec channel we use. Kind is one of kube, docker, podman, ssh or local.
type RuntimeConfig struct {
	Kind string `yaml:"kind,omitempty"`

	// Kubeconfig is the path to a kubeconfig file. When empty the usual client-go loading rules apply ($KUBECONFIG, then ~/.kube/config)
	Kubeconfig string `yaml:"kubeconfig,omitempty"`

	// Context is the kubeconfig context to use. Empty means the current context
	Context string `yaml:"context,omitempty"`

	// DockerHost overrides socket detection for the docker runtime, e.g. unix:///var/run/docker.sock
	DockerHost string `yaml:"dockerHost,omitempty"`

	// PodmanSocket overrides socket detection for the podman runtime
	PodmanSocket string `yaml:"podmanSocket,omitempty"`

	// SSHUser is prepended to the host when the ssh runtime is used and the pod name has no user of its own
	SSHUser string `yaml:"sshUser,omitempty"`

	// KnownHostsFile enables host key checking for the ssh runtime
	KnownHostsFile string `yaml:"knownHostsFile,omitempty"`
}

// ExecConfig applies to every remote command
type ExecConfig struct {
	// Timeout bounds a single remote command other than a transfer. Anything that takes longer is cancelled and reported as a transport failure.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ListingConfig configures `ls`
type ListingConfig struct {
	// ShowHidden lists dotfiles by default, as if -a was passed
	ShowHidden bool `yaml:"showHidden,omitempty"`

	// TimeLocation is the IANA zone busybox timestamps are read in, as they carry no offset. Defaults to UTC
	TimeLocation string `yaml:"timeLocation,omitempty"`
}

// TransferConfig configures uploads, downloads and md5sum over several paths
type TransferConfig struct {
	// Concurrency is how many checksums we run at once
	Concurrency int `yaml:"concurrency,omitempty"`

	// ProgressInterval is how often transfer progress gets reported
	ProgressInterval time.Duration `yaml:"progressInterval,omitempty"`

	// Timeout bounds a single upload or download. 0 means transfers run for as long as they need
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LogConfig configures logging. In debug mode logs are appended to development.log in the config dir, otherwise warnings and errors go to stderr.
type LogConfig struct {
	// Debug turns debug mode on, as if -d was passed
	Debug bool `yaml:"debug,omitempty"`

	// Level is one of trace, debug, info, warn, error, fatal or panic. Empty means debug in debug mode and warn otherwise
	Level string `yaml:"level,omitempty"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Address string `yaml:"address,omitempty"`
}

// ThemeConfig is for setting the colors of listing entries. Each value is a list of color attributes, e.g. ["blue", "bold"]
type ThemeConfig struct {
	DirectoryColor []string `yaml:"directoryColor,omitempty"`
	SymlinkColor   []string `yaml:"symlinkColor,omitempty"`
	DeviceColor    []string `yaml:"deviceColor,omitempty"`
	FileColor      []string `yaml:"fileColor,omitempty"`
}

// GuiConfig is for configuring visual things like colors
type GuiConfig struct {
	Theme ThemeConfig `yaml:"theme,omitempty"`

	// HumanSizes prints sizes like 1.2 MB instead of raw byte counts
	HumanSizes bool `yaml:"humanSizes,omitempty"`
}

// GetDefaultConfig returns the application default configuration
// NOTE (to contributors, not users): do not default a boolean to true, because false is the boolean zero value and this will be ignored when parsing the user's config
func GetDefaultConfig() UserConfig {
	return UserConfig{
		Runtime: RuntimeConfig{
			Kind: "kube",
		},
		Exec: ExecConfig{
			Timeout: 5 * time.Minute,
		},
		Listing: ListingConfig{
			ShowHidden:   false,
			TimeLocation: "UTC",
		},
		Transfer: TransferConfig{
			Concurrency:      4,
			ProgressInterval: time.Second,
		},
		Server: ServerConfig{
			Address: "127.0.0.1:8089",
		},
		Gui: GuiConfig{
			Theme: ThemeConfig{
				DirectoryColor: []string{"blue", "bold"},
				SymlinkColor:   []string{"cyan"},
				DeviceColor:    []string{"yellow"},
				FileColor:      []string{"default"},
			},
		},
	}
}
