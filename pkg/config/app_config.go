package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPeeDeeP/xdg"
	"github.com/imdario/mergo"
	yaml "github.com/jesseduffield/yaml"
	"github.com/joho/godotenv"
	lookup "github.com/mcuadros/go-lookup"
	"github.com/spkg/bom"
)

// AppConfig contains the base configuration fields required for podfs.
type AppConfig struct {
	Debug       bool   `long:"debug" env:"DEBUG" default:"false"`
	Version     string `long:"version" env:"VERSION" default:"unversioned"`
	Commit      string `long:"commit" env:"COMMIT"`
	BuildDate   string `long:"build-date" env:"BUILD_DATE"`
	Name        string `long:"name" env:"NAME" default:"podfs"`
	BuildSource string `long:"build-source" env:"BUILD_SOURCE" default:""`
	UserConfig  *UserConfig
	ConfigDir   string
}

// envPrefix is prepended to every environment override, e.g. PODFS_RUNTIME
const envPrefix = "PODFS_"

// NewAppConfig makes a new app config
func NewAppConfig(name, version, commit, date string, buildSource string, debuggingFlag bool) (*AppConfig, error) {
	configDir, err := findOrCreateConfigDir(name)
	if err != nil {
		return nil, err
	}

	userConfig, err := loadUserConfigWithDefaults(configDir, os.Getenv)
	if err != nil {
		return nil, err
	}

	appConfig := &AppConfig{
		Name:        name,
		Version:     version,
		Commit:      commit,
		BuildDate:   date,
		Debug:       debuggingFlag || userConfig.Log.Debug,
		BuildSource: buildSource,
		UserConfig:  userConfig,
		ConfigDir:   configDir,
	}

	return appConfig, nil
}

func findOrCreateConfigDir(projectName string) (string, error) {
	folder := os.Getenv("CONFIG_DIR")
	if folder == "" {
		folder = xdg.New("christophe-duc", projectName).ConfigHome()
	}

	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", err
	}

	return folder, nil
}

func loadUserConfigWithDefaults(configDir string, getenv func(string) string) (*UserConfig, error) {
	config := GetDefaultConfig()

	fileConfig, err := loadUserConfig(configDir, &UserConfig{})
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&config, *fileConfig, mergo.WithOverride); err != nil {
		return nil, err
	}

	envConfig, err := loadEnvOverrides(configDir, getenv)
	if err != nil {
		return nil, err
	}
	if err := mergo.Merge(&config, envConfig, mergo.WithOverride); err != nil {
		return nil, err
	}

	return &config, nil
}

func loadUserConfig(configDir string, base *UserConfig) (*UserConfig, error) {
	fileName := filepath.Join(configDir, "config.yml")

	if _, err := os.Stat(fileName); err != nil {
		if os.IsNotExist(err) {
			file, err := os.Create(fileName)
			if err != nil {
				return nil, err
			}
			file.Close()
		} else {
			return nil, err
		}
	}

	content, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(bom.Clean(content), base); err != nil {
		return nil, err
	}

	return base, nil
}

// loadEnvOverrides reads PODFS_* keys from a .env file in the config dir and
// then from the process environment, which wins.
func loadEnvOverrides(configDir string, getenv func(string) string) (UserConfig, error) {
	values, err := godotenv.Read(filepath.Join(configDir, ".env"))
	if err != nil {
		if !os.IsNotExist(err) {
			return UserConfig{}, err
		}
		values = map[string]string{}
	}

	get := func(key string) string {
		if value := getenv(envPrefix + key); value != "" {
			return value
		}
		return values[envPrefix+key]
	}

	config := UserConfig{
		Runtime: RuntimeConfig{
			Kind:           get("RUNTIME"),
			Kubeconfig:     get("KUBECONFIG"),
			Context:        get("CONTEXT"),
			DockerHost:     get("DOCKER_HOST"),
			PodmanSocket:   get("PODMAN_SOCKET"),
			SSHUser:        get("SSH_USER"),
			KnownHostsFile: get("KNOWN_HOSTS"),
		},
		Listing: ListingConfig{
			TimeLocation: get("TIME_LOCATION"),
		},
		Server: ServerConfig{
			Address: get("SERVER_ADDRESS"),
		},
		Log: LogConfig{
			Level: get("LOG_LEVEL"),
		},
	}

	if value := get("DEBUG"); value != "" {
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return UserConfig{}, err
		}
		config.Log.Debug = debug
	}

	if value := get("EXEC_TIMEOUT"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return UserConfig{}, err
		}
		config.Exec.Timeout = timeout
	}

	if value := get("TRANSFER_TIMEOUT"); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil {
			return UserConfig{}, err
		}
		config.Transfer.Timeout = timeout
	}

	if value := get("TRANSFER_CONCURRENCY"); value != "" {
		concurrency, err := strconv.Atoi(value)
		if err != nil {
			return UserConfig{}, err
		}
		config.Transfer.Concurrency = concurrency
	}

	return config, nil
}

// WriteToUserConfig allows you to set a value on the user config to be saved
// note that if you set a zero-value, it may be ignored e.g. a false or 0 or empty string
// this is because we are using the omitempty yaml directive so that we don't write a heap
// of zero values to the user's config.yml
func (c *AppConfig) WriteToUserConfig(updateConfig func(*UserConfig) error) error {
	userConfig, err := loadUserConfig(c.ConfigDir, &UserConfig{})
	if err != nil {
		return err
	}

	if err := updateConfig(userConfig); err != nil {
		return err
	}

	out, err := yaml.Marshal(userConfig)
	if err != nil {
		return err
	}

	return os.WriteFile(c.ConfigFilename(), out, 0o666)
}

// ConfigFilename returns the filename of the current config file
func (c *AppConfig) ConfigFilename() string {
	return filepath.Join(c.ConfigDir, "config.yml")
}

// Get resolves a dotted path like "exec.timeout" against the user config.
// Each segment may be the yaml key or the Go field name, in any case.
func (c *AppConfig) Get(path string) (interface{}, error) {
	value, err := lookup.Lookup(c.UserConfig, fieldPath(reflect.TypeOf(c.UserConfig), path)...)
	if err != nil {
		return nil, err
	}
	if value.Kind() == reflect.Invalid {
		return nil, nil
	}
	return value.Interface(), nil
}

// fieldPath turns the segments of a dotted path into Go field names.
// Segments that don't name a field are passed through untouched so the
// lookup reports them as missing.
func fieldPath(t reflect.Type, path string) []string {
	segments := strings.Split(path, lookup.SplitToken)
	for i, segment := range segments {
		name, index := segment, ""
		if open := strings.Index(segment, lookup.IndexOpenChar); open >= 0 {
			name, index = segment[:open], segment[open:]
		}

		for t != nil && (t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice) {
			t = t.Elem()
		}
		if t == nil || t.Kind() != reflect.Struct {
			t = nil
			continue
		}

		field, ok := findField(t, name)
		if !ok {
			t = nil
			continue
		}
		segments[i] = field.Name + index
		t = field.Type
	}
	return segments
}

func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		yamlName := strings.Split(field.Tag.Get("yaml"), ",")[0]
		if strings.EqualFold(field.Name, name) || (yamlName != "" && strings.EqualFold(yamlName, name)) {
			return field, true
		}
	}
	return reflect.StructField{}, false
}
