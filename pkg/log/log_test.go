package log

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/christophe-duc/podfs/pkg/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAppConfig(t *testing.T, debug bool, level string) *config.AppConfig {
	userConfig := config.GetDefaultConfig()
	userConfig.Log.Level = level
	return &config.AppConfig{
		Name:       "podfs",
		Version:    "1.2.3",
		Debug:      debug,
		ConfigDir:  t.TempDir(),
		UserConfig: &userConfig,
	}
}

func TestNewLogger(t *testing.T) {
	type scenario struct {
		testName string
		debug    bool
		level    string
		test     func(*logrus.Entry, string)
	}

	scenarios := []scenario{
		{
			"production logger keeps warnings",
			false,
			"",
			func(entry *logrus.Entry, dir string) {
				assert.Equal(t, logrus.WarnLevel, entry.Logger.GetLevel())
				assert.Equal(t, os.Stderr, entry.Logger.Out)
				assert.NoFileExists(t, filepath.Join(dir, DevelopmentLogName))
			},
		},
		{
			"production logger with a configured level",
			false,
			"error",
			func(entry *logrus.Entry, dir string) {
				assert.Equal(t, logrus.ErrorLevel, entry.Logger.GetLevel())
			},
		},
		{
			"development logger writes json to the config dir",
			true,
			"",
			func(entry *logrus.Entry, dir string) {
				assert.Equal(t, logrus.DebugLevel, entry.Logger.GetLevel())
				entry.Debug("hello")
				content, err := os.ReadFile(filepath.Join(dir, DevelopmentLogName))
				require.NoError(t, err)
				assert.Contains(t, string(content), `"msg":"hello"`)
				assert.Contains(t, string(content), `"version":"1.2.3"`)
				assert.Contains(t, string(content), `"runtime":"kube"`)
			},
		},
		{
			"development logger with a configured level",
			true,
			"info",
			func(entry *logrus.Entry, dir string) {
				assert.Equal(t, logrus.InfoLevel, entry.Logger.GetLevel())
			},
		},
	}

	for _, s := range scenarios {
		t.Run(s.testName, func(t *testing.T) {
			appConfig := newTestAppConfig(t, s.debug, s.level)

			entry, err := NewLogger(appConfig)
			require.NoError(t, err)
			s.test(entry, appConfig.ConfigDir)
		})
	}
}

func TestNewLoggerUnwritableConfigDir(t *testing.T) {
	appConfig := newTestAppConfig(t, true, "")
	appConfig.ConfigDir = filepath.Join(appConfig.ConfigDir, "missing")

	_, err := NewLogger(appConfig)
	assert.Error(t, err)
}

func TestProductionLoggerFormat(t *testing.T) {
	out := &bytes.Buffer{}
	log := newProductionLogger(out)

	log.Info("quiet")
	log.Warn("could not resolve symlinks")

	assert.Equal(t, "level=warning msg=\"could not resolve symlinks\"\n", out.String())
}
