package log

import (
	"io"
	"os"
	"path/filepath"

	"github.com/christophe-duc/podfs/pkg/config"
	"github.com/sirupsen/logrus"
)

// DevelopmentLogName is the file debug logs are appended to, inside the
// config dir
const DevelopmentLogName = "development.log"

// NewLogger returns the logger every package logs through. In debug mode it
// appends JSON to development.log in the config dir, at log.level or debug.
// Otherwise warnings and errors go to stderr as plain text, so they never mix
// with listings or downloads written to stdout.
func NewLogger(config *config.AppConfig) (*logrus.Entry, error) {
	var log *logrus.Logger
	if config.Debug {
		file, err := os.OpenFile(filepath.Join(config.ConfigDir, DevelopmentLogName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return nil, err
		}
		log = newDevelopmentLogger(file)
	} else {
		log = newProductionLogger(os.Stderr)
	}

	if level, ok := configuredLevel(config.UserConfig); ok {
		log.SetLevel(level)
	}

	return log.WithFields(logrus.Fields{
		"debug":     config.Debug,
		"version":   config.Version,
		"commit":    config.Commit,
		"buildDate": config.BuildDate,
		"runtime":   config.UserConfig.Runtime.Kind,
	}), nil
}

// configuredLevel reads log.level, which PODFS_LOG_LEVEL overrides. Validation
// has already rejected unknown names.
func configuredLevel(userConfig *config.UserConfig) (logrus.Level, bool) {
	if userConfig.Log.Level == "" {
		return 0, false
	}
	level, err := logrus.ParseLevel(userConfig.Log.Level)
	if err != nil {
		return 0, false
	}
	return level, true
}

// tail -f development.log | humanlog
func newDevelopmentLogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(logrus.DebugLevel)
	log.Formatter = &logrus.JSONFormatter{}
	return log
}

func newProductionLogger(out io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)
	log.SetLevel(logrus.WarnLevel)
	log.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	return log
}
