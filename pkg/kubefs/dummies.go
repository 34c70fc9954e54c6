package kubefs

import (
	"io"
	"time"

	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/sirupsen/logrus"
)

// This file exports dummy constructors for use by tests in other packages

// NewDummyLog creates a new dummy Log for testing
func NewDummyLog() *logrus.Entry {
	log := logrus.New()
	log.Out = io.Discard
	return log.WithField("test", "test")
}

// NewDummyFileSystem creates a FileSystem on top of a fake channel
func NewDummyFileSystem(fake *channel.Fake) *FileSystem {
	return NewFileSystem(NewDummyLog(), fake, time.Minute, 0, time.UTC)
}
