// Package kubefs is a file-system client for containers that only needs a way
// to run a command in the container with its stdio attached. Everything is
// done with ls, mv, rm, mkdir, touch, md5sum and dd.
package kubefs

import (
	"time"

	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/sirupsen/logrus"
)

// FileSystem bundles listing, file operations and transfers over a single
// channel
type FileSystem struct {
	*Lister
	*FileOps
	*Transfer

	Executor *Executor
}

// NewFileSystem builds a FileSystem. timeout bounds every command except dd
// transfers, which are bounded by transferTimeout; zero leaves them to the
// caller's context. location is the zone busybox timestamps are read in.
func NewFileSystem(log *logrus.Entry, ch channel.Channel, timeout time.Duration, transferTimeout time.Duration, location *time.Location) *FileSystem {
	executor := NewExecutor(log, ch, timeout)

	return &FileSystem{
		Lister:   NewLister(log, executor, location),
		FileOps:  NewFileOps(executor),
		Transfer: NewTransfer(executor.WithTimeout(transferTimeout)),
		Executor: executor,
	}
}
