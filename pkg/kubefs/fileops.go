package kubefs

import (
	"context"

	"github.com/christophe-duc/podfs/pkg/channel"
)

// FileOps are the one-command operations. None of them look at what the
// command printed; errors come back exactly as the executor reported them.
type FileOps struct {
	Executor *Executor
}

func NewFileOps(executor *Executor) *FileOps {
	return &FileOps{Executor: executor}
}

func (f *FileOps) Move(ctx context.Context, target channel.Target, from string, to string) error {
	_, err := f.Executor.Run(ctx, target, []string{"mv", from, to})
	return err
}

// Remove removes path recursively
func (f *FileOps) Remove(ctx context.Context, target channel.Target, path string) error {
	_, err := f.Executor.Run(ctx, target, []string{"rm", "-rf", path})
	return err
}

func (f *FileOps) MakeDirectory(ctx context.Context, target channel.Target, path string) error {
	_, err := f.Executor.Run(ctx, target, []string{"mkdir", path})
	return err
}

func (f *FileOps) Touch(ctx context.Context, target channel.Target, path string) error {
	_, err := f.Executor.Run(ctx, target, []string{"touch", path})
	return err
}

// Checksum returns the output of md5sum untouched. See ParseChecksum.
func (f *FileOps) Checksum(ctx context.Context, target channel.Target, path string) (string, error) {
	return f.Executor.Run(ctx, target, []string{"md5sum", path})
}
