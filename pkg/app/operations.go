package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/christophe-duc/podfs/pkg/kubefs"
	"github.com/christophe-duc/podfs/pkg/presentation"
	"github.com/christophe-duc/podfs/pkg/server"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-errors/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options are the flags shared by every command
type Options struct {
	Namespace  string
	Pod        string
	Containers []string
	ShowHidden bool
	Output     string
}

// Target is the container commands run in. Only ls looks past the first
// container.
func (o Options) Target() channel.Target {
	target := channel.Target{Namespace: o.Namespace, Pod: o.Pod}
	if len(o.Containers) > 0 {
		target.Container = o.Containers[0]
	}
	return target
}

func (app *App) printer(out io.Writer, opts Options) *presentation.Printer {
	return presentation.NewPrinter(out, opts.Output, &app.Config.UserConfig.Gui)
}

// List prints the listing of dir. With several containers the first one
// that can list it wins.
func (app *App) List(ctx context.Context, opts Options, dir string, out io.Writer) error {
	listOptions := kubefs.ListOptions{
		ShowHidden: opts.ShowHidden || app.Config.UserConfig.Listing.ShowHidden,
	}

	var listing *kubefs.Listing
	if len(opts.Containers) > 1 {
		var container string
		var err error
		listing, container, err = app.FS.ListFirst(ctx, opts.Namespace, opts.Pod, opts.Containers, dir, listOptions)
		if err != nil {
			return err
		}
		app.Log.Debugf("listed %s in container %s", dir, container)
	} else {
		var err error
		listing, err = app.FS.List(ctx, opts.Target(), dir, listOptions)
		if err != nil {
			return err
		}
	}

	if app.Log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		app.Log.Debug(spew.Sdump(listing))
	}

	return app.printer(out, opts).PrintListing(listing)
}

func (app *App) Move(ctx context.Context, opts Options, from string, to string) error {
	return app.FS.Move(ctx, opts.Target(), from, to)
}

func (app *App) Remove(ctx context.Context, opts Options, path string) error {
	return app.FS.Remove(ctx, opts.Target(), path)
}

func (app *App) MakeDirectory(ctx context.Context, opts Options, path string) error {
	return app.FS.MakeDirectory(ctx, opts.Target(), path)
}

func (app *App) Touch(ctx context.Context, opts Options, path string) error {
	return app.FS.Touch(ctx, opts.Target(), path)
}

// Checksums checksums paths concurrently and prints the results in the
// order given. Failures are printed alongside the successes and reported
// once everything has finished.
func (app *App) Checksums(ctx context.Context, opts Options, paths []string, out io.Writer) error {
	results := make([]presentation.ChecksumResult, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(app.Config.UserConfig.Transfer.Concurrency)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			results[i] = app.checksum(groupCtx, opts.Target(), path)
			return nil
		})
	}
	_ = group.Wait()

	if err := app.printer(out, opts).PrintChecksums(results); err != nil {
		return err
	}

	failed := 0
	for _, result := range results {
		if result.Error != "" {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d checksums failed", failed, len(paths))
	}
	return nil
}

func (app *App) checksum(ctx context.Context, target channel.Target, path string) presentation.ChecksumResult {
	raw, err := app.FS.Checksum(ctx, target, path)
	if err != nil {
		return presentation.ChecksumResult{Path: path, Error: strings.TrimSpace(err.Error())}
	}
	digest, _, err := kubefs.ParseChecksum(raw)
	if err != nil {
		return presentation.ChecksumResult{Path: path, Error: err.Error()}
	}
	return presentation.ChecksumResult{Path: path, Digest: digest}
}

// Download copies a remote file to local. A local path of "-" means stdout,
// in which case progress is not reported.
func (app *App) Download(ctx context.Context, opts Options, remote string, local string, progressOut io.Writer) error {
	if local == "-" {
		_, err := app.FS.Download(ctx, opts.Target(), remote, os.Stdout)
		return err
	}

	file, err := os.Create(local)
	if err != nil {
		return errors.Wrap(err, 0)
	}

	progress := presentation.NewProgress(progressOut, "download "+remote, 0, app.Config.UserConfig.Transfer.ProgressInterval)
	_, err = app.FS.Download(ctx, opts.Target(), remote, io.MultiWriter(file, progress))
	progress.Done()

	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// Upload copies a local file, or stdin when local is "-", to remote
func (app *App) Upload(ctx context.Context, opts Options, local string, remote string, progressOut io.Writer) error {
	if local == "-" {
		_, err := app.FS.Upload(ctx, opts.Target(), remote, os.Stdin)
		return err
	}

	file, err := os.Open(local)
	if err != nil {
		return errors.Wrap(err, 0)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return errors.Wrap(err, 0)
	}

	progress := presentation.NewProgress(progressOut, "upload "+remote, info.Size(), app.Config.UserConfig.Transfer.ProgressInterval)
	_, err = app.FS.Upload(ctx, opts.Target(), remote, io.TeeReader(file, progress))
	progress.Done()
	return err
}

// Run executes a command line in the container, split the way a shell would
// split it, and prints its output
func (app *App) Run(ctx context.Context, opts Options, commandLine string, out io.Writer) error {
	argv := app.OSCommand.SplitCommand(commandLine)
	if len(argv) == 0 {
		return errors.New("no command given")
	}

	output, err := app.FS.Executor.Run(ctx, opts.Target(), argv)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, output)
	return err
}

// Serve runs the HTTP API until ctx is done
func (app *App) Serve(ctx context.Context, address string) error {
	if address == "" {
		address = app.Config.UserConfig.Server.Address
	}
	return server.NewServer(app.Log, app.FS).ListenAndServe(ctx, address)
}
