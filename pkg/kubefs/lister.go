package kubefs

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/christophe-duc/podfs/pkg/channel"
	"github.com/christophe-duc/podfs/pkg/utils"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// unrecognizedFullTime is what busybox ls prints when given --full-time
const unrecognizedFullTime = "ls: unrecognized option: full-time"

type listerState int

const (
	// primaryState lists with the GNU dialect
	primaryState listerState = iota
	// fallbackState lists with the busybox dialect. There's no way out of it.
	fallbackState
)

func (s listerState) dialect() *Dialect {
	if s == fallbackState {
		return BusyBoxDialect
	}
	return GNUDialect
}

// next decides what a failed listing leads to. Only busybox rejecting
// --full-time moves us on, and only out of the primary state.
func (s listerState) next(err error) (listerState, bool) {
	if s == primaryState && HasErrorCode(err, RemoteCommandFailure) && strings.Contains(err.Error(), unrecognizedFullTime) {
		return fallbackState, true
	}
	return s, false
}

// Lister lists remote directories with `ls`
type Lister struct {
	Log      *logrus.Entry
	Executor *Executor

	// Location is the zone timestamps without an offset are read in
	Location *time.Location
}

func NewLister(log *logrus.Entry, executor *Executor, location *time.Location) *Lister {
	if location == nil {
		location = time.UTC
	}
	return &Lister{
		Log:      log,
		Executor: executor,
		Location: location,
	}
}

// List lists path inside target. Symlinks pointing at directories are
// returned among the directories; every other symlink stays among the files
// where ls printed it.
func (l *Lister) List(ctx context.Context, target channel.Target, path string, opts ListOptions) (*Listing, error) {
	flags := "-lQ"
	if opts.ShowHidden {
		flags = "-laQ"
	}

	state := primaryState
	var output string
	for {
		var err error
		output, err = l.Executor.Run(ctx, target, []string{"ls", flags, "--color=never", state.dialect().TimeFlag, path})
		if err == nil {
			break
		}

		nextState, ok := state.next(err)
		if !ok {
			return nil, err
		}
		l.Log.Debugf("ls does not support --full-time in %s, switching to the %s dialect", target, nextState.dialect().Name)
		state = nextState
	}

	parser := &LineParser{Dialect: state.dialect(), Location: l.Location}
	entries := parser.Parse(path, output)

	listing := &Listing{
		Directories: []*FileEntry{},
		Files:       []*FileEntry{},
	}
	symlinks := []*FileEntry{}
	for _, entry := range entries {
		switch entry.Kind {
		case "d":
			listing.Directories = append(listing.Directories, entry)
		case "l":
			listing.Files = append(listing.Files, entry)
			if entry.LinkTo != "" {
				symlinks = append(symlinks, entry)
			}
		default:
			listing.Files = append(listing.Files, entry)
		}
	}

	if len(symlinks) > 0 {
		l.resolveSymlinks(ctx, target, symlinks)

		resolvedDirs := lo.Filter(listing.Files, func(entry *FileEntry, _ int) bool {
			return entry.IsSymlink() && entry.IsDir()
		})
		listing.Directories = append(listing.Directories, resolvedDirs...)
		listing.Files = lo.Filter(listing.Files, func(entry *FileEntry, _ int) bool {
			return !(entry.IsSymlink() && entry.IsDir())
		})
	}

	sort.SliceStable(listing.Directories, func(i, j int) bool {
		return listing.Directories[i].Name < listing.Directories[j].Name
	})

	return listing, nil
}

// resolveSymlinks asks for all link targets at once. A symlink only takes
// the kind of its target when the target is a directory or the channel
// reported an inline exit for it; every other symlink keeps its `l` kind.
// It's best effort: when the command fails nothing changes.
func (l *Lister) resolveSymlinks(ctx context.Context, target channel.Target, symlinks []*FileEntry) {
	targets := lo.Uniq(lo.Map(symlinks, func(entry *FileEntry, _ int) string {
		return entry.LinkTo
	}))

	output, err := l.Executor.Run(ctx, target, append([]string{"ls", "-ldQ", "--color=never"}, targets...))
	if err != nil {
		l.Log.Warnf("could not resolve symlinks in %s: %v", target, err)
		return
	}

	for _, line := range utils.SplitLines(output) {
		kind, path, ok := parseResolvedLine(line)
		if !ok {
			continue
		}
		if kind != "d" && !strings.Contains(line, inlineExitMarker) {
			continue
		}
		for _, symlink := range symlinks {
			if symlink.processed || symlink.LinkTo != path {
				continue
			}
			symlink.Kind = kind
			symlink.processed = true
		}
	}
}

const inlineExitMarker = "command terminated with non-zero exit code"

// parseResolvedLine reads the kind and the quoted path off a line of
// `ls -ld` output. A channel reporting a non-zero exit inline, as in
//
//	command terminated with non-zero exit code: ... "/broken/target"
//
// is matched by the same rule.
func parseResolvedLine(line string) (string, string, bool) {
	if len(line) < 4 {
		return "", "", false
	}
	start := strings.IndexByte(line, '"')
	if start < 0 {
		return "", "", false
	}
	path, _, ok := readQuoted(line, start)
	if !ok {
		return "", "", false
	}
	return line[:1], path, true
}

// ListFirst lists path in each container in turn and returns the first
// listing that succeeds, along with the container it came from
func (l *Lister) ListFirst(ctx context.Context, namespace string, pod string, containers []string, path string, opts ListOptions) (*Listing, string, error) {
	if len(containers) == 0 {
		return nil, "", errors.New("no containers to list")
	}

	var lastErr error
	for _, container := range containers {
		target := channel.Target{Namespace: namespace, Pod: pod, Container: container}
		listing, err := l.List(ctx, target, path, opts)
		if err == nil {
			return listing, container, nil
		}
		l.Log.Debugf("listing %s in %s failed: %v", path, target, err)
		lastErr = err
	}

	return nil, "", lastErr
}
