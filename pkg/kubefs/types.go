package kubefs

import (
	"time"
)

// Success is what a streaming call returns once it has completed, since
// there's no text to hand back
const Success = "Success"

// FileEntry is one remote file-system object observed by a listing
type FileEntry struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Dir  string `json:"dir" yaml:"dir"`

	// Kind is the first character of the `ls -l` line: d, l, c, b, p, s or -.
	// Symlinks whose target was resolved carry the target's kind.
	Kind       string    `json:"kind" yaml:"kind"`
	Attr       string    `json:"attr" yaml:"attr"`
	HardLinks  int       `json:"hardLinks" yaml:"hardLinks"`
	Owner      string    `json:"owner" yaml:"owner"`
	Group      string    `json:"group" yaml:"group"`
	Size       int64     `json:"size" yaml:"size"`
	UpdateTime time.Time `json:"updateTime" yaml:"updateTime"`

	// LinkTo is only set for symlinks, and is always absolute
	LinkTo string `json:"linkTo,omitempty" yaml:"linkTo,omitempty"`

	processed bool
}

// IsSymlink tells us whether the entry was listed as a symlink, whether or
// not its target has since been resolved
func (f *FileEntry) IsSymlink() bool {
	return f.LinkTo != ""
}

// IsDir is true for directories and symlinks resolved to directories
func (f *FileEntry) IsDir() bool {
	return f.Kind == "d"
}

// Listing is the result of listing one directory. Directories are sorted by
// name, files keep the order ls printed them in.
type Listing struct {
	Directories []*FileEntry `json:"directories" yaml:"directories"`
	Files       []*FileEntry `json:"files" yaml:"files"`
}

// ListOptions tweaks a listing
type ListOptions struct {
	// ShowHidden passes -a, dotfiles included. `.` and `..` are never returned
	ShowHidden bool
}
