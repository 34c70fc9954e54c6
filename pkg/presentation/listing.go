package presentation

import (
	"fmt"
	"strconv"

	"github.com/christophe-duc/podfs/pkg/config"
	"github.com/christophe-duc/podfs/pkg/kubefs"
	"github.com/christophe-duc/podfs/pkg/utils"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/samber/lo"
)

// TimeLayout is how update times are shown in tables
const TimeLayout = "2006-01-02 15:04"

var listingHeader = []string{"MODE", "LINKS", "OWNER", "GROUP", "SIZE", "UPDATED", "NAME"}

type entryRow struct {
	guiConfig *config.GuiConfig
	entry     *kubefs.FileEntry
}

func (r entryRow) GetDisplayStrings() []string {
	entry := r.entry
	return []string{
		entry.Attr,
		strconv.Itoa(entry.HardLinks),
		entry.Owner,
		entry.Group,
		displaySize(r.guiConfig, entry.Size),
		displayTime(entry),
		displayName(r.guiConfig, entry),
	}
}

// RenderListing renders directories first and then files, one per line
func RenderListing(guiConfig *config.GuiConfig, listing *kubefs.Listing) (string, error) {
	entries := append(append([]*kubefs.FileEntry{}, listing.Directories...), listing.Files...)
	if len(entries) == 0 {
		return "", nil
	}

	rows := lo.Map(entries, func(entry *kubefs.FileEntry, _ int) entryRow {
		return entryRow{guiConfig: guiConfig, entry: entry}
	})

	return utils.RenderList(rows, utils.WithHeader(listingHeader))
}

func displaySize(guiConfig *config.GuiConfig, size int64) string {
	if guiConfig.HumanSizes {
		return humanize.IBytes(uint64(size))
	}
	return strconv.FormatInt(size, 10)
}

func displayTime(entry *kubefs.FileEntry) string {
	if entry.UpdateTime.IsZero() {
		return "?"
	}
	return entry.UpdateTime.Format(TimeLayout)
}

func displayName(guiConfig *config.GuiConfig, entry *kubefs.FileEntry) string {
	name := utils.ColoredStringDirect(entry.Name, entryColor(guiConfig, entry))
	if entry.IsSymlink() {
		return fmt.Sprintf("%s -> %s", name, entry.LinkTo)
	}
	return name
}

func entryColor(guiConfig *config.GuiConfig, entry *kubefs.FileEntry) *color.Color {
	theme := guiConfig.Theme
	var keys []string
	switch {
	case entry.IsDir():
		keys = theme.DirectoryColor
	case entry.IsSymlink():
		keys = theme.SymlinkColor
	case entry.Kind == "c" || entry.Kind == "b":
		keys = theme.DeviceColor
	default:
		keys = theme.FileColor
	}

	attributes := lo.Map(keys, func(key string, _ int) color.Attribute {
		return utils.GetColorAttribute(key)
	})
	return color.New(attributes...)
}

// ChecksumResult is one line of `podfs md5sum` output
type ChecksumResult struct {
	Path   string `json:"path" yaml:"path"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
	Error  string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r ChecksumResult) GetDisplayStrings() []string {
	if r.Error != "" {
		return []string{utils.ColoredString("FAILED", color.FgRed), r.Path + ": " + r.Error}
	}
	return []string{r.Digest, r.Path}
}

// RenderChecksums renders results the way md5sum would print them
func RenderChecksums(results []ChecksumResult) (string, error) {
	return utils.RenderList(results)
}
