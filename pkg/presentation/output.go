package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/christophe-duc/podfs/pkg/config"
	"github.com/christophe-duc/podfs/pkg/kubefs"
	"github.com/goccy/go-yaml"
	"github.com/samber/lo"
)

const (
	TableFormat = "table"
	YamlFormat  = "yaml"
	JSONFormat  = "json"
)

var Formats = []string{TableFormat, YamlFormat, JSONFormat}

// ValidateFormat checks an --output value
func ValidateFormat(format string) error {
	if !lo.Contains(Formats, format) {
		return fmt.Errorf("unknown output format '%s'. Expected one of: %s", format, strings.Join(Formats, ", "))
	}
	return nil
}

// Printer writes command results in the chosen format
type Printer struct {
	Writer    io.Writer
	Format    string
	GuiConfig *config.GuiConfig
}

func NewPrinter(writer io.Writer, format string, guiConfig *config.GuiConfig) *Printer {
	return &Printer{Writer: writer, Format: format, GuiConfig: guiConfig}
}

func (p *Printer) PrintListing(listing *kubefs.Listing) error {
	return p.print(listing, func() (string, error) {
		return RenderListing(p.GuiConfig, listing)
	})
}

func (p *Printer) PrintChecksums(results []ChecksumResult) error {
	return p.print(results, func() (string, error) {
		return RenderChecksums(results)
	})
}

func (p *Printer) print(value interface{}, table func() (string, error)) error {
	var out []byte
	switch p.Format {
	case YamlFormat:
		var err error
		if out, err = yaml.Marshal(value); err != nil {
			return err
		}
	case JSONFormat:
		var err error
		if out, err = json.MarshalIndent(value, "", "  "); err != nil {
			return err
		}
		out = append(out, '\n')
	default:
		rendered, err := table()
		if err != nil {
			return err
		}
		if rendered == "" {
			return nil
		}
		out = []byte(rendered + "\n")
	}

	_, err := p.Writer.Write(out)
	return err
}
