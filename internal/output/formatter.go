package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Supported formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

var errUnsupportedFormat = errors.New("unsupported output format")

// Section is one titled table of a report.
type Section struct {
	Title  string
	Header []string
	Rows   [][]string
}

// Report is implemented by command results that can be rendered as tables.
// JSON and YAML output encode the report value itself.
type Report interface {
	Sections() []Section
}

// Formatter writes reports in the selected format.
type Formatter struct {
	format string
	w      io.Writer
}

// NewFormatter validates format and returns a formatter writing to w.
func NewFormatter(w io.Writer, format string) (*Formatter, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatTable
	}

	switch format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: %s (expected table, json or yaml)", errUnsupportedFormat, format)
	}

	return &Formatter{format: format, w: w}, nil
}

// IsTable reports whether human-oriented lines should be printed around reports.
func (f *Formatter) IsTable() bool {
	return f.format == FormatTable
}

// Writer returns the destination writer.
func (f *Formatter) Writer() io.Writer {
	return f.w
}

// Print renders report.
func (f *Formatter) Print(report Report) error {
	switch f.format {
	case FormatJSON:
		return f.printJSON(report)
	case FormatYAML:
		return f.printYAML(report)
	default:
		return f.printTables(report.Sections())
	}
}

func (f *Formatter) printJSON(data any) error {
	encoder := json.NewEncoder(f.w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(data)
}

func (f *Formatter) printYAML(data any) error {
	encoder := yaml.NewEncoder(f.w)
	encoder.SetIndent(2) //nolint:mnd // Two-space YAML indentation.

	if err := encoder.Encode(data); err != nil {
		return err
	}

	return encoder.Close()
}

func (f *Formatter) printTables(sections []Section) error {
	for i, section := range sections {
		if i > 0 {
			fmt.Fprintln(f.w) //nolint:errcheck // Best effort terminal output.
		}

		if section.Title != "" {
			fmt.Fprintln(f.w, section.Title) //nolint:errcheck // Best effort terminal output.
		}

		if len(section.Rows) == 0 {
			fmt.Fprintln(f.w, "(none)") //nolint:errcheck // Best effort terminal output.
			continue
		}

		table := tablewriter.NewWriter(f.w)
		table.SetHeader(section.Header)
		table.SetAutoWrapText(false)
		table.SetAutoFormatHeaders(true)
		table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
		table.SetAlignment(tablewriter.ALIGN_LEFT)
		table.SetBorder(false)
		table.SetCenterSeparator("")
		table.SetColumnSeparator("")
		table.SetRowSeparator("")
		table.SetHeaderLine(false)
		table.SetTablePadding("  ")
		table.SetNoWhiteSpace(true)
		table.AppendBulk(section.Rows)
		table.Render()
	}

	return nil
}
