package launcher

import (
	"context"
	"strings"

	"github.com/oshokin/mcserver-manager/internal/output"
)

const expectedMarker = "<=="

// ShortcutsReport is the result of the shortcuts list command.
type ShortcutsReport struct {
	OS              string     `json:"os" yaml:"os"`
	ExpectedDisplay string     `json:"expected_display,omitempty" yaml:"expected_display,omitempty"`
	ExpectedID      string     `json:"expected_id,omitempty" yaml:"expected_id,omitempty"`
	Shortcuts       []Shortcut `json:"shortcuts" yaml:"shortcuts"`
	columns         []string
}

// ListReport lists the shortcuts of integration, marking expected when it is set.
func ListReport(ctx context.Context, integration Integration, expected *Handoff) (*ShortcutsReport, error) {
	shortcuts, err := integration.ListShortcuts(ctx)
	if err != nil {
		return nil, err
	}

	report := &ShortcutsReport{
		OS:        integration.Name(),
		Shortcuts: shortcuts,
		columns:   integration.Columns(),
	}

	if expected != nil {
		report.ExpectedDisplay = expected.DisplayName
		report.ExpectedID = expected.SafeID
	}

	return report, nil
}

// Sections implements output.Report.
func (r *ShortcutsReport) Sections() []output.Section {
	header := []string{"ID"}
	for _, column := range r.columns {
		header = append(header, strings.ToUpper(column))
	}

	header = append(header, "")

	rows := make([][]string, 0, len(r.Shortcuts))

	for _, shortcut := range r.Shortcuts {
		row := []string{shortcut.ID}

		for _, column := range r.columns {
			path := shortcut.Files[column]
			if path == "" {
				path = "-"
			}

			row = append(row, path)
		}

		mark := ""
		if r.ExpectedID != "" && shortcut.ID == r.ExpectedID {
			mark = expectedMarker
		}

		rows = append(rows, append(row, mark))
	}

	title := "Shortcuts (" + r.OS + "):"
	if r.ExpectedID != "" {
		title = "Shortcuts (" + r.OS + "), expected " + r.ExpectedID + " (" + r.ExpectedDisplay + "):"
	}

	return []output.Section{{Title: title, Header: header, Rows: rows}}
}
