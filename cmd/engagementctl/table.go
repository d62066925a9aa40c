package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// rowTone flags rows whose engine state is not settled.
type rowTone int

const (
	toneSettled rowTone = iota
	toneStale           // counts kept after a failed resync
	toneBusy            // store call outstanding
	toneUnread
)

type column struct {
	title   string
	numeric bool
}

type tableRow struct {
	cells []string
	tone  rowTone
}

func renderTable(columns []column, rows []tableRow, colorize bool) string {
	if len(columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	if colorize {
		tw.Style().Color.Header = text.Colors{text.Bold}
	}

	header := make(table.Row, len(columns))
	configs := make([]table.ColumnConfig, len(columns))
	for i, col := range columns {
		header[i] = col.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}
		if col.numeric {
			configs[i].Align = text.AlignRight
		}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		colors := row.tone.colors()
		r := make(table.Row, len(columns))
		for i := range columns {
			cell := ""
			if i < len(row.cells) {
				cell = row.cells[i]
			}
			if colorize && colors != nil && cell != "" {
				cell = colors.Sprint(cell)
			}
			r[i] = cell
		}
		tw.AppendRow(r)
	}
	return tw.Render()
}

func (t rowTone) colors() text.Colors {
	switch t {
	case toneStale:
		return text.Colors{text.FgYellow}
	case toneBusy:
		return text.Colors{text.FgCyan}
	case toneUnread:
		return text.Colors{text.Bold}
	default:
		return nil
	}
}

func toneFor(stale bool, busy bool) rowTone {
	switch {
	case busy:
		return toneBusy
	case stale:
		return toneStale
	default:
		return toneSettled
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
