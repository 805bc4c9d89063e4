package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"conveyor/internal/pipeline"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

// renderTable draws a rounded table. Column indexes listed in rightAligned
// are right-justified; everything else stays left.
func renderTable(headers []string, rows [][]string, rightAligned ...int) string {
	if len(headers) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	// Keep header labels as given instead of go-pretty's uppercase default.
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	right := make(map[int]struct{}, len(rightAligned))
	for _, i := range rightAligned {
		right[i] = struct{}{}
	}
	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if _, ok := right[i]; ok {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func stepStatusColor(status pipeline.StepStatus) string {
	switch status {
	case pipeline.StepSuccess:
		return ansiGreen
	case pipeline.StepError:
		return ansiRed
	case pipeline.StepInProgress:
		return ansiYellow
	default:
		return ""
	}
}

func runStatusColor(status pipeline.RunStatus) string {
	switch status {
	case pipeline.RunCompleted:
		return ansiGreen
	case pipeline.RunError:
		return ansiRed
	case pipeline.RunRunning, pipeline.RunPaused:
		return ansiYellow
	default:
		return ""
	}
}

func colorizeStatus(value, color string, colorize bool) string {
	if !colorize || color == "" {
		return value
	}
	return color + value + ansiReset
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

const fieldLabelWidth = 18

func renderField(label, value string) string {
	return fmt.Sprintf("  %-*s %s", fieldLabelWidth, label+":", value)
}

func formatProgress(progress float64) string {
	return fmt.Sprintf("%.0f%%", progress)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

// writeJSON renders v as indented JSON on the command's stdout, backing the
// --json mode of the listing and inspection commands.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
