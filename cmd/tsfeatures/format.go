package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// newTable returns a borderless go-pretty table writing to w on Render.
func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateRows = false
	return tbl
}

// outputResult writes result to w in the --format format.
func outputResult(w io.Writer, result CLIResult) error {
	return outputResultAs(w, flagFormat, result)
}

func outputResultAs(w io.Writer, format string, result CLIResult) error {
	switch format {
	case "text":
		return outputResultText(w, result)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the text formatter for the result type.
func outputResultText(w io.Writer, result CLIResult) error {
	switch v := result.Results.(type) {
	case []CLIFileReport:
		formatReportsText(w, v)
	case CLIFileReport:
		formatReportsText(w, []CLIFileReport{v})
	case CLICollectStats:
		formatStatsText(w, v)
	case []CLIFeature:
		formatCatalogText(w, v, time.Now())
	case CLISummary:
		formatSummaryText(w, v)
	case CLIDirectory:
		fmt.Fprintf(w, "%s: %s\n", v.Dir, joinOrNone(v.Features))
	case []string:
		for _, s := range v {
			fmt.Fprintln(w, s)
		}
	case CLIScriptResult:
		formatScriptText(w, v)
	case nil:
		// No output for nil results (e.g. a file that was never collected).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

func formatReportsText(w io.Writer, reports []CLIFileReport) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"FILE", "FEATURES", "TIME", "ERRORS"})
	for _, r := range reports {
		errs := ""
		if r.HasErrors {
			errs = color.YellowString("recovered")
		}
		tbl.AppendRow(table.Row{
			r.Path,
			joinOrNone(r.Features),
			time.Duration(r.ProcessTime).Round(time.Microsecond),
			errs,
		})
	}
	tbl.Render()
}

func formatStatsText(w io.Writer, s CLICollectStats) {
	fmt.Fprintf(w, "Collected %s files under %s in %s\n",
		humanize.Comma(int64(s.Discovered)), s.Root, time.Duration(s.ElapsedMS)*time.Millisecond)
	fmt.Fprintf(w, "  analyzed %s, cached %s, unchanged %s, removed %s, failed %s\n",
		humanize.Comma(int64(s.Analyzed)),
		humanize.Comma(int64(s.Cached)),
		humanize.Comma(int64(s.Unchanged)),
		humanize.Comma(int64(s.Removed)),
		humanize.Comma(int64(s.Failed)),
	)
	fmt.Fprintf(w, "Database: %s\n", s.Database)
}

func formatCatalogText(w io.Writer, feats []CLIFeature, now time.Time) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"FEATURE", "SINCE", "RELEASED"})
	for _, f := range feats {
		released := f.Released
		if t, err := time.Parse(time.DateOnly, f.Released); err == nil {
			released = fmt.Sprintf("%s (%s)", f.Released, humanize.RelTime(t, now, "ago", "from now"))
		}
		tbl.AppendRow(table.Row{f.Name, "TypeScript " + f.Version, released})
	}
	tbl.Render()
}

func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintf(w, "%s %s (%s use at least one feature, %s needed error recovery)\n\n",
		color.New(color.Bold).Sprint("Files:"), humanize.Comma(int64(s.Files)), humanize.Comma(int64(s.WithFeature)), humanize.Comma(int64(s.WithErrors)))

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"FEATURE", "SINCE", "FILES", "ADOPTION"})
	for _, a := range s.Adoption {
		tbl.AppendRow(table.Row{a.Feature, a.Version, humanize.Comma(int64(a.Files)), fmt.Sprintf("%.1f%%", a.Ratio*100)})
	}
	tbl.Render()
}

func formatScriptText(w io.Writer, r CLIScriptResult) {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"KEY", "VALUE"})
	for _, k := range r.Keys {
		tbl.AppendRow(table.Row{k, formatValue(r.Values[k])})
	}
	tbl.Render()
}

// formatValue renders script values compactly; maps and lists as JSON.
func formatValue(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	case nil:
		return "nil"
	default:
		return fmt.Sprint(v)
	}
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text", "yaml"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(validFormats, ", "))
}
