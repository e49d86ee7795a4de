package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
	"github.com/Tiliavir/ttt-timeline/internal/view"
)

var (
	exportFormat string
	exportGroup  bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export this week's time entries to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json, yaml, md")
	exportCmd.Flags().BoolVar(&exportGroup, "group", false, "Group entries in md output (default from view.grouping)")
}

func runExport(cmd *cobra.Command, args []string) error {
	now := time.Now()

	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	from, to := timecalc.WeekRange(now)
	entries, err := store.LoadRange(from, to)
	if err != nil {
		fail(2, err)
	}

	grouping := cfg.View.Grouping
	if cmd.Flags().Changed("group") {
		grouping = exportGroup
	}
	if err := writeExport(cmd.OutOrStdout(), entries, exportFormat, grouping, now); err != nil {
		fail(2, err)
	}
	return nil
}

func writeExport(w io.Writer, entries []model.Entry, format string, grouping bool, now time.Time) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return fmt.Errorf("error encoding YAML: %w", err)
		}
		return enc.Close()
	case "md":
		printView(w, view.Materialize(holdersOf(entries, grouping)), now)
	default: // csv
		printCSV(w, entries, now)
	}
	return nil
}

func printCSV(w io.Writer, entries []model.Entry, now time.Time) {
	fmt.Fprintln(w, "date,project,task,description,start,end,duration_minutes")
	for _, e := range entries {
		description := ""
		if e.Description != nil {
			description = *e.Description
		}
		endStr := ""
		if e.End != nil {
			endStr = e.End.Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s,%s,%s,%s,%s,%s,%d\n",
			csvEscape(timecalc.DayKey(e.Start)),
			csvEscape(e.Project),
			csvEscape(e.TaskName()),
			csvEscape(description),
			csvEscape(e.Start.Format(time.RFC3339)),
			csvEscape(endStr),
			int64(e.Duration(now).Minutes()),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
