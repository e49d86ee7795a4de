package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Tiliavir/ttt-timeline/internal/model"
	"github.com/Tiliavir/ttt-timeline/internal/timecalc"
)

var (
	reportWeek   bool
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show aggregated time report",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportWeek, "week", false, "Report for this week (default)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json, yaml")
}

// projectTotal is one line of a weekly report.
type projectTotal struct {
	Project         string `json:"project" yaml:"project"`
	DurationMinutes int64  `json:"duration_minutes" yaml:"duration_minutes"`
	seconds         int64
}

type weekReport struct {
	Week         string         `json:"week" yaml:"week"`
	Projects     []projectTotal `json:"projects" yaml:"projects"`
	TotalMinutes int64          `json:"total_minutes" yaml:"total_minutes"`
	totalSeconds int64
}

func runReport(cmd *cobra.Command, args []string) error {
	now := time.Now()

	cfg, dir := loadConfig()
	store := openStore(cfg, dir)
	defer store.Close()

	from, to := timecalc.WeekRange(now)
	entries, err := store.LoadRange(from, to)
	if err != nil {
		fail(2, err)
	}

	if err := writeReport(cmd.OutOrStdout(), buildReport(timecalc.ISOWeekLabel(now), entries, now), reportFormat); err != nil {
		fail(2, err)
	}
	return nil
}

// buildReport sums entry durations per project, sorted by project name.
// Running entries count up to now.
func buildReport(label string, entries []model.Entry, now time.Time) weekReport {
	totals := map[string]int64{}
	for _, e := range entries {
		totals[e.Project] += int64(e.Duration(now).Seconds())
	}

	r := weekReport{Week: label, Projects: []projectTotal{}}
	for p, sec := range totals {
		r.Projects = append(r.Projects, projectTotal{Project: p, DurationMinutes: sec / 60, seconds: sec})
		r.totalSeconds += sec
	}
	sort.Slice(r.Projects, func(i, j int) bool { return r.Projects[i].Project < r.Projects[j].Project })
	r.TotalMinutes = r.totalSeconds / 60
	return r
}

func writeReport(w io.Writer, r weekReport, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "project,duration_minutes")
		for _, p := range r.Projects {
			fmt.Fprintf(w, "%s,%d\n", csvEscape(p.Project), p.DurationMinutes)
		}
	case "json":
		data, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			return fmt.Errorf("error encoding JSON: %w", err)
		}
		fmt.Fprintln(w, string(data))
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("error encoding YAML: %w", err)
		}
		return enc.Close()
	default: // md
		fmt.Fprintf(w, "Week %s\n", r.Week)
		fmt.Fprintln(w, "--------------------------------")
		for _, p := range r.Projects {
			fmt.Fprintf(w, "%-20s%s\n", p.Project, timecalc.FormatDuration(p.seconds))
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s\n", "Total", timecalc.FormatDuration(r.totalSeconds))
	}
	return nil
}
