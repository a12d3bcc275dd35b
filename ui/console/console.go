package console

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"autosense/internal/journal"
	"autosense/internal/output"
	"autosense/internal/projector"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// Print renders the dashboard view to the writer in a highly compact format.
func Print(w io.Writer, view output.DashboardView) {
	title := "AUTOSENSE REPORT"
	if view.Offline {
		title += " (offline sample)"
	}
	fmt.Fprintf(w, "%s%s %s%s\n", colorCyan, "■", title, colorReset)

	for _, sec := range view.Sections {
		fmt.Fprintf(w, "%s%s%s\n", colorCyan, "─ "+sec.Title, colorReset)

		for _, it := range sec.Items {
			label := it.Label
			if len(label) > 20 {
				label = label[:17] + "..."
			}

			valStr := ""
			switch {
			case it.Unit != "":
				valStr = fmt.Sprintf("%.1f%s", it.Value, it.Unit)
			case it.Note != "":
				valStr = it.Note
				if len(valStr) > 25 {
					valStr = valStr[:22] + "..."
				}
			default:
				valStr = projector.FormatNumber(it.Value)
			}

			dots := strings.Repeat("·", 22-len(label))
			fmt.Fprintf(w, "  %s%s%s %10s%s\n", label, colorCyan+dots+colorReset, "", valStr, statusMarker(it.Status))
		}
	}

	diskStr := ""
	if view.TotalDiskGB > 0 {
		diskStr = fmt.Sprintf(" | Disk: %dGB", view.TotalDiskGB)
	}
	fmt.Fprintf(w, "%s─ Summary%s: RAM: %dGB%s\n\n", colorCyan, colorReset, view.TotalRAMGB, diskStr)
}

func statusMarker(status string) string {
	color := colorFor(status)
	switch status {
	case "":
		return ""
	case "WARN":
		return fmt.Sprintf(" %s!%s", color, colorReset)
	case "CRIT":
		return fmt.Sprintf(" %sX%s", color, colorReset)
	case "OK":
		return fmt.Sprintf(" %s✓%s", color, colorReset)
	}
	return fmt.Sprintf(" %s%s%s", color, status[:1], colorReset)
}

func colorFor(status string) string {
	switch status {
	case "WARN":
		return colorYellow
	case "CRIT":
		return colorRed
	default:
		return colorGreen
	}
}

// PrintAlerts writes one row per alert. Stored alerts come first.
func PrintAlerts(w io.Writer, alerts []projector.Alert) error {
	if len(alerts) == 0 {
		_, err := fmt.Fprintln(w, "No alerts")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTYPE\tTITLE\tMESSAGE")
	for _, a := range alerts {
		clock := a.Clock()
		if clock == "" {
			clock = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", clock, a.Type, a.Title, a.Message)
	}
	return tw.Flush()
}

// PrintPrediction writes the AI health prediction and its recommendations.
func PrintPrediction(w io.Writer, p projector.Prediction) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Risk level:\t%s\n", p.Level)
	fmt.Fprintf(tw, "Failure risk:\t%d%%\n", p.RiskPercent)
	if p.Explanation != "" {
		fmt.Fprintf(tw, "Analysis:\t%s\n", p.Explanation)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(p.Recommendations) > 0 {
		fmt.Fprintln(w, "\nRecommendations:")
		for _, r := range p.Recommendations {
			fmt.Fprintf(w, "  • %s\n", r)
		}
	}
	return nil
}

// PrintHistory writes journal entries newest first.
func PrintHistory(w io.Writer, entries []journal.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No snapshots recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLLECTED\tSOURCE\tCPU\tMEMORY\tDISK\tPROCESSES")
	for _, e := range entries {
		m := e.Metrics
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%.1f%%\t%.1f%%\t%d\n",
			e.CollectedAt.Local().Format(time.DateTime), e.Source,
			m.CPUPercent, m.MemoryPercent, m.DiskPercent, m.ProcessCount)
	}
	return tw.Flush()
}

// PrintSummary writes the journal aggregates.
func PrintSummary(w io.Writer, s journal.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Runs:\t%d\n", s.Runs)
	fmt.Fprintf(tw, "Snapshots:\t%d\n", s.Snapshots)
	fmt.Fprintf(tw, "Alerts:\t%d\n", s.Alerts)
	fmt.Fprintf(tw, "CPU avg/max:\t%.1f%% / %.1f%%\n", s.AvgCPU, s.MaxCPU)
	fmt.Fprintf(tw, "Memory avg/max:\t%.1f%% / %.1f%%\n", s.AvgMemory, s.MaxMemory)
	if !s.FirstRecorded.IsZero() {
		fmt.Fprintf(tw, "Recorded:\t%s → %s\n",
			s.FirstRecorded.Local().Format(time.DateTime), s.LastRecorded.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
