package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/deepnoodle-ai/hitl"
	"github.com/fatih/color"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("111"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	statusStyles = map[hitl.ThreadStatus]lipgloss.Style{
		hitl.ThreadStatusRunning:   lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		hitl.ThreadStatusSuspended: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		hitl.ThreadStatusCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	}
)

// writeSection prints a titled panel.
func writeSection(w io.Writer, title, body string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, panelStyle.Render(strings.TrimSpace(body)))
}

func writeInfo(w io.Writer, message string) {
	color.New(color.FgBlue).Fprintf(w, "\n[INFO] %s\n", message)
}

func writeSuccess(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

func writeWarning(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, format+"\n", args...)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func renderStatus(status hitl.ThreadStatus) string {
	style, ok := statusStyles[status]
	if !ok {
		return string(status)
	}
	return style.Render(string(status))
}

func renderState(state hitl.State) string {
	if len(state) == 0 {
		return dimStyle.Render("(empty)")
	}
	var sb strings.Builder
	for i, key := range state.Keys() {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(labelStyle.Render(key + ":"))
		sb.WriteString(" ")
		sb.WriteString(state.Value(key))
	}
	return sb.String()
}

func renderCheckpoint(cp *hitl.Checkpoint) string {
	var lines []string
	lines = append(lines,
		labelStyle.Render("Thread:")+" "+cp.ThreadID,
		labelStyle.Render("Status:")+" "+renderStatus(cp.Status),
		labelStyle.Render("Steps:")+" "+fmt.Sprint(cp.StepCount),
	)
	if cp.PendingStep != "" {
		lines = append(lines, labelStyle.Render("Pending step:")+" "+cp.PendingStep)
	}
	if cp.PendingQuestion != nil {
		lines = append(lines, labelStyle.Render("Question:")+" "+cp.PendingQuestion.Question)
	}
	lines = append(lines,
		labelStyle.Render("Started:")+" "+formatTime(cp.StartTime),
		labelStyle.Render("Updated:")+" "+formatTime(cp.CheckpointAt),
	)
	return strings.Join(lines, "\n")
}

func renderSummaries(summaries []*hitl.ThreadSummary) string {
	if len(summaries) == 0 {
		return dimStyle.Render("No threads.")
	}
	var sb strings.Builder
	for i, s := range summaries {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%-32s %-22s %-22s %s",
			s.ThreadID, renderStatus(s.Status), s.PendingStep,
			dimStyle.Render(formatTime(s.StartTime)))
	}
	return sb.String()
}

func renderHistory(entries []*hitl.StepLogEntry) string {
	if len(entries) == 0 {
		return dimStyle.Render("No steps recorded.")
	}
	var sb strings.Builder
	for i, entry := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		outcome := "→ " + entry.Next
		switch {
		case entry.Error != "":
			outcome = color.RedString("error: %s", entry.Error)
		case entry.Question != "":
			outcome = "asked: " + entry.Question
		}
		line := fmt.Sprintf("%s %s %s",
			dimStyle.Render(entry.StartTime.Format(time.TimeOnly)),
			labelStyle.Render(entry.Step),
			outcome)
		if entry.Answer != nil {
			line += dimStyle.Render(fmt.Sprintf(" (answer %q)", *entry.Answer))
		}
		sb.WriteString(line)
	}
	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
