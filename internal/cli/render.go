package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/archay0/bpmnMATLAB/internal/ir"
	"github.com/archay0/bpmnMATLAB/internal/pipeline"
)

// Colors
var (
	accent  = lipgloss.Color("#FF5F5F")
	muted   = lipgloss.Color("#666666")
	success = lipgloss.Color("#00CC66")
	warning = lipgloss.Color("#FFB000")
)

// styles are bound to one writer so colors are dropped when it is not a
// terminal.
type styles struct {
	title lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	warn  lipgloss.Style
	muted lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true),
		ok:    r.NewStyle().Foreground(success).Bold(true),
		fail:  r.NewStyle().Foreground(accent).Bold(true),
		warn:  r.NewStyle().Foreground(warning),
		muted: r.NewStyle().Foreground(muted),
	}
}

func (s styles) status(st pipeline.Status) string {
	text := fmt.Sprintf("%-8s", st)
	switch st {
	case pipeline.StatusRan:
		return s.ok.Render(text)
	case pipeline.StatusFailed:
		return s.fail.Render(text)
	}
	return s.muted.Render(text)
}

func (s styles) severity(sev ir.Severity) string {
	text := fmt.Sprintf("%-7s", sev)
	switch sev {
	case ir.SeverityHigh:
		return s.fail.Render(text)
	case ir.SeverityMedium:
		return s.warn.Render(text)
	}
	return s.muted.Render(text)
}

// renderSummary formats one run summary as a stage table.
func renderSummary(w io.Writer, sum pipeline.Summary, location string) string {
	s := newStyles(w)
	var b strings.Builder

	if sum.Success {
		fmt.Fprintf(&b, "%s run %s finished in %.2fs\n", s.ok.Render("✓"), sum.RunID, sum.TotalRuntimeSeconds)
	} else {
		fmt.Fprintf(&b, "%s run %s failed after %.2fs\n", s.fail.Render("✗"), sum.RunID, sum.TotalRuntimeSeconds)
	}
	if location != "" {
		fmt.Fprintf(&b, "  %s\n", s.muted.Render(location))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "  %s\n", s.title.Render(fmt.Sprintf("%-24s %-8s %6s %8s", "STAGE", "STATUS", "COUNT", "SECONDS")))
	for _, st := range sum.Stages {
		fmt.Fprintf(&b, "  %-24s %s %6d %8.2f", st.Name, s.status(st.Status), st.Count, st.Seconds)
		if st.Reason != "" {
			fmt.Fprintf(&b, "  %s", s.muted.Render(st.Reason))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "  %s\n", s.muted.Render(fmt.Sprintf(
		"phases %d · processes %d · elements %d · flows %d · pools %d · lanes %d · resources %d · issues %d (+%d structural)",
		sum.PhasesCount, sum.ProcessesCount, sum.ElementsCount, sum.FlowsCount,
		sum.PoolsCount, sum.LanesCount, sum.ResourcesCount, sum.IssuesCount, sum.StructuralIssuesCount)))
	if len(sum.ModelFingerprint) >= 12 {
		fmt.Fprintf(&b, "  %s\n", s.muted.Render("model "+sum.ModelFingerprint[:12]))
	}
	return b.String()
}

// renderIssues formats audit findings, one per line.
func renderIssues(w io.Writer, heading string, issues []ir.Issue) string {
	s := newStyles(w)
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)\n", s.title.Render(heading), len(issues))
	if len(issues) == 0 {
		fmt.Fprintf(&b, "  %s\n", s.muted.Render("none"))
		return b.String()
	}
	for _, is := range issues {
		fmt.Fprintf(&b, "  %s %-24s %s", s.severity(is.Severity), is.ProblemType, is.Description)
		if len(is.Elements) > 0 {
			fmt.Fprintf(&b, " %s", s.muted.Render("["+strings.Join(is.Elements, ", ")+"]"))
		}
		b.WriteString("\n")
	}
	return b.String()
}
