package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/graff/pkg/codec"
	"github.com/aretw0/graff/pkg/domain"
	"github.com/muesli/termenv"
)

// Status colours.
const (
	colorOK    = "#22c55e"
	colorError = "#ef4444"
)

// StatusText colours a reply status for w: green for OK, red otherwise.
func StatusText(w io.Writer, status string) string {
	out := termenv.NewOutput(w)
	if status == "" {
		status = "(none)"
	}
	color := colorError
	if status == codec.StatusOK {
		color = colorOK
	}
	return out.String(status).Foreground(out.Color(color)).String()
}

// SessionMarkdown summarises a mirror as markdown tables.
func SessionMarkdown(s *domain.Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Session %s\n\n", s.Name())
	fmt.Fprintf(&sb, "%d variables, %d factors.\n\n", s.NumVariables(), s.NumFactors())

	if s.NumVariables() > 0 {
		sb.WriteString("## Variables\n\n| Name | Type |\n|---|---|\n")
		for _, v := range s.Variables() {
			fmt.Fprintf(&sb, "| %s | %s |\n", escape(v.Name()), escape(v.Type()))
		}
		sb.WriteString("\n")
	}

	if s.NumFactors() > 0 {
		sb.WriteString("## Factors\n\n| Label | Type | Variables | Measurement |\n|---|---|---|---|\n")
		for _, f := range s.Factors() {
			kinds := make([]string, 0, len(f.Measurement()))
			for _, d := range f.Measurement() {
				kinds = append(kinds, fmt.Sprintf("%s(%d)", d.DistType(), d.Dim()))
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				escape(f.Label()), escape(f.Type()),
				escape(strings.Join(f.Variables(), ", ")), strings.Join(kinds, ", "))
		}
	}
	return sb.String()
}

// StatusMarkdown renders backend counters.
func StatusMarkdown(st codec.Status) string {
	mode := "live"
	if st.Mock {
		mode = "mock"
	}
	return fmt.Sprintf("| Robots | Sessions | Variables | Factors | Solves | Mode |\n|---|---|---|---|---|---|\n| %d | %d | %d | %d | %d | %s |\n",
		st.Robots, st.Sessions, st.Variables, st.Factors, st.Solves, mode)
}

func escape(s string) string { return strings.ReplaceAll(s, "|", `\|`) }
