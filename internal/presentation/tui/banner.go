package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the graff banner to w, coloured when w supports it.
func PrintBanner(w io.Writer) {
	out := termenv.NewOutput(w)
	// Sea-blue to teal, top to bottom.
	lines := []struct {
		text  string
		color string
	}{
		{`   __ _ _ __ __ _ / _|/ _|`, "#38bdf8"},
		{`  / _' | '__/ _' | |_| |_ `, "#22d3ee"},
		{` | (_| | | | (_| |  _|  _|`, "#2dd4bf"},
		{`  \__, |_|  \__,_|_| |_|  `, "#34d399"},
		{`  |___/                   `, "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w)
}
