package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the toppling banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct{ text, color string }{
		{" _              _ _ _           ", "#818cf8"},
		{"| |_ ___  _ __ | (_) |_ __   __ _ ", "#a78bfa"},
		{"| __/ _ \\| '_ \\| | | | '_ \\ / _` |", "#c084fc"},
		{"| || (_) | |_) | | | | | | | (_| |", "#e879f9"},
		{" \\__\\___/| .__/|_|_|_|_| |_|\\__, |", "#f472b6"},
		{"         |_|                |___/ ", "#fb7185"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
