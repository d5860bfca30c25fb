package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/muesli/termenv"
)

// Summary describes a run as a markdown table.
func Summary(p domain.Properties) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Run %s\n\n", p.RunID)
	b.WriteString("| property | value |\n|---|---|\n")
	row := func(k string, v any) { fmt.Fprintf(&b, "| %s | %v |\n", k, v) }
	row("variant", p.Variant)
	row("dimension", p.Dimension)
	if p.Width == 0 {
		row("width", "arbitrary")
	} else {
		row("width", fmt.Sprintf("%d bits", p.Width))
	}
	row("initial value", p.InitialValue)
	if p.Variant == domain.VariantSIV {
		row("background", p.Background)
	}
	row("mode", p.Mode)
	row("step", p.Step)
	row("bound", p.Bound)
	row("maxima", fmt.Sprint(p.Maxima))
	row("changed", p.Changed)
	return b.String()
}

// Progress prints a one-line status per step.
type Progress struct {
	out     *termenv.Output
	every   int64
	started time.Time
}

// NewProgress reports every n-th step to w. Color is used only when w is a terminal.
func NewProgress(w io.Writer, every int64) *Progress {
	if every < 1 {
		every = 1
	}
	return &Progress{out: termenv.NewOutput(w), every: every, started: time.Now()}
}

// Step reports res if it is due, and always reports the last unchanged step.
func (p *Progress) Step(res domain.StepResult) {
	if res.Step%p.every != 0 && res.Changed {
		return
	}
	status := p.out.String("changed").Foreground(p.out.Color("#34d399"))
	if !res.Changed {
		status = p.out.String("stable").Foreground(p.out.Color("#fbbf24")).Bold()
	}
	fmt.Fprintf(p.out, "step %-8d bound %-6d %s  %s\n", res.Step, res.Bound, status, time.Since(p.started).Round(time.Millisecond))
}
