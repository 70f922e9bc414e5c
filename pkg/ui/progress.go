package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"imgurstats/pkg/fetch"
)

const (
	ProgressBar   = "━"
	ProgressEmpty = "─"
	barWidth      = 24
)

// LineProgress prints fetch progress as one rewritten terminal line, with
// state changes and notices on lines of their own.
type LineProgress struct {
	mu        sync.Mutex
	out       io.Writer
	startTime time.Time
	now       func() time.Time
	active    bool
	pages     int
	processed int
	inLine    bool
}

// NewLineProgress creates a progress printer writing to out.
func NewLineProgress(out io.Writer) *LineProgress {
	return &LineProgress{out: out, startTime: time.Now(), now: time.Now}
}

// Bar renders fraction as a fixed width bar.
func Bar(fraction float64, width int) string {
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	filled := int(fraction * float64(width))
	return strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
}

func (p *LineProgress) endLine() {
	if p.inLine {
		fmt.Fprintln(p.out)
		p.inLine = false
	}
}

func (p *LineProgress) OnState(scope string, state fetch.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch state {
	case fetch.StateFetching:
		if !p.active {
			p.active = true
			p.startTime = p.now()
			p.pages, p.processed = 0, 0
			fmt.Fprintf(p.out, "%s fetching %s\n", Magenta("→"), Cyan(scope))
		}
	case fetch.StateCancelled:
		p.endLine()
		p.active = false
		fmt.Fprintf(p.out, "%s cancelled, nothing was saved\n", Yellow("⚠"))
	case fetch.StateSaving:
		p.endLine()
		fmt.Fprintf(p.out, "%s saving %s\n", Magenta("→"), Cyan(scope))
	case fetch.StateDone:
		p.endLine()
		p.active = false
		elapsed := p.now().Sub(p.startTime).Round(time.Second)
		fmt.Fprintf(p.out, "%s done: %s pages, %s items in %s\n",
			Green("✓"),
			humanize.Comma(int64(p.pages)),
			humanize.Comma(int64(p.processed)),
			elapsed,
		)
	}
}

func (p *LineProgress) OnStep(scope string, step fetch.Step) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pages++
	p.processed = step.Processed
	line := fmt.Sprintf("%s [%s] page %d • %s items",
		Cyan(scope),
		Bar(step.Fraction(), barWidth),
		step.Page+1,
		humanize.Comma(int64(step.Processed)),
	)
	if step.Total > 0 {
		line += fmt.Sprintf(" of %s", humanize.Comma(int64(step.Total)))
	}
	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 100), line)
	p.inLine = true
}

func (p *LineProgress) OnNotice(scope, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.endLine()
	fmt.Fprintf(p.out, "%s %s\n", Yellow("⚠"), message)
}
