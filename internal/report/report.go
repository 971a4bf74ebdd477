// Package report renders a harvested edge set for a caller: plain
// tab-separated lines (spec.md §6's output format) or a Graphviz .dot
// file. It also subscribes to the crawl event bus to print a live
// progress line, the way headless.Printer formats streamed session
// events for the terminal.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/sergi/go-diff/diffmatchpatch"

	"codegraph/internal/callgraph"
	"codegraph/internal/event"
)

// Format selects the rendering for WriteEdges.
type Format string

const (
	// FormatLines is the raw "<caller>\t<relation>\t<callee>" format.
	FormatLines Format = "lines"
	// FormatDot renders a Graphviz digraph.
	FormatDot Format = "dot"
)

// WriteEdges renders edges to w in format.
func WriteEdges(w io.Writer, edges []callgraph.Edge, format Format) error {
	switch format {
	case FormatDot:
		return writeDot(w, edges)
	default:
		return writeLines(w, edges)
	}
}

func writeLines(w io.Writer, edges []callgraph.Edge) error {
	for _, e := range edges {
		if _, err := fmt.Fprintln(w, e.String()); err != nil {
			return err
		}
	}
	return nil
}

// writeDot renders edges as a Graphviz digraph, one "X" -> "Y"; statement
// per edge (spec.md §6).
func writeDot(w io.Writer, edges []callgraph.Edge) error {
	if _, err := fmt.Fprintln(w, "digraph codegraph {"); err != nil {
		return err
	}
	for _, e := range edges {
		line := fmt.Sprintf("  %q -> %q;", e.Caller.String(), e.Callee.String())
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

// ReadEdges parses the FormatLines output WriteEdges produces, the
// inverse operation used by traversal over a previously saved edge set.
func ReadEdges(r io.Reader) ([]callgraph.Edge, error) {
	var edges []callgraph.Edge
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		e, err := parseEdgeLine(line)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, scanner.Err()
}

func parseEdgeLine(line string) (callgraph.Edge, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 3 {
		return callgraph.Edge{}, fmt.Errorf("report: malformed edge line %q", line)
	}
	caller, err := parseLocation(parts[0])
	if err != nil {
		return callgraph.Edge{}, err
	}
	callee, err := parseLocation(parts[2])
	if err != nil {
		return callgraph.Edge{}, err
	}
	return callgraph.Edge{Caller: caller, Relation: callgraph.Relation(parts[1]), Callee: callee}, nil
}

func parseLocation(s string) (callgraph.Location, error) {
	fields := strings.SplitN(s, ":", 3)
	if len(fields) != 3 {
		return callgraph.Location{}, fmt.Errorf("report: malformed location %q", s)
	}
	line, err := strconv.Atoi(fields[1])
	if err != nil {
		return callgraph.Location{}, fmt.Errorf("report: malformed location %q: %w", s, err)
	}
	return callgraph.Location{RelPath: fields[0], Line: line, Name: fields[2]}, nil
}

// DiffEdges line-diffs two harvested edge sets (rendered in FormatLines)
// and returns only the added and removed lines, prefixed "+ " or "- ";
// unchanged lines are left out, so identical sets give "". This is the
// delta a --watch re-crawl prints instead of the full edge set (supplements
// spec.md's watch-mode crawling with an original_source/run_watch.py-style
// summary of what changed).
func DiffEdges(prev, next []callgraph.Edge) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(edgesText(prev), edgesText(next))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func edgesText(edges []callgraph.Edge) string {
	var sb strings.Builder
	for _, e := range edges {
		sb.WriteString(e.String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// Printer subscribes to the crawl event bus and prints a single
// overwriting progress line to w, then a final summary — the terminal
// counterpart to report's file-output functions.
type Printer struct {
	mu          sync.Mutex
	w           io.Writer
	quiet       bool
	unsubscribe func()
}

// NewPrinter returns a Printer writing to w. A quiet Printer prints the
// crawl.started, crawl.stalled and crawl.finished lines and suppresses
// progress.
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, quiet: quiet}
}

// Subscribe starts listening on bus until Close is called.
func (p *Printer) Subscribe(bus *event.Bus) {
	p.unsubscribe = bus.SubscribeAll(p.handle)
}

// Close stops listening on the bus.
func (p *Printer) Close() {
	if p.unsubscribe != nil {
		p.unsubscribe()
	}
}

func (p *Printer) handle(e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch e.Type {
	case event.CrawlStarted:
		d := e.Data.(event.CrawlStartedData)
		fmt.Fprintf(p.w, "crawling %s (%s): %d symbols\n", d.Root, d.Lang, d.Total)
	case event.CrawlProgress:
		if p.quiet {
			return
		}
		d := e.Data.(event.CrawlProgressData)
		fmt.Fprintf(p.w, "\r%s", progressLine(d))
	case event.CrawlStalled:
		d := e.Data.(event.CrawlStalledData)
		fmt.Fprintf(p.w, "\nstalled (attempt %d): %s, restarting\n", d.Attempt, d.Reason)
	case event.CrawlFinished:
		d := e.Data.(event.CrawlFinishedData)
		status := "ok"
		if d.Errored {
			status = "errored"
		}
		fmt.Fprintf(p.w, "\ndone: %d edges in %.1fs (%s)\n", d.EdgeCount, d.ElapsedSec, status)
	}
}

func progressLine(d event.CrawlProgressData) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d/%d (%.0f%%) %.1f/s eta %.0fs", d.Completed, d.Total, d.Percent, d.PerSec, d.ETASec)
	return sb.String()
}
