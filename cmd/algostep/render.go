package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/algostep-go/viz"
	"github.com/dshills/algostep-go/viz/playback"
	"github.com/dshills/algostep-go/viz/step"
)

// printer writes one line per delivered frame.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) frame(f playback.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%4d  %-9s %s\n", f.Position, f.State, describe(f.Step))
}

// describe renders a step on one line. The snapshot fields that are set
// tell which family produced it.
func describe(s step.Step) string {
	var b strings.Builder
	snap, ann := s.Snapshot, s.Annotation
	switch {
	case snap.Order != nil:
		fmt.Fprintf(&b, "visit %s level=%d", snap.Node, ann.Level)
		if ann.Edge != "" {
			fmt.Fprintf(&b, " via %s", ann.Edge)
		}
		fmt.Fprintf(&b, " order=%s", strings.Join(snap.Order, ","))
	case snap.Node != "":
		fmt.Fprintf(&b, "node %s depth=%d %s", snap.Node, ann.Level, formatValues(snap.Values))
	default:
		b.WriteString(formatValues(snap.Values))
		if len(ann.Compared) > 0 {
			fmt.Fprintf(&b, " compared=%v", ann.Compared)
		}
		if len(ann.Swapped) > 0 {
			fmt.Fprintf(&b, " swapped=%v", ann.Swapped)
		}
		if len(ann.Range) == 2 {
			fmt.Fprintf(&b, " range=[%d,%d)", ann.Range[0], ann.Range[1])
		}
	}
	return b.String()
}

func formatValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// writeSteps prints the first n steps of seq, the ones that were played,
// next to the pseudocode line each executed.
func writeSteps(w io.Writer, seq *step.Sequence, listing []string, n int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"step", "line", "code", "state"})
	table.SetAutoWrapText(false)
	for i := 0; i < n; i++ {
		s, ok := seq.At(i)
		if !ok {
			break
		}
		code := ""
		if l := s.Annotation.Line; l > 0 && l <= len(listing) {
			code = strings.TrimSpace(listing[l-1])
		}
		table.Append([]string{
			strconv.Itoa(s.Index),
			strconv.Itoa(s.Annotation.Line),
			code,
			describe(s),
		})
	}
	table.Render()
}

func writeAlgorithms(w io.Writer) {
	families := map[viz.Family]string{
		viz.FamilySort:  "sort",
		viz.FamilyGraph: "graph",
		viz.FamilyTree:  "tree",
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"algorithm", "input", "lines"})
	for _, alg := range viz.Algorithms() {
		table.Append([]string{
			alg.String(),
			families[alg.Family()],
			strconv.Itoa(len(alg.Pseudocode())),
		})
	}
	table.Render()
}

func writePseudocode(w io.Writer, alg viz.Algorithm) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", alg.String()})
	table.SetAutoWrapText(false)
	for i, line := range alg.Pseudocode() {
		table.Append([]string{strconv.Itoa(i + 1), line})
	}
	table.Render()
}

// chart plots values as a line graph. It returns "" for fewer than two
// values.
func chart(values []float64, caption string) string {
	if len(values) < 2 {
		return ""
	}
	return asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Caption(caption),
	)
}

// writeMetrics prints every sample gathered from g, one row per label set.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"metric", "labels", "value"})
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			sort.Strings(labels)

			var value string
			switch {
			case m.GetCounter() != nil:
				value = strconv.FormatFloat(m.GetCounter().GetValue(), 'g', -1, 64)
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				value = fmt.Sprintf("count=%d sum=%g", h.GetSampleCount(), h.GetSampleSum())
			case m.GetGauge() != nil:
				value = strconv.FormatFloat(m.GetGauge().GetValue(), 'g', -1, 64)
			default:
				continue
			}
			table.Append([]string{mf.GetName(), strings.Join(labels, ","), value})
		}
	}
	table.Render()
	return nil
}
