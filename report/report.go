// Package report prints solved models as coloured tables and plots how
// fast value iteration converged.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/logrusorgru/aurora"
)

// Table prints one line per state, in the order given, with its value and
// greedy action.
func Table[S, A comparable](out io.Writer, name string, states []S, values map[S]float64, policy map[S]A, sweeps int, colors bool) {
	au := aurora.NewAurora(colors)
	fmt.Fprintf(out, "%s %s\n", au.Bold(au.Cyan(name)), au.Gray(12, fmt.Sprintf("(%d sweeps)", sweeps)))

	width := len("state")
	for _, s := range states {
		width = max(width, len(fmt.Sprint(s)))
	}
	fmt.Fprintf(out, "  %-*s %12s  %s\n", width, "state", "value", "action")
	for _, s := range states {
		v := values[s]
		cell := fmt.Sprintf("%12.4f", v)
		value := au.Green(cell)
		if v < 0 {
			value = au.Red(cell)
		}
		fmt.Fprintf(out, "  %s %s  %s\n", au.Blue(fmt.Sprintf("%-*v", width, s)), value, au.Yellow(policy[s]))
	}
}

// Series is the per-sweep δ history of one solve.
type Series struct {
	Name   string
	Deltas []float64
}

// ConvergenceChart renders an HTML page with one line per series, δ on a
// log scale against the sweep index.
func ConvergenceChart(w io.Writer, series ...Series) error {
	numSweeps := 0
	for _, s := range series {
		numSweeps = max(numSweeps, len(s.Deltas))
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "value iteration",
			Subtitle: "max |U' - U| per sweep",
		}),
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "convergence",
			Theme:     "shine",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name: "delta",
			Type: "log",
		}),
	)

	sweeps := make([]string, 0, numSweeps)
	for i := 1; i <= numSweeps; i++ {
		sweeps = append(sweeps, strconv.Itoa(i))
	}
	line = line.SetXAxis(sweeps)
	for _, s := range series {
		items := make([]opts.LineData, 0, len(s.Deltas))
		for _, d := range s.Deltas {
			items = append(items, opts.LineData{Value: d})
		}
		line.AddSeries(s.Name, items)
	}

	page := components.NewPage()
	page.AddCharts(line)
	return page.Render(w)
}
