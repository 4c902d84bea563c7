// Package output provides utilities for formatting and displaying sweep results.
package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/iwvelando/vest-optimizer/internal/scenario"
	"github.com/iwvelando/vest-optimizer/internal/sweep"
	"github.com/iwvelando/vest-optimizer/pkg/constants"
	"github.com/iwvelando/vest-optimizer/pkg/format"
	"github.com/iwvelando/vest-optimizer/pkg/mathutil"
	"github.com/iwvelando/vest-optimizer/pkg/validation"
	"gonum.org/v1/gonum/floats"
)

// CornerCell labels the axes of every table.
const CornerCell = `near\longer`

// FailedCell marks a scenario that produced no result.
const FailedCell = "ERR"

type metric struct {
	title   string
	value   func(r *scenario.Result) float64
	pretty  func(v float64) string
	machine func(v float64) string
}

func sharesMetric(title string, value func(a scenario.Allocation) float64) metric {
	return metric{
		title:   title,
		value:   func(r *scenario.Result) float64 { return value(r.Allocation) },
		pretty:  format.Shares,
		machine: machineNumber,
	}
}

var metrics = []metric{
	{
		title:   "Objective",
		value:   func(r *scenario.Result) float64 { return r.Objective },
		pretty:  format.Currency,
		machine: func(v float64) string { return strconv.FormatFloat(mathutil.Round(v), 'f', 2, 64) },
	},
	sharesMetric("Current residence short-term shares", func(a scenario.Allocation) float64 { return a.CurrentShortTerm }),
	sharesMetric("Current residence long-term shares", func(a scenario.Allocation) float64 { return a.CurrentLongTerm }),
	sharesMetric("New residence short-term shares", func(a scenario.Allocation) float64 { return a.NewShortTerm }),
	sharesMetric("New residence long-term shares", func(a scenario.Allocation) float64 { return a.NewLongTerm }),
	{
		title: "Relocating",
		value: func(r *scenario.Result) float64 {
			if r.Relocating {
				return 1
			}
			return 0
		},
		pretty: func(v float64) string {
			if v == 1 {
				return "yes"
			}
			return "no"
		},
		machine: func(v float64) string { return strconv.Itoa(int(v)) },
	},
}

func machineNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Write renders report to w in the named output format.
func Write(w io.Writer, outputFormat string, report *sweep.Report) error {
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}
	switch outputFormat {
	case constants.OutputFormatCSV:
		return CSV(w, report)
	case constants.OutputFormatTSV:
		return TSV(w, report)
	default:
		return Pretty(w, report)
	}
}

// WriteFile renders report into the file at path, creating parent directories.
func WriteFile(path, outputFormat string, report *sweep.Report) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory %s: %v", dir, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %s: %v", path, err)
	}
	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = closeErr
		}
	}()
	return Write(file, outputFormat, report)
}

// Pretty writes a human-readable rather than machine-readable table per metric.
func Pretty(w io.Writer, report *sweep.Report) error {
	if _, err := fmt.Fprintf(w, "Sweep %s: %d scenarios, %d failed\n\n",
		report.RunID, len(report.Cells), report.Failures); err != nil {
		return err
	}

	for _, m := range metrics {
		if _, err := fmt.Fprintf(w, "--- %s ---\n", m.title); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		for _, row := range table(report, m, m.pretty) {
			for _, value := range row {
				if _, err := fmt.Fprintf(tw, "%s\t", value); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintln(tw); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}

	if best := Best(report); best != nil {
		_, err := fmt.Fprintf(w, "Best scenario: near-term %s, longer-term %s, objective %s\n",
			format.Multiplier(best.NearTermMultiplier), format.Multiplier(best.LongerTermMultiplier),
			format.Currency(best.Result.Objective))
		return err
	}
	return nil
}

// CSV writes one comma-separated table per metric, separated by a blank line.
func CSV(w io.Writer, report *sweep.Report) error {
	return delimited(w, ',', report)
}

// TSV writes one tab-separated table per metric, separated by a blank line.
func TSV(w io.Writer, report *sweep.Report) error {
	return delimited(w, '\t', report)
}

func delimited(w io.Writer, comma rune, report *sweep.Report) error {
	for i, m := range metrics {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "# %s\n", m.title); err != nil {
			return err
		}
		cw := csv.NewWriter(w)
		cw.Comma = comma
		if err := cw.WriteAll(table(report, m, m.machine)); err != nil {
			return err
		}
	}
	return nil
}

// table lays out one metric with near-term multipliers down and longer-term
// multipliers across.
func table(report *sweep.Report, m metric, render func(float64) string) [][]string {
	header := make([]string, 0, len(report.Grid.LongerTerm)+1)
	header = append(header, CornerCell)
	for _, longer := range report.Grid.LongerTerm {
		header = append(header, format.Multiplier(longer))
	}

	rows := [][]string{header}
	for i, near := range report.Grid.NearTerm {
		row := make([]string, 0, len(header))
		row = append(row, format.Multiplier(near))
		for j := range report.Grid.LongerTerm {
			cell := report.Cell(i, j)
			if cell == nil || cell.Failed() {
				row = append(row, FailedCell)
				continue
			}
			row = append(row, render(m.value(cell.Result)))
		}
		rows = append(rows, row)
	}
	return rows
}

// Best returns the solved cell with the highest objective, or nil when no
// scenario was solved.
func Best(report *sweep.Report) *sweep.Cell {
	var solved []int
	var objectives []float64
	for i := range report.Cells {
		if report.Cells[i].Failed() {
			continue
		}
		solved = append(solved, i)
		objectives = append(objectives, report.Cells[i].Result.Objective)
	}
	if len(objectives) == 0 {
		return nil
	}
	return &report.Cells[solved[floats.MaxIdx(objectives)]]
}
