// Package testutil provides common utility functions for testing.
package testutil

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/iwvelando/vest-optimizer/internal/sweep"
)

// FindCell finds the cell for the given multipliers in the cells slice.
// Returns a pointer to the cell if found, nil otherwise.
func FindCell(cells []sweep.Cell, nearTerm, longerTerm float64) *sweep.Cell {
	for i := range cells {
		if cells[i].NearTermMultiplier == nearTerm && cells[i].LongerTermMultiplier == longerTerm {
			return &cells[i]
		}
	}
	return nil
}

// ObjectiveGrid lays out the objectives of report with one row per near-term
// multiplier. Failed cells are NaN.
func ObjectiveGrid(report *sweep.Report) [][]float64 {
	grid := make([][]float64, len(report.Grid.NearTerm))
	for i := range grid {
		grid[i] = make([]float64, len(report.Grid.LongerTerm))
		for j := range grid[i] {
			cell := report.Cell(i, j)
			if cell == nil || cell.Failed() {
				grid[i][j] = math.NaN()
				continue
			}
			grid[i][j] = cell.Result.Objective
		}
	}
	return grid
}

// WriteConfig writes contents to a YAML file in a temporary directory and
// returns its path.
func WriteConfig(t testing.TB, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}
