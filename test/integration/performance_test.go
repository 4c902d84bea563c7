package integration

import (
	"os"
	"testing"
	"time"

	"github.com/iwvelando/vest-optimizer/pkg/testutil"
)

// TestMain runs the integration suite.
func TestMain(m *testing.M) {
	code := m.Run()
	os.Exit(code)
}

// TestPerformance runs a dense grid and checks it finishes promptly.
func TestPerformance(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping dense sweep in short mode")
	}

	path := testutil.WriteConfig(t, `
taxes:
  withholdingRate: 0.22
  federal: {shortTerm: 0.24, longTerm: 0.15}
  currentResidence: {shortTerm: 0.13, longTerm: 0.13}
  newResidence: {shortTerm: 0.02, longTerm: 0.01}
shares:
  basis: 150
  preTaxCount: 400
alternateReturn: 1.07
relocationCost: 5000
sweep:
  nearTerm: {min: 0.5, max: 2.0, step: 0.1}
  longerTerm: {min: 0.5, max: 2.0, step: 0.1}
  workers: 8
`)

	start := time.Now()
	_, report := runSweep(t, path)
	elapsed := time.Since(start)

	t.Logf("Performance metrics:")
	t.Logf("  Scenarios: %d", len(report.Cells))
	t.Logf("  Total time: %v", elapsed)

	if len(report.Cells) != 16*16 {
		t.Errorf("Expected 256 scenarios, got %d", len(report.Cells))
	}
	if report.Failures != 0 {
		t.Errorf("Expected no failures, got %d", report.Failures)
	}
	if elapsed > 10*time.Second {
		t.Errorf("Total processing time %v exceeds 10 second threshold", elapsed)
	}
}

// TestDataConsistency validates that multiple runs produce identical results.
func TestDataConsistency(t *testing.T) {
	_, first := runSweep(t, testConfigPath)
	_, second := runSweep(t, testConfigPath)

	if first.RunID == second.RunID {
		t.Errorf("Expected distinct run IDs, got %s twice", first.RunID)
	}
	if len(first.Cells) != len(second.Cells) {
		t.Fatalf("Cell counts differ: %d vs %d", len(first.Cells), len(second.Cells))
	}
	for i := range first.Cells {
		a, b := first.Cells[i].Result, second.Cells[i].Result
		if a.Objective != b.Objective || a.Allocation != b.Allocation || a.Relocating != b.Relocating {
			t.Errorf("Cell %d differs between runs: %+v vs %+v", i, a, b)
		}
	}
}
