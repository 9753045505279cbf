package simtool

import (
	"fmt"
	"os"
	"strings"
)

// RunConfigName is the control script shared by every test of a run.
const RunConfigName = "run_cfg_suite.tcl"

// Waves selects waveform capture in the generated control script.
type Waves struct {
	WDB bool // .wdb waveform, all modules from the top down
	VCD bool // .vcd waveform, all modules from the top down
}

// RunConfig renders the simulator control script.
func RunConfig(w Waves) string {
	lines := []string{
		"# AUTOMATICALLY GENERATED FILE. DO NOT EDIT.",
		"set start [expr {[clock seconds] - 1}]",
	}
	if w.WDB {
		lines = append(lines, "log_wave -recursive *")
	}
	if w.VCD {
		lines = append(lines, "open_vcd test_wave.vcd", "log_vcd *")
	}
	lines = append(lines, "run all")
	if w.VCD {
		lines = append(lines, "close_vcd")
	}
	lines = append(lines,
		`puts "Simulation runtime: [expr {[clock seconds] - $start}]s"`,
		"exit",
	)
	return strings.Join(lines, "\n") + "\n"
}

// WriteRunConfig writes the control script to path.
func WriteRunConfig(path string, w Waves) error {
	if err := os.WriteFile(path, []byte(RunConfig(w)), 0o644); err != nil { // #nosec G306
		return fmt.Errorf("writing run config: %w", err)
	}
	return nil
}
