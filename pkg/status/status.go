// Package status classifies simulation logs and persists the outcome.
//
// Classification looks only at the last TailLines lines of a log and stops at
// the first sentinel it meets scanning forward; it is not "last marker wins".
package status

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/acarl005/stripansi"
)

// Status is the terminal classification of one test run.
type Status int

const (
	// Unknown is the zero value, used for unreadable status files.
	Unknown Status = iota
	Passed
	Failed
	Inconclusive
	LogMissing
)

// Sentinels emitted by the testbench and co-simulation.
const (
	MarkerPass       = "==== PASS ===="
	MarkerFail       = "==== FAIL ===="
	MarkerCosimAbort = "cosim_exec()"
	MarkerError      = "ERROR"
)

// TailLines bounds the scanned window of a log.
const TailLines = 100

const indent = "    "

var names = map[Status]string{
	Unknown:      "UNKNOWN",
	Passed:       "PASSED",
	Failed:       "FAILED",
	Inconclusive: "INCONCLUSIVE",
	LogMissing:   "LOG_MISSING",
}

func (s Status) String() string {
	if n, ok := names[s]; ok {
		return n
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Parse maps a status keyword back to a Status.
func Parse(keyword string) Status {
	for s, n := range names {
		if n == keyword {
			return s
		}
	}
	return Unknown
}

// Result is a classification with its human-readable message.
type Result struct {
	Status  Status
	Message string
	// Diagnostics are ERROR lines seen before a FAIL marker.
	Diagnostics []string
}

// Classify reads the log at logPath and classifies it.
// A missing log is LogMissing; read errors are reported as Inconclusive.
func Classify(logPath, testName string) Result {
	f, err := os.Open(logPath) // #nosec G304 -- path built by the orchestrator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{
				Status:  LogMissing,
				Message: fmt.Sprintf("test.log not found at %s. Cannot determine test result.", logPath),
			}
		}
		return inconclusive(testName, logPath)
	}
	defer f.Close()
	res, err := ClassifyReader(f, testName)
	if err != nil {
		return inconclusive(testName, logPath)
	}
	if res.Status == Inconclusive {
		return inconclusive(testName, logPath)
	}
	return res
}

func inconclusive(testName, logPath string) Result {
	return Result{
		Status:  Inconclusive,
		Message: fmt.Sprintf("Test <%s> result is inconclusive. Check %s for details.", testName, logPath),
	}
}

// scanState is the classifier state.
type scanState int

const (
	scanning scanState = iota
	statePassed
	stateFailed
	stateAborted
)

// ClassifyReader classifies log content from r.
func ClassifyReader(r io.Reader, testName string) (Result, error) {
	lines, err := readTail(r, TailLines)
	if err != nil {
		return Result{Status: Inconclusive}, err
	}

	var diags []string
	state := scanning
	for _, raw := range lines {
		line := stripansi.Strip(raw)
		if strings.Contains(line, MarkerError) {
			diags = append(diags, strings.TrimSpace(line))
		}
		switch {
		case strings.Contains(line, MarkerPass):
			state = statePassed
		case strings.Contains(line, MarkerFail):
			state = stateFailed
		case strings.Contains(line, MarkerCosimAbort):
			state = stateAborted
		}
		if state != scanning {
			break
		}
	}

	switch state {
	case statePassed:
		return Result{Status: Passed, Message: fmt.Sprintf("Test <%s> PASSED.", testName)}, nil
	case stateFailed:
		return Result{
			Status:      Failed,
			Message:     fmt.Sprintf("Test <%s> FAILED with:", testName),
			Diagnostics: diags,
		}, nil
	case stateAborted:
		return Result{
			Status:  Failed,
			Message: fmt.Sprintf("Test <%s> FAILED. Cosim stopped. Check the log for details.", testName),
		}, nil
	default:
		return Result{Status: Inconclusive, Message: fmt.Sprintf("Test <%s> result is inconclusive.", testName)}, nil
	}
}
