package status

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/acarl005/stripansi"
)

// tailBuffer keeps the last max lines written to it.
type tailBuffer struct {
	max    int
	values []string
}

func newTailBuffer(max int) *tailBuffer {
	if max <= 0 {
		max = 1
	}
	return &tailBuffer{max: max}
}

func (t *tailBuffer) add(line string) {
	t.values = append(t.values, line)
	if len(t.values) > t.max {
		drop := len(t.values) - t.max
		t.values = t.values[drop:]
	}
}

func (t *tailBuffer) lines() []string {
	return append([]string(nil), t.values...)
}

// readTail returns the last max lines of r. Lines of any length are accepted.
func readTail(r io.Reader, max int) ([]string, error) {
	tail := newTailBuffer(max)
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			tail.add(strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			return tail.lines(), nil
		}
		if err != nil {
			return tail.lines(), err
		}
	}
}

// Tail returns the last n lines of the file at path with ANSI escapes removed.
func Tail(path string, n int) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- caller supplies a run directory path
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := readTail(f, n)
	for i, l := range lines {
		lines[i] = stripansi.Strip(l)
	}
	return lines, err
}
