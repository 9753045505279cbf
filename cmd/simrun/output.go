package main

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/dkoosis/simrun/pkg/render"
)

const (
	formatAuto     = "auto"
	formatTerminal = "terminal"
	formatLLM      = "llm"
	formatJSON     = "json"
)

// isTTYWriter reports whether w is a terminal.
func isTTYWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termSize returns the terminal dimensions for w, defaulting to 80x24.
func termSize(w io.Writer) (width, height int) {
	width, height = 80, 24
	if f, ok := w.(*os.File); ok {
		if tw, th, err := term.GetSize(int(f.Fd())); err == nil {
			if tw > 0 {
				width = tw
			}
			if th > 0 {
				height = th
			}
		}
	}
	return width, height
}

func resolveFormat(format string, w io.Writer) string {
	if format != formatAuto && format != "" {
		return format
	}
	if isTTYWriter(w) {
		return formatTerminal
	}
	return formatLLM
}

func selectRenderer(mode string, theme render.Theme, width int) render.Renderer {
	switch mode {
	case formatJSON:
		return render.NewJSON()
	case formatLLM:
		return render.NewLLM()
	default:
		return render.NewTerminal(theme, width)
	}
}
