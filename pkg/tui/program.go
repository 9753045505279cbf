package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dkoosis/simrun/pkg/orchestrator"
)

// Program runs a Model in the background and feeds it events.
type Program struct {
	program *tea.Program
	done    chan struct{}
	final   Model
	err     error
}

// Start launches the program. It owns the terminal until Finish returns.
func Start(m Model, opts ...tea.ProgramOption) *Program {
	p := &Program{
		program: tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...),
		done:    make(chan struct{}),
		final:   m,
	}
	go func() {
		defer close(p.done)
		final, err := p.program.Run()
		if err != nil {
			p.err = fmt.Errorf("running live view: %w", err)
			return
		}
		if fm, ok := final.(Model); ok {
			p.final = fm
		}
	}()
	return p
}

// Send forwards an orchestrator event. Safe for concurrent use.
func (p *Program) Send(e orchestrator.Event) {
	p.program.Send(EventMsg(e))
}

// Finish stops the program and returns its final model.
func (p *Program) Finish() (Model, error) {
	p.program.Send(DoneMsg{})
	<-p.done
	return p.final, p.err
}
