package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
)

// ErrInterrupted is returned by Run when the user pressed Ctrl-C.
var ErrInterrupted = errors.New("stopped by user")

// Run drives the menu until the user declines another order or interrupts.
func Run(ctx context.Context, trader Trader, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(New(ctx, trader), opts...)
	final, err := p.Run()
	if err != nil {
		return errors.Wrap(err, "run menu")
	}

	m, ok := final.(Model)
	if !ok {
		return nil
	}
	if m.Interrupted() {
		menuLog.Info(msgInterrupted)
		return ErrInterrupted
	}
	menuLog.Info(m.Farewell())
	return nil
}
