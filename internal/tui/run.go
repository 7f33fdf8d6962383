package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dmorgan81/qrgen/internal/lifecycle"
)

// Run drives the machine from an interactive terminal until the user quits.
func Run(ctx context.Context, machine *lifecycle.Machine, size int) error {
	p := tea.NewProgram(New(ctx, machine, size), tea.WithContext(ctx))
	unsubscribe := machine.Subscribe(func(s lifecycle.State) {
		p.Send(StateMsg(s))
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
