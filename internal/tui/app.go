package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noahxzhu/tiffin-client/internal/app"
	"github.com/noahxzhu/tiffin-client/internal/worker"
)

// Run starts the bubbletea program and routes dispatcher completions onto
// its event loop. It returns when the user quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App) error {
	p := tea.NewProgram(New(ctx, a), tea.WithAltScreen(), tea.WithContext(ctx))

	a.Dispatcher.SetPoster(worker.PosterFunc(func(c worker.Completion) {
		p.Send(c)
	}))
	defer a.Dispatcher.SetPoster(nil)

	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		a.Logger.Info("TUI stopped", "reason", ctx.Err())
		return nil
	}
	return err
}
