package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/eyetracktask/eyetrack/internal/board"
)

// Run shows the board until the user quits. n must be the notifier the store
// was created with.
func Run(ctx context.Context, s *board.Store, n *Notifier, opts ...Option) error {
	p := tea.NewProgram(NewModel(ctx, s, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	n.Attach(p)
	defer n.Attach(nil)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run board: %w", err)
	}
	s.Wait()
	return nil
}
