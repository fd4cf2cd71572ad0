package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// Notifier forwards board store events into a running program. Events that
// arrive before Attach are dropped; the model reads the store on start.
type Notifier struct {
	mu      sync.Mutex
	program *tea.Program
}

func (n *Notifier) Attach(p *tea.Program) {
	n.mu.Lock()
	n.program = p
	n.mu.Unlock()
}

func (n *Notifier) send(msg tea.Msg) {
	n.mu.Lock()
	p := n.program
	n.mu.Unlock()
	if p == nil {
		return
	}
	// Send blocks until the event loop reads it, and the store may notify
	// from inside Update.
	go p.Send(msg)
}

func (n *Notifier) BoardChanged() { n.send(boardChangedMsg{}) }

func (n *Notifier) BoardError(err error) { n.send(boardErrorMsg{err: err}) }
