package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/noborus/ov/oviewer"
)

// pagerMsg reports how the pager exited
type pagerMsg struct {
	err error
}

// PagerOps shows text in the ov pager, handing it the terminal meanwhile
type PagerOps struct {
	program *tea.Program // reference to Bubble Tea program for terminal management
}

// NewPagerOps creates a new pager operations instance
func NewPagerOps() *PagerOps {
	return &PagerOps{}
}

// SetProgram sets the program reference for terminal management
func (o *PagerOps) SetProgram(p *tea.Program) {
	o.program = p
}

// Show runs ov over content until the user quits it
func (o *PagerOps) Show(title, content string) error {
	if o.program == nil {
		return fmt.Errorf("program not set")
	}

	// Release terminal control to run ov
	if err := o.program.ReleaseTerminal(); err != nil {
		return err
	}

	// Ensure terminal is restored even if ov fails
	defer func() {
		// Small delay to ensure ov has fully exited before restoring terminal
		time.Sleep(100 * time.Millisecond)
		_ = o.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(strings.NewReader(content))
	if err != nil {
		return err
	}
	root.Doc.Caption = title

	// Configure ov to not write on exit (to avoid messing with our screen)
	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}

// showCmd runs the pager from a command so Update is not blocked
func (o *PagerOps) showCmd(title, content string) tea.Cmd {
	return func() tea.Msg {
		return pagerMsg{err: o.Show(title, content)}
	}
}
