// Package gui provides the graphical front-end over a stepped VM,
// showing the disassembly, the register file and the flag state with
// run/step controls.
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/lookbusy1344/aluvm/debugger"
)

// GUI represents the graphical user interface for the VM
type GUI struct {
	Debugger *debugger.Debugger
	App      fyne.App
	Window   fyne.Window

	// View panels
	DisassemblyView *widget.TextGrid
	RegisterView    *widget.TextGrid
	StatusLabel     *widget.Label

	// Controls
	Toolbar *widget.Toolbar
}

// Run runs the graphical debugger and blocks until the window closes
func Run(dbg *debugger.Debugger) error {
	gui := newGUI(dbg)
	gui.Window.ShowAndRun()
	return nil
}

// newGUI creates a new graphical user interface
func newGUI(dbg *debugger.Debugger) *GUI {
	myApp := app.New()
	myWindow := myApp.NewWindow("AluVM Debugger")

	gui := &GUI{
		Debugger: dbg,
		App:      myApp,
		Window:   myWindow,
	}

	gui.initializeViews()
	gui.setupToolbar()
	gui.buildLayout()
	gui.updateViews()

	myWindow.Resize(fyne.NewSize(1100, 700))

	return gui
}

// initializeViews creates all the view panels
func (g *GUI) initializeViews() {
	g.DisassemblyView = widget.NewTextGrid()
	g.DisassemblyView.SetText("No program loaded")

	g.RegisterView = widget.NewTextGrid()
	g.RegisterView.SetText("")

	g.StatusLabel = widget.NewLabel("Ready")
}

// setupToolbar creates the control toolbar
func (g *GUI) setupToolbar() {
	g.Toolbar = widget.NewToolbar(
		widget.NewToolbarAction(theme.MediaSkipNextIcon(), func() {
			g.Debugger.Step()
			g.updateViews()
		}),
		widget.NewToolbarAction(theme.MediaFastForwardIcon(), func() {
			g.Debugger.Continue()
			g.updateViews()
		}),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() {
			g.updateViews()
		}),
	)
}

// buildLayout creates the main layout
func (g *GUI) buildLayout() {
	disasmPanel := container.NewBorder(
		widget.NewLabel("Disassembly"),
		nil, nil, nil,
		container.NewScroll(g.DisassemblyView),
	)

	registerPanel := container.NewBorder(
		widget.NewLabel("Registers"),
		nil, nil, nil,
		container.NewScroll(g.RegisterView),
	)

	mainSplit := container.NewHSplit(disasmPanel, registerPanel)
	mainSplit.SetOffset(0.6)

	statusBar := container.NewBorder(nil, nil, nil, nil, g.StatusLabel)

	content := container.NewBorder(
		g.Toolbar, // top
		statusBar, // bottom
		nil,       // left
		nil,       // right
		mainSplit, // center
	)

	g.Window.SetContent(content)
}

// updateViews refreshes all view panels
func (g *GUI) updateViews() {
	g.DisassemblyView.SetText(g.Debugger.Disassembly())
	g.RegisterView.SetText(g.Debugger.RegisterDump())
	status := g.Debugger.StateSummary()
	if err := g.Debugger.TakeError(); err != nil {
		status = fmt.Sprintf("%s | error: %v", status, err)
	}
	g.StatusLabel.SetText(status)
}
