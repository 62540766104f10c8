package debugger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/lookbusy1344/aluvm/core"
)

// TUI represents the text user interface for the debugger
type TUI struct {
	Debugger *Debugger
	App      *tview.Application

	MainLayout *tview.Flex

	DisassemblyView *tview.TextView
	RegisterView    *tview.TextView
	StatusView      *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField
}

// NewTUI creates a new text user interface
func NewTUI(debugger *Debugger) *TUI {
	tui := &TUI{
		Debugger: debugger,
		App:      tview.NewApplication(),
	}

	tui.initializeViews()
	tui.buildLayout()
	tui.setupKeyBindings()
	tui.refresh()

	return tui
}

// initializeViews creates all the view panels
func (t *TUI) initializeViews() {
	t.DisassemblyView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.DisassemblyView.SetBorder(true).SetTitle(" Disassembly ")

	t.RegisterView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.StatusView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	t.StatusView.SetBorder(true).SetTitle(" Status ")

	t.OutputView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(true)
	t.OutputView.SetBorder(true).SetTitle(" Output ")

	t.CommandInput = tview.NewInputField().
		SetLabel("> ").
		SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

// buildLayout constructs the TUI layout
func (t *TUI) buildLayout() {
	rightPanel := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 0, 2, false).
		AddItem(t.StatusView, 3, 0, false)

	mainContent := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(t.DisassemblyView, 0, 3, false).
		AddItem(rightPanel, 0, 2, false)

	t.MainLayout = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(mainContent, 0, 4, false).
		AddItem(t.OutputView, 6, 0, false).
		AddItem(t.CommandInput, 3, 0, true)
}

// setupKeyBindings installs the function key shortcuts
func (t *TUI) setupKeyBindings() {
	t.App.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF5:
			t.Debugger.Continue()
			t.refresh()
			return nil
		case tcell.KeyF10:
			t.Debugger.Step()
			t.refresh()
			return nil
		case tcell.KeyCtrlC:
			t.App.Stop()
			return nil
		}
		return event
	})
}

// handleCommand executes a command typed into the input field
func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	text := strings.TrimSpace(t.CommandInput.GetText())
	t.CommandInput.SetText("")
	if text == "" {
		return
	}

	cmd, arg, _ := strings.Cut(text, " ")
	switch strings.ToLower(cmd) {
	case "s", "step":
		t.Debugger.Step()
	case "c", "continue", "run":
		t.Debugger.Continue()
	case "b", "break":
		offset, err := strconv.ParseUint(strings.TrimSpace(arg), 0, 16)
		if err != nil {
			t.logf("invalid breakpoint offset %q", arg)
			break
		}
		site := core.NewSite(t.Debugger.Stepper.Site().Lib, uint16(offset))
		if t.Debugger.ToggleBreakpoint(site) {
			t.logf("breakpoint set at %04X", offset)
		} else {
			t.logf("breakpoint removed at %04X", offset)
		}
	case "q", "quit":
		t.App.Stop()
	case "h", "help":
		t.logf("commands: step (F10), continue (F5), break <offset>, quit")
	default:
		t.logf("unknown command %q; try help", cmd)
	}
	t.refresh()
}

func (t *TUI) logf(format string, args ...any) {
	fmt.Fprintf(t.OutputView, format+"\n", args...)
	t.OutputView.ScrollToEnd()
}

// refresh redraws every panel from the debugger state
func (t *TUI) refresh() {
	t.DisassemblyView.SetText(t.Debugger.Disassembly())
	t.RegisterView.SetText(t.Debugger.RegisterDump())
	t.StatusView.SetText(t.Debugger.StateSummary())
	if err := t.Debugger.TakeError(); err != nil {
		t.logf("error: %v", err)
	}
}

// Run starts the interactive session and blocks until quit
func (t *TUI) Run() error {
	return t.App.SetRoot(t.MainLayout, true).SetFocus(t.CommandInput).Run()
}
