package tui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"bridgectl/registry"
)

// SharedManagers exposes the backend state an SSH-hosted TUI session shares
// with every other session on the same bridgefleetd daemon.
type SharedManagers interface {
	GetRegistry() *registry.Registry
	GetRegistryPath() string
}

// App is the main TUI application: a bridge discovery/browse tab, a
// registry editor tab, and a debug log tab.
type App struct {
	app   *tview.Application
	pages *tview.Pages
	tabs  *tview.TextView

	bridgesTab  *BridgesTab
	registryTab *RegistryTab
	debugTab    *DebugTab

	reg     *registry.Registry
	regPath string

	currentTab int
	tabNames   []string

	daemonMode   bool
	onDisconnect func()
}

// NewApp creates a standalone TUI application (cmd/bridgetui).
func NewApp(reg *registry.Registry, regPath string) *App {
	a := &App{
		app:      tview.NewApplication(),
		reg:      reg,
		regPath:  regPath,
		tabNames: []string{TabBridges, TabRegistry, TabDebug},
	}
	a.setupUI()
	return a
}

// NewAppWithSharedBackend creates a TUI bound to an existing tcell.Screen
// (an SSH channel pty) and a daemon's shared registry, mirroring the
// per-session-TUI-over-shared-state pattern the SSH server expects.
func NewAppWithSharedBackend(screen tcell.Screen, managers SharedManagers) (*App, error) {
	a := &App{
		app:        tview.NewApplication().SetScreen(screen),
		reg:        managers.GetRegistry(),
		regPath:    managers.GetRegistryPath(),
		tabNames:   []string{TabBridges, TabRegistry, TabDebug},
		daemonMode: true,
	}
	a.setupUI()
	return a, nil
}

func (a *App) setupUI() {
	a.bridgesTab = NewBridgesTab(a)
	a.registryTab = NewRegistryTab(a)
	a.debugTab = NewDebugTab(a)

	a.pages = tview.NewPages().
		AddPage(TabBridges, a.bridgesTab.GetPrimitive(), true, true).
		AddPage(TabRegistry, a.registryTab.GetPrimitive(), true, false).
		AddPage(TabDebug, a.debugTab.GetPrimitive(), true, false)

	a.tabs = tview.NewTextView().SetDynamicColors(true)
	a.updateTabBar()

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.tabs, 1, 0, false).
		AddItem(a.pages, 0, 1, true)

	layout.SetInputCapture(a.handleGlobalKeys)

	a.app.SetRoot(layout, true).EnableMouse(false)
}

func (a *App) updateTabBar() {
	th := CurrentTheme
	text := " "
	for i, name := range a.tabNames {
		if i == a.currentTab {
			text += th.TagAccent + "[" + name + "]" + th.TagReset + " "
		} else {
			text += th.TagTextDim + name + th.TagReset + " "
		}
	}
	a.tabs.SetText(text)
}

func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	switch {
	case event.Key() == tcell.KeyBacktab:
		a.currentTab = (a.currentTab + 1) % len(a.tabNames)
		a.pages.SwitchToPage(a.tabNames[a.currentTab])
		a.updateTabBar()
		return nil
	case event.Rune() == 'Q':
		if a.daemonMode && a.onDisconnect != nil {
			a.onDisconnect()
		} else {
			a.app.Stop()
		}
		return nil
	case event.Rune() == '?':
		a.showHelp()
		return nil
	}
	return event
}

func (a *App) showHelp() {
	modal := tview.NewModal().
		SetText(HelpText).
		AddButtons([]string{"Close"}).
		SetDoneFunc(func(int, string) {
			a.pages.RemovePage("help")
		})
	a.pages.AddPage("help", modal, true, true)
}

// SetOnDisconnect registers the callback invoked when the user quits a
// daemon-hosted (SSH) session rather than the whole process.
func (a *App) SetOnDisconnect(fn func()) { a.onDisconnect = fn }

// Run blocks until the application stops.
func (a *App) Run() error {
	return a.app.Run()
}

// Shutdown releases resources. Safe to call after Run returns.
func (a *App) Shutdown() {
	a.debugTab.Unsubscribe()
}

// Refresh redraws the active tabs; called from a ticker in cmd/bridgetui.
func (a *App) Refresh() {
	a.app.QueueUpdateDraw(func() {
		a.debugTab.Refresh()
		a.registryTab.Refresh()
	})
}
