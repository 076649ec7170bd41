// Package tui provides the bridge fleet browser text user interface.
package tui

import "github.com/gdamore/tcell/v2"

// Theme is a named color/tag palette for the TUI.
type Theme struct {
	Name string

	Text    tcell.Color
	Border  tcell.Color
	Accent  tcell.Color
	Primary tcell.Color

	TagTextDim   string
	TagReset     string
	TagError     string
	TagPrimary   string
	TagSuccess   string
	TagAccent    string
	TagSecondary string
	TagHotkey    string
	TagActionText string
}

var defaultTheme = Theme{
	Name:    "default",
	Text:    tcell.ColorWhite,
	Border:  tcell.ColorGray,
	Accent:  tcell.ColorYellow,
	Primary: tcell.ColorBlue,

	TagTextDim:    "[gray]",
	TagReset:      "[-]",
	TagError:      "[red]",
	TagPrimary:    "[blue]",
	TagSuccess:    "[green]",
	TagAccent:     "[yellow]",
	TagSecondary:  "[teal]",
	TagHotkey:     "[yellow]",
	TagActionText: "[white]",
}

// CurrentTheme is the active palette. There is only one bundled theme;
// SetTheme is kept as a hook for a future preferences tab.
var CurrentTheme = defaultTheme

// SetTheme is a no-op placeholder -- only the default theme ships today.
func SetTheme(name string) {}

// Status indicator strings for showing reachability; the bridge list does
// not display them.
const (
	StatusIndicatorReachable   = "[green]●[-]"
	StatusIndicatorUnreachable = "[gray]○[-]"
	StatusIndicatorChecking    = "[yellow]◐[-]"
	StatusIndicatorError       = "[red]●[-]"
)

// Tab labels.
const (
	TabBridges  = "Bridges"
	TabRegistry = "Registry"
	TabDebug    = "Debug"
)

// HelpText is shown on the '?' key.
const HelpText = `
 Keyboard Shortcuts
 ──────────────────────────────────────

 Navigation
   Shift+Tab    Switch program tabs
   Tab          Move between fields
   Enter        Select / Activate
   Escape       Close dialog / Back
   ?            Show this help

 Bridges Tab
   d            Discover bridges on all interfaces
   f            Find bridge by IP/MAC/name
   i            Show identity + parameter dump
   a            Add selected bridge to registry

 Registry Tab
   a            Add bridge entry
   r            Remove selected
   D            Set selected as default

 Application
   Q            Quit
`
