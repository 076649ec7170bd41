package tui

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"bridgectl/logging"
)

// DebugTab displays debug log messages published through the DebugLog*
// helpers below: the SSH server's session events and the TUI's own
// discovery, parameter and registry errors.
// It subscribes to the process-wide DebugLogStore rather than holding the
// messages itself, so every concurrently open TUI -- the daemon's local
// session and one per connected SSH client -- sees the same feed.
type DebugTab struct {
	app        *App
	flex       *tview.Flex
	logView    *tview.TextView
	statusBar  *tview.TextView
	buttonBar  *tview.TextView
	messages   []string
	mu         sync.Mutex
	maxLines   int
	fileLogger *logging.FileLogger
	subID      DebugStoreListenerID
}

// NewDebugTab creates a new debug tab and subscribes it to the shared
// debug store. Call Unsubscribe when the owning App shuts down.
func NewDebugTab(app *App) *DebugTab {
	t := &DebugTab{
		app:      app,
		maxLines: 1000,
		messages: make([]string, 0),
	}
	t.setupUI()
	t.subID = globalDebugStore.Subscribe(t.appendMessage)
	return t
}

// Unsubscribe detaches the tab from the shared debug store.
func (t *DebugTab) Unsubscribe() {
	globalDebugStore.Unsubscribe(t.subID)
}

func (t *DebugTab) setupUI() {
	t.buttonBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	t.updateButtonBar()

	t.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetTextColor(CurrentTheme.Text)
	t.logView.SetBorder(true).SetTitle(" Debug Log ").SetBorderColor(CurrentTheme.Border).SetTitleColor(CurrentTheme.Accent)

	t.logView.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'c', 'C':
			t.Clear()
			return nil
		case 'G':
			t.logView.ScrollToEnd()
			return nil
		case 'g':
			t.logView.ScrollToBeginning()
			return nil
		}
		return event
	})

	t.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextColor(CurrentTheme.Text)
	t.updateStatusBar()

	t.flex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(t.buttonBar, 1, 0, false).
		AddItem(t.logView, 0, 1, true).
		AddItem(t.statusBar, 1, 0, false)
}

// appendMessage renders one LogMessage with its level's color tag and adds
// it to this tab's scrollback. It is the DebugLogStore subscriber callback,
// invoked in its own goroutine, so it owns its own locking rather than
// relying on a caller's TryLock.
func (t *DebugTab) appendMessage(msg LogMessage) {
	formatted := formatLevel(msg.Level, msg.Message)

	if t.fileLogger != nil {
		t.fileLogger.Log("%s", stripColorTags(formatted))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	timestamp := msg.Timestamp.Format("15:04:05.000")
	line := fmt.Sprintf("%s%s%s %s", CurrentTheme.TagTextDim, timestamp, CurrentTheme.TagReset, formatted)
	t.messages = append(t.messages, line)

	if len(t.messages) > t.maxLines {
		t.messages = t.messages[len(t.messages)-t.maxLines:]
	}
}

// formatLevel prefixes msg with its level's color tag, matching the
// subsystem names logged via DebugLogDiscovery/DebugLogParamspace/etc.
func formatLevel(level, msg string) string {
	th := CurrentTheme
	switch level {
	case "ERROR":
		return th.TagError + "ERROR:" + th.TagReset + " " + msg
	case "SSH":
		return th.TagSecondary + "SSH:" + th.TagReset + " " + msg
	case "DISCOVERY":
		return th.TagSuccess + "DISCOVERY:" + th.TagReset + " " + msg
	case "PARAMSPACE":
		return th.TagAccent + "PARAMSPACE:" + th.TagReset + " " + msg
	case "REGISTRY":
		return th.TagAccent + "REGISTRY:" + th.TagReset + " " + msg
	case "CGI":
		return th.TagAccent + "CGI:" + th.TagReset + " " + msg
	default:
		return msg
	}
}

// SetFileLogger sets a file logger for writing debug messages to disk.
func (t *DebugTab) SetFileLogger(logger *logging.FileLogger) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fileLogger = logger
}

func stripColorTags(s string) string {
	result := make([]byte, 0, len(s))
	inTag := false
	for i := 0; i < len(s); i++ {
		if s[i] == '[' {
			inTag = true
			continue
		}
		if s[i] == ']' && inTag {
			inTag = false
			continue
		}
		if !inTag {
			result = append(result, s[i])
		}
	}
	return string(result)
}

func (t *DebugTab) buildText() string {
	result := ""
	for _, msg := range t.messages {
		result += msg + "\n"
	}
	return result
}

// Clear clears the debug log.
func (t *DebugTab) Clear() {
	t.mu.Lock()
	t.messages = make([]string, 0)
	t.logView.SetText("")
	t.mu.Unlock()
	t.updateStatusBar()
}

func (t *DebugTab) GetPrimitive() tview.Primitive { return t.flex }
func (t *DebugTab) GetFocusable() tview.Primitive { return t.logView }

// Refresh updates the debug tab. Must be called from QueueUpdateDraw or the
// main goroutine.
func (t *DebugTab) Refresh() {
	if !t.mu.TryLock() {
		return
	}
	text := t.buildText()
	msgCount := len(t.messages)
	t.mu.Unlock()

	if msgCount > 0 {
		t.logView.SetText(text)
		t.logView.ScrollToEnd()
	}
	t.statusBar.SetText(fmt.Sprintf(" %d log lines (max %d)", msgCount, t.maxLines))
}

// DebugLog and the subsystem-specific variants below push one message onto
// the shared debug store; every open DebugTab renders it independently.

func DebugLog(format string, args ...interface{}) {
	globalDebugStore.Log("", format, args...)
}

func DebugLogError(format string, args ...interface{}) {
	globalDebugStore.Log("ERROR", format, args...)
}

func DebugLogDiscovery(format string, args ...interface{}) {
	globalDebugStore.Log("DISCOVERY", format, args...)
}

func DebugLogParamspace(format string, args ...interface{}) {
	globalDebugStore.Log("PARAMSPACE", format, args...)
}

func DebugLogRegistry(format string, args ...interface{}) {
	globalDebugStore.Log("REGISTRY", format, args...)
}

func DebugLogCGI(format string, args ...interface{}) {
	globalDebugStore.Log("CGI", format, args...)
}

func DebugLogSSH(format string, args ...interface{}) {
	globalDebugStore.Log("SSH", format, args...)
}

// SetDebugFileLogger routes every future debug message to logger in
// addition to its subscribers.
func SetDebugFileLogger(logger *logging.FileLogger) {
	globalDebugStore.SetFileLogger(logger)
}

func (t *DebugTab) updateStatusBar() {
	t.mu.Lock()
	lineCount := len(t.messages)
	t.mu.Unlock()
	t.statusBar.SetText(fmt.Sprintf(" %d log lines (max %d)", lineCount, t.maxLines))
}

func (t *DebugTab) updateButtonBar() {
	th := CurrentTheme
	buttonText := " " + th.TagHotkey + "c" + th.TagActionText + "lear  " +
		th.TagHotkey + "g" + th.TagActionText + " top  " +
		th.TagHotkey + "G" + th.TagActionText + " bottom  " +
		th.TagHotkey + "↑↓" + th.TagActionText + " scroll  " +
		th.TagActionText + "│  " +
		th.TagHotkey + "?" + th.TagActionText + " help  " +
		th.TagHotkey + "Shift+Tab" + th.TagActionText + " next tab " + th.TagReset
	t.buttonBar.SetText(buttonText)
}

// RefreshTheme updates theme-dependent UI elements.
func (t *DebugTab) RefreshTheme() {
	t.updateButtonBar()
	t.updateStatusBar()
	th := CurrentTheme
	t.logView.SetBorderColor(th.Border).SetTitleColor(th.Accent)
	t.logView.SetTextColor(th.Text)
	t.statusBar.SetTextColor(th.Text)
}
