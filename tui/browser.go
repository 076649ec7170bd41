package tui

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"bridgectl/discovery"
	"bridgectl/finder"
	"bridgectl/paramspace"
	"bridgectl/wire"
)

// BridgesTab discovers bridges on the local network and shows identity and
// live parameter detail for the selected one.
type BridgesTab struct {
	app *App

	flex      *tview.Flex
	list      *tview.List
	detail    *tview.TextView
	statusBar *tview.TextView

	mu       sync.Mutex
	found    []wire.Identity
	scanning bool
}

// NewBridgesTab creates the bridge discovery/browse tab.
func NewBridgesTab(app *App) *BridgesTab {
	t := &BridgesTab{app: app}
	t.setupUI()
	return t
}

func (t *BridgesTab) setupUI() {
	t.list = tview.NewList().ShowSecondaryText(true)
	t.list.SetBorder(true).SetTitle(" Discovered Bridges ").SetBorderColor(CurrentTheme.Border)
	t.list.SetSelectedFunc(func(i int, name, secondary string, shortcut rune) {
		t.showDetail(i)
	})

	t.detail = tview.NewTextView().SetDynamicColors(true)
	t.detail.SetBorder(true).SetTitle(" Detail ").SetBorderColor(CurrentTheme.Border)

	t.statusBar = tview.NewTextView().SetDynamicColors(true)
	t.updateStatus("press d to discover, f to find by address")

	body := tview.NewFlex().
		AddItem(t.list, 0, 1, true).
		AddItem(t.detail, 0, 2, false)

	t.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(t.statusBar, 1, 0, false)

	t.flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'd':
			go t.discover()
			return nil
		case 'f':
			t.promptFind()
			return nil
		case 'i':
			t.showDetail(t.list.GetCurrentItem())
			return nil
		case 'a':
			t.addSelectedToRegistry()
			return nil
		}
		return event
	})
}

func (t *BridgesTab) updateStatus(msg string) {
	t.statusBar.SetText(" " + msg)
}

// discover runs a full-interface UDP discovery sweep and repopulates the list.
func (t *BridgesTab) discover() {
	t.mu.Lock()
	if t.scanning {
		t.mu.Unlock()
		return
	}
	t.scanning = true
	t.mu.Unlock()

	t.app.app.QueueUpdateDraw(func() { t.updateStatus("discovering...") })

	ctx, cancel := context.WithTimeout(context.Background(), discovery.DefaultDeadline)
	defer cancel()
	ids, err := discovery.Collect(ctx, true, discovery.DefaultPort, discovery.DefaultDeadline)

	t.mu.Lock()
	t.scanning = false
	if err == nil {
		t.found = ids
	}
	t.mu.Unlock()

	t.app.app.QueueUpdateDraw(func() {
		if err != nil {
			t.updateStatus(fmt.Sprintf("discovery error: %v", err))
			DebugLogDiscovery("sweep failed: %v", err)
			return
		}
		t.repopulate()
		t.updateStatus(fmt.Sprintf("found %d bridge(s)", len(ids)))
	})
}

func (t *BridgesTab) repopulate() {
	t.mu.Lock()
	sort.Slice(t.found, func(i, j int) bool { return t.found[i].Name < t.found[j].Name })
	ids := append([]wire.Identity(nil), t.found...)
	t.mu.Unlock()

	t.list.Clear()
	for _, id := range ids {
		t.list.AddItem(id.Name, id.IP.String(), 0, nil)
	}
}

func (t *BridgesTab) showDetail(i int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if i < 0 || i >= len(t.found) {
		t.detail.SetText("")
		return
	}
	id := t.found[i]
	t.detail.SetText(fmt.Sprintf(
		"[yellow]Name:[-] %s\n[yellow]IP:[-] %s\n[yellow]MAC:[-] %s\n[yellow]FPGA:[-] %v\n[yellow]Firmware:[-] %v\n[yellow]Detailed block:[-] %v\n\n[gray]fetching parameter dump...[-]",
		id.Name, id.IP, formatMAC(id.MAC), id.FPGAVersion, id.FirmwareVersion, id.Detailed != nil))

	go t.appendParamDump(id)
}

// appendParamDump fetches the live 512-byte parameter space over TCP and
// appends a short summary once it arrives, without blocking the identity
// detail that's already on screen.
func (t *BridgesTab) appendParamDump(id wire.Identity) {
	dump, err := dumpSample(id.IP)
	t.app.app.QueueUpdateDraw(func() {
		base := fmt.Sprintf(
			"[yellow]Name:[-] %s\n[yellow]IP:[-] %s\n[yellow]MAC:[-] %s\n[yellow]FPGA:[-] %v\n[yellow]Firmware:[-] %v\n[yellow]Detailed block:[-] %v\n\n",
			id.Name, id.IP, formatMAC(id.MAC), id.FPGAVersion, id.FirmwareVersion, id.Detailed != nil)
		if err != nil {
			t.detail.SetText(base + fmt.Sprintf("[red]parameter dump failed: %v[-]", err))
			DebugLogParamspace("dump %s failed: %v", id.IP, err)
			return
		}
		t.detail.SetText(base + fmt.Sprintf("[yellow]Parameters read:[-] %d bytes", len(dump.Bytes)))
	})
}

func formatMAC(mac [6]byte) string {
	parts := make([]string, 6)
	for i, b := range mac {
		parts[i] = fmt.Sprintf("%02x", b)
	}
	return strings.Join(parts, ":")
}

// promptFind opens a small form to resolve a single bridge by IP, MAC, or name.
func (t *BridgesTab) promptFind() {
	input := tview.NewInputField().SetLabel("Find (ip/mac/name): ")
	form := tview.NewForm().
		AddFormItem(input).
		AddButton("Go", func() {
			q := input.GetText()
			t.app.pages.RemovePage("find")
			go t.findOne(q)
		}).
		AddButton("Cancel", func() {
			t.app.pages.RemovePage("find")
		})
	form.SetBorder(true).SetTitle(" Find Bridge ")
	t.app.pages.AddPage("find", centered(form, 50, 7), true, true)
}

func (t *BridgesTab) findOne(q string) {
	target := finder.Parse(q)
	ctx, cancel := context.WithTimeout(context.Background(), discovery.DefaultDeadline)
	defer cancel()
	id, err := finder.Find(ctx, target, discovery.DefaultPort, discovery.DefaultDeadline)

	t.app.app.QueueUpdateDraw(func() {
		if err != nil {
			t.updateStatus(fmt.Sprintf("not found: %v", err))
			return
		}
		t.mu.Lock()
		t.found = append(t.found, id)
		t.mu.Unlock()
		t.repopulate()
		t.updateStatus(fmt.Sprintf("found %s at %s", id.Name, id.IP))
	})
}

func (t *BridgesTab) addSelectedToRegistry() {
	i := t.list.GetCurrentItem()
	t.mu.Lock()
	if i < 0 || i >= len(t.found) {
		t.mu.Unlock()
		return
	}
	id := t.found[i]
	t.mu.Unlock()

	if t.app.reg == nil {
		return
	}
	if err := t.app.reg.SetBridge(id.Name, id.IP.String()); err != nil {
		t.updateStatus(fmt.Sprintf("registry: %v", err))
		return
	}
	if t.app.regPath != "" {
		t.app.reg.Save(t.app.regPath)
	}
	t.updateStatus(fmt.Sprintf("added %s to registry", id.Name))
	t.app.registryTab.Refresh()
}

func (t *BridgesTab) GetPrimitive() tview.Primitive { return t.flex }

func centered(p tview.Primitive, width, height int) tview.Primitive {
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 1, true).
			AddItem(nil, 0, 1, false), width, 1, true).
		AddItem(nil, 0, 1, false)
}

// RegistryTab edits the on-disk bridge_env.ini host registry.
type RegistryTab struct {
	app       *App
	flex      *tview.Flex
	list      *tview.List
	statusBar *tview.TextView
}

// NewRegistryTab creates the registry editor tab.
func NewRegistryTab(app *App) *RegistryTab {
	t := &RegistryTab{app: app}
	t.setupUI()
	return t
}

func (t *RegistryTab) setupUI() {
	t.list = tview.NewList().ShowSecondaryText(true)
	t.list.SetBorder(true).SetTitle(" bridge_env.ini ").SetBorderColor(CurrentTheme.Border)

	t.statusBar = tview.NewTextView().SetDynamicColors(true)
	t.updateStatus("a: add   r: remove   D: set default")

	t.flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.list, 0, 1, true).
		AddItem(t.statusBar, 1, 0, false)

	t.flex.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'a':
			t.promptAdd()
			return nil
		case 'r':
			t.removeSelected()
			return nil
		case 'D':
			t.setDefaultSelected()
			return nil
		}
		return event
	})

	t.Refresh()
}

func (t *RegistryTab) updateStatus(msg string) { t.statusBar.SetText(" " + msg) }

// Refresh repopulates the list from the live Registry.
func (t *RegistryTab) Refresh() {
	if t.app.reg == nil {
		return
	}
	t.list.Clear()
	names := t.app.reg.Names()
	sort.Strings(names)
	defName, _, hasDefault := t.app.reg.Default()
	for _, name := range names {
		ip, _ := t.app.reg.Bridge(name)
		secondary := ip
		if hasDefault && name == defName {
			secondary += "  [default]"
		}
		t.list.AddItem(name, secondary, 0, nil)
	}
}

func (t *RegistryTab) promptAdd() {
	nameField := tview.NewInputField().SetLabel("Name: ")
	ipField := tview.NewInputField().SetLabel("IP: ")
	form := tview.NewForm().
		AddFormItem(nameField).
		AddFormItem(ipField).
		AddButton("Save", func() {
			name, ip := nameField.GetText(), ipField.GetText()
			t.app.pages.RemovePage("addbridge")
			if net.ParseIP(ip) == nil && ip != "" {
				t.updateStatus("invalid IP address")
				return
			}
			if err := t.app.reg.SetBridge(name, ip); err != nil {
				t.updateStatus(err.Error())
				return
			}
			t.persistAndRefresh()
		}).
		AddButton("Cancel", func() {
			t.app.pages.RemovePage("addbridge")
		})
	form.SetBorder(true).SetTitle(" Add Bridge ")
	t.app.pages.AddPage("addbridge", centered(form, 50, 9), true, true)
}

func (t *RegistryTab) removeSelected() {
	i := t.list.GetCurrentItem()
	if i < 0 {
		return
	}
	name, _ := t.list.GetItemText(i)
	t.app.reg.RemoveBridge(name)
	t.persistAndRefresh()
}

func (t *RegistryTab) setDefaultSelected() {
	i := t.list.GetCurrentItem()
	if i < 0 {
		return
	}
	name, _ := t.list.GetItemText(i)
	if err := t.app.reg.SetDefault(name); err != nil {
		t.updateStatus(err.Error())
		return
	}
	t.persistAndRefresh()
}

func (t *RegistryTab) persistAndRefresh() {
	if t.app.regPath != "" {
		if err := t.app.reg.Save(t.app.regPath); err != nil {
			t.updateStatus(fmt.Sprintf("save failed: %v", err))
			DebugLogRegistry("save %s failed: %v", t.app.regPath, err)
		}
	}
	t.Refresh()
}

func (t *RegistryTab) GetPrimitive() tview.Primitive { return t.flex }

// dumpSample reads the full 512-byte parameter space for display purposes;
// used by cmd/bridgetui's detail drill-down (wired from showDetail callers
// that want live state rather than just the identity announcement).
func dumpSample(ip net.IP) (paramspace.ResolvedDump, error) {
	dump, _, err := paramspace.Dump(ip, paramspace.DefaultPort, 5*time.Second, nil)
	return paramspace.ResolvedDump{ParamDump: dump}, err
}
