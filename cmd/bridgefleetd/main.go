// bridgefleetd is the fleet daemon: it polls a configured set of bridges on
// a schedule, republishes their parameter state to MQTT, accepts remote
// control sessions over SSH (one independent TUI per session, all sharing
// the same registry), and optionally drives a local TUI in the foreground.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"bridgectl/config"
	"bridgectl/logging"
	"bridgectl/mqtt"
	"bridgectl/paramspace"
	"bridgectl/registry"
	"bridgectl/ssh"
	"bridgectl/tui"
	"bridgectl/web"
)

var Version = "dev"

// namedParams is the set of parameters polled and republished for every
// bridge with PublishEvents enabled; see cmd/mionps for the same list.
var namedParams = []string{"nand_mode", "sdk_major", "sdk_minor", "sdk_misc"}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	configPath := flag.String("config", config.DefaultPath(), "Path to bridgefleetd configuration")
	headless := flag.Bool("headless", false, "Run without a local TUI (SSH/MQTT/polling only)")
	logDebug := flag.String("log-debug", "", "Comma-separated subsystems to trace (discovery, finder, paramspace, serial, registry, cgi), empty disables")
	debugLogFile := flag.String("tui-log-file", "", "Append every TUI debug-tab message (SSH session events, TUI discovery/parameter/registry errors) to this file, empty disables")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bridgefleetd %s\n", Version)
		return
	}

	if *logDebug != "" {
		logger, err := logging.NewDebugLogger("bridgefleetd-debug.log")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening debug log: %v\n", err)
			os.Exit(1)
		}
		logger.SetFilter(*logDebug)
		logging.InstallGlobal(logger)
		defer logger.Close()
	}

	if *debugLogFile != "" {
		fileLogger, err := logging.NewFileLogger(*debugLogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening TUI log file: %v\n", err)
			os.Exit(1)
		}
		tui.SetDebugFileLogger(fileLogger)
		defer fileLogger.Close()
	}

	regPath, err := registry.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	reg, err := registry.Load(regPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	d := newDaemon(cfg, *configPath, reg, regPath)
	d.start()
	defer d.stop()

	if *headless {
		waitForSignal()
		return
	}

	app := tui.NewApp(reg, regPath)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}

func waitForSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}

// daemon wires the registry, MQTT fleet publishers, the SSH remote-TUI
// server, and the periodic parameter poller together.
type daemon struct {
	cfg     *config.Config
	cfgPath string
	reg     *registry.Registry
	regPath string

	mqttMgr  *mqtt.Manager
	sshSrv   *ssh.Server
	httpSrv  *http.Server
	stopPoll chan struct{}

	statusMu sync.RWMutex
	status   map[string]web.BridgeStatus
}

func newDaemon(cfg *config.Config, cfgPath string, reg *registry.Registry, regPath string) *daemon {
	return &daemon{
		cfg:      cfg,
		cfgPath:  cfgPath,
		reg:      reg,
		regPath:  regPath,
		mqttMgr:  mqtt.NewManager(),
		stopPoll: make(chan struct{}),
		status:   make(map[string]web.BridgeStatus),
	}
}

func (d *daemon) start() {
	d.mqttMgr.LoadFromConfig(d.cfg.MQTT)
	d.mqttMgr.SetWriteHandler(d.handleMQTTWrite)
	d.mqttMgr.SetBridgeNames(d.bridgeNames())
	if n := d.mqttMgr.StartAll(); n > 0 {
		logging.DebugLog("registry", "started %d MQTT publisher(s)", n)
	}

	if d.cfg.SSH.Enabled {
		d.sshSrv = ssh.NewServer(&ssh.Config{
			Port:           d.cfg.SSH.Port,
			Password:       d.cfg.SSH.Password,
			AuthorizedKeys: d.cfg.SSH.AuthorizedKeys,
		})
		d.sshSrv.SetSharedManagers(&ssh.SharedManagers{Registry: d.reg, RegistryPath: d.regPath})
		if err := d.sshSrv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: SSH server not started: %v\n", err)
		}
	}

	if d.cfg.Web.Enabled && d.cfg.Web.UI.Enabled {
		router := web.NewRouter(&d.cfg.Web.UI, d)
		addr := fmt.Sprintf("%s:%d", d.cfg.Web.Host, d.cfg.Web.Port)
		d.httpSrv = &http.Server{Addr: addr, Handler: router}
		go func() {
			if err := d.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				fmt.Fprintf(os.Stderr, "Warning: web server stopped: %v\n", err)
			}
		}()
		logging.DebugLog("registry", "web status page listening on %s", addr)
	}

	go d.pollLoop()
}

func (d *daemon) stop() {
	close(d.stopPoll)
	if d.sshSrv != nil {
		d.sshSrv.Stop()
	}
	if d.httpSrv != nil {
		d.httpSrv.Close()
	}
	d.mqttMgr.StopAll()
}

// ListBridges implements web.StatusProvider.
func (d *daemon) ListBridges() []web.BridgeStatus {
	d.statusMu.RLock()
	defer d.statusMu.RUnlock()

	out := make([]web.BridgeStatus, 0, len(d.cfg.Bridges))
	for _, b := range d.cfg.Bridges {
		if st, ok := d.status[b.Name]; ok {
			out = append(out, st)
			continue
		}
		out = append(out, web.BridgeStatus{Name: b.Name, Address: b.Address, Enabled: b.Enabled})
	}
	return out
}

func (d *daemon) bridgeNames() []string {
	names := make([]string, 0, len(d.cfg.Bridges))
	for _, b := range d.cfg.Bridges {
		names = append(names, b.Name)
	}
	return names
}

// pollLoop periodically dumps each enabled bridge's parameter space and
// republishes named parameters to MQTT for any bridge with PublishEvents set.
func (d *daemon) pollLoop() {
	rate := d.cfg.PollRate
	if rate <= 0 {
		rate = 30 * time.Second
	}
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopPoll:
			return
		case <-ticker.C:
			d.pollOnce()
		}
	}
}

func (d *daemon) pollOnce() {
	for _, b := range d.cfg.Bridges {
		if !b.Enabled {
			continue
		}
		d.pollBridge(b)
	}
}

func (d *daemon) pollBridge(b config.BridgeEntry) {
	ip := net.ParseIP(b.Address)
	if ip == nil {
		d.recordStatus(web.BridgeStatus{Name: b.Name, Address: b.Address, Enabled: b.Enabled, Error: "invalid address"})
		return
	}

	dump, conn, err := paramspace.Dump(ip, paramspace.DefaultPort, paramspace.DefaultTimeout, nil)
	if err != nil {
		logging.DebugLog("registry", "bridge %s: poll failed: %v", b.Name, err)
		d.recordStatus(web.BridgeStatus{Name: b.Name, Address: b.Address, Enabled: b.Enabled, Error: err.Error()})
		return
	}
	defer conn.Close()

	resolved := paramspace.ResolvedDump{ParamDump: dump}
	params := make(map[string]byte, len(namedParams))
	for _, name := range namedParams {
		val, err := resolved.GetByName(name)
		if err != nil {
			continue
		}
		params[name] = val
		if b.PublishEvents {
			d.mqttMgr.PublishParam(b.Name, name, val, false)
		}
	}
	if b.PublishEvents {
		d.mqttMgr.PublishDiscovery(b.Name, map[string]interface{}{"address": b.Address})
	}

	d.recordStatus(web.BridgeStatus{
		Name:     b.Name,
		Address:  b.Address,
		Enabled:  b.Enabled,
		Online:   true,
		LastPoll: time.Now(),
		Params:   params,
	})
}

func (d *daemon) recordStatus(st web.BridgeStatus) {
	d.statusMu.Lock()
	defer d.statusMu.Unlock()
	d.status[st.Name] = st
}

// handleMQTTWrite is invoked by the MQTT manager's write subscription for
// every command received on a publisher's write topic. It resolves the
// target bridge's address from the daemon config and performs a
// read-modify-write parameter mutation via the parameter-space client.
func (d *daemon) handleMQTTWrite(bridge, param string, value interface{}) error {
	entry := d.cfg.FindBridge(bridge)
	if entry == nil {
		return fmt.Errorf("unknown bridge %q", bridge)
	}
	ip := net.ParseIP(entry.Address)
	if ip == nil {
		return fmt.Errorf("bridge %q has invalid address %q", bridge, entry.Address)
	}

	b, err := coerceByte(value)
	if err != nil {
		return fmt.Errorf("param %q: %w", param, err)
	}

	mutations := []paramspace.Mutation{{Loc: paramspace.ByName(param), Value: b}}
	result, err := paramspace.Set(ip, paramspace.DefaultPort, paramspace.DefaultTimeout, nil, mutations, nil)
	if err != nil {
		return err
	}
	if !result.Status.Success() {
		return fmt.Errorf("device reported error status %d", result.Status)
	}
	return nil
}

func coerceByte(value interface{}) (byte, error) {
	switch v := value.(type) {
	case byte:
		return v, nil
	case float64:
		return byte(v), nil
	case int:
		return byte(v), nil
	case string:
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return 0, err
		}
		return byte(n), nil
	default:
		return 0, fmt.Errorf("unsupported value type %T", value)
	}
}
