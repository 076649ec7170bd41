// bridgetui is the standalone local TUI: browse the registry and scan for
// bridges without running the fleet daemon.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"bridgectl/registry"
	"bridgectl/tui"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	regPath := flag.String("registry", "", "Path to bridge_env.ini (default: platform-specific)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("bridgetui %s\n", Version)
		return
	}

	path := *regPath
	if path == "" {
		var err error
		path, err = registry.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	reg, err := registry.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
		os.Exit(1)
	}

	app := tui.NewApp(reg, path)
	go func() {
		for range time.Tick(time.Second) {
			app.Refresh()
		}
	}()
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		os.Exit(1)
	}
}
