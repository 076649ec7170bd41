// bridgectl manages the local bridge registry (bridge_env.ini): adding,
// removing, listing, and setting the default bridge, plus a list --scan
// mode that runs a live discovery sweep instead of reading the registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bridgectl/cmd/bridgeenv"
	"bridgectl/discovery"
	"bridgectl/registry"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	if os.Args[1] == "--version" || os.Args[1] == "-version" {
		fmt.Printf("bridgectl %s\n", Version)
		return
	}

	path, err := registry.DefaultPath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	reg, err := registry.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "add":
		cmdAdd(reg, path, os.Args[2:])
	case "get":
		cmdGet(reg, os.Args[2:])
	case "list":
		cmdList(reg, os.Args[2:])
	case "remove":
		cmdRemove(reg, path, os.Args[2:])
	case "set-default":
		cmdSetDefault(reg, path, os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: bridgectl <add|get|list|remove|set-default> [args]")
	fmt.Fprintln(os.Stderr, "  add <name> <ip>          register a bridge")
	fmt.Fprintln(os.Stderr, "  get <name>               show a registered bridge's IP")
	fmt.Fprintln(os.Stderr, "  list [--scan]            list registered bridges, or run a live scan")
	fmt.Fprintln(os.Stderr, "  remove <name>            remove a bridge")
	fmt.Fprintln(os.Stderr, "  set-default <name>       designate the default bridge")
}

func cmdAdd(reg *registry.Registry, path string, args []string) {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: bridgectl add <name> <ip>")
		os.Exit(1)
	}
	if err := reg.SetBridge(args[0], args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := reg.Save(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving registry: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Added %s (%s)\n", args[0], args[1])
}

func cmdGet(reg *registry.Registry, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bridgectl get <name>")
		os.Exit(1)
	}
	ip, ok := reg.Bridge(args[0])
	if !ok {
		fmt.Fprintf(os.Stderr, "bridge %q not found\n", args[0])
		os.Exit(1)
	}
	fmt.Println(ip)
}

func cmdRemove(reg *registry.Registry, path string, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bridgectl remove <name>")
		os.Exit(1)
	}
	reg.RemoveBridge(args[0])
	if err := reg.Save(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving registry: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Removed %s\n", args[0])
}

func cmdSetDefault(reg *registry.Registry, path string, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: bridgectl set-default <name>")
		os.Exit(1)
	}
	if err := reg.SetDefault(args[0]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := reg.Save(path); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving registry: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Default bridge set to %s\n", args[0])
}

func cmdList(reg *registry.Registry, args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	scan := fs.Bool("scan", false, "run a live discovery scan instead of reading the registry")
	deadline := fs.Duration("deadline", bridgeenv.ScanTimeout(discovery.DefaultDeadline), "discovery collection window")
	fs.Parse(args)

	if !*scan {
		defName, _, _ := reg.Default()
		for _, name := range reg.Names() {
			ip, _ := reg.Bridge(name)
			marker := ""
			if name == defName {
				marker = " (default)"
			}
			fmt.Printf("%-20s %s%s\n", name, ip, marker)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *deadline+2*time.Second)
	defer cancel()

	ids, err := discovery.Collect(ctx, false, discovery.DefaultPort, *deadline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error scanning: %v\n", err)
		os.Exit(1)
	}
	for _, id := range ids {
		fmt.Printf("%-20s %-16s %s\n", id.Name, id.IP, formatMAC(id.MAC))
	}
}

func formatMAC(mac [6]byte) string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", mac[0], mac[1], mac[2], mac[3], mac[4], mac[5])
}
