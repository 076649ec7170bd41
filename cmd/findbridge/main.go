// findbridge performs a single directed lookup (by IP, MAC, or name) and
// prints the resolved identity, mirroring the one-shot C4 lookup CLI from
// original_source/cmd/findbridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"bridgectl/cmd/bridgeenv"
	"bridgectl/discovery"
	"bridgectl/finder"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	port := flag.Int("port", bridgeenv.PortOverride(discovery.DefaultPort), "Discovery/finder UDP port")
	deadline := flag.Duration("deadline", bridgeenv.ScanTimeout(discovery.DefaultDeadline), "Search deadline")
	flag.Parse()

	if *showVersion {
		fmt.Printf("findbridge %s\n", Version)
		return
	}

	arg := flag.Arg(0)
	if flag.NArg() == 0 {
		var ok bool
		arg, ok = bridgeenv.CurrentBridge()
		if !ok {
			fmt.Fprintln(os.Stderr, "Usage: findbridge <ip|mac|name>")
			os.Exit(1)
		}
	} else if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: findbridge <ip|mac|name>")
		os.Exit(1)
	}

	target := finder.Parse(arg)

	ctx, cancel := context.WithTimeout(context.Background(), *deadline+2*time.Second)
	defer cancel()

	id, err := finder.Find(ctx, target, *port, *deadline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Name:    %s\n", id.Name)
	fmt.Printf("IP:      %s\n", id.IP)
	fmt.Printf("MAC:     %02x:%02x:%02x:%02x:%02x:%02x\n", id.MAC[0], id.MAC[1], id.MAC[2], id.MAC[3], id.MAC[4], id.MAC[5])
	fmt.Printf("FPGA:    %x\n", id.FPGAVersion)
	fmt.Printf("FW:      %x\n", id.FirmwareVersion)
	if id.Detailed != nil {
		fmt.Println("Detail:  present")
	}
}
