// mionps is a thin wrapper over the C5 parameter dump, printing the
// well-known named parameters (nand_mode, sdk_major, sdk_minor, sdk_misc).
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"bridgectl/cmd/bridgeenv"
	"bridgectl/paramspace"
)

var Version = "dev"

var namedParams = []string{"nand_mode", "sdk_major", "sdk_minor", "sdk_misc"}

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	port := flag.Int("port", bridgeenv.PortOverride(paramspace.DefaultPort), "Parameter-space TCP port")
	timeout := flag.Duration("timeout", paramspace.DefaultTimeout, "Connection/exchange timeout")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mionps %s\n", Version)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: mionps <ip>")
		os.Exit(1)
	}

	ip := net.ParseIP(flag.Arg(0))
	if ip == nil {
		fmt.Fprintf(os.Stderr, "Error: invalid IP %q\n", flag.Arg(0))
		os.Exit(1)
	}

	dump, conn, err := paramspace.Dump(ip, *port, *timeout, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	resolved := paramspace.ResolvedDump{ParamDump: dump}
	for _, name := range namedParams {
		b, err := resolved.GetByName(name)
		if err != nil {
			fmt.Printf("%-10s <unresolvable: %v>\n", name, err)
			continue
		}
		fmt.Printf("%-10s %d\n", name, b)
	}
}
