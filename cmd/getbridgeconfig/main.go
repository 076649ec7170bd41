// getbridgeconfig dumps a bridge's 512-byte parameter space, either in full
// (hex) or as a single named/indexed parameter, mirroring the Rust CLI of
// the same name over the C5 parameter-space client.
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

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	port := flag.Int("port", bridgeenv.PortOverride(paramspace.DefaultPort), "Parameter-space TCP port")
	timeout := flag.Duration("timeout", paramspace.DefaultTimeout, "Connection/exchange timeout")
	param := flag.String("param", "", "Print only this named or indexed parameter instead of the full dump")
	verbose := flag.Bool("v", false, "Trace each network phase")
	flag.Parse()

	if *showVersion {
		fmt.Printf("getbridgeconfig %s\n", Version)
		return
	}

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: getbridgeconfig [flags] <ip>")
		os.Exit(1)
	}

	ip := net.ParseIP(flag.Arg(0))
	if ip == nil {
		fmt.Fprintf(os.Stderr, "Error: invalid IP %q\n", flag.Arg(0))
		os.Exit(1)
	}

	hooks := traceHooks(*verbose)

	dump, conn, err := paramspace.Dump(ip, *port, *timeout, hooks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	resolved := paramspace.ResolvedDump{ParamDump: dump}

	if *param != "" {
		b, err := resolved.GetByName(*param)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("%s = %d (0x%02x)\n", *param, b, b)
		return
	}

	for i, b := range dump.Bytes {
		if i%16 == 0 {
			if i != 0 {
				fmt.Println()
			}
			fmt.Printf("%04d: ", i)
		}
		fmt.Printf("%02x ", b)
	}
	fmt.Println()
}

func traceHooks(verbose bool) *paramspace.Hooks {
	if !verbose {
		return nil
	}
	return &paramspace.Hooks{
		ConnectionEstablished: func(addr string) { fmt.Printf("connected to %s\n", addr) },
		BytesWritten:          func(n int) { fmt.Printf("wrote %d bytes\n", n) },
		ExpectedReadSize:      func(n int) { fmt.Printf("expecting %d bytes\n", n) },
		BytesRead:             func(n int) { fmt.Printf("read %d bytes\n", n) },
	}
}
