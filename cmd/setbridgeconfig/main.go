// setbridgeconfig performs a read-modify-write parameter mutation against a
// bridge, mirroring the Rust CLI of the same name over the C5 set
// operation. Parameters are given as name=value or index=value pairs.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"bridgectl/cmd/bridgeenv"
	"bridgectl/paramspace"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Show version and exit")
	port := flag.Int("port", bridgeenv.PortOverride(paramspace.DefaultPort), "Parameter-space TCP port")
	timeout := flag.Duration("timeout", paramspace.DefaultTimeout, "Connection/exchange timeout")
	verbose := flag.Bool("v", false, "Trace each network phase and every mutation")
	flag.Parse()

	if *showVersion {
		fmt.Printf("setbridgeconfig %s\n", Version)
		return
	}

	if flag.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: setbridgeconfig [flags] <ip> <param=value> [param=value...]")
		os.Exit(1)
	}

	ip := net.ParseIP(flag.Arg(0))
	if ip == nil {
		fmt.Fprintf(os.Stderr, "Error: invalid IP %q\n", flag.Arg(0))
		os.Exit(1)
	}

	mutations, err := parseMutations(flag.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	hooks := traceHooks(*verbose)

	result, err := paramspace.Set(ip, *port, *timeout, nil, mutations, hooks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if !result.Status.Success() {
		fmt.Fprintf(os.Stderr, "Device reported error status %d\n", result.Status)
		os.Exit(1)
	}

	fmt.Println("OK")
}

func parseMutations(args []string) ([]paramspace.Mutation, error) {
	mutations := make([]paramspace.Mutation, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid param assignment %q, want name=value", arg)
		}
		v, err := strconv.ParseUint(parts[1], 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid value in %q: %w", arg, err)
		}
		mutations = append(mutations, paramspace.Mutation{
			Loc:   paramspace.ByName(parts[0]),
			Value: byte(v),
		})
	}
	return mutations, nil
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
		Mutation: func(loc paramspace.Location, old, new byte) {
			fmt.Printf("mutate: was %d, now %d\n", old, new)
		},
	}
}
