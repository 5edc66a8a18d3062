// Command pmcall issues a single power-management call against a
// running pmsvcd and prints the returned registers.
//
//	pmcall -socket /tmp/pmsvcd.sock 0x1          # get-api-version
//	pmcall 7 0x6400000006 0x800000000002         # self-suspend
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/hvkit/pmbridge/internal/smc"
	"github.com/hvkit/pmbridge/internal/smcproxy"
)

func run() error {
	socketPath := flag.String("socket", "/tmp/pmsvcd.sock", "pmsvcd control socket")
	flag.Parse()

	if flag.NArg() < 1 || flag.NArg() > 5 {
		return fmt.Errorf("usage: pmcall [-socket path] <call-id> [arg1..arg4]")
	}

	id, err := strconv.ParseUint(flag.Arg(0), 0, 32)
	if err != nil {
		return fmt.Errorf("bad call id %q: %w", flag.Arg(0), err)
	}
	var args [4]uint64
	for i := 1; i < flag.NArg(); i++ {
		args[i-1], err = strconv.ParseUint(flag.Arg(i), 0, 64)
		if err != nil {
			return fmt.Errorf("bad argument %q: %w", flag.Arg(i), err)
		}
	}

	client, err := smcproxy.Dial(*socketPath)
	if err != nil {
		return err
	}
	defer client.Close()

	regs, err := client.Call(uint32(id), args)
	if err != nil {
		return err
	}

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if interactive && len(regs) == 1 && regs[0] == smc.UnknownFunction {
		fmt.Println("unrecognized call (service not present or unknown id)")
		return nil
	}
	for i, reg := range regs {
		if interactive {
			fmt.Printf("x%d = %#016x\n", i, reg)
		} else {
			fmt.Printf("%#x\n", reg)
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "pmcall:", err)
		os.Exit(1)
	}
}
