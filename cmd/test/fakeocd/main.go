package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
)

// fakeocd stands in for OpenOCD when trying ocdguard by hand: point
// daemon.executable_path at it and script what it prints.
type flagOptions struct {
	RunDuration int      `long:"run-duration" description:"Seconds to stay alive after printing (0 waits for a signal)"`
	DelayMS     int      `long:"delay-ms" default:"100" description:"Pause between scripted lines in milliseconds"`
	Stdout      []string `long:"stdout-line" description:"Line to print on stdout (repeatable, printed in order)"`
	Stderr      []string `long:"stderr-line" description:"Line to print on stderr (repeatable, printed after stdout lines)"`
	Scenario    string   `long:"scenario" choice:"port-in-use" choice:"no-probe" choice:"no-config" choice:"too-many-connections" description:"Print a canned OpenOCD diagnostic on stderr"`
}

var scenarios = map[string]string{
	"port-in-use":          "Error: couldn't bind tcl to socket on port 6666: Address already in use",
	"no-probe":             "Error: Can't find a picoprobe device! Please check device connections and permissions.",
	"no-config":            "Error: Can't find openocd.cfg",
	"too-many-connections": "Info : rejected 'gdb' connection, no more connections allowed",
}

func main() {
	var opts flagOptions
	var parser = flags.NewParser(&opts, flags.HelpFlag|flags.IgnoreUnknown)
	daemonArgs, err := parser.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Printf("Command line flags parsing failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Open On-Chip Debugger (fakeocd), pid: %d, args: %v\n", os.Getpid(), daemonArgs)

	ctx := context.Background()
	if opts.RunDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.RunDuration)*time.Second)
		defer cancel()
	}

	delay := time.Duration(opts.DelayMS) * time.Millisecond
	for _, line := range opts.Stdout {
		time.Sleep(delay)
		fmt.Fprintln(os.Stdout, line)
	}
	for _, line := range opts.Stderr {
		time.Sleep(delay)
		fmt.Fprintln(os.Stderr, line)
	}
	if opts.Scenario != "" {
		time.Sleep(delay)
		fmt.Fprintln(os.Stderr, scenarios[opts.Scenario])
	}

	sig := make(chan os.Signal, 1)
	if runtime.GOOS == "windows" {
		signal.Notify(sig) // Unix signals not implemented on Windows
	} else {
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	}

	select {
	case receivedSignal := <-sig:
		fmt.Printf("fakeocd received signal: %v\n", receivedSignal)
	case <-ctx.Done():
		fmt.Printf("fakeocd run duration elapsed\n")
	}
}
