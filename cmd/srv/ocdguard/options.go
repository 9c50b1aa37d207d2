package main

import (
	"path/filepath"

	"github.com/core-tools/hsu-ocdguard/pkg/launch"

	flags "github.com/jessevdk/go-flags"
)

// flagOptions holds ocdguard's own flags. They are long-only and prefixed so
// that every OpenOCD flag (-f, -s, -c, --help, ...) passes through untouched.
type flagOptions struct {
	ConfigFile  string `long:"guard-config" description:"path to the ocdguard YAML configuration file"`
	LogLevel    string `long:"guard-log-level" description:"override the configured log level (debug, info, warn, error)"`
	ProbeMode   func() `long:"picoprobe-mode" description:"launch with the PicoProbe interface and RP2040 target configs"`
	GeneralMode func() `long:"general-rp2040-mode" description:"launch with the RP2040 target config only"`
}

type invocation struct {
	ConfigFile  string
	LogLevel    string
	Mode        launch.ArgMode
	Passthrough []string
}

// parseInvocation resolves the launch mode from the program name, lets the
// mode flags override it (last one wins), and keeps all unknown arguments in
// their original order for the daemon.
func parseInvocation(program string, argv []string) (*invocation, error) {
	inv := &invocation{
		Mode: launch.ResolveMode(filepath.Base(program)),
	}

	opts := flagOptions{
		ProbeMode:   func() { inv.Mode = launch.ModeProbe },
		GeneralMode: func() { inv.Mode = launch.ModeGeneral },
	}
	parser := flags.NewParser(&opts, flags.IgnoreUnknown)
	rest, err := parser.ParseArgs(argv)
	if err != nil {
		return nil, err
	}

	inv.ConfigFile = opts.ConfigFile
	inv.LogLevel = opts.LogLevel
	inv.Passthrough = rest
	return inv, nil
}
