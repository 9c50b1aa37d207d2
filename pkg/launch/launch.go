package launch

import (
	"strings"
)

// ArgMode selects which fixed argument list precedes the pass-through arguments
type ArgMode int

const (
	ModeNone ArgMode = iota
	ModeProbe
	ModeGeneral
)

func (m ArgMode) String() string {
	switch m {
	case ModeNone:
		return "ArgMode::None"
	case ModeProbe:
		return "ArgMode::Picoprobe"
	case ModeGeneral:
		return "ArgMode::GeneralRp2040"
	default:
		return "ArgMode::Unknown"
	}
}

// ProbeInvocationSuffix selects ModeProbe when the binary is started through a
// symlink such as rpi-openocd-picoprobe.
const ProbeInvocationSuffix = "picoprobe"

// ResolveMode derives the initial mode from the invocation path (argv[0]).
// Explicit mode flags seen afterwards override it.
func ResolveMode(invokedAs string) ArgMode {
	if strings.HasSuffix(invokedAs, ProbeInvocationSuffix) {
		return ModeProbe
	}
	return ModeNone
}

// Layout holds the daemon-side file names the fixed argument lists refer to
type Layout struct {
	ScriptsDir      string `yaml:"scripts_dir"`
	InterfaceConfig string `yaml:"interface_config"`
	TargetConfig    string `yaml:"target_config"`
}

// Args returns the fixed arguments for mode
func (l Layout) Args(mode ArgMode) []string {
	switch mode {
	case ModeProbe:
		return []string{
			"-s", l.ScriptsDir,
			"-f", l.InterfaceConfig,
			"-f", l.TargetConfig,
		}
	case ModeGeneral:
		return []string{
			"-s", l.ScriptsDir,
			"-f", l.TargetConfig,
		}
	default:
		return nil
	}
}

// BuildArgs returns the mode arguments followed by the pass-through arguments.
// The result never aliases passthrough.
func BuildArgs(layout Layout, mode ArgMode, passthrough []string) []string {
	fixed := layout.Args(mode)
	args := make([]string, 0, len(fixed)+len(passthrough))
	args = append(args, fixed...)
	args = append(args, passthrough...)
	return args
}
