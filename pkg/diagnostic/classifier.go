package diagnostic

import (
	"regexp"
)

// UnknownPort is reported by LastConflictPort before any bind failure was seen.
const UnknownPort = "unknown"

// addressInUse is the bind() error text that marks a port conflict.
const addressInUse = "Address already in use"

// Kind identifies the outcome of classifying one line of daemon output
type Kind int

const (
	Clean Kind = iota
	PortInUse
	ProbeNotFound
	ConfigNotFound
	ConnectionLimitReached
)

func (k Kind) String() string {
	switch k {
	case Clean:
		return "Clean"
	case PortInUse:
		return "PortInUse"
	case ProbeNotFound:
		return "ProbeNotFound"
	case ConfigNotFound:
		return "ConfigNotFound"
	case ConnectionLimitReached:
		return "ConnectionLimitReached"
	default:
		return "Unknown"
	}
}

// Diagnostic is the classification of a single line. Port is only set for PortInUse.
type Diagnostic struct {
	Kind Kind
	Port string
}

func (d Diagnostic) String() string {
	if d.Kind == PortInUse {
		return d.Kind.String() + "(" + d.Port + ")"
	}
	return d.Kind.String()
}

// Fatal reports whether the diagnostic cannot be cured by restarting the daemon.
func (d Diagnostic) Fatal() bool {
	return d.Kind == ProbeNotFound || d.Kind == ConfigNotFound
}

// Classifier matches daemon output lines against the known failure patterns.
// It is not safe for concurrent use; the supervisor's consume loop owns it.
type Classifier struct {
	reBindFailure     *regexp.Regexp
	reProbeNotFound   *regexp.Regexp
	reConfigNotFound  *regexp.Regexp
	reRejected        *regexp.Regexp
	reNoMoreConnAllow *regexp.Regexp

	conflictObserved bool
	conflictPort     string
}

func NewClassifier() *Classifier {
	return &Classifier{
		reBindFailure:     regexp.MustCompile(`bind.*port (\d*): (.*)`),
		reProbeNotFound:   regexp.MustCompile(regexp.QuoteMeta("Can't find a picoprobe device!")),
		reConfigNotFound:  regexp.MustCompile(regexp.QuoteMeta("Can't find openocd.cfg")),
		reRejected:        regexp.MustCompile(`rejected`),
		reNoMoreConnAllow: regexp.MustCompile(`no more connections allowed`),
		conflictPort:      UnknownPort,
	}
}

// Classify inspects one line, decoration included, and returns the first
// matching diagnostic in priority order. Only PortInUse mutates state.
func (c *Classifier) Classify(line string) Diagnostic {
	if m := c.reBindFailure.FindStringSubmatch(line); m != nil && m[2] == addressInUse {
		c.conflictObserved = true
		c.conflictPort = m[1]
		return Diagnostic{Kind: PortInUse, Port: m[1]}
	}

	if c.reProbeNotFound.MatchString(line) {
		return Diagnostic{Kind: ProbeNotFound}
	}

	if c.reConfigNotFound.MatchString(line) {
		return Diagnostic{Kind: ConfigNotFound}
	}

	if c.reRejected.MatchString(line) && c.reNoMoreConnAllow.MatchString(line) {
		return Diagnostic{Kind: ConnectionLimitReached}
	}

	return Diagnostic{Kind: Clean}
}

// ConflictObserved reports whether any PortInUse has been classified.
func (c *Classifier) ConflictObserved() bool {
	return c.conflictObserved
}

// LastConflictPort returns the port of the most recent PortInUse, or UnknownPort.
func (c *Classifier) LastConflictPort() string {
	return c.conflictPort
}
