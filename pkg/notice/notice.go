package notice

import (
	"fmt"
	"os"
	"strings"

	"github.com/core-tools/hsu-ocdguard/pkg/logging"
)

// Notice is a user-facing message: a headline plus the likely reasons behind it.
// It implements error so that fatal notices can travel up to main.
type Notice struct {
	Headline string
	Reasons  []string
	HelpText string
	Cause    error
}

func New(headline string) *Notice {
	return &Notice{Headline: headline}
}

func (n *Notice) Reason(reason string) *Notice {
	n.Reasons = append(n.Reasons, reason)
	return n
}

func (n *Notice) Help(help string) *Notice {
	n.HelpText = help
	return n
}

// WithCause attaches the underlying error; it is listed as the last reason.
func (n *Notice) WithCause(err error) *Notice {
	n.Cause = err
	return n
}

func (n *Notice) Unwrap() error {
	return n.Cause
}

func (n *Notice) Error() string {
	if len(n.Reasons) == 0 {
		return n.Headline
	}
	return n.Headline + " (" + strings.Join(n.Reasons, "; ") + ")"
}

// Render formats the notice for a terminal, one reason per line.
func (n *Notice) Render() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(n.Headline)
	for _, reason := range n.Reasons {
		fmt.Fprintf(&b, "\n - %s", reason)
	}
	if n.Cause != nil {
		fmt.Fprintf(&b, "\n - cause: %v", n.Cause)
	}
	if n.HelpText != "" {
		fmt.Fprintf(&b, "\nhint: %s", n.HelpText)
	}
	return b.String()
}

// Sink delivers notices to the user. Print continues; Exit terminates the program.
type Sink interface {
	Print(n *Notice)
	Exit(n *Notice)
}

// ExitFunc terminates the program with the given status
type ExitFunc func(code int)

type logSink struct {
	logger logging.Logger
	exit   ExitFunc
}

// NewLogSink returns a Sink that renders notices through logger. A nil exit uses os.Exit.
func NewLogSink(logger logging.Logger, exit ExitFunc) Sink {
	if exit == nil {
		exit = os.Exit
	}
	return &logSink{
		logger: logger,
		exit:   exit,
	}
}

func (s *logSink) Print(n *Notice) {
	s.logger.Warnf("%s", n.Render())
}

func (s *logSink) Exit(n *Notice) {
	s.logger.Errorf("%s", n.Render())
	s.exit(1)
}
