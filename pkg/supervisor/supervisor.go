package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/core-tools/hsu-ocdguard/pkg/capture"
	"github.com/core-tools/hsu-ocdguard/pkg/diagnostic"
	"github.com/core-tools/hsu-ocdguard/pkg/errors"
	"github.com/core-tools/hsu-ocdguard/pkg/launch"
	"github.com/core-tools/hsu-ocdguard/pkg/logging"
	"github.com/core-tools/hsu-ocdguard/pkg/notice"
	"github.com/core-tools/hsu-ocdguard/pkg/process"
	"github.com/core-tools/hsu-ocdguard/pkg/pump"
)

type Spawner interface {
	Spawn(ctx context.Context, args []string) (process.Child, error)
}

type Reaper interface {
	KillAllNamed(ctx context.Context, name string) (int, error)
}

type Options struct {
	// Args is the full argument vector, reused unchanged on every respawn
	Args []string
	// Mode is reported in fatal notices
	Mode launch.ArgMode
	// ProcessName is what gets reaped on a port conflict
	ProcessName     string
	RestartCooldown time.Duration
	LineBuffer      int
}

type Dependencies struct {
	Spawner Spawner
	Reaper  Reaper
	Sink    notice.Sink
	Capture capture.Writer
	Logger  logging.Logger
}

// Supervisor keeps one daemon instance alive, reacting to the diagnostics it prints.
// All lifecycle decisions are made on the goroutine calling Run.
type Supervisor struct {
	options    Options
	spawner    Spawner
	reaper     Reaper
	sink       notice.Sink
	capture    capture.Writer
	logger     logging.Logger
	classifier *diagnostic.Classifier

	restartRequested bool

	// Guards state and stats for observers on other goroutines
	mutex sync.RWMutex
	state State
	stats Stats
}

func New(options Options, deps Dependencies) (*Supervisor, error) {
	if deps.Spawner == nil {
		return nil, errors.NewValidationError("spawner is required", nil)
	}
	if deps.Reaper == nil {
		return nil, errors.NewValidationError("reaper is required", nil)
	}
	if deps.Sink == nil {
		return nil, errors.NewValidationError("notice sink is required", nil)
	}
	if options.ProcessName == "" {
		return nil, errors.NewValidationError("process name is required", nil)
	}
	if options.RestartCooldown < 0 {
		return nil, errors.NewValidationError("restart cooldown cannot be negative", nil).
			WithContext("restart_cooldown", options.RestartCooldown)
	}
	if options.LineBuffer <= 0 {
		options.LineBuffer = pump.DefaultCapacity
	}
	if deps.Capture == nil {
		deps.Capture = capture.Discard
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}

	args := make([]string, len(options.Args))
	copy(args, options.Args)
	options.Args = args

	return &Supervisor{
		options:    options,
		spawner:    deps.Spawner,
		reaper:     deps.Reaper,
		sink:       deps.Sink,
		capture:    deps.Capture,
		logger:     deps.Logger,
		classifier: diagnostic.NewClassifier(),
		state:      StateIdle,
	}, nil
}

func (s *Supervisor) State() State {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.state
}

func (s *Supervisor) Stats() Stats {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.stats
}

// Run supervises the daemon until a fatal condition or ctx cancellation.
// Fatal conditions are returned as *notice.Notice; cancellation returns a
// cancelled error wrapping ctx.Err().
func (s *Supervisor) Run(ctx context.Context) error {
	defer func() {
		s.setState(StateTerminated)
		if err := s.capture.Close(); err != nil {
			s.logger.Warnf("Failed to close capture file: %v", err)
		}
		stats := s.Stats()
		s.logger.Infof("Supervisor stopped, spawns: %d, restarts: %d, reaped: %d, lines: %d",
			stats.Spawns, stats.Restarts, stats.Reaped, stats.Lines)
	}()

	for {
		if err := s.runChild(ctx); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return errors.NewCancelledError("supervisor stopped", err)
		}

		s.setState(StateRestarting)
		s.logger.Infof("Restarting OpenOCD in %v", s.options.RestartCooldown)

		timer := time.NewTimer(s.options.RestartCooldown)
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.NewCancelledError("supervisor stopped during cooldown", ctx.Err())
		case <-timer.C:
		}
	}
}

// runChild spawns one child and consumes its output until the child is gone.
// A nil return means the outer loop may respawn.
func (s *Supervisor) runChild(ctx context.Context) error {
	s.setState(StateLaunching)
	s.logger.Infof("Launching OpenOCD, mode: %s, args: %v", s.options.Mode, s.options.Args)

	child, err := s.spawner.Spawn(ctx, s.options.Args)
	if err != nil {
		return notice.New("Could not spawn process").
			Reason(s.modeReason()).
			Help("Maybe a problem with PATH?").
			WithCause(err)
	}
	if child.Stdout() == nil || child.Stderr() == nil {
		s.killQuietly(child)
		return notice.New("Could not grab OpenOCD output streams").
			Reason(s.modeReason())
	}

	s.mutex.Lock()
	s.stats.Spawns++
	s.mutex.Unlock()
	s.setState(StateRunning)

	lines, pumped := pump.Merge(child.Stdout(), child.Stderr(), s.options.LineBuffer)

	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Stopping OpenOCD, PID: %d", child.Pid())
			// Streams of a child that survived the kill never close, so leave it behind
			if s.killQuietly(child) {
				s.drain(lines)
				s.reap(child, pumped)
			}
			return nil

		case line, ok := <-lines:
			if !ok {
				s.logger.Warnf("OpenOCD output closed, PID: %d", child.Pid())
				s.reap(child, pumped)
				return nil
			}

			if err := s.handleLine(ctx, line); err != nil {
				if s.killQuietly(child) {
					s.drain(lines)
					s.reap(child, pumped)
				}
				return err
			}

			if s.restartRequested {
				s.restartRequested = false
				s.logger.Infof("Killing OpenOCD for restart, PID: %d", child.Pid())
				if err := child.Kill(); err != nil {
					return notice.New("Could not kill OpenOCD for restart").
						Reason(fmt.Sprintf("PID: %d", child.Pid())).
						WithCause(err)
				}
				s.mutex.Lock()
				s.stats.Restarts++
				s.mutex.Unlock()

				s.drain(lines)
				s.reap(child, pumped)
				return nil
			}
		}
	}
}

func (s *Supervisor) handleLine(ctx context.Context, line pump.Line) error {
	s.mutex.Lock()
	s.stats.Lines++
	s.mutex.Unlock()

	s.logger.Infof("Line [%s]: %s", line.Stream, line.Text)
	if err := s.capture.Write(line); err != nil {
		s.logger.Warnf("Failed to capture line: %v", err)
	}

	d := s.classifier.Classify(line.Text)
	if d.Kind == diagnostic.Clean {
		return nil
	}
	s.logger.Debugf("Classified line as %s", d)

	if d.Fatal() {
		return s.fatalNotice(d)
	}

	switch d.Kind {
	case diagnostic.PortInUse:
		s.sink.Print(notice.New("OpenOCD reports: Address already in use").
			Reason("Maybe an old instance of OpenOCD?").
			Reason("Maybe another program has port open on same machine?").
			Reason(fmt.Sprintf("Port number: %s", s.classifier.LastConflictPort())))

		killed, err := s.reaper.KillAllNamed(ctx, s.options.ProcessName)
		if err != nil {
			return notice.New("Could not kill conflicting OpenOCD instance").
				Reason(fmt.Sprintf("Port number: %s", s.classifier.LastConflictPort())).
				WithCause(err)
		}
		s.mutex.Lock()
		s.stats.Reaped += killed
		s.mutex.Unlock()
		s.logger.Infof("Reaped %d '%s' processes", killed, s.options.ProcessName)

	case diagnostic.ConnectionLimitReached:
		s.sink.Print(notice.New("OpenOCD reports too many connections").
			Reason("Could be too many ghost connections."))
		s.restartRequested = true
	}

	return nil
}

// fatalNotice builds the message for a diagnostic that ends the supervisor
func (s *Supervisor) fatalNotice(d diagnostic.Diagnostic) *notice.Notice {
	var n *notice.Notice
	switch d.Kind {
	case diagnostic.ProbeNotFound:
		n = notice.New("OpenOCD failed to connect to PicoProbe.").
			Reason("Maybe it's unplugged?").
			Reason("Maybe your udev is misconfigured?")
	case diagnostic.ConfigNotFound:
		n = notice.New("OpenOCD can't find config.").
			Reason("Maybe you are launching with the wrong mode?")
	default:
		n = notice.New(fmt.Sprintf("OpenOCD reported %s", d))
	}
	return n.Reason(s.modeReason())
}

// drain discards lines still queued from a killed child so they are never classified
func (s *Supervisor) drain(lines <-chan pump.Line) {
	discarded := 0
	for line := range lines {
		discarded++
		if err := s.capture.Write(line); err != nil {
			s.logger.Warnf("Failed to capture line: %v", err)
		}
	}
	if discarded > 0 {
		s.logger.Debugf("Discarded %d lines from terminated OpenOCD", discarded)
	}
}

// reap waits for the pumps and then the child. Both streams must be closed first.
func (s *Supervisor) reap(child process.Child, pumped <-chan error) {
	if err := <-pumped; err != nil {
		s.logger.Debugf("Output pump ended with error: %v", err)
	}
	if err := child.Wait(); err != nil {
		s.logger.Infof("OpenOCD exited, PID: %d, status: %v", child.Pid(), err)
		return
	}
	s.logger.Infof("OpenOCD exited, PID: %d, status: 0", child.Pid())
}

// killQuietly kills the child on the way out of a fatal path; it reports whether the kill succeeded
func (s *Supervisor) killQuietly(child process.Child) bool {
	if err := child.Kill(); err != nil {
		s.logger.Errorf("Failed to kill OpenOCD, PID: %d: %v", child.Pid(), err)
		return false
	}
	return true
}

func (s *Supervisor) modeReason() string {
	return fmt.Sprintf("Launched with argument mode: %s", s.options.Mode)
}

func (s *Supervisor) setState(state State) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.state != state {
		s.logger.Debugf("Supervisor state %s -> %s", s.state, state)
	}
	s.state = state
}
