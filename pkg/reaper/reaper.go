package reaper

import (
	"context"
	"os"

	"github.com/core-tools/hsu-ocdguard/pkg/errors"
	"github.com/core-tools/hsu-ocdguard/pkg/logging"
	"github.com/core-tools/hsu-ocdguard/pkg/processstate"
)

// Process is one entry of a process table snapshot
type Process interface {
	Pid() int32
	Name(ctx context.Context) (string, error)
	Kill(ctx context.Context) error
}

// ProcessTable enumerates the processes visible to the current user
type ProcessTable interface {
	Processes(ctx context.Context) ([]Process, error)
}

// AliveFunc reports whether pid still names a running process
type AliveFunc func(pid int) (bool, error)

// Reaper kills every process carrying a given name.
type Reaper struct {
	table  ProcessTable
	alive  AliveFunc
	self   int32
	logger logging.Logger
}

func New(table ProcessTable, logger logging.Logger) *Reaper {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Reaper{
		table:  table,
		alive:  processstate.IsProcessRunning,
		self:   int32(os.Getpid()),
		logger: logger,
	}
}

// WithAliveFunc replaces the liveness probe used to tell a vanished process from a failed kill.
func (r *Reaper) WithAliveFunc(alive AliveFunc) *Reaper {
	r.alive = alive
	return r
}

// KillAllNamed requests termination of every process whose name equals name
// and returns how many kill requests were delivered. It does not wait for the
// processes to exit. An unreadable process table counts as empty. A kill that
// fails against a process that is still present is returned as a process error;
// a process that disappeared in the meantime is not a failure.
func (r *Reaper) KillAllNamed(ctx context.Context, name string) (int, error) {
	processes, err := r.table.Processes(ctx)
	if err != nil {
		r.logger.Warnf("Failed to enumerate processes, treating as none found, name: %s, error: %v", name, err)
		return 0, nil
	}

	killed := 0
	for _, p := range processes {
		pid := p.Pid()
		if pid == r.self {
			continue
		}

		procName, err := p.Name(ctx)
		if err != nil || procName != name {
			continue
		}

		r.logger.Infof("Killing process, name: %s, PID: %d", name, pid)

		if err := p.Kill(ctx); err != nil {
			if running, _ := r.alive(int(pid)); !running {
				r.logger.Debugf("Process vanished before kill, name: %s, PID: %d", name, pid)
				continue
			}
			return killed, errors.NewProcessError("failed to kill matched process", err).
				WithContext("name", name).
				WithContext("pid", pid)
		}
		killed++
	}

	r.logger.Debugf("Reaped processes, name: %s, killed: %d", name, killed)

	return killed, nil
}
