package process

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"os"
	"os/exec"

	"github.com/core-tools/hsu-ocdguard/pkg/errors"
	"github.com/core-tools/hsu-ocdguard/pkg/logging"
)

type ExecutionConfig struct {
	ExecutablePath   string   `yaml:"executable_path"`
	Environment      []string `yaml:"environment,omitempty"`
	WorkingDirectory string   `yaml:"working_directory,omitempty"`
}

// Child is a running daemon instance with its two output streams captured.
// Stdout and Stderr must be read to EOF before Wait is called.
type Child interface {
	Pid() int
	Stdout() io.Reader
	Stderr() io.Reader
	// Kill forcibly terminates the child and everything in its process group.
	Kill() error
	Wait() error
}

// Spawner starts daemon instances from a fixed execution config
type Spawner struct {
	execution ExecutionConfig
	logger    logging.Logger
}

func NewSpawner(execution ExecutionConfig, logger logging.Logger) *Spawner {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Spawner{
		execution: execution,
		logger:    logger,
	}
}

// Spawn starts the executable with args. Stdin is left unconnected.
func (s *Spawner) Spawn(ctx context.Context, args []string) (Child, error) {
	if err := ValidateExecutionConfig(s.execution); err != nil {
		return nil, errors.NewValidationError("invalid execution configuration", err)
	}

	path := s.execution.ExecutablePath

	s.logger.Debugf("Executing process, executable path: '%s', args: %v, working directory: '%s'",
		path, args, s.execution.WorkingDirectory)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = s.execution.WorkingDirectory
	if len(s.execution.Environment) > 0 {
		cmd.Env = append(os.Environ(), s.execution.Environment...)
	}

	// Platform-specific setup lives in spawn_unix.go / spawn_windows.go
	setupProcessAttributes(cmd)
	cmd.Cancel = func() error {
		return killProcessTree(cmd.Process)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.NewIOError("failed to create stdout pipe", err).WithContext("executable_path", path)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.NewIOError("failed to create stderr pipe", err).WithContext("executable_path", path)
	}

	if err := cmd.Start(); err != nil {
		if stderrors.Is(err, exec.ErrNotFound) || stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotFoundError("executable not found", err).WithContext("executable_path", path)
		}
		return nil, errors.NewProcessError("failed to start the process", err).WithContext("executable_path", path)
	}

	s.logger.Infof("Successfully executed process, PID: %d", cmd.Process.Pid)

	return &childProcess{
		cmd:    cmd,
		stdout: stdout,
		stderr: stderr,
	}, nil
}

type childProcess struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr io.ReadCloser
}

func (c *childProcess) Pid() int {
	return c.cmd.Process.Pid
}

func (c *childProcess) Stdout() io.Reader {
	return c.stdout
}

func (c *childProcess) Stderr() io.Reader {
	return c.stderr
}

func (c *childProcess) Kill() error {
	if err := killProcessTree(c.cmd.Process); err != nil {
		return errors.NewProcessError("failed to kill the process", err).WithContext("pid", c.cmd.Process.Pid)
	}
	return nil
}

func (c *childProcess) Wait() error {
	return c.cmd.Wait()
}
