package reaper

import (
	"context"

	"github.com/shirou/gopsutil/v4/process"
)

type systemProcessTable struct{}

// NewSystemProcessTable returns the host process table backed by gopsutil.
func NewSystemProcessTable() ProcessTable {
	return systemProcessTable{}
}

func (systemProcessTable) Processes(ctx context.Context) ([]Process, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Process, 0, len(procs))
	for _, p := range procs {
		result = append(result, systemProcess{p: p})
	}
	return result, nil
}

type systemProcess struct {
	p *process.Process
}

func (s systemProcess) Pid() int32 {
	return s.p.Pid
}

func (s systemProcess) Name(ctx context.Context) (string, error) {
	return s.p.NameWithContext(ctx)
}

func (s systemProcess) Kill(ctx context.Context) error {
	return s.p.KillWithContext(ctx)
}
