//go:build !windows

package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/core-tools/hsu-ocdguard/pkg/launch"
	"github.com/core-tools/hsu-ocdguard/pkg/process"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The script complains about connections on its first run and about a missing
// config on the second, so Run must restart once and then fail.
const restartThenFailScript = `
echo run >> "$1"
runs=$(wc -l < "$1")
if [ "$runs" -lt 2 ]; then
	echo "Info : rejected 'gdb' connection, no more connections allowed"
	sleep 30
else
	echo "Error: Can't find openocd.cfg" >&2
	sleep 30
fi
`

func TestRun_RealProcessRestartThenFatal(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns real processes")
	}

	dir := t.TempDir()
	script := filepath.Join(dir, "fake-openocd.sh")
	require.NoError(t, os.WriteFile(script, []byte(restartThenFailScript), 0755))
	counter := filepath.Join(dir, "runs")

	sink := &fakeSink{}
	sup, err := New(Options{
		Args:            []string{script, counter},
		Mode:            launch.ModeGeneral,
		ProcessName:     "fake-openocd.sh",
		RestartCooldown: 10 * time.Millisecond,
	}, Dependencies{
		Spawner: process.NewSpawner(process.ExecutionConfig{ExecutablePath: "/bin/sh"}, nil),
		Reaper:  newFakeReaper(),
		Sink:    sink,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = sup.Run(ctx)
	n := requireNotice(t, err)
	assert.Equal(t, "OpenOCD can't find config.", n.Headline)
	assert.Contains(t, n.Reasons, "Launched with argument mode: ArgMode::GeneralRp2040")

	stats := sup.Stats()
	assert.Equal(t, 2, stats.Spawns)
	assert.Equal(t, 1, stats.Restarts)
	assert.Equal(t, []string{"OpenOCD reports too many connections"}, sink.Headlines())

	runs, err := os.ReadFile(counter)
	require.NoError(t, err)
	assert.Equal(t, "run\nrun\n", string(runs))
}
