package host

import (
	"context"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestNiceFromPriority(t *testing.T) {
	assert.Equal(t, 0, niceFromPriority(20))
	assert.Equal(t, 5, niceFromPriority(15))
	assert.Equal(t, 19, niceFromPriority(1))
	assert.Equal(t, -20, niceFromPriority(40))
}

func TestNiceOfCurrentProcess(t *testing.T) {
	ctx := context.Background()
	p, err := NewGopsutil().Process(ctx, int32(os.Getpid()))
	require.NoError(t, err)

	nice, err := p.Nice(ctx)
	require.NoError(t, err)

	own, err := unix.Getpriority(unix.PRIO_PROCESS, 0)
	require.NoError(t, err)
	assert.Equal(t, priorityOffset-own, nice)
	assert.GreaterOrEqual(t, nice, -20)
	assert.LessOrEqual(t, nice, 19)
}

func TestNiceOfReniced(t *testing.T) {
	path, err := exec.LookPath("nice")
	if err != nil {
		t.Skip("nice(1) is not installed")
	}

	ctx := context.Background()
	own, err := NewGopsutil().Process(ctx, int32(os.Getpid()))
	require.NoError(t, err)
	base, err := own.Nice(ctx)
	require.NoError(t, err)
	if base+5 > 19 {
		t.Skip("test process is already running at the lowest priority")
	}

	cmd := exec.Command(path, "-n", "5", "sleep", "5")
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	p, err := NewGopsutil().Process(ctx, int32(cmd.Process.Pid))
	require.NoError(t, err)
	// nice(1) lowers its own priority before it execs sleep
	assert.Eventually(t, func() bool {
		nice, err := p.Nice(ctx)
		return err == nil && nice == base+5
	}, 2*time.Second, 10*time.Millisecond)
}
