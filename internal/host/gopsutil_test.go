package host

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	notFound := &os.PathError{Op: "open", Path: "/proc/42/io", Err: syscall.ENOENT}
	denied := &os.PathError{Op: "open", Path: "/proc/1/io", Err: syscall.EACCES}

	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"not running", process.ErrorProcessNotRunning, ErrProcessVanished},
		{"wrapped not running", errors.WithMessage(process.ErrorProcessNotRunning, "pid 42"), ErrProcessVanished},
		{"missing proc entry", notFound, ErrProcessVanished},
		{"no such process", syscall.ESRCH, ErrProcessVanished},
		{"eacces", denied, ErrPermissionDenied},
		{"eperm", syscall.EPERM, ErrPermissionDenied},
		{"not implemented", errors.New(notImplementedMessage), ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			assert.Equal(t, tt.err.Error(), err.Error())
		})
	}
}

func TestClassifyPassesThroughOtherErrors(t *testing.T) {
	assert.NoError(t, classify(nil))

	other := errors.New("boom")
	err := classify(other)
	assert.Equal(t, other, err)
	assert.False(t, errors.Is(err, ErrPermissionDenied))
	assert.False(t, errors.Is(err, ErrProcessVanished))
}

func TestCPUPercentBetweenSamples(t *testing.T) {
	g := NewGopsutil()
	start := time.Unix(1000, 0)
	now := start
	g.now = func() time.Time { return now }

	assert.Zero(t, g.cpuPercent(7, 1, 10), "first sample has no baseline")

	now = start.Add(2 * time.Second)
	assert.InDelta(t, 50.0, g.cpuPercent(7, 1, 11), 0.001)

	now = start.Add(3 * time.Second)
	assert.InDelta(t, 200.0, g.cpuPercent(7, 1, 13), 0.001, "multi-threaded usage exceeds one CPU")
}

func TestCPUPercentResetsOnPidReuse(t *testing.T) {
	g := NewGopsutil()
	now := time.Unix(1000, 0)
	g.now = func() time.Time { return now }

	g.cpuPercent(7, 1, 100)
	now = now.Add(time.Second)
	assert.Zero(t, g.cpuPercent(7, 2, 1))

	now = now.Add(time.Second)
	assert.InDelta(t, 100.0, g.cpuPercent(7, 2, 2), 0.001)
}

func TestCPUPercentWithoutCreateTime(t *testing.T) {
	g := NewGopsutil()
	now := time.Unix(1000, 0)
	g.now = func() time.Time { return now }

	g.cpuPercent(7, unknownCreateTime, 10)
	now = now.Add(time.Second)
	assert.InDelta(t, 50.0, g.cpuPercent(7, unknownCreateTime, 10.5), 0.001)

	now = now.Add(time.Second)
	assert.InDelta(t, 50.0, g.cpuPercent(7, 3, 11), 0.001, "a known create time alone cannot prove reuse")

	now = now.Add(time.Second)
	assert.Zero(t, g.cpuPercent(7, 4, 20), "create time changed")
}

func TestCurrentProcess(t *testing.T) {
	ctx := context.Background()
	g := NewGopsutil()

	pids, err := g.PIDs(ctx)
	require.NoError(t, err)
	assert.Contains(t, pids, int32(os.Getpid()))

	p, err := g.Process(ctx, int32(os.Getpid()))
	require.NoError(t, err)
	assert.Equal(t, int32(os.Getpid()), p.PID())

	name, err := p.Name(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, name)

	threads, err := p.NumThreads(ctx)
	require.NoError(t, err)
	assert.Positive(t, threads)

	created, err := p.CreateTime(ctx)
	require.NoError(t, err)
	assert.True(t, created.Before(time.Now().Add(time.Second)))

	bootTime, err := g.BootTime(ctx)
	require.NoError(t, err)
	assert.False(t, bootTime.After(created))
}

func TestSignalMissingProcess(t *testing.T) {
	g := NewGopsutil()
	err := g.Terminate(context.Background(), 1<<30)
	assert.True(t, errors.Is(err, ErrProcessVanished), "got %v", err)
}
