package host

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

// gopsutil does not implement CPU affinity on Linux.
func affinityCount(_ context.Context, ps *process.Process) (int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(int(ps.Pid), &set); err != nil {
		return 0, err
	}
	return set.Count(), nil
}

// The raw getpriority syscall, which gopsutil returns unchanged, reports
// 20 - nice so that the result is never negative.
const priorityOffset = 20

func niceValue(ctx context.Context, ps *process.Process) (int, error) {
	raw, err := ps.NiceWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return niceFromPriority(raw), nil
}

func niceFromPriority(raw int32) int {
	return priorityOffset - int(raw)
}
