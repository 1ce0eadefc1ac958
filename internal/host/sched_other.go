//go:build !linux

package host

import (
	"context"

	"github.com/shirou/gopsutil/v3/process"
)

func affinityCount(ctx context.Context, ps *process.Process) (int, error) {
	cpus, err := ps.CPUAffinityWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return len(cpus), nil
}

func niceValue(ctx context.Context, ps *process.Process) (int, error) {
	nice, err := ps.NiceWithContext(ctx)
	return int(nice), err
}
