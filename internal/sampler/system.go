package sampler

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/procmon/internal/model"
)

// SystemSource samples host wide figures.
type SystemSource interface {
	Sample(ctx context.Context) (model.System, error)
}

// SystemSampler reads CPU, load and memory figures through gopsutil. CPU
// usage is a delta against the previous call, so the first sample reports 0.
type SystemSampler struct {
	lock      sync.Mutex
	prevTotal float64
	prevIdle  float64
}

func NewSystemSampler() *SystemSampler {
	return &SystemSampler{}
}

// Sample fills what it can. Figures that could not be read stay zero and
// their errors are returned together.
func (s *SystemSampler) Sample(ctx context.Context) (model.System, error) {
	var (
		sys  model.System
		errs error
	)

	if times, err := cpu.TimesWithContext(ctx, false); err != nil {
		errs = multierror.Append(errs, errors.WithMessage(err, "cpu times"))
	} else if len(times) > 0 {
		sys.CPU = s.cpuPercent(times[0])
	}

	if avg, err := load.AvgWithContext(ctx); err != nil {
		errs = multierror.Append(errs, errors.WithMessage(err, "load average"))
	} else {
		sys.Load1, sys.Load5, sys.Load15 = avg.Load1, avg.Load5, avg.Load15
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		errs = multierror.Append(errs, errors.WithMessage(err, "virtual memory"))
	} else {
		sys.MemUsed, sys.MemTotal = vm.Used, vm.Total
	}

	if swap, err := mem.SwapMemoryWithContext(ctx); err != nil {
		errs = multierror.Append(errs, errors.WithMessage(err, "swap memory"))
	} else {
		sys.SwapUsed, sys.SwapTotal = swap.Used, swap.Total
	}

	return sys, errs
}

func (s *SystemSampler) cpuPercent(cur cpu.TimesStat) float64 {
	s.lock.Lock()
	defer s.lock.Unlock()

	curTotal := cur.Total()
	curIdle := cur.Idle + cur.Iowait

	var pct float64
	if s.prevTotal > 0 {
		dt := curTotal - s.prevTotal
		di := curIdle - s.prevIdle
		if dt > 0 {
			pct = 100 * (1 - di/dt)
		}
	}
	s.prevTotal, s.prevIdle = curTotal, curIdle
	return pct
}
