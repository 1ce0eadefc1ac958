package sampler

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/procmon/internal/host"
	"github.com/Dicklesworthstone/procmon/internal/model"
)

// idlePid is the kernel's idle/swapper task, never a real process.
const idlePid = 0

// Collector takes process snapshots from a host.
type Collector struct {
	logger *zap.Logger
	host   host.Host
	system SystemSource
	now    func() time.Time
}

func New(rootLogger *zap.Logger, h host.Host) *Collector {
	return &Collector{
		logger: rootLogger.Named("collector"),
		host:   h,
		now:    time.Now,
	}
}

// WithSystem makes every snapshot carry host wide figures from src.
func (c *Collector) WithSystem(src SystemSource) *Collector {
	c.system = src
	return c
}

// Collect walks the process table once. It only fails when the table cannot
// be listed at all: withheld fields take their defaults and processes that
// exit mid-walk are left out.
func (c *Collector) Collect(ctx context.Context) (model.Snapshot, error) {
	pids, err := c.host.PIDs(ctx)
	if err != nil {
		return model.Snapshot{}, errors.WithMessage(err, "enumerate processes")
	}

	bootTime, err := c.host.BootTime(ctx)
	if err != nil {
		c.logger.Warn("Failed to get boot time, falling back to epoch", zap.Error(err))
		bootTime = time.Unix(0, 0)
	}

	var (
		records  = make([]model.ProcessRecord, 0, len(pids))
		seen     = make(map[int32]struct{}, len(pids))
		vanished int
		errs     error
	)

	for _, pid := range pids {
		if pid == idlePid {
			continue
		}
		if _, dup := seen[pid]; dup {
			continue
		}
		seen[pid] = struct{}{}

		record, err := c.record(ctx, pid, bootTime)
		if err != nil {
			if errors.Is(err, host.ErrProcessVanished) {
				vanished++
				continue
			}
			errs = multierror.Append(errs, errors.WithMessagef(err, "inspect pid '%d'", pid))
			continue
		}
		records = append(records, record)
	}

	if errs != nil {
		c.logger.Warn("Skipped processes that could not be inspected", zap.Error(errs))
	}
	c.logger.Debug("Collected snapshot", zap.Int("Records", len(records)),
		zap.Int("Vanished", vanished), zap.Int("Enumerated", len(pids)))

	snap := model.Snapshot{Taken: c.now(), Records: records}
	if c.system != nil {
		sys, err := c.system.Sample(ctx)
		if err != nil {
			c.logger.Warn("Host figures are incomplete", zap.Error(err))
		}
		snap.System = &sys
	}
	return snap, nil
}

func (c *Collector) record(ctx context.Context, pid int32, bootTime time.Time) (model.ProcessRecord, error) {
	ps, err := c.host.Process(ctx, pid)
	if err != nil {
		return model.ProcessRecord{}, err
	}

	rec := model.ProcessRecord{PID: pid}

	if rec.Name, err = fetch(ps.Name(ctx)).or(""); err != nil {
		return rec, errors.WithMessage(err, "name")
	}
	if rec.Path, err = fetch(ps.Exe(ctx)).or(""); err != nil {
		return rec, errors.WithMessage(err, "executable")
	}
	if rec.CreateTime, err = c.createTime(ctx, ps, bootTime); err != nil {
		return rec, errors.WithMessage(err, "create time")
	}
	if rec.Cores, err = fetch(ps.CPUAffinityCount(ctx)).or(0); err != nil {
		return rec, errors.WithMessage(err, "cpu affinity")
	}
	if rec.CPUUsage, err = fetch(ps.CPUPercent(ctx)).or(0); err != nil {
		return rec, errors.WithMessage(err, "cpu percent")
	}
	if rec.Status, err = fetch(ps.Status(ctx)).or(""); err != nil {
		return rec, errors.WithMessage(err, "status")
	}
	if rec.Nice, err = fetch(ps.Nice(ctx)).or(0); err != nil {
		return rec, errors.WithMessage(err, "nice")
	}
	if rec.MemoryUsage, err = fetch(ps.ExclusiveMemory(ctx)).or(0); err != nil {
		return rec, errors.WithMessage(err, "exclusive memory")
	}

	io, err := fetch(ioCounters(ctx, ps)).or(ioStat{})
	if err != nil {
		return rec, errors.WithMessage(err, "io counters")
	}
	rec.ReadBytes, rec.WriteBytes = io.read, io.write

	if rec.NumThreads, err = fetch(ps.NumThreads(ctx)).or(0); err != nil {
		return rec, errors.WithMessage(err, "threads")
	}
	if rec.Username, err = fetch(ps.Username(ctx)).or(model.UnknownUser); err != nil {
		return rec, errors.WithMessage(err, "username")
	}

	return rec, nil
}

// createTime falls back to the boot time for processes whose start time is
// hidden, which is common for protected system processes.
func (c *Collector) createTime(ctx context.Context, ps host.Process, bootTime time.Time) (time.Time, error) {
	r := fetch(ps.CreateTime(ctx))
	if errors.Is(r.err, host.ErrProcessVanished) {
		return bootTime, nil
	}
	return r.or(bootTime)
}

type ioStat struct {
	read, write uint64
}

func ioCounters(ctx context.Context, ps host.Process) (ioStat, error) {
	read, write, err := ps.IOCounters(ctx)
	return ioStat{read: read, write: write}, err
}
