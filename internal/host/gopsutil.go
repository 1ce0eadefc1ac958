package host

import (
	"context"
	"io/fs"
	"os/user"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	gopsHost "github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// gopsutil's internal ErrNotImplementedError is not importable.
const notImplementedMessage = "not implemented yet"

// unknownCreateTime marks a sample whose process start time could not be
// read; such samples cannot tell pid reuse apart.
const unknownCreateTime int64 = -1

type cpuSample struct {
	created int64 // ms, tells pid reuse apart
	busy    float64
	at      time.Time
}

// Gopsutil is the Host backed by github.com/shirou/gopsutil.
//
// CPU usage is measured between consecutive calls for the same process, so
// the adapter remembers the last CPU times of every live pid. A process seen
// for the first time reports 0.
type Gopsutil struct {
	lock    sync.Mutex
	samples map[int32]cpuSample
	now     func() time.Time
}

func NewGopsutil() *Gopsutil {
	return &Gopsutil{
		samples: make(map[int32]cpuSample),
		now:     time.Now,
	}
}

func (g *Gopsutil) PIDs(ctx context.Context) ([]int32, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "list pids")
	}

	live := make(map[int32]struct{}, len(pids))
	for _, pid := range pids {
		live[pid] = struct{}{}
	}

	g.lock.Lock()
	for pid := range g.samples {
		if _, ok := live[pid]; !ok {
			delete(g.samples, pid)
		}
	}
	g.lock.Unlock()

	return pids, nil
}

func (g *Gopsutil) Process(ctx context.Context, pid int32) (Process, error) {
	ps, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return nil, classify(err)
	}
	return &gopsProcess{host: g, ps: ps}, nil
}

func (g *Gopsutil) BootTime(ctx context.Context) (time.Time, error) {
	bootTime, err := gopsHost.BootTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, errors.WithMessage(err, "get boot time")
	}
	return time.Unix(int64(bootTime), 0), nil
}

func (g *Gopsutil) Terminate(ctx context.Context, pid int32) error {
	return g.signal(ctx, pid, (*process.Process).TerminateWithContext)
}

func (g *Gopsutil) Suspend(ctx context.Context, pid int32) error {
	return g.signal(ctx, pid, (*process.Process).SuspendWithContext)
}

func (g *Gopsutil) Resume(ctx context.Context, pid int32) error {
	return g.signal(ctx, pid, (*process.Process).ResumeWithContext)
}

func (g *Gopsutil) signal(ctx context.Context, pid int32,
	send func(*process.Process, context.Context) error) error {
	ps, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return classify(err)
	}
	return classify(send(ps, ctx))
}

// cpuPercent converts cumulative busy seconds into a percentage of one CPU
// over the time since the previous sample of the same process.
func (g *Gopsutil) cpuPercent(pid int32, created int64, busy float64) float64 {
	now := g.now()

	g.lock.Lock()
	defer g.lock.Unlock()

	prev, seen := g.samples[pid]
	g.samples[pid] = cpuSample{created: created, busy: busy, at: now}
	if !seen || reused(prev.created, created) {
		return 0
	}

	elapsed := now.Sub(prev.at).Seconds()
	if elapsed <= 0 || busy < prev.busy {
		return 0
	}
	return (busy - prev.busy) / elapsed * 100
}

func reused(prevCreated, created int64) bool {
	if prevCreated == unknownCreateTime || created == unknownCreateTime {
		return false
	}
	return prevCreated != created
}

type gopsProcess struct {
	host *Gopsutil
	ps   *process.Process
}

func (p *gopsProcess) PID() int32 { return p.ps.Pid }

func (p *gopsProcess) Name(ctx context.Context) (string, error) {
	name, err := p.ps.NameWithContext(ctx)
	return name, p.classify(ctx, err)
}

func (p *gopsProcess) Exe(ctx context.Context) (string, error) {
	exe, err := p.ps.ExeWithContext(ctx)
	return exe, p.classify(ctx, err)
}

func (p *gopsProcess) CreateTime(ctx context.Context) (time.Time, error) {
	createTime, err := p.ps.CreateTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, p.classify(ctx, err)
	}
	return time.UnixMilli(createTime), nil
}

func (p *gopsProcess) CPUAffinityCount(ctx context.Context) (int, error) {
	count, err := affinityCount(ctx, p.ps)
	return count, p.classify(ctx, err)
}

func (p *gopsProcess) CPUPercent(ctx context.Context) (float64, error) {
	times, err := p.ps.TimesWithContext(ctx)
	if err != nil {
		return 0, p.classify(ctx, err)
	}
	created, err := p.ps.CreateTimeWithContext(ctx)
	if err != nil {
		created = unknownCreateTime
	}
	return p.host.cpuPercent(p.ps.Pid, created, times.User+times.System), nil
}

func (p *gopsProcess) Status(ctx context.Context) (string, error) {
	status, err := p.ps.StatusWithContext(ctx)
	if err != nil {
		return "", p.classify(ctx, err)
	}
	if len(status) == 0 {
		return "", nil
	}
	return status[0], nil
}

func (p *gopsProcess) Nice(ctx context.Context) (int, error) {
	nice, err := niceValue(ctx, p.ps)
	return nice, p.classify(ctx, err)
}

// ExclusiveMemory sums the private pages of every mapping (the unique set
// size). gopsutil reports mapping sizes in kB.
func (p *gopsProcess) ExclusiveMemory(ctx context.Context) (uint64, error) {
	maps, err := p.ps.MemoryMapsWithContext(ctx, true)
	if err != nil {
		return 0, p.classify(ctx, err)
	}
	if maps == nil {
		return 0, nil
	}

	var uss uint64
	for _, m := range *maps {
		uss += m.PrivateClean + m.PrivateDirty
	}
	return uss * 1024, nil
}

func (p *gopsProcess) IOCounters(ctx context.Context) (uint64, uint64, error) {
	counters, err := p.ps.IOCountersWithContext(ctx)
	if err != nil {
		return 0, 0, p.classify(ctx, err)
	}
	if counters == nil {
		return 0, 0, nil
	}
	return counters.ReadBytes, counters.WriteBytes, nil
}

func (p *gopsProcess) NumThreads(ctx context.Context) (int, error) {
	threads, err := p.ps.NumThreadsWithContext(ctx)
	return int(threads), p.classify(ctx, err)
}

func (p *gopsProcess) Username(ctx context.Context) (string, error) {
	username, err := p.ps.UsernameWithContext(ctx)
	var unknownUser user.UnknownUserIdError
	if errors.As(err, &unknownUser) {
		return "", &Error{Kind: ErrUnavailable, Err: err}
	}
	return username, p.classify(ctx, err)
}

// classify is classify() with one refinement: a missing /proc entry only
// means the process vanished if the process is indeed gone.
func (p *gopsProcess) classify(ctx context.Context, err error) error {
	classified := classify(err)
	if !errors.Is(classified, ErrProcessVanished) || errors.Is(err, process.ErrorProcessNotRunning) {
		return classified
	}
	if running, runErr := p.ps.IsRunningWithContext(ctx); runErr == nil && running {
		return &Error{Kind: ErrUnavailable, Err: err}
	}
	return classified
}

func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, process.ErrorProcessNotRunning),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, syscall.ESRCH):
		return &Error{Kind: ErrProcessVanished, Err: err}
	case errors.Is(err, fs.ErrPermission):
		return &Error{Kind: ErrPermissionDenied, Err: err}
	case err.Error() == notImplementedMessage:
		return &Error{Kind: ErrUnavailable, Err: err}
	default:
		return err
	}
}
