package host

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// Error kinds every Host implementation reports through.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrProcessVanished  = errors.New("process vanished")
	ErrUnavailable      = errors.New("not available")
)

// Error ties a host failure to one of the error kinds above while keeping
// the original cause readable.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return e.Err.Error()
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Process exposes the per-process queries a collection cycle needs.
type Process interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	Exe(ctx context.Context) (string, error)
	CreateTime(ctx context.Context) (time.Time, error)
	CPUAffinityCount(ctx context.Context) (int, error)
	CPUPercent(ctx context.Context) (float64, error)
	Status(ctx context.Context) (string, error)
	Nice(ctx context.Context) (int, error)
	ExclusiveMemory(ctx context.Context) (uint64, error)
	IOCounters(ctx context.Context) (readBytes, writeBytes uint64, err error)
	NumThreads(ctx context.Context) (int, error)
	Username(ctx context.Context) (string, error)
}

// Host is the operating system's process table.
type Host interface {
	PIDs(ctx context.Context) ([]int32, error)
	Process(ctx context.Context, pid int32) (Process, error)
	BootTime(ctx context.Context) (time.Time, error)
	Terminate(ctx context.Context, pid int32) error
	Suspend(ctx context.Context, pid int32) error
	Resume(ctx context.Context, pid int32) error
}
