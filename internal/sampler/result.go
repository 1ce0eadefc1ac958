package sampler

import (
	"github.com/pkg/errors"

	"github.com/Dicklesworthstone/procmon/internal/host"
)

// result carries one field fetch: either its value or the reason it is
// missing.
type result[T any] struct {
	value T
	err   error
}

func fetch[T any](value T, err error) result[T] {
	return result[T]{value: value, err: err}
}

// denied reports whether the host withheld the field while the process
// itself is still there.
func (r result[T]) denied() bool {
	return errors.Is(r.err, host.ErrPermissionDenied) || errors.Is(r.err, host.ErrUnavailable)
}

// or yields the fetched value, or def when the field was withheld. Any other
// failure, including the process vanishing, is returned.
func (r result[T]) or(def T) (T, error) {
	switch {
	case r.err == nil:
		return r.value, nil
	case r.denied():
		return def, nil
	default:
		var zero T
		return zero, r.err
	}
}
