package control

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Dicklesworthstone/procmon/internal/host"
)

// ErrInvalidTarget means the pid does not name a live process.
var ErrInvalidTarget = errors.New("invalid target pid")

// Controller sends one-shot lifecycle signals to processes.
type Controller struct {
	logger *zap.Logger
	host   host.Host
}

func New(rootLogger *zap.Logger, h host.Host) *Controller {
	return &Controller{
		logger: rootLogger.Named("control"),
		host:   h,
	}
}

// Apply performs action on pid exactly once.
func (c *Controller) Apply(ctx context.Context, action Action, pid int32) error {
	if pid <= 0 {
		return errors.WithMessagef(ErrInvalidTarget, "%s pid '%d'", action, pid)
	}

	var err error
	switch action {
	case ActionTerminate:
		err = c.host.Terminate(ctx, pid)
	case ActionSuspend:
		err = c.host.Suspend(ctx, pid)
	case ActionResume:
		err = c.host.Resume(ctx, pid)
	default:
		return errors.Errorf("unsupported action '%d'", int(action))
	}

	if err != nil {
		if errors.Is(err, host.ErrProcessVanished) {
			err = errors.WithMessage(ErrInvalidTarget, err.Error())
		}
		return errors.WithMessagef(err, "%s pid '%d'", action, pid)
	}

	c.logger.Info("Signalled process", zap.String("Action", action.String()), zap.Int32("Pid", pid))
	return nil
}
