package control

import "github.com/pkg/errors"

type Action int

const (
	ActionTerminate Action = iota
	ActionSuspend
	ActionResume
)

func (a Action) String() string {
	switch a {
	case ActionTerminate:
		return "terminate"
	case ActionSuspend:
		return "suspend"
	case ActionResume:
		return "resume"
	default:
		return "unknown"
	}
}

// ParseAction resolves an action by name.
func ParseAction(name string) (Action, error) {
	for _, a := range []Action{ActionTerminate, ActionSuspend, ActionResume} {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, errors.Errorf("unknown action '%s'", name)
}
