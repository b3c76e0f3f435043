package plan

import (
	"errors"
	"fmt"
)

// ErrPlan matches every scan option combination rejected by the builder.
var ErrPlan = errors.New("invalid scan plan")

// Error is a rejected scan plan.
type Error struct {
	Reason string
}

func (e *Error) Error() string {
	return "plan: " + e.Reason
}

// Is makes every *Error match ErrPlan.
func (e *Error) Is(target error) bool { return target == ErrPlan }

func planErrorf(format string, args ...any) error {
	return &Error{Reason: fmt.Sprintf(format, args...)}
}
