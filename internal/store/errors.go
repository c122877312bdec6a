package store

import (
	"fmt"

	"github.com/Vsjangal/httpsched/internal/core"
)

// ErrTargetNotFound, ErrScheduleNotFound, and ErrRunNotFound are sentinel
// errors for the three entities a caller may look up by ID. Each wraps
// core.ErrNotFound so callers can test with core.IsNotFound without
// importing the store package.
var (
	ErrTargetNotFound   = fmt.Errorf("target: %w", core.ErrNotFound)
	ErrScheduleNotFound = fmt.Errorf("schedule: %w", core.ErrNotFound)
	ErrRunNotFound      = fmt.Errorf("run: %w", core.ErrNotFound)
)

func wrapNotFound(sentinel error, rowsAffected int64) error {
	if rowsAffected == 0 {
		return sentinel
	}
	return nil
}
