package core

import "github.com/google/uuid"

// NewID returns a new random UUID string, used as the primary key for
// every Target, Schedule, Run, and Attempt.
func NewID() string {
	return uuid.NewString()
}
