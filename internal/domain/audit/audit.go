// Package audit records who did what. Entries are append-only.
package audit

import (
	"context"
	"time"
)

// Entry is one recorded action.
type Entry struct {
	ID     int64
	UserID int64
	At     time.Time
	Action string
}

// Recorder persists audit entries. Recording is best effort: callers log a
// failure and carry on rather than failing the user-visible operation.
type Recorder interface {
	Record(ctx context.Context, userID int64, action string) error
}

// Repository extends Recorder with the read side used by admin screens.
type Repository interface {
	Recorder
	List(ctx context.Context, limit int) ([]Entry, error)
}
