package auth

import (
	"diversity_platform/reporting/schema"
	"log/slog"
	"sync/atomic"

	"gorm.io/gorm"
)

// The blank-slate state gates first-run configuration: while the system has
// no organizations at all, the BLANK_SLATE permission allows anonymous setup.
// The state is cached process-wide so ordinary requests only read an atomic,
// they never re-query. It transitions true -> false exactly once, on the
// first successful configuration; a brief staleness window after that is
// accepted.
const (
	blankSlateUnknown int32 = iota
	blankSlateActive
	blankSlateCleared
)

var blankSlateState atomic.Int32

// IsUninitialized reports whether the system is still in its first-run state.
// The organization count is loaded lazily on the first call.
func IsUninitialized(db *gorm.DB) (bool, error) {
	switch blankSlateState.Load() {
	case blankSlateActive:
		return true, nil
	case blankSlateCleared:
		return false, nil
	}

	var count int64
	result := db.Model(&schema.Organization{}).Count(&count)
	if result.Error != nil {
		slog.Error("sql error counting organizations for blank slate check", "error", result.Error)
		return false, schema.ErrDbAccessFailed
	}

	if count > 0 {
		blankSlateState.Store(blankSlateCleared)
		return false, nil
	}

	blankSlateState.Store(blankSlateActive)
	return true, nil
}

// MarkInitialized clears the blank-slate state after first-time configuration
// succeeds.
func MarkInitialized() {
	blankSlateState.Store(blankSlateCleared)
}

// ResetBlankSlateForTest returns the cache to its lazy initial state. Test
// support only, never called by request handling.
func ResetBlankSlateForTest() {
	blankSlateState.Store(blankSlateUnknown)
}
