package domain

import (
	"errors"
	"fmt"
)

var (
	ErrScheduleNotFound  = errors.New("schedule not found")
	ErrExecutionNotFound = errors.New("execution not found")
	ErrDuplicateSchedule = errors.New("schedule with this id already exists")
)

// ConfigError is raised before any external call when a schedule cannot run.
type ConfigError struct {
	ScheduleID string
	Reason     string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("schedule %s misconfigured: %s", e.ScheduleID, e.Reason)
}

// FetchError wraps an upstream failure or timeout of the candidate fetcher.
type FetchError struct {
	ScheduleID string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch failed for schedule %s: %v", e.ScheduleID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}
