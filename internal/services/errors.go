// Package services implements the ingestion, matching, dispatch, and health
// logic of the earthquake notification pipeline. This file centralizes
// common service-level error values so that they can be consistently
// returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

var (
	// ErrInvalidEvent is returned when a submitted event is missing the
	// fields the dedup log needs (at minimum a provider event ID).
	ErrInvalidEvent = errors.New("event is missing required fields")

	// ErrInvalidSource is returned when a delivery source is neither
	// "rest" nor "websocket".
	ErrInvalidSource = errors.New("source must be rest or websocket")

	// ErrWorkspaceNotFound indicates that a matched workspace no longer
	// exists by dispatch time (deleted between match and send).
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrUnknownHealthSource is returned when a health report is requested
	// for a source that is not tracked.
	ErrUnknownHealthSource = errors.New("unknown health source")
)
