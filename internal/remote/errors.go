package remote

import "errors"

// Classified failures for remote calls. Every error returned by a
// Client wraps exactly one of these sentinels so callers can branch
// with errors.Is without inspecting transport details.
var (
	ErrAuthFailure       = errors.New("remote: authentication failed")
	ErrNotFound          = errors.New("remote: not found")
	ErrRemoteUnavailable = errors.New("remote: unavailable")
	ErrRemoteRejected    = errors.New("remote: rejected")
	ErrTimeout           = errors.New("remote: timed out")
)
