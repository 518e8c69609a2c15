package app

import "errors"

// State and validation errors. These are rejected before any remote
// call is made, so a failed operation never reaches the platform.
var (
	ErrAlreadyConnected = errors.New("session already connected")
	ErrNotConnected     = errors.New("no active connection")
	ErrNotInRoom        = errors.New("not in a room")
	ErrRoomConflict     = errors.New("already in a different room")
	ErrNoActiveTrack    = errors.New("no active track")
	ErrInvalidVolume    = errors.New("volume must be between 0 and 100")
	ErrClosed           = errors.New("session closed")
)
