package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrMatchNotFound  = errors.New("match not found")
	ErrUnknownCommand = errors.New("unknown command")
	ErrInvalidCommand = errors.New("invalid command")
)
