package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrExpired            = errors.New("entity expired")
	ErrAlreadyDispatched  = errors.New("job already dispatched to a worker")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrMalformedDecision  = errors.New("model produced an unrecognized memory decision")
	ErrUpstreamInvocation = errors.New("model invocation failed")
	ErrPersistence        = errors.New("memory store write failed")
	ErrQueueFull          = errors.New("worker queue full")
)
