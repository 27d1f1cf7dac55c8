package service

import "errors"

// Errors returned by the services. They are wrapped with detail; compare with errors.Is.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
)
