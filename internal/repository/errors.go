// Package repository implements the MySQL persistence layer. Sentinel
// errors defined here are shared across repositories so that the service
// and handler layers can distinguish failure scenarios without inspecting
// driver errors.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist (or is no
// longer visible, e.g. an already-rotated refresh session).
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with existing state, such
// as registering an email that is already taken.
var ErrConflict = errors.New("conflict")
