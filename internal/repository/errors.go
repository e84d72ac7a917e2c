// Package repository persists users, movements and messages in MySQL.
// Sentinel errors let handlers translate failures into the right HTTP
// status without leaking storage-layer error shapes to clients.
package repository

import "errors"

// ErrEmailExists is returned when a write would violate email
// uniqueness. Handlers translate it into 409.
var ErrEmailExists = errors.New("email already exists")

// ErrNotFound is returned when a referenced entity does not exist or
// is not visible to the requester. Handlers translate it into 404.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation on a
// resource they neither own nor administer. Handlers translate it
// into 403.
var ErrForbidden = errors.New("forbidden")
