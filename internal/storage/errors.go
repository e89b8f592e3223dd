package storage

import "errors"

// ErrNotFound is returned when an update or delete targets a missing row.
var ErrNotFound = errors.New("not found")
