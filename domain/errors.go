package domain

import "errors"

// ErrUserNotFound is returned by user lookups across layers.
var ErrUserNotFound = errors.New("user not found")
