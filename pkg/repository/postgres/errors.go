package postgres

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = goerr.New("not found")
