package errors

import (
	"fmt"
)

var (
	ErrInvalidConfig       = fmt.Errorf("memoryd: invalid config")
	ErrNotFound            = fmt.Errorf("memoryd: not found")
	ErrInvalidParams       = fmt.Errorf("memoryd: invalid params")
	ErrUpstream            = fmt.Errorf("memoryd: upstream failure")
	ErrInternal            = fmt.Errorf("memoryd: internal error")
	ErrUnsupportedStrategy = fmt.Errorf("memoryd: unsupported conflict strategy")
)
