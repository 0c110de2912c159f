package cache

import "errors"

// ErrFetch wraps any failure reported by the remote provider.
var ErrFetch = errors.New("cache: fetch failed")

// ErrInvalidArgument is returned for a blank account or a negative count.
var ErrInvalidArgument = errors.New("cache: invalid argument")
