package source

import (
	"context"
	"time"
)

// Post is a single item returned by a provider. Only ID and Text are kept
// by the cache; the rest is informational.
type Post struct {
	ID       int64     // provider-assigned numeric identifier
	Text     string    // full post text
	Author   string    // account the post was fetched for
	URL      string    // link to the original post
	PostedAt time.Time // publication timestamp, zero if unknown
}

// Provider fetches the most recent posts authored by an account.
type Provider interface {
	// Name returns the provider identifier (e.g. "twitter").
	Name() string

	// Fetch returns at most maxCount posts by account, newest first.
	// A maxCount of zero returns no posts without contacting the remote.
	Fetch(ctx context.Context, account string, maxCount int) ([]Post, error)
}
