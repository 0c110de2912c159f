package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	mastodonSourceName   = "mastodon"
	mastodonFetchTimeout = 30 * time.Second
	mastodonUserAgent    = "Mozilla/5.0 (compatible; postcache/1.0; +https://github.com/ppiankov/postcache)"
)

// MastodonSource reads an account's public statuses from its RSS feed.
type MastodonSource struct {
	instance string
	client   *http.Client
}

// NewMastodon creates a Mastodon source. instance is the default server
// (e.g. "https://mastodon.social") for accounts given without a domain.
func NewMastodon(instance string) (*MastodonSource, error) {
	instance = strings.TrimRight(strings.TrimSpace(instance), "/")
	if instance == "" {
		return nil, errors.New("mastodon: instance URL is required")
	}
	u, err := url.Parse(instance)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("mastodon: invalid instance URL %q", instance)
	}

	return &MastodonSource{
		instance: instance,
		client: &http.Client{
			Timeout:   mastodonFetchTimeout,
			Transport: &userAgentTransport{base: http.DefaultTransport, agent: mastodonUserAgent},
		},
	}, nil
}

func (ms *MastodonSource) Name() string {
	return mastodonSourceName
}

// Fetch parses the account feed and returns at most maxCount statuses. The
// feed holds only the most recent statuses; older ones are not reachable.
func (ms *MastodonSource) Fetch(ctx context.Context, account string, maxCount int) ([]Post, error) {
	if maxCount <= 0 {
		return []Post{}, nil
	}

	feedURL, user, err := ms.feedURL(account)
	if err != nil {
		return nil, fmt.Errorf("mastodon: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mastodonFetchTimeout)
	defer cancel()

	fp := gofeed.NewParser()
	fp.Client = ms.client
	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("mastodon: fetch %s: %w", feedURL, err)
	}

	posts, err := postsFromFeed(feed, user, maxCount)
	if err != nil {
		return nil, fmt.Errorf("mastodon: %s: %w", feedURL, err)
	}
	return posts, nil
}

// feedURL resolves "user", "@user", "user@host" or "@user@host".
func (ms *MastodonSource) feedURL(account string) (string, string, error) {
	acct := strings.TrimPrefix(strings.TrimSpace(account), "@")
	user, host, hasHost := strings.Cut(acct, "@")
	if user == "" || (hasHost && host == "") {
		return "", "", fmt.Errorf("invalid account %q", account)
	}

	base := ms.instance
	if hasHost {
		base = "https://" + host
	}
	return fmt.Sprintf("%s/@%s.rss", base, url.PathEscape(user)), user, nil
}

func postsFromFeed(feed *gofeed.Feed, user string, maxCount int) ([]Post, error) {
	posts := make([]Post, 0, min(len(feed.Items), maxCount))
	for _, item := range feed.Items {
		if len(posts) == maxCount {
			break
		}

		id, err := statusID(item)
		if err != nil {
			return nil, err
		}

		posts = append(posts, Post{
			ID:       id,
			Text:     itemText(item),
			Author:   user,
			URL:      item.Link,
			PostedAt: itemPublishedTime(item),
		})
	}
	return posts, nil
}

// statusID extracts the numeric status id from the last path segment of the
// item link or GUID ("https://host/@user/112233").
func statusID(item *gofeed.Item) (int64, error) {
	for _, raw := range []string{item.Link, item.GUID} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if id, err := strconv.ParseInt(path.Base(u.Path), 10, 64); err == nil {
			return id, nil
		}
	}
	return 0, fmt.Errorf("item %q has no numeric status id", firstNonEmpty(item.GUID, item.Link))
}

func itemPublishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed.UTC()
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed.UTC()
	}
	return time.Time{}
}

func itemText(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}

	text := stripHTML(raw)
	if item.Title != "" && !strings.Contains(text, item.Title) {
		text = item.Title + "\n\n" + text
	}
	return strings.TrimSpace(text)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// userAgentTransport injects a User-Agent header into every request.
type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(req)
}
