package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	redditSourceName = "reddit"
	redditBaseURL    = "https://www.reddit.com"
	redditTimeout    = 30 * time.Second
	redditUserAgent  = "postcache/1.0"
	redditMaxLimit   = 100
)

// RedditSource fetches a user's submissions via Reddit's public JSON API.
type RedditSource struct {
	client  *http.Client
	baseURL string
}

// NewReddit creates a Reddit source.
func NewReddit() *RedditSource {
	return &RedditSource{
		client:  &http.Client{Timeout: redditTimeout},
		baseURL: redditBaseURL,
	}
}

func (rs *RedditSource) Name() string {
	return redditSourceName
}

// Fetch returns the newest submissions of account. Reddit caps a listing at
// 100 items; larger counts are not paginated.
func (rs *RedditSource) Fetch(ctx context.Context, account string, maxCount int) ([]Post, error) {
	if maxCount <= 0 {
		return []Post{}, nil
	}
	user := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(account), "/u/"), "u/")

	limit := min(maxCount, redditMaxLimit)
	endpoint := fmt.Sprintf("%s/user/%s/submitted.json?limit=%d&sort=new", rs.baseURL, url.PathEscape(user), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("reddit: create request: %w", err)
	}
	req.Header.Set("User-Agent", redditUserAgent)

	resp, err := rs.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reddit: fetch u/%s: %w", user, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reddit: u/%s: status %d", user, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("reddit: decode u/%s: %w", user, err)
	}

	posts, err := postsFromListing(listing, user)
	if err != nil {
		return nil, fmt.Errorf("reddit: u/%s: %w", user, err)
	}
	if len(posts) > maxCount {
		posts = posts[:maxCount]
	}
	return posts, nil
}

func postsFromListing(listing redditListing, user string) ([]Post, error) {
	posts := make([]Post, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		p := child.Data

		// Reddit ids are base36 ("1abc2d").
		id, err := strconv.ParseInt(p.ID, 36, 64)
		if err != nil {
			return nil, fmt.Errorf("post id %q: %w", p.ID, err)
		}

		text := p.Title
		if strings.TrimSpace(p.Selftext) != "" {
			text = p.Title + "\n\n" + p.Selftext
		}

		posts = append(posts, Post{
			ID:       id,
			Text:     text,
			Author:   user,
			URL:      redditBaseURL + p.Permalink,
			PostedAt: time.Unix(int64(p.CreatedUTC), 0).UTC(),
		})
	}
	return posts, nil
}

type redditListing struct {
	Data struct {
		Children []redditChild `json:"children"`
	} `json:"data"`
}

type redditChild struct {
	Data redditPost `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	CreatedUTC float64 `json:"created_utc"`
}
