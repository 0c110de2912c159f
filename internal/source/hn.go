package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	hnSourceName   = "hn"
	hnAPIBase      = "https://hacker-news.firebaseio.com/v0"
	hnItemBaseURL  = "https://news.ycombinator.com/item?id="
	hnFetchTimeout = 30 * time.Second
	hnMaxWorkers   = 5
)

// HNSource fetches a Hacker News user's submissions via the Firebase API.
type HNSource struct {
	client  *http.Client
	baseURL string
}

// NewHN creates a Hacker News source.
func NewHN() *HNSource {
	return &HNSource{
		client:  &http.Client{Timeout: hnFetchTimeout},
		baseURL: hnAPIBase,
	}
}

func (h *HNSource) Name() string {
	return hnSourceName
}

// hnUser is the user record from the API. Submitted is newest first.
type hnUser struct {
	ID        string `json:"id"`
	Submitted []int  `json:"submitted"`
}

// hnItem represents a story, comment or poll from the API.
type hnItem struct {
	ID      int    `json:"id"`
	Type    string `json:"type"`
	By      string `json:"by"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	URL     string `json:"url"`
	Time    int64  `json:"time"`
	Deleted bool   `json:"deleted"`
	Dead    bool   `json:"dead"`
}

// Fetch looks at the account's maxCount most recent submissions and returns
// those still visible. Deleted, dead and job items are skipped, so the result
// may hold fewer than maxCount posts.
func (h *HNSource) Fetch(ctx context.Context, account string, maxCount int) ([]Post, error) {
	if maxCount <= 0 {
		return []Post{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, hnFetchTimeout)
	defer cancel()

	user, err := h.fetchUser(ctx, strings.TrimSpace(account))
	if err != nil {
		return nil, fmt.Errorf("hn: %w", err)
	}

	ids := user.Submitted
	if len(ids) > maxCount {
		ids = ids[:maxCount]
	}

	type job struct {
		index int
		id    int
	}

	items := make([]*hnItem, len(ids))
	errs := make([]error, len(ids))
	jobs := make(chan job, len(ids))

	workers := min(hnMaxWorkers, len(ids))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				items[j.index], errs[j.index] = h.fetchItem(ctx, j.id)
			}
		}()
	}

	for i, id := range ids {
		jobs <- job{index: i, id: id}
	}
	close(jobs)
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("hn: %w", err)
	}

	posts := make([]Post, 0, len(items))
	for _, item := range items {
		if item == nil || item.Deleted || item.Dead {
			continue
		}
		if item.Type != "story" && item.Type != "comment" && item.Type != "poll" {
			continue
		}
		posts = append(posts, Post{
			ID:       int64(item.ID),
			Text:     hnItemText(item),
			Author:   item.By,
			URL:      fmt.Sprintf("%s%d", hnItemBaseURL, item.ID),
			PostedAt: time.Unix(item.Time, 0).UTC(),
		})
	}

	return posts, nil
}

func hnItemText(item *hnItem) string {
	body := stripHTML(item.Text)
	switch {
	case item.Title != "" && body != "":
		return item.Title + "\n\n" + body
	case item.Title != "":
		return item.Title
	default:
		return body
	}
}

func (h *HNSource) fetchUser(ctx context.Context, account string) (*hnUser, error) {
	var user *hnUser
	if err := h.getJSON(ctx, "/user/"+url.PathEscape(account)+".json", &user); err != nil {
		return nil, fmt.Errorf("user %s: %w", account, err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %s: not found", account)
	}
	return user, nil
}

func (h *HNSource) fetchItem(ctx context.Context, id int) (*hnItem, error) {
	var item *hnItem
	if err := h.getJSON(ctx, fmt.Sprintf("/item/%d.json", id), &item); err != nil {
		return nil, fmt.Errorf("item %d: %w", id, err)
	}
	return item, nil
}

func (h *HNSource) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
