package source

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func makeListing(posts ...redditPost) redditListing {
	var children []redditChild
	for _, p := range posts {
		children = append(children, redditChild{Data: p})
	}
	return redditListing{Data: struct {
		Children []redditChild `json:"children"`
	}{Children: children}}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func redditWithTransport(rt roundTripFunc) *RedditSource {
	rs := NewReddit()
	rs.baseURL = "https://reddit.test"
	rs.client = &http.Client{
		Timeout:   redditTimeout,
		Transport: rt,
	}
	return rs
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal json: %v", err)
	}
	return string(b)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestRedditSource_Name(t *testing.T) {
	if NewReddit().Name() != "reddit" {
		t.Errorf("name = %q, want reddit", NewReddit().Name())
	}
}

func TestReddit_SuccessfulFetch(t *testing.T) {
	now := time.Date(2026, 2, 16, 10, 0, 0, 0, time.UTC)
	rs := redditWithTransport(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get("User-Agent") != redditUserAgent {
			t.Errorf("user-agent = %q, want %q", r.Header.Get("User-Agent"), redditUserAgent)
		}
		if r.URL.Path != "/user/spez/submitted.json" {
			t.Errorf("path = %q, want /user/spez/submitted.json", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "2" {
			t.Errorf("limit query = %q, want 2", got)
		}

		listing := makeListing(
			redditPost{
				ID:         "zz",
				Title:      "Announcement",
				Selftext:   "Details, with a comma",
				Permalink:  "/r/announcements/comments/zz/announcement/",
				CreatedUTC: float64(now.Unix()),
			},
			redditPost{
				ID:         "10",
				Title:      "Link Post",
				URL:        "https://example.com",
				Permalink:  "/r/pics/comments/10/link_post/",
				CreatedUTC: float64(now.Add(-time.Hour).Unix()),
			},
		)
		return response(http.StatusOK, mustJSON(t, listing)), nil
	})

	posts, err := rs.Fetch(context.Background(), "u/spez", 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("got %d posts, want 2", len(posts))
	}

	if posts[0].ID != 35*36+35 {
		t.Errorf("id = %d, want %d", posts[0].ID, 35*36+35)
	}
	if posts[0].Text != "Announcement\n\nDetails, with a comma" {
		t.Errorf("text = %q", posts[0].Text)
	}
	if posts[0].URL != "https://www.reddit.com/r/announcements/comments/zz/announcement/" {
		t.Errorf("url = %q", posts[0].URL)
	}
	if !posts[0].PostedAt.Equal(now) {
		t.Errorf("posted_at = %v, want %v", posts[0].PostedAt, now)
	}
	if posts[0].Author != "spez" {
		t.Errorf("author = %q, want spez", posts[0].Author)
	}

	if posts[1].ID != 36 {
		t.Errorf("id = %d, want 36", posts[1].ID)
	}
	if posts[1].Text != "Link Post" {
		t.Errorf("link post text = %q, want title only", posts[1].Text)
	}
}

func TestReddit_LimitCapped(t *testing.T) {
	rs := redditWithTransport(func(r *http.Request) (*http.Response, error) {
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %q, want 100", got)
		}
		return response(http.StatusOK, mustJSON(t, makeListing())), nil
	})

	posts, err := rs.Fetch(context.Background(), "spez", 500)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(posts) != 0 {
		t.Errorf("got %d posts, want 0", len(posts))
	}
}

func TestReddit_TruncatesToMaxCount(t *testing.T) {
	rs := redditWithTransport(func(*http.Request) (*http.Response, error) {
		return response(http.StatusOK, mustJSON(t, makeListing(
			redditPost{ID: "a", Title: "one"},
			redditPost{ID: "b", Title: "two"},
			redditPost{ID: "c", Title: "three"},
		))), nil
	})

	posts, err := rs.Fetch(context.Background(), "spez", 2)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(posts) != 2 || posts[1].Text != "two" {
		t.Errorf("posts = %+v", posts)
	}
}

func TestReddit_ZeroCountSkipsRequest(t *testing.T) {
	rs := redditWithTransport(func(*http.Request) (*http.Response, error) {
		t.Fatal("unexpected request")
		return nil, nil
	})

	posts, err := rs.Fetch(context.Background(), "spez", 0)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if posts == nil || len(posts) != 0 {
		t.Errorf("posts = %v, want empty", posts)
	}
}

func TestReddit_Errors(t *testing.T) {
	tests := []struct {
		name string
		rt   roundTripFunc
		want string
	}{
		{
			name: "http status",
			rt: func(*http.Request) (*http.Response, error) {
				return response(http.StatusForbidden, `{}`), nil
			},
			want: "status 403",
		},
		{
			name: "transport",
			rt: func(*http.Request) (*http.Response, error) {
				return nil, errors.New("connection refused")
			},
			want: "connection refused",
		},
		{
			name: "bad json",
			rt: func(*http.Request) (*http.Response, error) {
				return response(http.StatusOK, `{not json`), nil
			},
			want: "decode",
		},
		{
			name: "bad id",
			rt: func(*http.Request) (*http.Response, error) {
				return response(http.StatusOK, mustJSON(t, makeListing(redditPost{ID: "not-base36!"}))), nil
			},
			want: "post id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := redditWithTransport(tt.rt).Fetch(context.Background(), "spez", 10)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
			if !strings.HasPrefix(err.Error(), "reddit: ") {
				t.Errorf("error %q not prefixed with provider name", err)
			}
		})
	}
}
