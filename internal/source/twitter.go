package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	twitterSourceName = "twitter"
	twitterBaseURL    = "https://api.twitter.com"
	twitterTimeout    = 30 * time.Second
	twitterMinResults = 5
	twitterMaxResults = 100
)

// TwitterCredentials are the four values from the secrets file. The API key
// and secret obtain an app-only bearer token; the access token pair is
// carried for user-context endpoints and is not needed to read timelines.
type TwitterCredentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// TwitterSource fetches a user's timeline from the X/Twitter v2 API.
type TwitterSource struct {
	creds   TwitterCredentials
	baseURL string
	base    *http.Client
}

// NewTwitter creates a Twitter source. The API key and secret are required.
func NewTwitter(creds TwitterCredentials) (*TwitterSource, error) {
	if strings.TrimSpace(creds.APIKey) == "" || strings.TrimSpace(creds.APISecret) == "" {
		return nil, errors.New("twitter: api_key and api_secret are required")
	}
	return &TwitterSource{
		creds:   creds,
		baseURL: twitterBaseURL,
		base:    &http.Client{Timeout: twitterTimeout},
	}, nil
}

func (tw *TwitterSource) Name() string {
	return twitterSourceName
}

// Fetch returns the newest tweets of account in one request. The API caps a
// page at 100 tweets; larger counts are not paginated.
func (tw *TwitterSource) Fetch(ctx context.Context, account string, maxCount int) ([]Post, error) {
	if maxCount <= 0 {
		return []Post{}, nil
	}
	username := strings.TrimPrefix(strings.TrimSpace(account), "@")

	client := tw.client(ctx)

	userID, err := tw.lookupUser(ctx, client, username)
	if err != nil {
		return nil, fmt.Errorf("twitter: %w", err)
	}

	tweets, err := tw.userTweets(ctx, client, userID, maxCount)
	if err != nil {
		return nil, fmt.Errorf("twitter: @%s: %w", username, err)
	}

	posts := make([]Post, 0, len(tweets))
	for _, t := range tweets {
		if len(posts) == maxCount {
			break
		}
		id, err := strconv.ParseInt(t.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("twitter: tweet id %q: %w", t.ID, err)
		}
		var postedAt time.Time
		if t.CreatedAt != "" {
			postedAt, err = time.Parse(time.RFC3339, t.CreatedAt)
			if err != nil {
				return nil, fmt.Errorf("twitter: tweet %s created_at %q: %w", t.ID, t.CreatedAt, err)
			}
		}
		posts = append(posts, Post{
			ID:       id,
			Text:     t.Text,
			Author:   username,
			URL:      fmt.Sprintf("https://x.com/%s/status/%s", username, t.ID),
			PostedAt: postedAt,
		})
	}

	return posts, nil
}

// client returns an HTTP client that authenticates with a bearer token from
// the OAuth2 client-credentials grant.
func (tw *TwitterSource) client(ctx context.Context) *http.Client {
	conf := &clientcredentials.Config{
		ClientID:     tw.creds.APIKey,
		ClientSecret: tw.creds.APISecret,
		TokenURL:     tw.baseURL + "/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, tw.base)
	return conf.Client(ctx)
}

type twitterUserResponse struct {
	Data *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
	Errors []twitterAPIError `json:"errors"`
}

type twitterTweetsResponse struct {
	Data   []twitterTweet    `json:"data"`
	Errors []twitterAPIError `json:"errors"`
}

type twitterTweet struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	CreatedAt string `json:"created_at"`
}

type twitterAPIError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e twitterAPIError) String() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

func (tw *TwitterSource) lookupUser(ctx context.Context, client *http.Client, username string) (string, error) {
	var resp twitterUserResponse
	endpoint := tw.baseURL + "/2/users/by/username/" + url.PathEscape(username)
	if err := getJSON(ctx, client, endpoint, &resp); err != nil {
		return "", fmt.Errorf("lookup @%s: %w", username, err)
	}
	if resp.Data == nil || resp.Data.ID == "" {
		if len(resp.Errors) > 0 {
			return "", fmt.Errorf("lookup @%s: %s", username, resp.Errors[0])
		}
		return "", fmt.Errorf("lookup @%s: user not found", username)
	}
	return resp.Data.ID, nil
}

func (tw *TwitterSource) userTweets(ctx context.Context, client *http.Client, userID string, maxCount int) ([]twitterTweet, error) {
	limit := min(max(maxCount, twitterMinResults), twitterMaxResults)

	q := url.Values{}
	q.Set("max_results", strconv.Itoa(limit))
	q.Set("tweet.fields", "created_at")
	endpoint := fmt.Sprintf("%s/2/users/%s/tweets?%s", tw.baseURL, url.PathEscape(userID), q.Encode())

	var resp twitterTweetsResponse
	if err := getJSON(ctx, client, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 && len(resp.Errors) > 0 {
		return nil, errors.New(resp.Errors[0].String())
	}
	return resp.Data, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
