// Package ghost reads workout posts from a Ghost CMS and publishes clipped
// workouts back to it.
package ghost

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ai-fitness-coach/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

const (
	pageSize      = 50
	adminAudience = "/v3/admin/"
)

// Post is a single workout post.
type Post struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	HTML         string `json:"html"`
	URL          string `json:"url,omitempty"`
	FeatureImage string `json:"feature_image,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

type pagination struct {
	Page  int  `json:"page"`
	Pages int  `json:"pages"`
	Next  *int `json:"next"`
}

// PostsResponse is the envelope of the Content and Admin post endpoints.
type PostsResponse struct {
	Posts []Post `json:"posts"`
	Meta  struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

// Client reads and writes posts.
type Client interface {
	FetchPosts(ctx context.Context) ([]Post, error)
	CreatePost(ctx context.Context, title, html string, publish bool) (*Post, error)
}

type ghostClient struct {
	httpClient *http.Client
	baseURL    string
	contentKey string
	adminKey   string
	tag        string
}

// NewClient creates a Ghost client. When tag is set only posts carrying it
// are fetched.
func NewClient(cfg *config.Config, tag string) Client {
	return &ghostClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(cfg.GhostURL, "/"),
		contentKey: cfg.GhostContentKey,
		adminKey:   cfg.GhostAdminKey,
		tag:        tag,
	}
}

// FetchPosts walks every page of the Content API.
func (c *ghostClient) FetchPosts(ctx context.Context) ([]Post, error) {
	var all []Post
	page := 1
	for {
		resp, err := c.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.Posts...)

		next := resp.Meta.Pagination.Next
		if next == nil || *next <= page {
			return all, nil
		}
		page = *next
	}
}

func (c *ghostClient) fetchPage(ctx context.Context, page int) (*PostsResponse, error) {
	q := url.Values{}
	q.Set("key", c.contentKey)
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("page", strconv.Itoa(page))
	q.Set("formats", "html")
	if c.tag != "" {
		q.Set("filter", "tag:"+c.tag)
	}
	endpoint := fmt.Sprintf("%s/ghost/api/v3/content/posts/?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("content api error: status %d", resp.StatusCode)
	}

	var postsResponse PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&postsResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &postsResponse, nil
}

// CreatePost creates a new post using the Ghost Admin API.
func (c *ghostClient) CreatePost(ctx context.Context, title, html string, publish bool) (*Post, error) {
	token, err := c.createAdminToken(time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to create admin token: %w", err)
	}

	status := "draft"
	if publish {
		status = "published"
	}
	post := map[string]any{"title": title, "html": html, "status": status}
	if c.tag != "" {
		post["tags"] = []string{c.tag}
	}
	body, err := json.Marshal(map[string]any{"posts": []any{post}})
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/ghost/api/v3/admin/posts/?source=html"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Ghost "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		var errResp any
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return nil, fmt.Errorf("admin api error: status %d, body: %v", resp.StatusCode, errResp)
	}

	var response PostsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}
	if len(response.Posts) == 0 {
		return nil, fmt.Errorf("no post returned from api")
	}
	return &response.Posts[0], nil
}

// createAdminToken signs a five minute Admin API token from an id:secret key.
func (c *ghostClient) createAdminToken(now time.Time) (string, error) {
	id, secretHex, ok := strings.Cut(c.adminKey, ":")
	if !ok || id == "" {
		return "", fmt.Errorf("invalid admin key format: expected id:secret")
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": adminAudience,
	})
	token.Header["kid"] = id

	return token.SignedString(secret)
}
