package cms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lysyi3m/landing-comb/app/content"
)

const DefaultEndpoint = "https://staging-cms.freemalaysiatoday.com/graphql"

const latestPostsQuery = `query GetLatestPosts($first: Int!) {
  posts(first: $first) {
    nodes {
      title
      date
      slug
      modified
      categories {
        nodes {
          name
        }
      }
    }
  }
}`

type Client struct {
	endpoint   string
	pageSize   int
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

func NewClient(endpoint string, pageSize int, userAgent string, timeout time.Duration, httpClient *http.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if pageSize <= 0 {
		pageSize = 10
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		endpoint:   endpoint,
		pageSize:   pageSize,
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type latestPostsResponse struct {
	Data struct {
		Posts struct {
			Nodes []postNode `json:"nodes"`
		} `json:"posts"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

type postNode struct {
	Title      string `json:"title"`
	Date       string `json:"date"`
	Slug       string `json:"slug"`
	Modified   string `json:"modified"`
	Categories struct {
		Nodes []struct {
			Name string `json:"name"`
		} `json:"nodes"`
	} `json:"categories"`
}

// LatestPosts returns the most recent posts, newest first. Transport failures, non-2xx
// responses and GraphQL errors are all returned as errors.
func (c *Client) LatestPosts(ctx context.Context) ([]content.Post, error) {
	body, err := json.Marshal(graphQLRequest{
		Query:     latestPostsQuery,
		Variables: map[string]any{"first": c.pageSize},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query CMS: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("CMS response error", "status", resp.StatusCode, "body", truncate(string(data), 512))
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	var parsed latestPostsResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse CMS response: %w", err)
	}

	if len(parsed.Errors) > 0 {
		messages := make([]string, 0, len(parsed.Errors))
		for _, e := range parsed.Errors {
			messages = append(messages, e.Message)
		}
		return nil, fmt.Errorf("CMS query failed: %s", strings.Join(messages, "; "))
	}

	posts := make([]content.Post, 0, len(parsed.Data.Posts.Nodes))
	for _, node := range parsed.Data.Posts.Nodes {
		categories := make([]string, 0, len(node.Categories.Nodes))
		for _, cat := range node.Categories.Nodes {
			categories = append(categories, cat.Name)
		}
		posts = append(posts, content.Post{
			Slug:       node.Slug,
			Title:      node.Title,
			Date:       node.Date,
			Modified:   node.Modified,
			Categories: categories,
		})
	}

	return posts, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
