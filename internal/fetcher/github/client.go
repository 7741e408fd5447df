// Package github implements the PageFetcher contract against GitHub's
// GraphQL Search API.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/github-stars-crawler/internal/crawler"
)

const searchQuery = `
query SearchRepos($query: String!, $first: Int!, $after: String) {
  rateLimit {
    remaining
    resetAt
    cost
  }
  search(query: $query, type: REPOSITORY, first: $first, after: $after) {
    repositoryCount
    pageInfo {
      hasNextPage
      endCursor
    }
    nodes {
      ... on Repository {
        id
        nameWithOwner
        name
        owner { login }
        description
        primaryLanguage { name }
        isPrivate
        stargazerCount
        createdAt
        updatedAt
      }
    }
  }
}
`

// Config controls the GraphQL client and its retry behavior.
type Config struct {
	Token          string
	APIURL         string
	PageSize       int
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	RateLimitSleep time.Duration
}

// Client fetches search pages from GitHub with bounded retries. An explicit
// RATE_LIMITED response is handled internally as a pause, never surfaced as
// an error; transient transport failures are retried with jittered
// exponential backoff until the attempt budget runs out.
type Client struct {
	httpClient *http.Client
	cfg        Config
	backoff    backoffPolicy
	logger     *zap.Logger
}

// NewClient constructs a Client. The http.Client is injected so callers
// control timeouts and transport reuse; tests pass a server-scoped client.
func NewClient(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.github.com/graphql"
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 5
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = 2 * time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 32 * time.Second
	}
	if cfg.RateLimitSleep <= 0 {
		cfg.RateLimitSleep = time.Minute
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		cfg:        cfg,
		backoff:    backoffPolicy{baseDelay: cfg.BackoffInitial, maxDelay: cfg.BackoffMax},
		logger:     logger,
	}
}

// FetchPage fetches one page of search results for query at cursor. An empty
// cursor requests the first page. It returns an error only after the retry
// budget is exhausted, which marks the query as non-recoverable.
func (c *Client) FetchPage(ctx context.Context, query, cursor string) (crawler.Page, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return crawler.Page{}, fmt.Errorf("fetch page canceled: %w", err)
		}

		page, err := c.fetchOnce(ctx, query, cursor)
		if err == nil {
			return page, nil
		}
		var rl *rateLimitedError
		if errors.As(err, &rl) {
			c.logger.Info("rate limited by API; sleeping before retry",
				zap.Duration("sleep", c.cfg.RateLimitSleep),
			)
			if serr := sleepCtx(ctx, c.cfg.RateLimitSleep); serr != nil {
				return crawler.Page{}, fmt.Errorf("rate limit sleep canceled: %w", serr)
			}
			lastErr = err
			continue
		}

		lastErr = err
		wait := c.backoff.delay(attempt)
		c.logger.Warn("page fetch failed; backing off",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", c.cfg.MaxRetries),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if serr := sleepCtx(ctx, wait); serr != nil {
			return crawler.Page{}, fmt.Errorf("backoff sleep canceled: %w", serr)
		}
	}
	return crawler.Page{}, fmt.Errorf("exhausted %d retries for query %.80q: %w", c.cfg.MaxRetries, query, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, query, cursor string) (crawler.Page, error) {
	body, err := c.buildRequestBody(query, cursor)
	if err != nil {
		return crawler.Page{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return crawler.Page{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return crawler.Page{}, fmt.Errorf("post graphql: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return crawler.Page{}, fmt.Errorf("graphql status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return crawler.Page{}, fmt.Errorf("decode response: %w", err)
	}

	for _, gqlErr := range decoded.Errors {
		if gqlErr.Type == "RATE_LIMITED" {
			return crawler.Page{}, &rateLimitedError{}
		}
	}
	if decoded.Data == nil {
		return crawler.Page{}, fmt.Errorf("graphql errors: %s", decoded.errorSummary())
	}
	if len(decoded.Errors) > 0 {
		c.logger.Warn("graphql errors in response",
			zap.String("query", truncate(query, 60)),
			zap.String("errors", decoded.errorSummary()),
		)
	}

	return c.buildPage(decoded), nil
}

func (c *Client) buildRequestBody(query, cursor string) ([]byte, error) {
	variables := map[string]any{
		"query": query,
		"first": c.cfg.PageSize,
	}
	if cursor != "" {
		variables["after"] = cursor
	} else {
		variables["after"] = nil
	}
	body, err := json.Marshal(map[string]any{
		"query":     searchQuery,
		"variables": variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	return body, nil
}

func (c *Client) buildPage(decoded searchResponse) crawler.Page {
	search := decoded.Data.Search
	repos := make([]crawler.Repo, 0, len(search.Nodes))
	for _, node := range search.Nodes {
		repo, err := parseNode(node)
		if err != nil {
			// A single malformed record never aborts the page.
			c.logger.Debug("skipping malformed API node", zap.String("node_id", node.ID), zap.Error(err))
			continue
		}
		repos = append(repos, repo)
	}
	return crawler.Page{
		Repos:         repos,
		HasNext:       search.PageInfo.HasNextPage,
		EndCursor:     search.PageInfo.EndCursor,
		RateRemaining: decoded.Data.RateLimit.Remaining,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
