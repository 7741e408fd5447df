package github

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JakeFAU/github-stars-crawler/internal/crawler"
)

// rateLimitedError marks an explicit RATE_LIMITED GraphQL error. It is
// handled internally by the client and never escapes FetchPage.
type rateLimitedError struct{}

func (*rateLimitedError) Error() string { return "rate limited" }

// searchResponse mirrors the GraphQL response envelope. Data is a pointer so
// an all-errors response is distinguishable from an empty search.
type searchResponse struct {
	Data *struct {
		RateLimit struct {
			Remaining int    `json:"remaining"`
			ResetAt   string `json:"resetAt"`
			Cost      int    `json:"cost"`
		} `json:"rateLimit"`
		Search struct {
			RepositoryCount int `json:"repositoryCount"`
			PageInfo        struct {
				HasNextPage bool   `json:"hasNextPage"`
				EndCursor   string `json:"endCursor"`
			} `json:"pageInfo"`
			Nodes []repoNode `json:"nodes"`
		} `json:"search"`
	} `json:"data"`
	Errors []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"errors"`
}

func (r searchResponse) errorSummary() string {
	if len(r.Errors) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

// repoNode is the raw API shape of one repository record.
type repoNode struct {
	ID            string `json:"id"`
	NameWithOwner string `json:"nameWithOwner"`
	Name          string `json:"name"`
	Owner         struct {
		Login string `json:"login"`
	} `json:"owner"`
	Description     *string `json:"description"`
	PrimaryLanguage *struct {
		Name string `json:"name"`
	} `json:"primaryLanguage"`
	IsPrivate      bool   `json:"isPrivate"`
	StargazerCount int    `json:"stargazerCount"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

// parseNode translates a raw API node into the stable domain entity. If the
// API renames a field, this is the only place to fix.
func parseNode(node repoNode) (crawler.Repo, error) {
	if node.ID == "" {
		return crawler.Repo{}, errors.New("node id missing")
	}
	if node.NameWithOwner == "" || node.Owner.Login == "" {
		return crawler.Repo{}, fmt.Errorf("node %s missing owner metadata", node.ID)
	}
	repo := crawler.Repo{
		NodeID:        node.ID,
		NameWithOwner: node.NameWithOwner,
		Name:          node.Name,
		OwnerLogin:    node.Owner.Login,
		IsPrivate:     node.IsPrivate,
		StarCount:     node.StargazerCount,
	}
	if node.Description != nil {
		repo.Description = *node.Description
	}
	if node.PrimaryLanguage != nil {
		repo.PrimaryLanguage = node.PrimaryLanguage.Name
	}
	var err error
	if repo.CreatedAt, err = parseTime(node.CreatedAt); err != nil {
		return crawler.Repo{}, fmt.Errorf("node %s: %w", node.ID, err)
	}
	if repo.UpdatedAt, err = parseTime(node.UpdatedAt); err != nil {
		return crawler.Repo{}, fmt.Errorf("node %s: %w", node.ID, err)
	}
	return repo, nil
}

func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	u := t.UTC()
	return &u, nil
}
