// Package github talks to the GitHub REST API for pull request reviews.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	llmhttp "github.com/l1v0n1/ReviewBuddy/internal/adapter/llm/http"
	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

const (
	defaultBaseURL = "https://api.github.com"
	defaultTimeout = 30 * time.Second
	perPage        = 100
)

// Client is an HTTP client for the GitHub REST API. The token is a personal
// access token or the GITHUB_TOKEN provided by Actions.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	retryConf  llmhttp.RetryConfig
}

// NewClient creates a GitHub API client.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retryConf: llmhttp.RetryConfig{
			MaxRetries:     3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     32 * time.Second,
			Multiplier:     2.0,
		},
	}
}

// SetBaseURL sets a custom base URL (for testing).
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// SetRetryConfig overrides the retry behavior.
func (c *Client) SetRetryConfig(conf llmhttp.RetryConfig) {
	c.retryConf = conf
}

type pullRequest struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Head   struct {
		SHA string `json:"sha"`
	} `json:"head"`
}

type pullRequestFile struct {
	Filename  string `json:"filename"`
	Status    string `json:"status"`
	Patch     string `json:"patch"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

type issueComment struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

type contentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// FetchReviewContext loads the PR metadata and its changed files into a
// review context.
func (c *Client) FetchReviewContext(ctx context.Context, owner, repo string, number int) (domain.ReviewContext, error) {
	var pr pullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", owner, repo, number)
	if err := c.get(ctx, path, &pr); err != nil {
		return domain.ReviewContext{}, fmt.Errorf("fetch pull request: %w", err)
	}

	diff, err := c.fetchDiff(ctx, owner, repo, number)
	if err != nil {
		return domain.ReviewContext{}, err
	}

	return domain.ReviewContext{
		Repository: owner + "/" + repo,
		PRNumber:   number,
		Title:      pr.Title,
		HeadSHA:    pr.Head.SHA,
		Diff:       diff,
	}, nil
}

// fetchDiff pages through the changed-files listing.
func (c *Client) fetchDiff(ctx context.Context, owner, repo string, number int) (domain.Diff, error) {
	var diff domain.Diff
	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d/files?per_page=%d&page=%d",
			owner, repo, number, perPage, page)

		var files []pullRequestFile
		if err := c.get(ctx, path, &files); err != nil {
			return domain.Diff{}, fmt.Errorf("list changed files: %w", err)
		}
		for _, f := range files {
			diff.Files = append(diff.Files, domain.FileDiff{
				Path:      f.Filename,
				Status:    domain.FileStatus(f.Status),
				Patch:     f.Patch,
				Additions: f.Additions,
				Deletions: f.Deletions,
			})
		}
		if len(files) < perPage {
			return diff, nil
		}
	}
}

// FetchFile returns the content of a repository file at a ref, or nil when
// the file does not exist. Used to read .reviewbuddy.yml from the repository
// under review.
func (c *Client) FetchFile(ctx context.Context, owner, repo, filePath, ref string) ([]byte, error) {
	path := fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, url.PathEscape(filePath))
	if ref != "" {
		path += "?ref=" + url.QueryEscape(ref)
	}

	var contents contentsResponse
	err := c.get(ctx, path, &contents)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", filePath, err)
	}
	if contents.Type != "file" {
		return nil, nil
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(contents.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return decoded, nil
}

// UpsertComment posts the review comment, replacing a previous one from an
// earlier run when its marker is found.
func (c *Client) UpsertComment(ctx context.Context, owner, repo string, number int, marker, body string) error {
	if marker != "" {
		existing, err := c.findMarkedComment(ctx, owner, repo, number, marker)
		if err != nil {
			return err
		}
		if existing != 0 {
			path := fmt.Sprintf("/repos/%s/%s/issues/comments/%d", owner, repo, existing)
			return c.send(ctx, http.MethodPatch, path, map[string]string{"body": body}, nil)
		}
	}

	path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments", owner, repo, number)
	return c.send(ctx, http.MethodPost, path, map[string]string{"body": body}, nil)
}

func (c *Client) findMarkedComment(ctx context.Context, owner, repo string, number int, marker string) (int64, error) {
	for page := 1; ; page++ {
		path := fmt.Sprintf("/repos/%s/%s/issues/%d/comments?per_page=%d&page=%d",
			owner, repo, number, perPage, page)

		var comments []issueComment
		if err := c.get(ctx, path, &comments); err != nil {
			return 0, fmt.Errorf("list comments: %w", err)
		}
		for _, cm := range comments {
			if strings.Contains(cm.Body, marker) {
				return cm.ID, nil
			}
		}
		if len(comments) < perPage {
			return 0, nil
		}
	}
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	return c.send(ctx, http.MethodGet, path, nil, out)
}

// send performs one API call with retry, decoding the response into out when
// it is non-nil.
func (c *Client) send(ctx context.Context, method, path string, payload, out interface{}) error {
	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	var respBody []byte
	err := llmhttp.RetryWithBackoff(ctx, func(ctx context.Context) error {
		var reader io.Reader
		if reqBody != nil {
			reader = bytes.NewReader(reqBody)
		}
		req, reqErr := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if reqErr != nil {
			return &llmhttp.Error{
				Type: llmhttp.ErrTypeUnknown, Message: reqErr.Error(), Provider: providerName,
			}
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		if reqBody != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, callErr := c.httpClient.Do(req)
		if callErr != nil {
			return &llmhttp.Error{
				Type: llmhttp.ErrTypeTimeout, Message: callErr.Error(),
				Retryable: true, Provider: providerName,
			}
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return &llmhttp.Error{
				Type:       llmhttp.ErrTypeUnknown,
				Message:    fmt.Sprintf("read response: %v", readErr),
				StatusCode: resp.StatusCode,
				Retryable:  resp.StatusCode >= 500,
				Provider:   providerName,
			}
		}
		if resp.StatusCode >= 400 {
			return mapHTTPError(resp.StatusCode, body)
		}
		respBody = body
		return nil
	}, c.retryConf)
	if err != nil {
		return err
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *llmhttp.Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
