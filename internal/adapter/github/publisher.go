package github

import (
	"context"

	"github.com/l1v0n1/ReviewBuddy/internal/domain"
)

// Publisher posts the rendered review comment to the pull request,
// replacing the comment from a previous run when one exists.
type Publisher struct {
	client *Client
	owner  string
	repo   string
	marker string
}

// NewPublisher wires a publisher for one repository. marker identifies
// comments from earlier runs; empty disables replacement.
func NewPublisher(client *Client, owner, repo, marker string) *Publisher {
	return &Publisher{client: client, owner: owner, repo: repo, marker: marker}
}

// Publish implements the review pipeline's publisher port.
func (p *Publisher) Publish(ctx context.Context, rc domain.ReviewContext, body string) error {
	return p.client.UpsertComment(ctx, p.owner, p.repo, rc.PRNumber, p.marker, body)
}
