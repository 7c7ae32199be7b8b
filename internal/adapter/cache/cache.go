// Package cache provides a SQLite-backed completion cache that wraps an AI
// provider. Repeated reviews of the same prompt reuse the stored response
// instead of calling the backend again.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/l1v0n1/ReviewBuddy/internal/usecase/synth"
)

// Provider wraps another synth.Provider and caches its completions.
type Provider struct {
	inner synth.Provider
	db    *sql.DB
}

// New opens (or creates) the cache database at path and returns a caching
// wrapper around inner. Use ":memory:" for an in-memory cache.
func New(inner synth.Provider, path string) (*Provider, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	p := &Provider{inner: inner, db: db}
	if err := p.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return p, nil
}

func (p *Provider) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS completions (
		key TEXT PRIMARY KEY,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		response TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_completions_created ON completions(created_at);
	`

	_, err := p.db.Exec(schema)
	return err
}

// Name reports the wrapped provider's name.
func (p *Provider) Name() string { return p.inner.Name() }

// Model reports the wrapped provider's model.
func (p *Provider) Model() string { return p.inner.Model() }

// Complete returns a cached response when one exists for this provider,
// model and prompt, otherwise calls the wrapped provider and stores the
// result. Cache read or write failures never fail the completion.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	key := cacheKey(p.inner.Name(), p.inner.Model(), prompt)

	var response string
	err := p.db.QueryRowContext(ctx,
		`SELECT response FROM completions WHERE key = ?`, key,
	).Scan(&response)
	if err == nil {
		return response, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
	}

	response, err = p.inner.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	_, _ = p.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO completions (key, provider, model, response, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		key, p.inner.Name(), p.inner.Model(), response, time.Now().Unix(),
	)

	return response, nil
}

// Purge removes cached completions older than maxAge and returns the number
// of entries deleted.
func (p *Provider) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).Unix()

	result, err := p.db.ExecContext(ctx,
		`DELETE FROM completions WHERE created_at < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge completion cache: %w", err)
	}

	return result.RowsAffected()
}

// Close closes the underlying database.
func (p *Provider) Close() error {
	return p.db.Close()
}

func cacheKey(provider, model, prompt string) string {
	h := sha256.New()
	h.Write([]byte(provider))
	h.Write([]byte{0})
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
