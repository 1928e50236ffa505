// Package cassandra wraps gocql session management for the profile store.
package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"userprofile/internal/platform/config"
)

// Client owns a gocql session scoped to the configured keyspace.
type Client struct {
	session *gocql.Session
}

// New connects to the Cassandra cluster and verifies the session.
func New(cfg config.Cassandra) (*Client, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = cfg.Timeout
	cluster.ConnectTimeout = cfg.Timeout
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: 2}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("create cassandra session: %w", err)
	}

	return &Client{session: session}, nil
}

// Session exposes the underlying gocql session for query execution.
func (c *Client) Session() *gocql.Session {
	return c.session
}

// Health checks if the Cassandra connection is healthy.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var version string
	if err := c.session.Query("SELECT release_version FROM system.local").
		WithContext(ctx).Scan(&version); err != nil {
		return fmt.Errorf("cassandra health query: %w", err)
	}
	return nil
}

// Close shuts down the session.
func (c *Client) Close() {
	c.session.Close()
}
