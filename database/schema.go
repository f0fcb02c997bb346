package database

import (
	"context"
	"fmt"
)

// EnsureSchema creates the analytics_events table and its indexes if they do
// not exist yet. Safe to run on every startup.
func (c *DBClient) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id BIGSERIAL PRIMARY KEY,
			event_type VARCHAR(100) NOT NULL,
			user_id BIGINT,
			session_id VARCHAR(255),
			page_path VARCHAR(500),
			metadata JSONB DEFAULT '{}'::jsonb,
			ip_address VARCHAR(45),
			user_agent TEXT,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT (now() AT TIME ZONE 'utc')
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_event_type ON analytics_events (event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_user_id ON analytics_events (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_session_id ON analytics_events (session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_timestamp ON analytics_events (timestamp)`,
	}

	for _, stmt := range statements {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure analytics schema: %w", err)
		}
	}
	return nil
}
